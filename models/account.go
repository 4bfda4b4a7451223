package models

import (
	"time"
)

const PremiumSourceManualAdmin = "manual-admin"

// ReceiptRecord is an uploaded proof of payment. Approved only ever moves
// from false to true.
type ReceiptRecord struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
	Approved   bool      `json:"approved"`
}

type PremiumAccount struct {
	Email           string    `json:"email"`
	Active          bool      `json:"active"`
	Source          string    `json:"source"`
	ReceiptFilename *string   `json:"receipt_filename,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
