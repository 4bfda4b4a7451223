package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"sensiboost/db"
	"sensiboost/logging"
	"sensiboost/models"
)

var (
	ErrInvalidEmail = errors.New("invalid email")
	ErrNotFound     = errors.New("not found")
)

// Ledger owns nequi_files and premium_users. Approve is the only path that
// creates or refreshes a premium account.
type Ledger struct {
	db  *db.DB
	now func() time.Time
	log *zap.Logger
}

func NewLedger(d *db.DB, log *zap.Logger) *Ledger {
	return &Ledger{
		db:  d,
		now: func() time.Time { return time.Now().UTC() },
		log: logging.OrNop(log),
	}
}

// NormalizeEmail lowercases and trims an account identifier. It only checks
// that the address has a local part and a domain.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// dbTime scans timestamps from either driver. modernc returns time.Time for
// DATETIME columns it wrote itself but plain text for anything else.
type dbTime struct{ time.Time }

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}

// Submit records a pending receipt. It never touches premium_users.
func (l *Ledger) Submit(ctx context.Context, email, filename string) (models.ReceiptRecord, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return models.ReceiptRecord{}, err
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return models.ReceiptRecord{}, errors.New("filename is required")
	}

	rec := models.ReceiptRecord{
		Email:      email,
		Filename:   filename,
		UploadedAt: l.now(),
	}
	err = l.db.QueryRowContext(ctx, l.db.Rebind(`
		INSERT INTO nequi_files (email, filename, uploaded_at, approved)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`), rec.Email, rec.Filename, rec.UploadedAt, false).Scan(&rec.ID)
	if err != nil {
		return models.ReceiptRecord{}, fmt.Errorf("insert receipt: %w", err)
	}

	l.log.Info("ledger.submit", zap.Int64("id", rec.ID), zap.String("email", rec.Email))
	return rec, nil
}

const receiptColumns = `id, email, filename, uploaded_at, approved`

func scanReceipt(row interface{ Scan(...any) error }) (models.ReceiptRecord, error) {
	var (
		rec models.ReceiptRecord
		at  dbTime
	)
	if err := row.Scan(&rec.ID, &rec.Email, &rec.Filename, &at, &rec.Approved); err != nil {
		return models.ReceiptRecord{}, err
	}
	rec.UploadedAt = at.Time
	return rec, nil
}

// ListPending returns receipts still awaiting review, oldest first.
func (l *Ledger) ListPending(ctx context.Context) ([]models.ReceiptRecord, error) {
	rows, err := l.db.QueryContext(ctx, l.db.Rebind(
		`SELECT `+receiptColumns+` FROM nequi_files WHERE approved = ? ORDER BY id ASC`), false)
	if err != nil {
		return nil, fmt.Errorf("query pending receipts: %w", err)
	}
	defer rows.Close()

	items := []models.ReceiptRecord{}
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (l *Ledger) GetReceipt(ctx context.Context, id int64) (models.ReceiptRecord, error) {
	rec, err := scanReceipt(l.db.QueryRowContext(ctx, l.db.Rebind(
		`SELECT `+receiptColumns+` FROM nequi_files WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ReceiptRecord{}, ErrNotFound
	}
	if err != nil {
		return models.ReceiptRecord{}, fmt.Errorf("get receipt %d: %w", id, err)
	}
	return rec, nil
}

// Approve moves a receipt to approved and flags its account as premium.
// Unknown ids report false. Approving twice is a no-op that still reports
// true and leaves the account row alone.
func (l *Ledger) Approve(ctx context.Context, id int64) (bool, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin approve: %w", err)
	}
	defer tx.Rollback()

	var (
		email, filename string
		approved        bool
	)
	err = tx.QueryRowContext(ctx, l.db.Rebind(
		`SELECT email, filename, approved FROM nequi_files WHERE id = ?`), id).
		Scan(&email, &filename, &approved)
	if errors.Is(err, sql.ErrNoRows) {
		l.log.Info("ledger.approve.unknown", zap.Int64("id", id))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load receipt %d: %w", id, err)
	}
	if approved {
		l.log.Info("ledger.approve.repeat", zap.Int64("id", id))
		return true, nil
	}

	if _, err := tx.ExecContext(ctx, l.db.Rebind(
		`UPDATE nequi_files SET approved = ? WHERE id = ?`), true, id); err != nil {
		return false, fmt.Errorf("mark receipt %d approved: %w", id, err)
	}

	_, err = tx.ExecContext(ctx, l.db.Rebind(`
		INSERT INTO premium_users (email, active, source, receipt_filename, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			active = excluded.active,
			source = excluded.source,
			receipt_filename = excluded.receipt_filename,
			created_at = excluded.created_at
	`), email, true, models.PremiumSourceManualAdmin, filename, l.now())
	if err != nil {
		return false, fmt.Errorf("upsert premium user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit approve: %w", err)
	}
	l.log.Info("ledger.approve", zap.Int64("id", id), zap.String("email", email))
	return true, nil
}

const premiumColumns = `email, active, source, receipt_filename, created_at`

func scanPremium(row interface{ Scan(...any) error }) (models.PremiumAccount, error) {
	var (
		acc      models.PremiumAccount
		filename sql.NullString
		at       dbTime
	)
	if err := row.Scan(&acc.Email, &acc.Active, &acc.Source, &filename, &at); err != nil {
		return models.PremiumAccount{}, err
	}
	if filename.Valid {
		acc.ReceiptFilename = &filename.String
	}
	acc.CreatedAt = at.Time
	return acc, nil
}

// GetPremium looks up an account. The bool is false when none exists.
func (l *Ledger) GetPremium(ctx context.Context, email string) (models.PremiumAccount, bool, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return models.PremiumAccount{}, false, err
	}
	acc, err := scanPremium(l.db.QueryRowContext(ctx, l.db.Rebind(
		`SELECT `+premiumColumns+` FROM premium_users WHERE email = ?`), email))
	if errors.Is(err, sql.ErrNoRows) {
		return models.PremiumAccount{}, false, nil
	}
	if err != nil {
		return models.PremiumAccount{}, false, fmt.Errorf("get premium user: %w", err)
	}
	return acc, true, nil
}

// IsPremium reports whether email has an active account. Malformed
// addresses are simply not premium.
func (l *Ledger) IsPremium(ctx context.Context, email string) (bool, error) {
	acc, ok, err := l.GetPremium(ctx, email)
	if errors.Is(err, ErrInvalidEmail) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ok && acc.Active, nil
}

func (l *Ledger) ListPremium(ctx context.Context) ([]models.PremiumAccount, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+premiumColumns+` FROM premium_users ORDER BY created_at DESC, email ASC`)
	if err != nil {
		return nil, fmt.Errorf("query premium users: %w", err)
	}
	defer rows.Close()

	items := []models.PremiumAccount{}
	for rows.Next() {
		acc, err := scanPremium(rows)
		if err != nil {
			return nil, fmt.Errorf("scan premium user: %w", err)
		}
		items = append(items, acc)
	}
	return items, rows.Err()
}

// Ping checks the storage connection for the health probe.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// LedgerStats counts receipts and accounts for the admin overview.
type LedgerStats struct {
	PendingReceipts  int `json:"pending_receipts"`
	ApprovedReceipts int `json:"approved_receipts"`
	PremiumAccounts  int `json:"premium_accounts"`
}

func (l *Ledger) Stats(ctx context.Context) (LedgerStats, error) {
	var s LedgerStats
	err := l.db.QueryRowContext(ctx, l.db.Rebind(`
		SELECT
			COALESCE(SUM(CASE WHEN approved = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN approved = ? THEN 1 ELSE 0 END), 0)
		FROM nequi_files
	`), false, true).Scan(&s.PendingReceipts, &s.ApprovedReceipts)
	if err != nil {
		return LedgerStats{}, fmt.Errorf("count receipts: %w", err)
	}
	err = l.db.QueryRowContext(ctx, l.db.Rebind(
		`SELECT COUNT(*) FROM premium_users WHERE active = ?`), true).Scan(&s.PremiumAccounts)
	if err != nil {
		return LedgerStats{}, fmt.Errorf("count premium users: %w", err)
	}
	return s, nil
}
