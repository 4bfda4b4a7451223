package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sensiboost/services"
)

// multipart parts beyond this stay on disk until the request ends
const uploadMemory = 1 << 20

func (h *Handler) UploadReceipt(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Uploads.MaxBytes)
	if err := c.Request.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and file are required"})
		return
	}

	email := strings.TrimSpace(c.PostForm("email"))
	fh, err := c.FormFile("file")
	if email == "" || err != nil || fh.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and file are required"})
		return
	}
	if !services.AllowedReceiptExt(fh.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only png, jpg, jpeg or webp images are allowed"})
		return
	}
	email, err = services.NormalizeEmail(email)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
		return
	}

	src, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return
	}
	defer src.Close()

	name, err := h.store.Save(email, fh.Filename, src)
	if err != nil {
		h.log.Error("upload.save_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	rec, err := h.ledger.Submit(c.Request.Context(), email, name)
	if err != nil {
		h.log.Error("upload.submit_failed", zap.Error(err))
		if rmErr := h.store.Remove(name); rmErr != nil {
			h.log.Warn("upload.cleanup_failed", zap.String("file", name), zap.Error(rmErr))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	h.metrics.ReceiptUploaded()
	h.notifier.ReceiptUploaded(rec)
	c.JSON(http.StatusOK, gin.H{"ok": true, "file": name})
}

func (h *Handler) ServeUpload(c *gin.Context) {
	path, err := h.store.Path(c.Param("filename"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	c.File(path)
}
