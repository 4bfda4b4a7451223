package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sensiboost/services"
)

func (h *Handler) PendingReceipts(c *gin.Context) {
	items, err := h.ledger.ListPending(c.Request.Context())
	if err != nil {
		h.log.Error("admin.pending_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) ApproveReceipt(c *gin.Context) {
	var req struct {
		ID *int64 `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if req.ID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	ctx := c.Request.Context()

	before, err := h.ledger.GetReceipt(ctx, *req.ID)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}
	if err != nil {
		h.log.Error("admin.approve_lookup_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	ok, err := h.ledger.Approve(ctx, *req.ID)
	if err != nil {
		h.log.Error("admin.approve_failed", zap.Int64("id", *req.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if ok && !before.Approved {
		h.metrics.ReceiptApproved()
		h.notifier.ReceiptApproved(before)
	}
	c.JSON(http.StatusOK, gin.H{"ok": ok})
}

func (h *Handler) PremiumUsers(c *gin.Context) {
	items, err := h.ledger.ListPremium(c.Request.Context())
	if err != nil {
		h.log.Error("admin.premium_list_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) PremiumUsersXLSX(c *gin.Context) {
	items, err := h.ledger.ListPremium(c.Request.Context())
	if err != nil {
		h.log.Error("admin.premium_list_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	data, err := services.PremiumXLSX(items)
	if err != nil {
		h.log.Error("admin.export_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Export failed"})
		return
	}
	filename := fmt.Sprintf("premium-users-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
