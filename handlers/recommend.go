package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sensiboost/services"
)

func (h *Handler) Basic(c *gin.Context) {
	q := c.DefaultQuery("q", services.DefaultQuery)
	device := c.Query("device")

	c.JSON(http.StatusOK, h.recommender.Basic(c.Request.Context(), q, device))
}

type premiumRequest struct {
	Query  string `json:"query"`
	Device string `json:"device"`
	Email  string `json:"email"`
}

func (h *Handler) Premium(c *gin.Context) {
	var req premiumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if h.cfg.Features.RequirePremium {
		ok, err := h.ledger.IsPremium(c.Request.Context(), req.Email)
		if err != nil {
			h.log.Error("premium.lookup_failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Premium required"})
			return
		}
	}

	c.JSON(http.StatusOK, h.recommender.Premium(c.Request.Context(), req.Query, req.Device))
}
