package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sensiboost/services"
)

// PremiumStatus lets the page check whether an email has been approved.
func (h *Handler) PremiumStatus(c *gin.Context) {
	email, err := services.NormalizeEmail(c.Query("email"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
		return
	}

	acc, found, err := h.ledger.GetPremium(c.Request.Context(), email)
	if err != nil {
		h.log.Error("premium.status_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	resp := gin.H{
		"email":   email,
		"premium": found && acc.Active,
	}
	if found {
		resp["since"] = acc.CreatedAt
	}
	c.JSON(http.StatusOK, resp)
}
