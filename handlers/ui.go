package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sensiboost/models"
	"sensiboost/services"
)

func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":          "SensiBoost",
		"NequiNumber":    h.cfg.Payment.NequiNumber,
		"PremiumPrice":   h.cfg.Payment.PremiumPrice,
		"RequirePremium": h.cfg.Features.RequirePremium,
		"DefaultQuery":   services.DefaultQuery,
	})
}

func (h *Handler) PublicConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"nequi_number":    h.cfg.Payment.NequiNumber,
		"premium_price":   h.cfg.Payment.PremiumPrice,
		"require_premium": h.cfg.Features.RequirePremium,
	})
}

// DetectDevice prefers the Sec-CH-UA-Model client hint and falls back to
// the User-Agent string.
func (h *Handler) DetectDevice(c *gin.Context) {
	hints := []string{
		strings.Trim(c.GetHeader("Sec-CH-UA-Model"), `" `),
		c.GetHeader("User-Agent"),
	}
	for _, hint := range hints {
		if hint == "" {
			continue
		}
		if entry, ok := h.catalog.MatchHint(hint); ok {
			c.JSON(http.StatusOK, gin.H{
				"device": entry.Model,
				"brand":  entry.Brand,
				"tier":   entry.Tier,
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"device": nil, "tier": models.TierMedium})
}
