package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sensiboost/config"
	"sensiboost/logging"
	"sensiboost/middleware"
	"sensiboost/models"
	"sensiboost/services"
)

// Recommender is the part of services.Recommender the HTTP layer needs.
type Recommender interface {
	Basic(ctx context.Context, query, device string) models.BasicResult
	Premium(ctx context.Context, query, device string) models.PremiumResult
}

type Handler struct {
	cfg         *config.Config
	catalog     *services.Catalog
	recommender Recommender
	ledger      *services.Ledger
	store       *services.ReceiptStore
	notifier    *services.Notifier
	metrics     *services.Metrics
	gatherer    prometheus.Gatherer
	log         *zap.Logger
}

type Deps struct {
	Config      *config.Config
	Catalog     *services.Catalog
	Recommender Recommender
	Ledger      *services.Ledger
	Store       *services.ReceiptStore
	Notifier    *services.Notifier
	Metrics     *services.Metrics
	Gatherer    prometheus.Gatherer
	Log         *zap.Logger
}

func New(d Deps) *Handler {
	return &Handler{
		cfg:         d.Config,
		catalog:     d.Catalog,
		recommender: d.Recommender,
		ledger:      d.Ledger,
		store:       d.Store,
		notifier:    d.Notifier,
		metrics:     d.Metrics,
		gatherer:    d.Gatherer,
		log:         logging.OrNop(d.Log),
	}
}

// Register mounts every route. The HTML page is only mounted when the engine
// has templates loaded.
func (h *Handler) Register(r *gin.Engine, withUI bool) {
	if withUI {
		r.GET("/", h.Index)
	}
	r.GET("/health", h.Health)
	r.GET("/config/public", h.PublicConfig)
	r.GET("/detect-device", h.DetectDevice)

	r.GET("/ai/basic", h.Basic)
	r.POST("/ai/premium", h.Premium)
	r.GET("/premium/status", h.PremiumStatus)

	r.POST("/nequi/upload", h.UploadReceipt)

	if h.cfg.Features.MetricsEnabled && h.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	admin := middleware.AdminRequired(h.cfg.Admin.Token)
	r.GET("/uploads/:filename", admin, h.ServeUpload)

	adm := r.Group("/admin", admin)
	{
		adm.GET("/pending-nequi", h.PendingReceipts)
		adm.POST("/approve-nequi", h.ApproveReceipt)
		adm.GET("/premium-users", h.PremiumUsers)
		adm.GET("/premium-users.xlsx", h.PremiumUsersXLSX)
		adm.GET("/stats", h.Stats)
	}
}
