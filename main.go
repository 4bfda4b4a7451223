package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"sensiboost/config"
	"sensiboost/db"
	"sensiboost/handlers"
	"sensiboost/logging"
	"sensiboost/middleware"
	"sensiboost/services"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: .env not loaded: %v", err)
	}
	cfg := config.MustLoad()

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("boot",
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("search", cfg.SearchEnabled()),
		zap.Bool("genai", cfg.GenAIEnabled()),
		zap.Bool("mail", cfg.MailEnabled()),
		zap.Bool("require_premium", cfg.Features.RequirePremium),
		zap.Bool("admin_enabled", cfg.Admin.Token != ""),
	)

	conn, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("db.open_failed", zap.Error(err))
	}
	defer conn.Close()
	if err := conn.Migrate(); err != nil {
		logger.Fatal("db.migrate_failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(reg)

	generator, err := services.NewGenerator(ctx, cfg, logger.Named("genai"))
	if err != nil {
		logger.Fatal("genai.init_failed", zap.Error(err))
	}
	catalog := services.DefaultCatalog()
	recommender := services.NewRecommender(
		catalog,
		services.NewSearcher(cfg, logger.Named("search")),
		generator,
		metrics,
		logger.Named("recommend"),
	)

	store, err := services.NewReceiptStore(cfg.Uploads.Dir, logger.Named("uploads"))
	if err != nil {
		logger.Fatal("uploads.init_failed", zap.Error(err))
	}
	notifier := services.NewNotifier(cfg, logger.Named("notify"))

	h := handlers.New(handlers.Deps{
		Config:      cfg,
		Catalog:     catalog,
		Recommender: recommender,
		Ledger:      services.NewLedger(conn, logger.Named("ledger")),
		Store:       store,
		Notifier:    notifier,
		Metrics:     metrics,
		Gatherer:    reg,
		Log:         logger.Named("http"),
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(logger.Named("http")), middleware.Recovery(logger))
	r.MaxMultipartMemory = cfg.Uploads.MaxBytes
	r.LoadHTMLGlob(cfg.Templates.Glob)
	h.Register(r, true)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http.listen", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http.serve_failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http.shutdown_failed", zap.Error(err))
	}
	notifier.Wait()
}
