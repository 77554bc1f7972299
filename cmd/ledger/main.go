package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"checkin/internal/attendance"
	"checkin/internal/config"
	"checkin/internal/handler"
	"checkin/internal/httpmiddleware"
	"checkin/internal/logging"
	"checkin/internal/metrics"
	"checkin/internal/store"
)

func main() {
	cfg := config.Load()
	if _, err := logging.Configure("ledger", logging.Options{
		Level:        cfg.LogLevel,
		Format:       cfg.LogFormat,
		File:         cfg.LogFile,
		ReportCaller: cfg.LogCaller,
	}); err != nil {
		logrus.Fatalf("logging setup failed: %v", err)
	}
	log := logging.NewLogger("ledger")

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.WithError(err).Fatal("http server failed")
	}
}

func runHTTP(cfg config.App, log *logrus.Entry) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		ledgerStore attendance.Store
		db          *store.DB
	)
	switch cfg.LedgerStore {
	case "memory":
		log.Warn("using in-memory ledger store; attendance is lost on restart")
		ledgerStore = attendance.NewMemoryStore()
	default:
		var err error
		db, err = store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		repo := attendance.NewRepository(db.Client)
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		ledgerStore = repo
	}

	svc := attendance.NewService(ledgerStore, cfg.Categories,
		attendance.WithLogger(logging.NewLogger("attendance")),
		attendance.WithMetrics(metrics.NewLedger(prometheus.DefaultRegisterer)),
	)
	h := handler.New(svc, handler.TokenConfig{
		Issuer:     cfg.JWTIssuer,
		SigningKey: cfg.JWTSigningKey,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}, logging.NewLogger("handler"))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    log.WriterLevel(logrus.DebugLevel),
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		dbHealthy := db == nil || db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "db": dbHealthy, "store": cfg.LedgerStore})
	})

	// Registration is limited per client IP, everything else per station.
	ipLimit := httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware()
	stationLimit := httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware()
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/v1/stations/register" {
			ipLimit(c)
			return
		}
		c.Next()
	})
	h.Mount(r, stationLimit)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.HTTPPort).Info("ledger listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down ledger")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("forced shutdown")
	}
	log.Info("ledger exited")
	return nil
}

// CORS middleware for the attendee registration page.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
