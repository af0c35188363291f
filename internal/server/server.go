package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	billingdomain "github.com/consensusai/consensus/internal/billing/domain"
	"github.com/consensusai/consensus/internal/clock"
	"github.com/consensusai/consensus/internal/config"
	"github.com/consensusai/consensus/internal/observability"
	obslogger "github.com/consensusai/consensus/internal/observability/logger"
	obsmetrics "github.com/consensusai/consensus/internal/observability/metrics"
	obstracing "github.com/consensusai/consensus/internal/observability/tracing"
	"github.com/consensusai/consensus/internal/providers/pdf"
	"github.com/consensusai/consensus/internal/ratelimit"
	usagedomain "github.com/consensusai/consensus/internal/usage/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module serves the HTTP API. Domain services come from the usage, billing
// and provider modules.
var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	usageSvc    usagedomain.Tracker
	billingSvc  billingdomain.Service
	pdf         pdf.Provider
	clock       clock.Clock
	obsMetrics  *obsmetrics.Metrics
	userLimiter *ratelimit.UserLimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	UsageSvc    usagedomain.Tracker
	BillingSvc  billingdomain.Service
	PDF         pdf.Provider
	Clock       clock.Clock
	ObsMetrics  *obsmetrics.Metrics    `optional:"true"`
	UserLimiter *ratelimit.UserLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		usageSvc:    p.UsageSvc,
		billingSvc:  p.BillingSvc,
		pdf:         p.PDF,
		clock:       p.Clock,
		obsMetrics:  p.ObsMetrics,
		userLimiter: p.UserLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")

	api.GET("/tiers", s.ListTiers)
	api.POST("/events", s.RecordEvent)

	user := api.Group("/users/:user_id")
	{
		// -------- Usage --------
		user.POST("/messages", s.UserRateLimit(), s.QuotaGate(), s.RecordMessage)
		user.POST("/debates", s.UserRateLimit(), s.RecordDebate)
		user.GET("/usage", s.GetUsage)
		user.GET("/usage/history", s.GetUsageHistory)
		user.GET("/events", s.ListEvents)

		// -------- Subscription --------
		user.POST("/subscription", s.CreateSubscription)
		user.GET("/subscription", s.GetSubscription)
		user.POST("/subscription/activate", s.ActivateSubscription)
		user.POST("/subscription/past-due", s.MarkSubscriptionPastDue)
		user.POST("/subscription/renew", s.RenewSubscription)
		user.POST("/subscription/cancel", s.CancelSubscription)
		user.POST("/subscription/tier", s.ChangeSubscriptionTier)

		// -------- Billing --------
		user.GET("/quota", s.GetQuota)
		user.GET("/billing", s.GetBillingSummary)
		user.GET("/statement.pdf", s.GetStatement)
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
	s.engine.NoMethod(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
