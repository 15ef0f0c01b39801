package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/pricesync/internal/audit"
	auditdomain "github.com/smallbiznis/pricesync/internal/audit/domain"
	"github.com/smallbiznis/pricesync/internal/auth/session"
	"github.com/smallbiznis/pricesync/internal/authorization"
	"github.com/smallbiznis/pricesync/internal/config"
	"github.com/smallbiznis/pricesync/internal/connector"
	"github.com/smallbiznis/pricesync/internal/event"
	"github.com/smallbiznis/pricesync/internal/integration"
	"github.com/smallbiznis/pricesync/internal/lifecycle"
	lifecycledomain "github.com/smallbiznis/pricesync/internal/lifecycle/domain"
	obslogger "github.com/smallbiznis/pricesync/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pricesync/internal/observability/metrics"
	obstracing "github.com/smallbiznis/pricesync/internal/observability/tracing"
	"github.com/smallbiznis/pricesync/internal/price"
	"github.com/smallbiznis/pricesync/internal/pricechange"
	"github.com/smallbiznis/pricesync/internal/project"
	projectdomain "github.com/smallbiznis/pricesync/internal/project/domain"
	"github.com/smallbiznis/pricesync/internal/ratelimit"
	"github.com/smallbiznis/pricesync/internal/sku"
	"github.com/smallbiznis/pricesync/internal/variant"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	ratelimit.Module,
	session.Module,
	audit.Module,
	authorization.Module,
	project.Module,
	sku.Module,
	price.Module,
	event.Module,
	pricechange.Module,
	integration.Module,
	variant.Module,
	connector.Module,
	lifecycle.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           cfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(cfg.AppName))
	r.Use(obstracing.Annotate())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", HeaderCorrelationID},
			ExposeHeaders:    []string{HeaderCorrelationID, obslogger.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(Correlation())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(cfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
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
	engine       *gin.Engine
	cfg          config.Config
	sessions     *session.Manager
	projects     projectdomain.Service
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	lifecycleSvc lifecycledomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Sessions     *session.Manager
	Projects     projectdomain.Service
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	LifecycleSvc lifecycledomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		sessions:     p.Sessions,
		projects:     p.Projects,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		lifecycleSvc: p.LifecycleSvc,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/logout", s.Logout)
	if !s.cfg.IsProduction() {
		auth.POST("/dev/session", s.CreateDevSession)
	}
}

func (s *Server) registerAPIRoutes() {
	projects := s.engine.Group("/api/projects/:slug")
	projects.Use(s.SessionRequired())
	projects.Use(s.ProjectContext())

	// -------- Price changes --------
	projects.GET("/price-changes", s.authorize(authorization.ActionView), s.ListPriceChanges)
	projects.GET("/price-changes/:id", s.authorize(authorization.ActionView), s.GetPriceChange)
	projects.GET("/price-changes/:id/audits", s.authorize(authorization.ActionView), s.ListPriceChangeAudits)
	projects.POST("/price-changes/:id/approve", s.authorize(authorization.ActionApprove), s.ApprovePriceChange)
	projects.POST("/price-changes/:id/reject", s.authorize(authorization.ActionReject), s.RejectPriceChange)
	projects.POST("/price-changes/:id/apply", s.authorize(authorization.ActionApply), s.ApplyPriceChange)
	projects.POST("/price-changes/:id/rollback", s.authorize(authorization.ActionRollback), s.RollbackPriceChange)
}
