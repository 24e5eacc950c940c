package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmehdipour/prompt-vault/internal/config"
	"github.com/jmehdipour/prompt-vault/internal/gateway"
	"github.com/jmehdipour/prompt-vault/internal/http/middleware"
	"github.com/jmehdipour/prompt-vault/internal/metrics"
	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/jmehdipour/prompt-vault/internal/repository"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventHandler processes a verified payment webhook event.
type EventHandler interface {
	Handle(ctx context.Context, ev gateway.Event) (model.DeliveryOutcome, error)
}

type Deps struct {
	Customers  repository.CustomersRepository
	Prompts    repository.PromptsRepository
	Deliveries repository.DeliveriesRepository // optional
	Gateway    gateway.Gateway
	Events     EventHandler
	Redis      *redis.Client // optional
	Logger     *zap.Logger
}

type Server struct {
	e   *echo.Echo
	log *zap.Logger

	// in-flight webhook delivery records
	records *sync.WaitGroup
}

func NewServer(cfg config.Config, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Deliveries == nil {
		d.Deliveries = repository.NopDeliveries{}
	}

	// echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(gommonLevel(cfg.Log.Level))
	e.Validator = &requestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
	e.Use(echoMid.Recover(), requestLogger(d.Logger))

	metrics.MustRegister(prometheus.DefaultRegisterer)
	records := &sync.WaitGroup{}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// payment processor webhooks (authenticated by signature, not by identity)
	e.POST("/api/stripe/webhooks", stripeWebhookHandler(webhookDeps{
		gateway:    d.Gateway,
		events:     d.Events,
		deliveries: d.Deliveries,
		secret:     cfg.Stripe.WebhookSecret,
		log:        d.Logger,
		records:    records,
	}))

	// middlewares
	authMW := middleware.JWTIdentityMiddleware(middleware.IdentityConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
	})
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          d.Redis,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:id:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.GET("/prompts", listPromptsHandler(d.Prompts, d.Logger))
	v1.POST("/prompts", createPromptHandler(d.Prompts, d.Logger))
	v1.PUT("/prompts/:id", updatePromptHandler(d.Prompts, d.Logger))
	v1.DELETE("/prompts/:id", deletePromptHandler(d.Prompts, d.Logger))
	v1.GET("/membership", membershipHandler(d.Customers, d.Logger))
	v1.POST("/billing/checkout", checkoutHandler(d.Customers, d.Gateway, cfg.Stripe, d.Logger))

	return &Server{e: e, log: d.Logger, records: records}
}

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

// Shutdown stops accepting requests, then waits for pending delivery records
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.e.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.records.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("http: delivery records still pending at shutdown")
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.e }

type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i any) error { return rv.v.Struct(i) }

func requestLogger(l *zap.Logger) echo.MiddlewareFunc {
	return echoMid.RequestLoggerWithConfig(echoMid.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(_ echo.Context, v echoMid.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				l.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			l.Info("request", fields...)
			return nil
		},
	})
}

func gommonLevel(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}
