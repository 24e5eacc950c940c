package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/prompt-vault/internal/config"
	"github.com/jmehdipour/prompt-vault/internal/db"
	"github.com/jmehdipour/prompt-vault/internal/gateway"
	httpSrv "github.com/jmehdipour/prompt-vault/internal/http"
	"github.com/jmehdipour/prompt-vault/internal/kafka"
	"github.com/jmehdipour/prompt-vault/internal/logger"
	"github.com/jmehdipour/prompt-vault/internal/repository"
	"github.com/jmehdipour/prompt-vault/internal/service/billing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		log := logger.Init(cfg.Log.Level, cfg.Log.Encoding)
		defer func() { _ = log.Sync() }()

		sqlDB, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, sqlOpts(cfg.Database))
		if err != nil {
			return fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
		}
		defer sqlDB.Close()

		redisClient, err := db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		if redisClient != nil {
			defer func() { _ = redisClient.Close() }()
		} else {
			log.Info("redis not configured; rate limiting disabled")
		}

		chDB, err := db.NewClickHouseConnection(cfg.ClickHouse.DSN, sqlOpts(cfg.ClickHouse))
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		if chDB != nil {
			defer func() { _ = chDB.Close() }()
		} else {
			log.Info("clickhouse not configured; webhook delivery log disabled")
		}

		var publisher billing.Publisher = billing.NopPublisher{}
		if len(cfg.Kafka.Brokers) > 0 {
			producer := kafka.NewProducerFromConfig(kafka.Config{
				Brokers:      cfg.Kafka.Brokers,
				Topic:        cfg.Kafka.MembershipTopic,
				WriteTimeout: cfg.Kafka.WriteTimeout,
				MaxAttempts:  cfg.Kafka.MaxAttempts,
			})
			defer func() { _ = producer.Close() }()
			publisher = producer
		} else {
			log.Info("kafka not configured; membership events disabled")
		}

		customers := repository.NewCustomersRepository(sqlDB)
		gw := gateway.NewStripeGateway(gateway.StripeOpts{
			SecretKey:     cfg.Stripe.SecretKey,
			FailThreshold: cfg.Stripe.Breaker.FailThreshold,
			OpenFor:       time.Duration(cfg.Stripe.Breaker.OpenForMs) * time.Millisecond,
		})
		reconciler := billing.NewReconciler(customers, gw, publisher, log.Named("billing"),
			billing.WithPublishTimeout(cfg.Kafka.PublishTimeout))

		server := httpSrv.NewServer(cfg, httpSrv.Deps{
			Customers:  customers,
			Prompts:    repository.NewPromptsRepository(sqlDB),
			Deliveries: repository.NewCHDeliveriesRepository(chDB),
			Gateway:    gw,
			Events:     billing.NewEventHandler(reconciler, gw, log.Named("webhook")),
			Redis:      redisClient,
			Logger:     log,
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		runErr := waitForExit(sigCh, errCh, log)

		timeout := cfg.HTTP.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}

		return runErr
	},
}

// waitForExit blocks until a shutdown signal arrives or the server stops on its
// own. A server that stopped for any reason other than a shutdown is an error.
func waitForExit(sigCh <-chan os.Signal, errCh <-chan error, log *zap.Logger) error {
	select {
	case sig := <-sigCh:
		log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server exited", zap.Error(err))
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}
