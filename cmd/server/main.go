package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/sweetshop/internal/adapter/handler"
	"github.com/rl1809/sweetshop/internal/adapter/messaging"
	"github.com/rl1809/sweetshop/internal/adapter/storage"
	"github.com/rl1809/sweetshop/internal/config"
	"github.com/rl1809/sweetshop/internal/core/service"
	"github.com/rl1809/sweetshop/internal/logger"
	"github.com/rl1809/sweetshop/internal/port"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New("info")
		l.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.LogLevel)

	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := storage.Migrate(cfg.MySQLDSN); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate mysql")
		}
		log.Info().Msg("mysql schema up to date")
	}

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect mysql")
	}
	db.SetMaxOpenConns(cfg.MySQLMaxOpen)
	db.SetMaxIdleConns(cfg.MySQLMaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping mysql")
	}
	log.Info().Msg("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: cfg.RedisPoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	log.Info().Msg("connected to redis")

	// Initialize adapters
	redisAdapter := storage.NewRedisAdapter(rdb)
	mysqlAdapter := storage.NewMySQLAdapter(db)

	var publisher port.EventPublisher
	var kafkaPublisher *messaging.KafkaPublisher
	if cfg.KafkaEnabled() {
		kafkaPublisher = messaging.NewKafkaPublisher(messaging.KafkaConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaTopic,
			BatchTimeout: 10 * time.Millisecond,
			MaxAttempts:  3,
		}, log)
		publisher = kafkaPublisher
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("order events enabled")
	} else {
		log.Warn().Msg("KAFKA_BROKERS not set, order events disabled")
	}

	// Initialize services
	processor := service.NewFollowUpProcessor(redisAdapter, publisher, log)
	orderService := service.NewOrderService(mysqlAdapter, mysqlAdapter, mysqlAdapter, processor, cfg.QueueSize, log).
		WithIdempotency(redisAdapter)
	cartService := service.NewCartService(redisAdapter, mysqlAdapter, log)
	catalogService := service.NewCatalogService(mysqlAdapter)
	couponService := service.NewCouponService(mysqlAdapter, log)

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			service.RunFollowUpWorker(id, orderService.GetFollowUpQueue(), processor)
		}(i)
	}
	log.Info().Int("workers", cfg.WorkerCount).Msg("started follow-up workers")

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		handler.IdentityInterceptor,
		handler.LoggingInterceptor(log),
	))
	handler.RegisterOrderServiceServer(grpcServer, handler.NewGRPCHandler(orderService, log))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewHTTPHandler(orderService, cartService, catalogService, couponService, log).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP shutdown")
		}
		log.Info().Msg("HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info().Msg("gRPC server stopped")

		// Close follow-up queue and wait for workers
		orderService.Close()
		wg.Wait()
		log.Info().Msg("workers stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
	}

	// Close connections
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Error().Err(err).Msg("close kafka publisher")
		}
	}
	rdb.Close()
	db.Close()
	log.Info().Msg("connections closed")
}
