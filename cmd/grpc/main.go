package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-inventory-service/config"
	"github.com/fekuna/omnipos-inventory-service/internal/activity"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/pkg/broker"
	"github.com/fekuna/omnipos-inventory-service/pkg/cache"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/postgres"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/txmanager"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/fekuna/omnipos-inventory-service/pkg/middleware"
	"github.com/fekuna/omnipos-inventory-service/pkg/search"

	invH "github.com/fekuna/omnipos-inventory-service/internal/inventory/handler"
	invRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/usecase"

	orderH "github.com/fekuna/omnipos-inventory-service/internal/order/handler"
	orderListenerPkg "github.com/fekuna/omnipos-inventory-service/internal/order/listener"
	orderRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/order/repository"
	orderUCPkg "github.com/fekuna/omnipos-inventory-service/internal/order/usecase"

	prodH "github.com/fekuna/omnipos-inventory-service/internal/product/handler"
	prodRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-inventory-service/internal/product/usecase"

	productionH "github.com/fekuna/omnipos-inventory-service/internal/production/handler"
	productionRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/production/repository"
	productionUCPkg "github.com/fekuna/omnipos-inventory-service/internal/production/usecase"

	whH "github.com/fekuna/omnipos-inventory-service/internal/warehouse/handler"
	whRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/warehouse/repository"
	whUCPkg "github.com/fekuna/omnipos-inventory-service/internal/warehouse/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	pgConfig := &postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	}
	db, err := postgres.NewPostgres(pgConfig)
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	if cfg.Postgres.MigrateOnStart {
		if err := database.Migrate(pgConfig.URL()); err != nil {
			appLogger.Fatal("Could not apply migrations", zap.Error(err))
		}
		appLogger.Info("Database schema is up to date")
	}

	tm := txmanager.New(db)

	// 4. Initialize Repositories
	invRepo := invRepoPkg.NewPGRepository(db)
	orderRepo := orderRepoPkg.NewPGRepository(db)
	prodRepo := prodRepoPkg.NewPGRepository(db)
	productionRepo := productionRepoPkg.NewPGRepository(db)
	bomRepo := productionRepoPkg.NewBOMRepository(db)
	whRepo := whRepoPkg.NewPGRepository(db)

	// 5. Initialize Redis. Without it adjustments rely on row locks alone
	// and product lists are never cached.
	var locker invUCPkg.Locker
	var productCache prodUCPkg.Cache
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Redis, running without locks and cache", zap.Error(err))
	} else {
		defer redisClient.Close()
		locker = redisClient
		productCache = redisClient
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 6. Initialize Kafka
	var sink activity.Sink = activity.Nop()
	var brokerSink *activity.BrokerSink
	var kafkaConsumer *broker.KafkaConsumer
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.ActivityTopic,
		})
		defer producer.Close()
		brokerSink = activity.NewBrokerSink(producer, appLogger)
		sink = brokerSink

		kafkaConsumer = broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.OrdersTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer kafkaConsumer.Close()
		appLogger.Info("Connected to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("orders_topic", cfg.Kafka.OrdersTopic),
			zap.String("activity_topic", cfg.Kafka.ActivityTopic))
	}

	// 7. Initialize Elasticsearch
	var searcher prodUCPkg.Searcher
	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Elasticsearch, product search uses the database", zap.Error(err))
	} else {
		searcher = esClient
		appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
	}

	// 8. Initialize UseCases
	lockTTL := time.Duration(cfg.Stock.LockTTLSeconds) * time.Second
	invUC := invUCPkg.NewInventoryUseCase(invRepo, tm, locker, lockTTL, sink, appLogger)
	orderUC := orderUCPkg.NewOrderUseCase(orderRepo, invUC, tm, sink, appLogger)
	productionUC := productionUCPkg.NewProductionUseCase(productionRepo, bomRepo, invUC, tm, sink, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, tm, productCache, searcher, sink, appLogger)
	whUC := whUCPkg.NewWarehouseUseCase(whRepo, tm, sink, appLogger)

	// 9. Start Listeners
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if kafkaConsumer != nil {
		orderListener := orderListenerPkg.NewOrderListener(kafkaConsumer, orderUC, appLogger)
		go orderListener.Start(ctx)
	}

	// 10. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		appLogger.Fatal("failed to listen", zap.String("port", port), zap.Error(err))
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.ContextInterceptor(),
			middleware.LoggingInterceptor(appLogger),
		),
	)

	invH.NewInventoryHandler(invUC, appLogger).Register(grpcServer)
	orderH.NewOrderHandler(orderUC, appLogger).Register(grpcServer)
	productionH.NewProductionHandler(productionUC, appLogger).Register(grpcServer)
	prodH.NewProductHandler(prodUC, appLogger).Register(grpcServer)
	whH.NewWarehouseHandler(whUC, appLogger).Register(grpcServer)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port))

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()
	cancel()
	grpcServer.GracefulStop()
	if brokerSink != nil {
		brokerSink.Flush()
	}
	appLogger.Info("Server stopped")
}
