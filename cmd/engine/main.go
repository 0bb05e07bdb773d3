package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	accountingapp "github.com/wyfcoding/primecredit/internal/accounting/application"
	accountingdomain "github.com/wyfcoding/primecredit/internal/accounting/domain"
	"github.com/wyfcoding/primecredit/internal/accounting/infrastructure/idempotency"
	"github.com/wyfcoding/primecredit/internal/accounting/infrastructure/messaging"
	accountingmysql "github.com/wyfcoding/primecredit/internal/accounting/infrastructure/persistence/mysql"
	"github.com/wyfcoding/primecredit/internal/accounting/infrastructure/viewcache"
	accountinghttp "github.com/wyfcoding/primecredit/internal/accounting/interfaces/http"
	collateralapp "github.com/wyfcoding/primecredit/internal/collateral/application"
	collateraldomain "github.com/wyfcoding/primecredit/internal/collateral/domain"
	collateralmysql "github.com/wyfcoding/primecredit/internal/collateral/infrastructure/persistence/mysql"
	creditapp "github.com/wyfcoding/primecredit/internal/credit/application"
	creditdomain "github.com/wyfcoding/primecredit/internal/credit/domain"
	creditmysql "github.com/wyfcoding/primecredit/internal/credit/infrastructure/persistence/mysql"
	marketplaceapp "github.com/wyfcoding/primecredit/internal/marketplace/application"
	marketplacedomain "github.com/wyfcoding/primecredit/internal/marketplace/domain"
	marketplacemysql "github.com/wyfcoding/primecredit/internal/marketplace/infrastructure/persistence/mysql"
	registryapp "github.com/wyfcoding/primecredit/internal/registry/application"
	registrydomain "github.com/wyfcoding/primecredit/internal/registry/domain"
	registrymysql "github.com/wyfcoding/primecredit/internal/registry/infrastructure/persistence/mysql"
	"github.com/wyfcoding/primecredit/pkg/cache"
	"github.com/wyfcoding/primecredit/pkg/clock"
	"github.com/wyfcoding/primecredit/pkg/config"
	"github.com/wyfcoding/primecredit/pkg/db"
	"github.com/wyfcoding/primecredit/pkg/logger"
	"github.com/wyfcoding/primecredit/pkg/metrics"
	"github.com/wyfcoding/primecredit/pkg/middleware"
	"github.com/wyfcoding/primecredit/pkg/mq"
)

var configPath = flag.String("config", "configs/engine/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 初始化日志
	if err := logger.Init(cfg.Logger); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	log := logger.Get()
	log.Info("starting service", "service", cfg.ServiceName, "version", cfg.Version, "env", cfg.Environment)

	// 3. 初始化指标
	m := metrics.New(cfg.ServiceName)
	if err := m.Register(); err != nil {
		log.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}
	if cfg.Metrics.Enabled {
		metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// 4. 初始化基础设施
	database, err := db.Init(db.Config{
		Metrics:            m,
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Auto Migrate (仅用于开发方便)
	if cfg.Environment == "dev" {
		if err := database.AutoMigrate(
			&collateraldomain.Position{},
			&creditdomain.Credit{},
			&registrydomain.Asset{},
			&marketplacedomain.Holding{},
			&accountingdomain.JournalEntry{},
		); err != nil {
			log.Error("failed to migrate database", "error", err)
		}
	}

	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.Error("failed to init redis", "error", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	var publisher accountingapp.EventPublisher = messaging.NoopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			log.Error("failed to init kafka producer", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		publisher = messaging.NewKafkaPublisher(producer, cfg.Kafka.LedgerTopic)
	}

	// 5. 初始化仓储
	positionRepo := collateralmysql.NewPositionRepository(database)
	creditRepo := creditmysql.NewCreditRepository(database)
	assetRepo := registrymysql.NewAssetRepository(database)
	holdingRepo := marketplacemysql.NewHoldingRepository(database)
	journalRepo := accountingmysql.NewJournalRepository(database)

	// 6. 初始化应用服务
	clk := clock.SystemClock{}
	collateralSvc := collateralapp.NewService(positionRepo, clk,
		decimal.NewFromFloat(cfg.Engine.CollateralAPY), log)
	creditSvc := creditapp.NewService(creditRepo, clk, creditapp.Config{
		DebtAPR:            decimal.NewFromFloat(cfg.Engine.DebtAPR),
		TokenAPY:           decimal.NewFromFloat(cfg.Engine.CreditTokenAPY),
		OriginationFeeRate: decimal.NewFromFloat(cfg.Engine.OriginationFeeRate),
		MaxTokenBalance:    decimal.NewFromFloat(cfg.Engine.MaxTokenBalance),
	}, log)
	registrySvc := registryapp.NewService(assetRepo, log)
	marketplaceSvc := marketplaceapp.NewService(holdingRepo, clk, log)

	facade := accountingapp.NewFacade(accountingapp.FacadeOptions{
		Collateral:  collateralSvc,
		Credit:      creditSvc,
		Registry:    registrySvc,
		Marketplace: marketplaceSvc,
		Journal:     journalRepo,
		Oracle:      accountingdomain.NewStaticOracle(cfg.Engine.ReferencePrices),
		Authorizer:  accountingdomain.NewStaticAuthorizer(cfg.Engine.InstitutionAccounts),
		Transactor:  database,
		Publisher:   publisher,
		Guard:       idempotency.NewRedisGuard(redisCache),
		Metrics:     m,
		Clock:       clk,
		Config: accountingapp.Config{
			LoanToValue:          decimal.NewFromFloat(cfg.Engine.LoanToValue),
			LiquidationThreshold: decimal.NewFromFloat(cfg.Engine.LiquidationThreshold),
			CautionThreshold:     decimal.NewFromFloat(cfg.Engine.CautionThreshold),
		},
		Logger:    log,
		ViewCache: viewcache.New(redisCache),
		Paused:    cfg.Engine.Paused,
	})

	// 启动时校正活跃资产数
	if count, err := registrySvc.CountActive(context.Background()); err == nil {
		m.AssetsActive.Set(float64(count))
	}

	// 7. 初始化接口层
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(middleware.GinRecoveryMiddleware())
	r.Use(middleware.GinLoggingMiddleware(m))
	r.Use(middleware.GinCORSMiddleware())
	r.Use(middleware.GinRateLimitMiddleware(middleware.NewRateLimiter(
		float64(cfg.HTTP.RateLimitBurst), float64(cfg.HTTP.RateLimitPerSecond))))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName, "version": cfg.Version})
	})

	handler := accountinghttp.NewHandler(facade)
	handler.RegisterRoutes(r.Group("/api/v1"))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 8. 启动服务
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			log.Info("shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			return ctx.Err()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("service exited", "error", err)
		os.Exit(1)
	}
	log.Info("service stopped")
}
