package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/banking/sar-intelligence/internal/api"
	"github.com/banking/sar-intelligence/internal/config"
	"github.com/banking/sar-intelligence/internal/crypto"
	"github.com/banking/sar-intelligence/internal/events"
	"github.com/banking/sar-intelligence/internal/intelligence"
	"github.com/banking/sar-intelligence/internal/repository/elasticsearch"
	"github.com/banking/sar-intelligence/internal/repository/postgres"
	"github.com/banking/sar-intelligence/internal/repository/s3"
	"github.com/banking/sar-intelligence/internal/risk"
	"github.com/banking/sar-intelligence/internal/service"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Info("Starting SAR Intelligence Service...")

	// 3. Audit signing
	signer, err := crypto.NewAuditSigner(cfg.Signing.HMACSecret)
	if err != nil {
		sugar.Fatalf("Failed to initialize audit signer: %v", err)
	}

	// 4. Repositories
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		sugar.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pool.Close()

	caseRepo := postgres.NewCaseRepository(pool)
	scoreRepo := postgres.NewScoreRepository(pool)

	esRepo, err := elasticsearch.NewNarrativeRepository(cfg.Elasticsearch)
	if err != nil {
		sugar.Warnf("Failed to connect to Elasticsearch: %v (Search capabilities will be limited)", err)
	}

	s3Repo, err := s3.NewReportRepository(ctx, cfg.S3)
	if err != nil {
		sugar.Fatalf("Failed to initialize S3 repository: %v", err)
	}

	// 5. Scoring core + services
	analyzer := risk.NewAnalyzer(cfg.Scoring)
	engine := intelligence.NewEngine(cfg.Intelligence)

	scoringService := service.NewScoringService(caseRepo, scoreRepo, esRepo, s3Repo, analyzer, signer, logger)
	intelligenceService := service.NewIntelligenceService(caseRepo, scoreRepo, s3Repo, engine, signer, logger)

	// 6. Kafka Consumer
	consumer, err := events.NewScoringConsumer(cfg.Kafka, scoringService, logger)
	if err != nil {
		sugar.Fatalf("Failed to create Kafka consumer: %v", err)
	}

	go func() {
		sugar.Info("Starting Kafka consumer loop...")
		if err := consumer.Start(ctx); err != nil {
			sugar.Errorf("Kafka consumer failed: %v", err)
		}
	}()
	defer consumer.Close()

	// 7. API Server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	scoringHandler := api.NewScoringHandler(scoringService, intelligenceService)

	apiGroup := e.Group("/scoring")

	// Security: Add JWT Authentication
	keyData, err := os.ReadFile(cfg.Auth.JWTPublicKeyPath)
	var signingKey interface{}
	if err == nil {
		signingKey, err = jwt.ParseRSAPublicKeyFromPEM(keyData)
		if err != nil {
			sugar.Warnf("Failed to parse JWT public key: %v", err)
		}
	} else {
		sugar.Warnf("JWT public key not found at %s: %v", cfg.Auth.JWTPublicKeyPath, err)
	}

	if signingKey != nil {
		config := echojwt.Config{
			SigningKey:    signingKey,
			SigningMethod: "RS256",
			NewClaimsFunc: func(c echo.Context) jwt.Claims {
				return new(jwt.MapClaims)
			},
		}
		apiGroup.Use(echojwt.WithConfig(config))
		sugar.Info("JWT Authentication enabled for /scoring/*")
	} else {
		sugar.Warn("JWT Authentication DISABLED - Missing Public Key (Security Risk)")
	}

	scoringHandler.RegisterRoutes(apiGroup)

	// Health Check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Start Server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Shutting down the server: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down service...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		sugar.Fatal(err)
	}
}
