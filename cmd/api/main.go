package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/imrishuroy/fishly-storefront/internal/aws"
	"github.com/imrishuroy/fishly-storefront/internal/bg"
	"github.com/imrishuroy/fishly-storefront/internal/catalog"
	"github.com/imrishuroy/fishly-storefront/internal/checkout"
	"github.com/imrishuroy/fishly-storefront/internal/config"
	"github.com/imrishuroy/fishly-storefront/internal/handlers"
	"github.com/imrishuroy/fishly-storefront/internal/idempotency"
	"github.com/imrishuroy/fishly-storefront/internal/middleware"
	"github.com/imrishuroy/fishly-storefront/internal/orders"
	"github.com/imrishuroy/fishly-storefront/internal/session"
	"github.com/imrishuroy/fishly-storefront/internal/storefront"
	"github.com/imrishuroy/fishly-storefront/internal/validation"
)

func setupRouter(cfg *config.Config, logger *zap.Logger, store sessions.Store, hc handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposeHeaders:    []string{"Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/")
	api.Use(middleware.BrowsingSession(store, logger))
	api.Use(middleware.RequestLogger(logger))
	handlers.RegisterRoutes(api, hc)

	return r
}

func newLogger(development bool) *zap.Logger {
	if development {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg := config.Load()
	logger := newLogger(cfg.Development)
	defer func() { _ = logger.Sync() }()

	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	clients, err := aws.NewAWSClients(ctx, cfg.Region, cfg.Endpoint)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.String("path", cfg.CatalogPath), zap.Error(err))
	}

	metrics := aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)
	submitter := orders.NewSubmitter(
		orders.NewStore(clients.DynamoDB, cfg.OrdersTable),
		idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		aws.NewPublisher(clients.SQS, cfg.OrdersQueueURL),
		metrics,
		validation.New(),
		logger,
	)

	var lookup checkout.AddressLookup
	if cfg.AddressLookupURL != "" {
		lookup = checkout.NewHTTPAddressLookup(cfg.AddressLookupURL, cfg.RemoteTimeout)
	}

	// credentials survive cold starts when a sessions table is configured
	storage := func(string) session.Storage { return &session.MemoryStorage{} }
	if cfg.SessionsTable != "" {
		storage = func(id string) session.Storage {
			return session.NewDynamoStorage(clients.DynamoDB, cfg.SessionsTable, id, cfg.SessionMaxAge)
		}
	}

	registry := storefront.NewRegistry(storefront.Config{
		Storage:   storage,
		Verifier:  session.NewHTTPVerifier(cfg.AuthVerifyURL, cfg.RemoteTimeout),
		Counter:   metrics,
		Lookup:    lookup,
		Submitter: submitter,
		Runner:    bg.Async{},
		Validate:  checkout.NewValidator(),
		Logger:    logger,
		// carts go when their cookie would have expired
		IdleTTL: cfg.SessionMaxAge,
	})

	cookieStore := middleware.NewSessionStore(cfg.SessionSecret, cfg.SessionMaxAge, !cfg.Development)
	r := setupRouter(cfg, logger, cookieStore, handlers.HandlerConfig{
		Registry:  registry,
		Catalog:   cat,
		Orders:    submitter,
		Validator: validation.New(),
		Logger:    logger,
	})

	// if RUN_LOCAL is set, run local HTTP server for development.
	if cfg.RunLocal {
		addr := ":" + cfg.Port
		logger.Info("running local server", zap.String("addr", addr))
		if err := r.Run(addr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
