package main

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"shopbot/internal/config"
	"shopbot/internal/handler"
	"shopbot/internal/infra/billplz"
	"shopbot/internal/infra/db"
	"shopbot/internal/infra/events"
	"shopbot/internal/infra/n8n"
	"shopbot/internal/infra/ratelimit"
	infraRepo "shopbot/internal/infra/repository"
	"shopbot/internal/infra/token"
	"shopbot/internal/middleware"
	"shopbot/internal/server"
	"shopbot/internal/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

type eventPublisher interface {
	usecase.EventPublisher
	Close() error
}

const (
	trackingLimit  = 5
	trackingWindow = time.Minute
)

func main() {
	//.envは無くてもよい（本番は環境変数）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	e := server.New(server.ParseLevel(cfg.LogLevel))
	logger := e.Logger

	//DB接続
	gormDB, err := db.Connect(cfg.DSN())
	if err != nil {
		logger.Fatalj(log.JSON{"msg": "db connect failed", "error": err.Error()})
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Fatalj(log.JSON{"msg": "db migrate failed", "error": err.Error()})
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatalj(log.JSON{"msg": "db handle failed", "error": err.Error()})
	}
	defer sqlDB.Close()

	//Repository（GORM実装）生成
	txm := infraRepo.NewTxManagerGorm(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	customerRepo := infraRepo.NewCustomerGormRepository(gormDB)
	messageLogRepo := infraRepo.NewMessageLogGormRepository(gormDB)
	settingRepo := infraRepo.NewSettingGormRepository(gormDB)

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}

	gateway := billplz.NewClient(billplz.Config{
		BaseURL:       cfg.Billplz.BaseURL(),
		APIKey:        cfg.Billplz.APIKey,
		CollectionID:  cfg.Billplz.CollectionID,
		XSignatureKey: cfg.Billplz.XSignatureKey,
		CallbackURL:   cfg.Billplz.CallbackURL,
		RedirectURL:   cfg.Billplz.RedirectURL,
		Timeout:       cfg.Billplz.Timeout,
	}, nil, logger)

	//kafkaが無ければイベントは捨てる
	var publisher eventPublisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	}
	defer publisher.Close()

	//redisが無ければメモリで数える
	var throttleStore echomw.RateLimiterStore = middleware.NewMemoryThrottleStore(trackingLimit, trackingWindow)
	if cfg.RedisAddr != "" {
		rdb := ratelimit.NewClient(cfg.RedisAddr)
		defer rdb.Close()
		throttleStore = ratelimit.NewRedisStore(rdb, "order-track", trackingLimit, trackingWindow)
	}

	tokens := token.NewTrackingTokens(cfg.TrackingSecret, cfg.TrackingTTL)
	forwarder := n8n.NewForwarder(cfg.N8NOutboundWebhookURL, 10*time.Second)

	//Usecase生成
	checkoutUC := usecase.NewCheckoutUsecase(txm, gateway, publisher, idGen, clock, cfg.Location, cfg.Billplz.Timeout, logger)
	paymentUC := usecase.NewPaymentUsecase(txm, gateway, publisher, clock, logger, cfg.FrontendSuccessURL, cfg.FrontendErrorURL)
	orderUC := usecase.NewOrderUsecase(orderRepo, orderItemRepo, tokens, cfg.AppURL, logger)
	customerUC := usecase.NewCustomerUsecase(customerRepo, messageLogRepo, forwarder, logger)
	settingsUC := usecase.NewSettingsUsecase(settingRepo, clock, logger)
	productUC := usecase.NewProductUsecase(productRepo)

	//Handler生成
	server.RegisterRoutes(e, server.Handlers{
		Checkout:  handler.NewCheckoutHandler(checkoutUC),
		Payment:   handler.NewPaymentHandler(paymentUC),
		Orders:    handler.NewOrderHandler(orderUC),
		Customers: handler.NewCustomerHandler(customerUC),
		Settings:  handler.NewSettingsHandler(settingsUC),
		Products:  handler.NewProductHandler(productUC),
		Health:    handler.NewHealthHandler(func(ctx context.Context) error { return sqlDB.PingContext(ctx) }),
	}, server.Middlewares{
		Chatbot:          middleware.ChatbotSettings(settingRepo, logger),
		TrackingThrottle: middleware.Throttle(throttleStore, logger),
	})

	//Server起動
	if err := server.Start(e, cfg.Addr()); err != nil {
		logger.Errorj(log.JSON{"msg": "server stopped", "error": err.Error()})
	}
}
