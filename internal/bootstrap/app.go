package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docchat/internal/ai"
	"docchat/internal/app"
	"docchat/internal/cache"
	"docchat/internal/config"
	"docchat/internal/metrics"
	"docchat/internal/platform/database"
	"docchat/internal/platform/logger"
	rabbitmqClient "docchat/internal/platform/rabbitmq"
	redisClient "docchat/internal/platform/redis"
	"docchat/internal/platform/tracing"
	"docchat/internal/repository"
	"docchat/internal/storage"
	"docchat/internal/worker"
)

type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *gorm.DB
	Redis    *redis.Client
	MQConn   *amqp.Connection
	Storage  storage.Storage
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Turns       *app.TurnService
	Chats       *app.ChatService
	Documents   *app.DocumentService
	PurgeWorker *worker.DocumentPurgeWorker

	StartedAt time.Time

	shutdownTracing func(context.Context) error
}

// New connects every dependency, migrates the schema and starts the purge
// worker. Resources opened before a failure are released.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: log, StartedAt: time.Now()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.shutdownTracing = tracing.Init(ctx, log, cfg.App, cfg.OTel)

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if a.Metrics, err = metrics.New(a.Registry); err != nil {
		return nil, fmt.Errorf("register metrics failed: %w", err)
	}

	if a.DB, err = database.New(ctx, cfg); err != nil {
		return nil, err
	}
	if err = database.Migrate(a.DB); err != nil {
		return nil, err
	}

	if a.Redis, err = redisClient.New(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	if a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL); err != nil {
		return nil, err
	}
	if a.Storage, err = storage.NewMinIO(ctx, cfg.MinIO); err != nil {
		return nil, err
	}

	documents := repository.NewDocumentRepository(a.DB)
	chats := repository.NewChatRepository(a.DB)
	messages := repository.NewMessageRepository(a.DB)
	historyCache := cache.NewHistoryCache(
		a.Redis,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	publisher := rabbitmqClient.NewPurgePublisher(a.MQConn, cfg.RabbitMQ.DocumentPurgeQueue)

	a.Turns = app.NewTurnService(
		documents,
		messages,
		historyCache,
		ai.NewOpenAICompatibleClient(time.Duration(cfg.LLM.TimeoutSeconds)*time.Second),
		app.TurnConfig{
			LLM: ai.ChatConfig{
				BaseURL: cfg.LLM.BaseURL,
				APIKey:  cfg.LLM.APIKey,
				Model:   cfg.LLM.Model,
			},
			SystemPrompt: cfg.LLM.SystemPrompt,
			BufferSize:   cfg.Relay.BufferSize,
			Timeout:      time.Duration(cfg.Relay.TurnTimeoutSeconds) * time.Second,
		},
		a.Metrics,
		log,
	)
	a.Chats = app.NewChatService(chats, messages, documents, historyCache, publisher, log)
	a.Documents = app.NewDocumentService(
		documents,
		chats,
		a.Storage,
		cfg.Upload.MaxBytes,
		time.Duration(cfg.MinIO.PresignTTLSeconds)*time.Second,
		a.Metrics,
		log,
	)

	a.PurgeWorker = worker.NewDocumentPurgeWorker(a.MQConn, documents, chats, a.Storage, cfg.RabbitMQ.DocumentPurgeQueue, log)
	if err = a.PurgeWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start document purge worker failed: %w", err)
	}

	return a, nil
}

func (a *App) Close() error {
	var errs []error
	if a.PurgeWorker != nil {
		a.PurgeWorker.Close()
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		errs = append(errs, a.MQConn.Close())
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, a.shutdownTracing(ctx))
	}
	return errors.Join(errs...)
}
