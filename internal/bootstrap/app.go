package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"supportchat/internal/ai"
	"supportchat/internal/app"
	"supportchat/internal/cache"
	"supportchat/internal/config"
	"supportchat/internal/pkg/jwtutil"
	mysqlClient "supportchat/internal/platform/mysql"
	rabbitmqClient "supportchat/internal/platform/rabbitmq"
	redisClient "supportchat/internal/platform/redis"
	"supportchat/internal/repository"
	"supportchat/internal/repository/memory"
	"supportchat/internal/transport/http/handler"
	"supportchat/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger

	MySQL     *gorm.DB
	Redis     *redis.Client
	MQConn    *amqp.Connection
	Publisher *rabbitmqClient.ChatEventPublisher
	Worker    *worker.ChatEventWorker

	Tokens      *jwtutil.Manager
	AuthService *app.AuthService
	ChatService *app.ChatService

	StartedAt time.Time
}

type stores struct {
	users app.UserStore
	chats interface {
		app.ChatStore
		worker.TranscriptReader
	}
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		StartedAt: time.Now(),
	}

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("jwt secret is empty; signup, login and authenticated routes will fail")
	}
	a.Tokens = jwtutil.NewManager(cfg.Auth.JWTSecret, cfg.TokenTTL())

	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	var historyCache *cache.HistoryCache
	if cfg.Redis.Addr != "" {
		a.Redis, err = redisClient.New(ctx, cfg.Redis)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		historyCache = cache.NewHistoryCache(a.Redis, cfg.HistoryTTL())
	}

	// Chat events only feed the cache worker; without redis nobody would
	// consume the durable queue.
	switch {
	case cfg.RabbitMQ.URL != "" && historyCache == nil:
		logger.Warn("rabbitmq is configured without redis; chat events are disabled")
	case cfg.RabbitMQ.URL != "":
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.ChatEventQueue)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Worker = worker.NewChatEventWorker(a.MQConn, st.chats, historyCache, cfg.RabbitMQ.ChatEventQueue, logger)
		if err := a.Worker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start chat event worker failed: %w", err)
		}
		a.Publisher = rabbitmqClient.NewChatEventPublisher(a.MQConn, cfg.RabbitMQ.ChatEventQueue)
	}

	gateway := ai.NewCompletionGateway(
		ai.NewOpenAICompatibleClient(&http.Client{}),
		ai.ChatConfig{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Referer:     cfg.LLM.Referer,
			Title:       cfg.LLM.Title,
		},
		ai.GatewayOptions{
			SystemPrompt: cfg.LLM.SystemPrompt,
			HistoryLimit: cfg.LLM.HistoryLimit,
			Timeout:      cfg.LLMTimeout(),
		},
		logger.Named("llm"),
	)
	if cfg.LLM.APIKey == "" {
		logger.Warn("llm api key is empty; every reply will be a fallback")
	}

	chatOpts := app.ChatOptions{
		HistoryLimit: cfg.LLM.HistoryLimit,
		Logger:       logger.Named("chat"),
	}
	if historyCache != nil {
		chatOpts.HistoryCache = historyCache
	}
	if a.Publisher != nil {
		chatOpts.Publisher = a.Publisher
	}

	a.AuthService = app.NewAuthService(st.users, a.Tokens, logger.Named("auth"))
	a.ChatService = app.NewChatService(st.chats, gateway, chatOpts)
	return a, nil
}

func (a *App) openStores(ctx context.Context) (stores, error) {
	if a.Config.Store.Driver == config.StoreDriverMemory {
		a.Logger.Warn("using in-memory store; data is lost on restart")
		return stores{users: memory.NewUserStore(), chats: memory.NewChatStore()}, nil
	}

	db, err := mysqlClient.New(ctx, a.Config.MySQLDSN())
	if err != nil {
		return stores{}, err
	}
	a.MySQL = db
	if err := mysqlClient.Migrate(db); err != nil {
		_ = a.Close()
		return stores{}, err
	}
	return stores{
		users: repository.NewUserRepository(db),
		chats: repository.NewChatRepository(db),
	}, nil
}

// HealthChecks lists the checks for the dependencies this process opened.
func (a *App) HealthChecks() []handler.DependencyCheck {
	var checks []handler.DependencyCheck
	if a.MySQL != nil {
		checks = append(checks, handler.DependencyCheck{Name: "mysql", Check: func(ctx context.Context) error {
			return mysqlClient.Ping(ctx, a.MySQL)
		}})
	}
	if a.Redis != nil {
		checks = append(checks, handler.DependencyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx, a.Redis)
		}})
	}
	if a.MQConn != nil {
		checks = append(checks, handler.DependencyCheck{Name: "rabbitmq", Check: func(context.Context) error {
			if a.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}})
	}
	return checks
}

func (a *App) Close() error {
	var closeErr error
	if a.Worker != nil {
		a.Worker.Close()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			closeErr = errors.Join(closeErr, err)
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = errors.Join(closeErr, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = errors.Join(closeErr, err)
		}
	}
	if a.MySQL != nil {
		if sqlDB, err := a.MySQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = errors.Join(closeErr, err)
			}
		}
	}
	return closeErr
}
