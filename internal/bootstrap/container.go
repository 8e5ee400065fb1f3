package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"content-studio-be/internal/config"
	"content-studio-be/internal/controller"
	"content-studio-be/internal/handler"
	"content-studio-be/internal/pkg/logger"
	"content-studio-be/internal/pkg/metrics"
	"content-studio-be/internal/repository"
	"content-studio-be/internal/repository/memory"
	"content-studio-be/internal/service"
	"content-studio-be/internal/websocket"
	"content-studio-be/pkg/capability"
	"content-studio-be/pkg/capability/media"
	"content-studio-be/pkg/capability/textgen"
	"content-studio-be/pkg/database"
	"content-studio-be/pkg/dispatcher"
	"content-studio-be/pkg/events"
	"content-studio-be/pkg/llm/factory"
	pktNats "content-studio-be/pkg/nats"
	"content-studio-be/pkg/session"
	"content-studio-be/pkg/store"
	"content-studio-be/pkg/stream"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	StudioController controller.IStudioController
	StudioWsHandler  *handler.StudioWsHandler

	// Background services, run by main
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub

	Registry *prometheus.Registry
	Logger   logger.ILogger

	closers []func() error
}

// NewContainer builds every dependency. Close releases them in reverse order.
func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{}

	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c.Logger = sysLogger
	c.onClose(sysLogger.Sync)

	c.Registry = prometheus.NewRegistry()
	m := metrics.MustNewMetrics(c.Registry)

	// 2. Memory store
	st, err := c.newStore(cfg, sysLogger)
	if err != nil {
		return nil, err
	}
	c.onClose(st.Close)

	// 3. Redis, shared by the turn lock and the websocket hub
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err = rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		}
		c.onClose(rdb.Close)
	}

	mode, err := session.ParseLockMode(cfg.Session.LockMode)
	if err != nil {
		return nil, err
	}
	var locker session.TurnLocker = session.NewLocalLocker(mode)
	if cfg.Session.Lock == "redis" {
		if rdb == nil {
			return nil, errors.New("TURN_LOCK=redis requires REDIS_URL")
		}
		locker = session.NewRedisLocker(rdb, mode, cfg.Session.LockTTL)
	}

	// 4. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)
	c.onClose(pubSub.Close)

	publishers := events.MultiPublisher{service.NewPublisherService(pubSub, cfg.App.EventTopic)}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		} else {
			publishers = append(publishers, natsPub)
			c.onClose(func() error { natsPub.Close(); return nil })
		}
	}

	// 5. Capabilities
	caps, err := newCapabilities(cfg)
	if err != nil {
		return nil, err
	}

	// 6. Core
	sessions := session.NewManager(st, cfg.Session.Timeout, session.WithLogger(sysLogger))
	d := dispatcher.New(caps,
		dispatcher.WithConfig(dispatcher.Config{
			MaxAttempts:     uint(max(cfg.Capability.RetryAttempts, 1)),
			InitialInterval: cfg.Capability.RetryBaseDelay,
			MaxInterval:     cfg.Capability.RetryMaxDelay,
			IdeaCount:       cfg.Capability.IdeaCount,
			AnimationLength: cfg.Capability.AnimationLength,
		}),
		dispatcher.WithLogger(sysLogger),
		dispatcher.WithMetrics(m),
	)
	coordinator := stream.NewCoordinator(sessions, locker, d, st,
		stream.WithPublisher(publishers),
		stream.WithMetrics(m),
		stream.WithLogger(sysLogger),
	)

	// 7. Services
	gallery, err := service.NewGalleryService(cfg.App.GallerySize)
	if err != nil {
		return nil, err
	}
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.App.EventTopic, gallery, c.WebSocketHub, sysLogger)

	studioService := service.NewStudioService(sessions, st, coordinator, gallery)

	c.StudioController = controller.NewStudioController(studioService, cfg.Auth.JwtSecret)
	c.StudioWsHandler = handler.NewStudioWsHandler(c.WebSocketHub, coordinator, cfg.Auth.JwtSecret, wsLogger)

	return c, nil
}

func (c *Container) newStore(cfg *config.Config, log logger.ILogger) (store.MemoryStore, error) {
	switch cfg.Session.Store {
	case "postgres":
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.Database.Verbose)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		st := repository.NewStudioStore(db)
		if err := st.Migrate(); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to migrate studio tables: %w", err)
		}
		log.Info("BOOTSTRAP", "Using Postgres session store", nil)
		return st, nil
	case "memory", "":
		retention := max(cfg.Session.Retention, cfg.Session.Timeout)
		log.Info("BOOTSTRAP", "Using in-memory session store", map[string]interface{}{"retention": retention.String()})
		return memory.NewSessionStore(retention), nil
	}
	return nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.Session.Store)
}

func newCapabilities(cfg *config.Config) (capability.Suite, error) {
	llmProvider, err := factory.NewLLMProvider(factory.ProviderConfig{
		Provider: cfg.Capability.LLMProvider,
		Model:    cfg.Capability.LLMModel,
		BaseURL:  cfg.Capability.LLMBaseURL,
		APIKey:   cfg.Capability.LLMAPIKey,
		Timeout:  cfg.Capability.Timeout,
	})
	if err != nil {
		return capability.Suite{}, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Capability.LLMProvider, cfg.Capability.LLMModel)

	text := textgen.NewGenerator(llmProvider)
	mediaClient := media.NewClient(cfg.Capability.MediaBaseURL, cfg.Capability.MediaAPIKey, cfg.Capability.MediaTimeout)

	return capability.Suite{
		Ideas:     text,
		Images:    mediaClient,
		Editor:    mediaClient,
		Animator:  mediaClient,
		Captions:  text,
		Campaigns: text,
		Chat:      text,
	}, nil
}

func (c *Container) onClose(fn func() error) {
	c.closers = append(c.closers, fn)
}

// Close releases resources in reverse order of creation
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
