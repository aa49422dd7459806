// Package container builds the process-wide components once and hands them out explicitly.
package container

import (
	"context"
	"errors"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-firestore-crud/config"
	"github.com/oksasatya/go-firestore-crud/internal/application"
	"github.com/oksasatya/go-firestore-crud/internal/domain/repository"
	"github.com/oksasatya/go-firestore-crud/internal/infrastructure/firestore"
	"github.com/oksasatya/go-firestore-crud/internal/infrastructure/memory"
	"github.com/oksasatya/go-firestore-crud/internal/infrastructure/search"
	"github.com/oksasatya/go-firestore-crud/pkg/helpers"
)

// Container holds shared components. Optional integrations stay nil when unconfigured
// or unreachable at startup.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	Store *firestore.Client // nil when running on the in-memory repository
	Repo  repository.UserRepository

	Redis  *redis.Client
	Rabbit *helpers.RabbitPublisher
	ES     *elasticsearch.Client
	Index  *search.UserIndex
	GCS    *storage.Client

	Service *application.Service
}

// New connects to Firestore and every configured integration.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("container: nil config")
	}
	store, err := firestore.NewClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("ensure indexes failed")
	}
	c := &Container{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Repo:   firestore.NewUserRepository(store.Users(), logger),
	}
	c.connectOptional(ctx)
	c.buildService()
	return c, nil
}

// NewInMemory wires the service on a process-local repository with no integrations.
func NewInMemory(cfg *config.Config, logger *logrus.Logger) *Container {
	c := &Container{Config: cfg, Logger: logger, Repo: memory.NewUserRepository()}
	c.buildService()
	return c
}

func (c *Container) connectOptional(ctx context.Context) {
	cfg := c.Config
	if cfg.RedisAddr != "" {
		rdb, err := helpers.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			c.Logger.WithError(err).Warn("redis unavailable, rate limiting disabled")
		} else {
			c.Redis = rdb
		}
	}
	if cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEventQueue)
		if err != nil {
			c.Logger.WithError(err).Warn("rabbitmq unavailable, user events disabled")
		} else {
			c.Rabbit = pub
		}
	}
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := search.NewClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			c.Logger.WithError(err).Warn("elasticsearch client failed, search falls back to name scan")
		} else {
			c.ES = es
			c.Index = search.NewUserIndex(es, cfg.ESUsersIndex, c.Logger)
		}
	}
	if cfg.GCSBucket != "" {
		gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			c.Logger.WithError(err).Warn("gcs client failed, export disabled")
		} else {
			c.GCS = gcs
		}
	}
}

func (c *Container) buildService() {
	svc := application.NewService(c.Repo, c.Logger)
	if c.Rabbit != nil {
		svc.Events = c.Rabbit
	}
	if c.Index != nil {
		svc.Search = c.Index
	}
	if c.GCS != nil {
		svc.Snapshots = helpers.NewGCSUploader(c.GCS, c.Config.GCSBucket)
	}
	c.Service = svc
}

// TestConnection pings Firestore. The in-memory mode is always ready.
func (c *Container) TestConnection(ctx context.Context) bool {
	if c.Store == nil {
		return true
	}
	return c.Store.TestConnection(ctx)
}

// Shutdown releases every component. Safe to call more than once.
func (c *Container) Shutdown(ctx context.Context) {
	if c.Rabbit != nil {
		c.Rabbit.Close()
		c.Rabbit = nil
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
		c.Redis = nil
	}
	if c.GCS != nil {
		_ = c.GCS.Close()
		c.GCS = nil
	}
	if c.Store != nil {
		_ = c.Store.Close(ctx)
	}
}
