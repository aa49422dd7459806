// Package firestore talks to Cloud Firestore through its MongoDB-compatible endpoint.
package firestore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/go-firestore-crud/config"
	"github.com/oksasatya/go-firestore-crud/pkg/helpers"
)

const pingTimeout = 5 * time.Second

// Client owns one pooled driver client. Build it once at process start and pass it down.
type Client struct {
	mongo      *mongo.Client
	db         *mongo.Database
	collection string
	unique     bool
	logger     *logrus.Logger

	closeOnce sync.Once
	closeErr  error
}

// ClientOptions maps the configuration onto driver options.
func ClientOptions(cfg *config.Config) *options.ClientOptions {
	return options.Client().
		ApplyURI(cfg.ConnectionURI()).
		SetAppName(cfg.AppName).
		SetMaxPoolSize(cfg.PoolMaxSize).
		SetMinPoolSize(cfg.PoolMinSize).
		SetMaxConnIdleTime(cfg.MaxConnIdle).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetSocketTimeout(cfg.SocketTimeout)
}

func NewClient(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("firestore: nil config")
	}
	opts := ClientOptions(cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	mc, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	helpers.LogInfo(logger, "firestore client created", logrus.Fields{
		"uri":        cfg.RedactedURI(),
		"database":   cfg.DatabaseName,
		"collection": cfg.CollectionName,
		"pool_max":   cfg.PoolMaxSize,
		"pool_min":   cfg.PoolMinSize,
	})
	return Wrap(mc, cfg.DatabaseName, cfg.CollectionName, cfg.EnforceUnique, logger), nil
}

// Wrap adopts an existing driver client, used by tests against a mock deployment.
func Wrap(mc *mongo.Client, database, collection string, unique bool, logger *logrus.Logger) *Client {
	return &Client{
		mongo:      mc,
		db:         mc.Database(database),
		collection: collection,
		unique:     unique,
		logger:     logger,
	}
}

func (c *Client) Database() *mongo.Database { return c.db }

// Users returns the configured user collection.
func (c *Client) Users() *mongo.Collection { return c.db.Collection(c.collection) }

// TestConnection runs {ping: 1} against the database.
func (c *Client) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	err := c.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
	if err != nil {
		helpers.LogWarn(c.logger, "firestore ping failed", logrus.Fields{"error": err.Error()})
		return false
	}
	return true
}

// EnsureIndexes creates the email and age indexes. The email index is unique when enforcement is on.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_1").SetUnique(c.unique),
		},
		{
			Keys:    bson.D{{Key: "age", Value: 1}},
			Options: options.Index().SetName("age_1"),
		},
	}
	names, err := c.Users().Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	helpers.LogDebug(c.logger, "indexes ensured", logrus.Fields{"indexes": names})
	return nil
}

// Close disconnects the driver client. Later calls return the first result.
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.closeErr = c.mongo.Disconnect(ctx)
		if c.closeErr != nil {
			helpers.LogWarn(c.logger, "firestore disconnect failed", logrus.Fields{"error": c.closeErr.Error()})
		} else {
			helpers.LogInfo(c.logger, "firestore client closed", nil)
		}
	})
	return c.closeErr
}
