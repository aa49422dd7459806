package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigFile is read when no explicit path is given and APP_CONFIG_FILE is unset.
const DefaultConfigFile = "application.properties"

// Config holds application configuration loaded from a properties file
// with environment overrides (GOOGLE_CLOUD_PROJECT_ID overrides google.cloud.project.id).
type Config struct {
	AppName string
	Env     string // development, staging, production

	// Firestore (MongoDB compatibility)
	ProjectID        string
	DatabaseUID      string
	DatabaseLocation string
	DatabaseName     string
	CollectionName   string
	MongoURI         string // optional; overrides the Firestore descriptor (local mongod, emulators)
	EnforceUnique    bool

	// Driver pool
	PoolMaxSize    uint64
	PoolMinSize    uint64
	MaxConnIdle    time.Duration
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration

	// HTTP
	Port               string
	GinMode            string
	CORSAllowedOrigins string // comma-separated

	// Redis (rate limiting); disabled when RedisAddr is empty
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// RabbitMQ (user lifecycle events); disabled when RabbitMQURL is empty
	RabbitMQURL        string
	RabbitMQEventQueue string

	// Elasticsearch (search mirror); disabled when ElasticsearchAddrs is empty
	ElasticsearchAddrs string // comma-separated
	ElasticsearchUser  string
	ElasticsearchPass  string
	ESUsersIndex       string

	// Google Cloud Storage (snapshot export); disabled when GCSBucket is empty
	GCSBucket              string
	GCSCredentialsJSONPath string // optional; if empty, Application Default Credentials are used
}

var defaults = map[string]any{
	"app.name":                         "firestore-crud",
	"app.env":                          "development",
	"firestore.database.name":          "default-database",
	"app.collection.name":              "users",
	"firestore.enforce.unique.email":   "false",
	"mongodb.connection.pool.max.size": "100",
	"mongodb.connection.pool.min.size": "5",
	"mongodb.connection.idle.time.ms":  "30000",
	"mongodb.connection.timeout.ms":    "30000",
	"mongodb.socket.timeout.ms":        "30000",
	"http.port":                        "8080",
	"gin.mode":                         "release",
	"redis.db":                         "0",
	"rabbitmq.user.events.queue":       "user-events",
	"elasticsearch.users.index":        "users",
}

// envOnly keys are not given defaults but must still resolve from the environment.
var envOnly = []string{
	"google.cloud.project.id",
	"firestore.database.uid",
	"firestore.database.location",
	"mongodb.uri",
	"cors.allowed.origins",
	"redis.addr",
	"redis.password",
	"rabbitmq.url",
	"elasticsearch.addrs",
	"elasticsearch.username",
	"elasticsearch.password",
	"gcs.bucket",
	"gcs.credentials.json",
}

// Load reads configuration from path. An empty path falls back to APP_CONFIG_FILE
// and then DefaultConfigFile; only a missing default file is tolerated.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		if p := os.Getenv("APP_CONFIG_FILE"); p != "" {
			path, explicit = p, true
		} else {
			path = DefaultConfigFile
		}
	}

	v := newViper()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("unable to find %s: %w", path, err)
	}
	return FromViper(v)
}

// FromValues builds a Config from a flat key/value mapping. Keys absent from
// values still resolve from the environment and then the defaults.
func FromValues(values map[string]string) (*Config, error) {
	v := newViper()
	for k, val := range values {
		v.Set(k, val)
	}
	return FromViper(v)
}

func newViper() *viper.Viper {
	v := viper.NewWithOptions(viper.WithCodecRegistry(codecRegistry()))
	v.SetConfigType("properties")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	for _, k := range envOnly {
		_ = v.BindEnv(k)
	}
	return v
}

// FromViper validates and converts the resolved settings.
func FromViper(v *viper.Viper) (*Config, error) {
	r := reader{v: v}
	c := &Config{
		AppName: r.str("app.name"),
		Env:     r.str("app.env"),

		ProjectID:        r.str("google.cloud.project.id"),
		DatabaseUID:      r.str("firestore.database.uid"),
		DatabaseLocation: r.str("firestore.database.location"),
		DatabaseName:     r.str("firestore.database.name"),
		CollectionName:   r.str("app.collection.name"),
		MongoURI:         r.str("mongodb.uri"),
		EnforceUnique:    r.boolean("firestore.enforce.unique.email"),

		PoolMaxSize:    uint64(r.integer("mongodb.connection.pool.max.size")),
		PoolMinSize:    uint64(r.integer("mongodb.connection.pool.min.size")),
		MaxConnIdle:    r.millis("mongodb.connection.idle.time.ms"),
		ConnectTimeout: r.millis("mongodb.connection.timeout.ms"),
		SocketTimeout:  r.millis("mongodb.socket.timeout.ms"),

		Port:               r.str("http.port"),
		GinMode:            r.str("gin.mode"),
		CORSAllowedOrigins: r.str("cors.allowed.origins"),

		RedisAddr:     r.str("redis.addr"),
		RedisPassword: r.str("redis.password"),
		RedisDB:       r.integer("redis.db"),

		RabbitMQURL:        r.str("rabbitmq.url"),
		RabbitMQEventQueue: r.str("rabbitmq.user.events.queue"),

		ElasticsearchAddrs: r.str("elasticsearch.addrs"),
		ElasticsearchUser:  r.str("elasticsearch.username"),
		ElasticsearchPass:  r.str("elasticsearch.password"),
		ESUsersIndex:       r.str("elasticsearch.users.index"),

		GCSBucket:              r.str("gcs.bucket"),
		GCSCredentialsJSONPath: r.str("gcs.credentials.json"),
	}
	if r.err != nil {
		return nil, r.err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.ProjectID == "" {
		return errors.New("google.cloud.project.id must be specified")
	}
	if c.MongoURI == "" && (c.DatabaseUID == "" || c.DatabaseLocation == "") {
		return errors.New("both firestore.database.uid and firestore.database.location must be specified")
	}
	if c.DatabaseName == "" {
		return errors.New("firestore.database.name must not be empty")
	}
	if c.CollectionName == "" {
		return errors.New("app.collection.name must not be empty")
	}
	if c.PoolMinSize > c.PoolMaxSize {
		return fmt.Errorf("mongodb.connection.pool.min.size (%d) exceeds max size (%d)", c.PoolMinSize, c.PoolMaxSize)
	}
	return nil
}

// ConnectionURI returns the MongoDB-compatible descriptor for the Firestore database.
// Authentication uses the GCP workload identity (MONGODB-OIDC), so no secret is embedded.
func (c *Config) ConnectionURI() string {
	if c.MongoURI != "" {
		return c.MongoURI
	}
	return fmt.Sprintf(
		"mongodb://%s.%s.firestore.goog:443/%s?loadBalanced=true&tls=true&retryWrites=false&authMechanism=MONGODB-OIDC&authMechanismProperties=ENVIRONMENT:gcp,TOKEN_RESOURCE:FIRESTORE",
		c.DatabaseUID, c.DatabaseLocation, c.DatabaseName,
	)
}

// RedactedURI is safe to log.
func (c *Config) RedactedURI() string {
	if c.MongoURI != "" {
		return "mongodb://***"
	}
	uid := c.DatabaseUID
	if len(uid) > 8 {
		uid = uid[:8]
	}
	return fmt.Sprintf("mongodb://%s***.firestore.goog:443/%s", uid, c.DatabaseName)
}

// CORSOrigins returns the allowed origins as slice
func (c *Config) CORSOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// ESAddrs returns Elasticsearch addresses as a slice
func (c *Config) ESAddrs() []string {
	return splitList(c.ElasticsearchAddrs)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}

// reader keeps the first conversion error so FromViper can stay linear.
type reader struct {
	v   *viper.Viper
	err error
}

func (r *reader) str(key string) string {
	return strings.TrimSpace(r.v.GetString(key))
}

func (r *reader) integer(key string) int {
	s := r.str(key)
	i, err := strconv.Atoi(s)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("invalid int for %s: %q", key, s)
	}
	if i < 0 && r.err == nil {
		r.err = fmt.Errorf("%s must not be negative", key)
	}
	return i
}

func (r *reader) boolean(key string) bool {
	s := r.str(key)
	b, err := strconv.ParseBool(s)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("invalid boolean for %s: %q", key, s)
	}
	return b
}

func (r *reader) millis(key string) time.Duration {
	return time.Duration(r.integer(key)) * time.Millisecond
}
