// Package config loads memo-cache settings from YAML for the command line
// programs and turns them into cache options.
package config

import (
	"context"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	cache "github.com/krisalay/memo-cache"
	"github.com/krisalay/memo-cache/codec"
	"github.com/krisalay/memo-cache/logging"
	"github.com/krisalay/memo-cache/persist"
	"github.com/krisalay/memo-cache/types"
)

type Config struct {
	Store   StoreConfig    `yaml:"store" json:"store"`
	Backend BackendConfig  `yaml:"backend" json:"backend"`
	Log     logging.Config `yaml:"log" json:"log"`
}

type StoreConfig struct {
	CacheDir   string        `yaml:"cache_dir" json:"cache_dir"`
	Filename   string        `yaml:"filename" json:"filename"`
	Codec      string        `yaml:"codec" json:"codec" validate:"oneof=json yaml"`
	Compress   bool          `yaml:"compress" json:"compress"`
	WriteBack  bool          `yaml:"write_back" json:"write_back"`
	MaxEntries int           `yaml:"max_entries" json:"max_entries" validate:"min=0"`
	MaxAge     time.Duration `yaml:"max_age" json:"max_age" validate:"min=0"`
	Stride     int           `yaml:"invalidation_stride" json:"invalidation_stride" validate:"min=1"`
}

type BackendConfig struct {
	Type  string      `yaml:"type" json:"type" validate:"oneof=file s3 redis"`
	S3    S3Config    `yaml:"s3" json:"s3"`
	Redis RedisConfig `yaml:"redis" json:"redis"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket" json:"bucket"`
	Key      string `yaml:"key" json:"key"`
	Region   string `yaml:"region" json:"region"`
	Profile  string `yaml:"profile" json:"profile"`
	Endpoint string `yaml:"endpoint" json:"endpoint" validate:"omitempty,url"`
}

type RedisConfig struct {
	Host     string        `yaml:"host" json:"host"`
	Port     int           `yaml:"port" json:"port" validate:"min=0,max=65535"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db" validate:"min=0"`
	Key      string        `yaml:"key" json:"key"`
	TTL      time.Duration `yaml:"ttl" json:"ttl" validate:"min=0"`
}

func Defaults() *Config {
	return &Config{
		Store: StoreConfig{
			CacheDir: cache.DefaultCacheDir,
			Filename: "memo.json",
			Codec:    "json",
			Stride:   cache.DefaultInvalidationStride,
		},
		Backend: BackendConfig{
			Type: "file",
			Redis: RedisConfig{
				Host: "localhost",
				Port: 6379,
				Key:  "memocache",
			},
		},
		Log: logging.Config{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, types.WrapError(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, types.WrapError(err, "failed to parse YAML config")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return types.Errorf(types.ErrInvalidOption, "config validation failed: %v", err)
	}

	switch c.Backend.Type {
	case "file":
		if c.Store.CacheDir == "" || c.Store.Filename == "" {
			return types.Errorf(types.ErrInvalidOption, "file backend needs store.cache_dir and store.filename")
		}
	case "s3":
		if c.Backend.S3.Bucket == "" || c.Backend.S3.Key == "" {
			return types.Errorf(types.ErrInvalidOption, "s3 backend needs backend.s3.bucket and backend.s3.key")
		}
	case "redis":
		if c.Backend.Redis.Host == "" || c.Backend.Redis.Key == "" {
			return types.Errorf(types.ErrInvalidOption, "redis backend needs backend.redis.host and backend.redis.key")
		}
	}
	return nil
}

// Codec resolves the snapshot encoding.
func (c *Config) Codec() (codec.Codec, error) {
	return codec.ByName(c.Store.Codec, c.Store.Compress)
}

// OpenBackend connects to the configured backend. For s3 and redis this talks to
// the network.
func (c *Config) OpenBackend(ctx context.Context) (persist.Backend, error) {
	switch c.Backend.Type {
	case "s3":
		s3c := c.Backend.S3
		var opts []persist.AWSOption
		if s3c.Region != "" {
			opts = append(opts, persist.WithRegion(s3c.Region))
		}
		if s3c.Profile != "" {
			opts = append(opts, persist.WithProfile(s3c.Profile))
		}
		if s3c.Endpoint != "" {
			opts = append(opts, persist.WithEndpoint(s3c.Endpoint))
		}
		client, err := persist.NewS3Client(ctx, opts...)
		if err != nil {
			return nil, err
		}
		b, err := persist.NewS3(client, s3c.Bucket, s3c.Key)
		if err != nil {
			return nil, err
		}
		return b, nil

	case "redis":
		rc := c.Backend.Redis
		client, err := persist.NewRedisClient(ctx, persist.RedisConfig{
			Host:     rc.Host,
			Port:     rc.Port,
			Password: rc.Password,
			DB:       rc.DB,
		})
		if err != nil {
			return nil, err
		}
		b, err := persist.NewRedis(client, rc.Key, rc.TTL)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return b, nil

	default:
		b, err := persist.NewFile(c.Store.CacheDir, c.Store.Filename)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// Options turns the config into cache options, connecting the backend on the
// way.
func (c *Config) Options(ctx context.Context, logger *zap.Logger) ([]cache.Option, error) {
	cd, err := c.Codec()
	if err != nil {
		return nil, err
	}
	backend, err := c.OpenBackend(ctx)
	if err != nil {
		return nil, err
	}

	opts := []cache.Option{
		cache.WithBackend(backend),
		cache.WithCodec(cd),
		cache.WithLogger(logger),
		cache.WithInvalidationStride(c.Store.Stride),
	}
	if c.Store.WriteBack {
		opts = append(opts, cache.WithWriteBack())
	}
	if c.Store.MaxEntries > 0 {
		opts = append(opts, cache.WithMaxEntries(c.Store.MaxEntries))
	}
	if c.Store.MaxAge > 0 {
		opts = append(opts, cache.WithMaxAge(c.Store.MaxAge))
	}
	return opts, nil
}
