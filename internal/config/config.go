// Package config loads connection and adapter settings from YAML and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/roach88/redislist/internal/collection"
	"github.com/roach88/redislist/internal/txn"
)

// Environment variables read by ApplyEnv.
const (
	EnvAddr         = "REDISLIST_ADDR"
	EnvPassword     = "REDISLIST_PASSWORD"
	EnvDB           = "REDISLIST_DB"
	EnvWatchTimeout = "REDISLIST_WATCH_TIMEOUT"
	EnvJournal      = "REDISLIST_JOURNAL"
)

// Config is the full configuration of the redislist tool.
type Config struct {
	Redis   RedisConfig   `yaml:"redis"`
	List    ListConfig    `yaml:"list"`
	Journal JournalConfig `yaml:"journal"`
	Log     LogConfig     `yaml:"log"`
}

// RedisConfig selects the server.
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Username    string        `yaml:"username,omitempty"`
	Password    string        `yaml:"password,omitempty"`
	DB          int           `yaml:"db"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// ListConfig tunes the adapters.
type ListConfig struct {
	// WatchTimeout bounds each optimistic transaction. Zero allows exactly
	// one attempt.
	WatchTimeout time.Duration `yaml:"watch_timeout"`
	PageSize     int           `yaml:"page_size"`
	Backoff      BackoffConfig `yaml:"backoff"`
}

// BackoffConfig is the pause between rejected transaction attempts.
type BackoffConfig struct {
	Initial time.Duration `yaml:"initial"`
	Max     time.Duration `yaml:"max"`
}

// JournalConfig enables the mutation journal when Path is set.
type JournalConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			DialTimeout: 5 * time.Second,
		},
		List: ListConfig{
			WatchTimeout: txn.DefaultTimeout,
			PageSize:     collection.DefaultPageSize,
			Backoff: BackoffConfig{
				Initial: time.Millisecond,
				Max:     50 * time.Millisecond,
			},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. Unknown fields are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment as seen through lookup,
// typically os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAddr); ok {
		c.Redis.Addr = v
	}
	if v, ok := lookup(EnvPassword); ok {
		c.Redis.Password = v
	}
	if v, ok := lookup(EnvDB); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDB, err)
		}
		c.Redis.DB = db
	}
	if v, ok := lookup(EnvWatchTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWatchTimeout, err)
		}
		c.List.WatchTimeout = d
	}
	if v, ok := lookup(EnvJournal); ok {
		c.Journal.Path = v
	}
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("redis.db must be >= 0, got %d", c.Redis.DB))
	}
	if c.List.WatchTimeout < 0 {
		errs = append(errs, fmt.Errorf("list.watch_timeout must be >= 0, got %s", c.List.WatchTimeout))
	}
	if c.List.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("list.page_size must be > 0, got %d", c.List.PageSize))
	}
	if c.List.Backoff.Initial < 0 || c.List.Backoff.Max < c.List.Backoff.Initial {
		errs = append(errs, fmt.Errorf("list.backoff must satisfy 0 <= initial <= max, got %s..%s",
			c.List.Backoff.Initial, c.List.Backoff.Max))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	return errors.Join(errs...)
}

// RedisOptions converts the connection settings for go-redis.
func (c Config) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:        c.Redis.Addr,
		Username:    c.Redis.Username,
		Password:    c.Redis.Password,
		DB:          c.Redis.DB,
		DialTimeout: c.Redis.DialTimeout,
	}
}

// NewClient opens a client for the configured server. The caller closes it.
func (c Config) NewClient() *redis.Client {
	return redis.NewClient(c.RedisOptions())
}

// AdapterOptions converts the list settings to adapter options.
func (c Config) AdapterOptions() []collection.Option {
	return []collection.Option{
		collection.WithWatchTimeout(c.List.WatchTimeout),
		collection.WithPageSize(c.List.PageSize),
		collection.WithBackoff(txn.Backoff{
			Initial: c.List.Backoff.Initial,
			Max:     c.List.Backoff.Max,
		}),
	}
}
