// Package config provides the configuration structure for the tts-gateway.
package config

import (
	"errors"
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"

	"github.com/book-expert/tts-gateway/internal/voices"
)

// Defaults applied when a section omits a value.
const (
	defaultHTTPPort           = 8080
	defaultBackendTimeoutSecs = 60
	defaultHealthTimeoutSecs  = 10
	defaultCacheTTLHours      = 24
	defaultLockTTLSeconds     = 60
	defaultPrefetchWindow     = 15
	defaultPopTimeoutSeconds  = 1
	defaultWorkerPoolSize     = 2
	defaultRetryBudget        = 3
)

// Static validation errors.
var (
	ErrKVURLRequired      = errors.New("kv url is required")
	ErrBackendURLRequired = errors.New("backend url is required")
	ErrBooksDBRequired    = errors.New("books db_path is required")
	ErrNoModels           = errors.New("at least one model must be configured")
	ErrUnknownModel       = errors.New("unknown model id")
	ErrUnknownVoice       = errors.New("voice does not belong to model")
)

// HTTPConfig holds the gateway listener settings.
type HTTPConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

// KVConfig holds the Redis connection settings.
type KVConfig struct {
	URL string `toml:"url"`
}

// BackendConfig holds the synthesis backend settings.
type BackendConfig struct {
	URL                  string `toml:"url"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	HealthTimeoutSeconds int    `toml:"health_timeout_seconds"`
}

// CacheConfig holds audio cache settings.
type CacheConfig struct {
	TTLHours int `toml:"ttl_hours"`
}

// LockConfig holds single-flight lock settings.
type LockConfig struct {
	TTLSeconds int `toml:"ttl_seconds"`
}

// QueueConfig holds queueing and prefetch settings.
type QueueConfig struct {
	PrefetchWindow     int  `toml:"prefetch_window"`
	PopTimeoutSeconds  int  `toml:"pop_timeout_seconds"`
	IncludeNextChapter bool `toml:"include_next_chapter"`
}

// WorkerConfig holds synthesis worker pool settings.
type WorkerConfig struct {
	PoolSize    int `toml:"pool_size"`
	RetryBudget int `toml:"retry_budget"`
}

// BooksConfig holds the chapter store settings.
type BooksConfig struct {
	DBPath string `toml:"db_path"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// ModelConfig restricts which voices a configured model accepts. An empty
// voice list means every catalog voice of the model is allowed.
type ModelConfig struct {
	ID     string   `toml:"id"`
	Voices []string `toml:"voices"`
}

// Config is the root configuration structure.
type Config struct {
	HTTP    HTTPConfig    `toml:"http"`
	KV      KVConfig      `toml:"kv"`
	Backend BackendConfig `toml:"backend"`
	Cache   CacheConfig   `toml:"cache"`
	Lock    LockConfig    `toml:"lock"`
	Queue   QueueConfig   `toml:"queue"`
	Worker  WorkerConfig  `toml:"worker"`
	Books   BooksConfig   `toml:"books"`
	Paths   PathsConfig   `toml:"paths"`
	Models  []ModelConfig `toml:"models"`
}

// Load loads the configuration for the tts-gateway, applies defaults and
// validates the result.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	return &cfg, nil
}

// ApplyDefaults fills unset numeric fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = defaultHTTPPort
	}

	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = defaultBackendTimeoutSecs
	}

	if c.Backend.HealthTimeoutSeconds == 0 {
		c.Backend.HealthTimeoutSeconds = defaultHealthTimeoutSecs
	}

	if c.Cache.TTLHours == 0 {
		c.Cache.TTLHours = defaultCacheTTLHours
	}

	if c.Lock.TTLSeconds == 0 {
		c.Lock.TTLSeconds = defaultLockTTLSeconds
	}

	if c.Queue.PrefetchWindow == 0 {
		c.Queue.PrefetchWindow = defaultPrefetchWindow
	}

	if c.Queue.PopTimeoutSeconds == 0 {
		c.Queue.PopTimeoutSeconds = defaultPopTimeoutSeconds
	}

	if c.Worker.PoolSize == 0 {
		c.Worker.PoolSize = defaultWorkerPoolSize
	}

	if c.Worker.RetryBudget == 0 {
		c.Worker.RetryBudget = defaultRetryBudget
	}
}

// Validate checks required fields and the model/voice configuration against
// the static catalog.
func (c *Config) Validate() error {
	if c.KV.URL == "" {
		return ErrKVURLRequired
	}

	if c.Backend.URL == "" {
		return ErrBackendURLRequired
	}

	if c.Books.DBPath == "" {
		return ErrBooksDBRequired
	}

	if len(c.Models) == 0 {
		return ErrNoModels
	}

	for _, model := range c.Models {
		if voices.ByModel(model.ID) == nil {
			return fmt.Errorf("%w: %q", ErrUnknownModel, model.ID)
		}

		for _, voiceID := range model.Voices {
			if !voices.IsValid(model.ID, voiceID) {
				return fmt.Errorf("%w: %q for model %q", ErrUnknownVoice, voiceID, model.ID)
			}
		}
	}

	return nil
}

// AllowsModel reports whether modelID is configured.
func (c *Config) AllowsModel(modelID string) bool {
	for _, model := range c.Models {
		if model.ID == modelID {
			return true
		}
	}

	return false
}

// AllowsVoice reports whether voiceID may be used with modelID under the
// configured voice policy.
func (c *Config) AllowsVoice(modelID, voiceID string) bool {
	for _, model := range c.Models {
		if model.ID != modelID {
			continue
		}

		if len(model.Voices) == 0 {
			return voices.IsValid(modelID, voiceID)
		}

		for _, allowed := range model.Voices {
			if allowed == voiceID {
				return true
			}
		}

		return false
	}

	return false
}
