// Package config defines configuration parsing and helpers for the bridge.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/openprocurement/bridge-basic/internal/domain"
	"gopkg.in/yaml.v3"
)

// ErrConfig wraps every configuration-time failure: invalid URL, missing
// required key, or up_wait_sleep below the 30s floor. Fatal at startup.
var ErrConfig = domain.ErrConfig

var validate = validator.New()

// RetrieversParams holds feeder-side retrieval tuning.
type RetrieversParams struct {
	// UpWaitSleep is how long the feeder sleeps at the head of the upstream
	// stream before polling again. Must be >= 30 seconds.
	UpWaitSleep int `yaml:"up_wait_sleep" validate:"min=30"`
}

// StorageConfig selects the storage plugin and carries its free-form options.
type StorageConfig struct {
	StorageType string                 `yaml:"storage_type" validate:"required"`
	Options     map[string]interface{} `yaml:"options"`
}

// WorkerConfigSection selects the main worker plugin.
type WorkerConfigSection struct {
	WorkerType string `yaml:"worker_type" validate:"required"`
}

// FilterConfigSection selects the filter plugin.
type FilterConfigSection struct {
	FilterType string `yaml:"filter_type"`
}

// Config holds all bridge configuration, loaded from a YAML file and
// layered with a thin set of ambient operational env var overrides.
type Config struct {
	ResourcesAPIServer  string            `yaml:"resources_api_server" validate:"required,url"`
	ResourcesAPIVersion string            `yaml:"resources_api_version" validate:"required"`
	Resource            string            `yaml:"resource" validate:"required"`
	ExtraParams         map[string]string `yaml:"extra_params"`
	RetrieversParams    RetrieversParams  `yaml:"retrievers_params"`
	UserAgent           string            `yaml:"user_agent" validate:"required"`

	WorkersMin int `yaml:"workers_min" validate:"min=0"`
	WorkersMax int `yaml:"workers_max" validate:"gtefield=WorkersMin"`

	RetryWorkersMin int `yaml:"retry_workers_min" validate:"min=0"`
	RetryWorkersMax int `yaml:"retry_workers_max" validate:"gtefield=RetryWorkersMin"`

	FilterWorkersCount int `yaml:"filter_workers_count" validate:"min=1"`

	InputQueueSize              int `yaml:"input_queue_size"`
	ResourceItemsQueueSize      int `yaml:"resource_items_queue_size"`
	RetryResourceItemsQueueSize int `yaml:"retry_resource_items_queue_size"`

	WorkersIncThreshold float64 `yaml:"workers_inc_threshold"`
	WorkersDecThreshold float64 `yaml:"workers_dec_threshold"`

	QueuesControllerTimeout int `yaml:"queues_controller_timeout" validate:"min=1"`
	WatchInterval           int `yaml:"watch_interval" validate:"min=1"`
	PerfomanceWindow        int `yaml:"perfomance_window" validate:"min=1"`

	StorageConfig StorageConfig       `yaml:"storage_config"`
	WorkerConfig  WorkerConfigSection `yaml:"worker_config"`
	FilterConfig  FilterConfigSection `yaml:"filter_config"`

	// Handlers optionally restricts which registered handler plugins are
	// wired up. Empty means every registered handler is used.
	Handlers []string `yaml:"handlers"`

	// Ambient, operational-only overrides. Never sourced from the YAML file.
	LogLevel     string `yaml:"-"`
	MetricsAddr  string `yaml:"-"`
	OTLPEndpoint string `yaml:"-"`

	bridgeID string
}

// ambientEnv mirrors the ops-only knobs that may vary per deployment without
// touching the bridge's YAML configuration.
type ambientEnv struct {
	LogLevel     string `env:"BRIDGE_LOG_LEVEL" envDefault:"info"`
	MetricsAddr  string `env:"BRIDGE_METRICS_ADDR" envDefault:":9090"`
	OTLPEndpoint string `env:"BRIDGE_OTLP_ENDPOINT" envDefault:""`
}

// Load reads and validates the bridge configuration from the given YAML
// path, then layers ambient environment overrides on top.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w: %w", ErrConfig, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w: %w", ErrConfig, err)
	}

	if cfg.RetrieversParams.UpWaitSleep < 30 {
		return Config{}, fmt.Errorf("op=config.Load: %w: up_wait_sleep must be >= 30, got %d", ErrConfig, cfg.RetrieversParams.UpWaitSleep)
	}

	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w: %w", ErrConfig, err)
	}

	if _, err := url.ParseRequestURI(cfg.ResourcesAPIServer); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w: invalid resources_api_server: %w", ErrConfig, err)
	}

	var amb ambientEnv
	if err := env.Parse(&amb); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	cfg.LogLevel = amb.LogLevel
	cfg.MetricsAddr = amb.MetricsAddr
	cfg.OTLPEndpoint = amb.OTLPEndpoint

	cfg.bridgeID = strings.ReplaceAll(uuid.NewString(), "-", "")

	return cfg, nil
}

// BridgeID returns the random hex identifier stamped into log and trace
// attributes for this process's lifetime. The client pool receives it too,
// but the HTTP clients it builds do not send it in a User-Agent header.
func (c Config) BridgeID() string {
	if c.bridgeID == "" {
		return "unset"
	}
	return c.bridgeID
}
