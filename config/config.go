package config

import (
	"os"
	"time"

	"github.com/aptible/supercronic/cronexpr"
	"github.com/cockroachdb/errors"
	"go.yaml.in/yaml/v2"

	"rbstore/infra/kafka"
	"rbstore/infra/logging"
)

type Config struct {
	Tree      TreeConfig      `yaml:"tree"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Outbox    OutboxConfig    `yaml:"outbox"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Audit     AuditConfig     `yaml:"audit"`
	Log       logging.Config  `yaml:"log"`
}

type TreeConfig struct {
	// MaxNodes caps the number of stored keys. 0 is unbounded.
	MaxNodes int `yaml:"max_nodes"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

type MetricsConfig struct {
	// Addr serves /metrics. Empty disables the endpoint.
	Addr string `yaml:"addr"`
}

type OutboxConfig struct {
	Enabled bool `yaml:"enabled"`
	// Dir for the pebble store; empty keeps events in memory.
	Dir    string `yaml:"dir"`
	NoSync bool   `yaml:"no_sync"`
}

type BroadcastConfig struct {
	// Driver is "kafka-go" or "sarama". Empty disables publishing.
	Driver     string   `yaml:"driver"`
	Brokers    []string `yaml:"brokers"`
	Topic      string   `yaml:"topic"`
	Interval   Duration `yaml:"interval"`
	MaxRetries uint32   `yaml:"max_retries"`
}

type AuditConfig struct {
	// Cron is a cron expression; empty disables the audit job.
	Cron string `yaml:"cron"`
}

// Duration reads "250ms"-style strings from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "config: duration %q", s)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func Default() Config {
	return Config{
		GRPC:    GRPCConfig{Addr: ":50051"},
		Metrics: MetricsConfig{Addr: ":9090"},
		Outbox:  OutboxConfig{Enabled: true},
		Broadcast: BroadcastConfig{
			Topic:      "rbstore.events",
			Interval:   Duration(250 * time.Millisecond),
			MaxRetries: 5,
		},
		Audit: AuditConfig{Cron: "*/30 * * * * * *"},
		Log:   logging.Config{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: read")
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Tree.MaxNodes < 0 {
		return errors.Newf("config: tree.max_nodes must be >= 0, got %d", c.Tree.MaxNodes)
	}
	if c.GRPC.Addr == "" {
		return errors.New("config: grpc.addr is required")
	}
	switch c.Broadcast.Driver {
	case "":
	case kafka.DriverKafkaGo, kafka.DriverSarama:
		if !c.Outbox.Enabled {
			return errors.New("config: broadcast requires outbox.enabled")
		}
		if len(c.Broadcast.Brokers) == 0 {
			return errors.New("config: broadcast.brokers is required")
		}
		if c.Broadcast.Topic == "" {
			return errors.New("config: broadcast.topic is required")
		}
		if c.Broadcast.Interval <= 0 {
			return errors.New("config: broadcast.interval must be positive")
		}
	default:
		return errors.Newf("config: unknown broadcast.driver %q", c.Broadcast.Driver)
	}
	if c.Audit.Cron != "" {
		if _, err := cronexpr.Parse(c.Audit.Cron); err != nil {
			return errors.Wrapf(err, "config: audit.cron %q", c.Audit.Cron)
		}
	}
	return nil
}
