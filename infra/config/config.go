package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"rcud/infra/logging"
)

// Config is the server configuration, read from rcud.yaml.
type Config struct {
	Listen      string           `yaml:"listen"`
	MetricsAddr string           `yaml:"metrics_addr"`
	DataDir     string           `yaml:"data_dir"`
	Log         logging.Options  `yaml:"log"`
	Reclaim     ReclaimConfig    `yaml:"reclaim"`
	Compaction  CompactionConfig `yaml:"compaction"`
	Broker      BrokerConfig     `yaml:"broker"`
}

// ReclaimConfig tunes hazard-pointer reclamation.
type ReclaimConfig struct {
	ScanThreshold int           `yaml:"scan_threshold"`
	Interval      time.Duration `yaml:"interval"`
	MaxIdleSlots  int           `yaml:"max_idle_slots"`
}

// CompactionConfig controls how much document history is kept on disk.
type CompactionConfig struct {
	Interval time.Duration `yaml:"interval"`
	Keep     uint64        `yaml:"keep"`
}

// BrokerConfig selects where change events are published.
type BrokerConfig struct {
	Client     string        `yaml:"client"` // sarama, kafka-go or none
	Brokers    []string      `yaml:"brokers"`
	Topic      string        `yaml:"topic"`
	Interval   time.Duration `yaml:"interval"`
	MaxRetries uint32        `yaml:"max_retries"`
}

// Broker clients.
const (
	ClientNone    = "none"
	ClientSarama  = "sarama"
	ClientKafkaGo = "kafka-go"
)

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path. A missing file yields Default().
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, errors.Wrapf(err, "read %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML, fills defaults and validates.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":50051"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Reclaim.ScanThreshold == 0 {
		c.Reclaim.ScanThreshold = 10
	}
	if c.Reclaim.Interval == 0 {
		c.Reclaim.Interval = 2 * time.Second
	}
	if c.Reclaim.MaxIdleSlots == 0 {
		c.Reclaim.MaxIdleSlots = 64
	}
	if c.Compaction.Interval == 0 {
		c.Compaction.Interval = time.Minute
	}
	if c.Compaction.Keep == 0 {
		c.Compaction.Keep = 100
	}
	c.Broker.Client = strings.ToLower(strings.TrimSpace(c.Broker.Client))
	if c.Broker.Client == "" {
		c.Broker.Client = ClientNone
	}
	if c.Broker.Topic == "" {
		c.Broker.Topic = "rcud.changes"
	}
	if c.Broker.Interval == 0 {
		c.Broker.Interval = 250 * time.Millisecond
	}
	if c.Broker.MaxRetries == 0 {
		c.Broker.MaxRetries = 5
	}
}

// Validate reports configuration that cannot work.
func (c Config) Validate() error {
	if c.Reclaim.ScanThreshold < 1 {
		return errors.Newf("reclaim.scan_threshold must be positive, got %d", c.Reclaim.ScanThreshold)
	}
	if c.Reclaim.Interval < 0 || c.Compaction.Interval < 0 || c.Broker.Interval < 0 {
		return errors.New("intervals must not be negative")
	}
	switch c.Broker.Client {
	case ClientNone:
	case ClientSarama, ClientKafkaGo:
		if len(c.Broker.Brokers) == 0 {
			return errors.Newf("broker.brokers is required for client %q", c.Broker.Client)
		}
	default:
		return errors.Newf("unknown broker.client %q", c.Broker.Client)
	}
	return nil
}
