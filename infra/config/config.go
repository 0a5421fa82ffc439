package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"matchbook/domain/orderbook"
)

// Kafka client names accepted in kafka.client.
const (
	ClientSarama  = "sarama"
	ClientKafkaGo = "kafka-go"
)

// Config holds every process setting. Load fills it from a YAML file and
// then applies MATCHBOOK_* environment overrides.
type Config struct {
	Instrument struct {
		Symbol    string          `yaml:"symbol"`
		TickSize  decimal.Decimal `yaml:"tick_size"`
		DepthSize int             `yaml:"depth_size"`
	} `yaml:"instrument"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`

	Journal struct {
		Dir         string `yaml:"dir"`
		SegmentSize int64  `yaml:"segment_size"`
	} `yaml:"journal"`

	Outbox struct {
		Dir string `yaml:"dir"`
	} `yaml:"outbox"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Kafka KafkaConfig `yaml:"kafka"`

	GRPC struct {
		Addr string `yaml:"addr"`
	} `yaml:"grpc"`

	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Snapshot struct {
		Dir      string        `yaml:"dir"`
		Interval time.Duration `yaml:"interval"`
		// TruncateJournal drops journal segments a snapshot covers.
		TruncateJournal bool `yaml:"truncate_journal"`
	} `yaml:"snapshot"`
}

// KafkaConfig selects the client and topic for outbox delivery. With no
// brokers the broadcaster is not started.
type KafkaConfig struct {
	Client   string        `yaml:"client"`
	Brokers  []string      `yaml:"brokers"`
	Topic    string        `yaml:"topic"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns the settings used for anything a file leaves out.
func Default() *Config {
	var c Config
	c.Instrument.Symbol = "DEMO"
	c.Instrument.TickSize = decimal.New(1, -2)
	c.Instrument.DepthSize = 5
	c.Logging.Level = "info"
	c.Logging.File = "logs/matchbook.log"
	c.Journal.Dir = "./data/journal"
	c.Journal.SegmentSize = 4 << 20
	c.Outbox.Dir = "./data/outbox"
	c.Kafka.Client = ClientSarama
	c.Kafka.Topic = "matchbook.events"
	c.Kafka.Interval = 250 * time.Millisecond
	c.GRPC.Addr = ":50051"
	c.HTTP.Addr = ":8080"
	c.Snapshot.Dir = "./data/snapshots"
	c.Snapshot.Interval = 30 * time.Second
	return &c
}

// Load reads the YAML file at path over Default. An empty path loads the
// defaults alone.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	var errs []error
	if c.Instrument.Symbol == "" {
		errs = append(errs, errors.New("instrument.symbol is required"))
	}
	if !c.Instrument.TickSize.IsPositive() {
		errs = append(errs, fmt.Errorf("instrument.tick_size must be positive, got %s", c.Instrument.TickSize))
	}
	if c.Instrument.DepthSize < 1 {
		errs = append(errs, fmt.Errorf("instrument.depth_size must be at least 1, got %d", c.Instrument.DepthSize))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown logging.level %q", c.Logging.Level))
	}
	if c.Journal.Dir == "" {
		errs = append(errs, errors.New("journal.dir is required"))
	}
	if c.Journal.SegmentSize <= 0 {
		errs = append(errs, errors.New("journal.segment_size must be positive"))
	}
	if c.Outbox.Dir == "" {
		errs = append(errs, errors.New("outbox.dir is required"))
	}
	switch c.Kafka.Client {
	case ClientSarama, ClientKafkaGo:
	default:
		errs = append(errs, fmt.Errorf("unknown kafka.client %q", c.Kafka.Client))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	if c.Kafka.Interval <= 0 {
		errs = append(errs, errors.New("kafka.interval must be positive"))
	}
	if c.Snapshot.Dir != "" && c.Snapshot.Interval <= 0 {
		errs = append(errs, errors.New("snapshot.interval must be positive"))
	}
	return errors.Join(errs...)
}

// DisplayPrice converts a price in ticks to its decimal form.
func (c *Config) DisplayPrice(p orderbook.Price) decimal.Decimal {
	return c.Instrument.TickSize.Mul(decimal.NewFromInt(int64(p)))
}

// TicksFor converts a decimal price to ticks. Prices off the tick grid are
// rejected.
func (c *Config) TicksFor(d decimal.Decimal) (orderbook.Price, error) {
	q := d.Div(c.Instrument.TickSize)
	if !q.IsInteger() {
		return 0, fmt.Errorf("price %s is not a multiple of tick %s", d, c.Instrument.TickSize)
	}
	return orderbook.Price(q.IntPart()), nil
}

func overrideWithEnv(cfg *Config) error {
	if v := os.Getenv("MATCHBOOK_SYMBOL"); v != "" {
		cfg.Instrument.Symbol = v
	}
	if v := os.Getenv("MATCHBOOK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("MATCHBOOK_DEPTH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MATCHBOOK_DEPTH_SIZE: %w", err)
		}
		cfg.Instrument.DepthSize = n
	}
	if v := os.Getenv("MATCHBOOK_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MATCHBOOK_KAFKA_CLIENT"); v != "" {
		cfg.Kafka.Client = v
	}
	if v := os.Getenv("MATCHBOOK_GRPC_ADDR"); v != "" {
		cfg.GRPC.Addr = v
	}
	if v := os.Getenv("MATCHBOOK_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("MATCHBOOK_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	return nil
}
