package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"TradeCore/internal/domain/models"
)

// PolicyConfig declares one routable trading policy. TargetWeight scales how
// much of the per-symbol cap the policy commits when chosen.
type PolicyConfig struct {
	ID           string  `yaml:"id"`
	TargetWeight float64 `yaml:"target_weight"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Router struct {
		Policies               []PolicyConfig `yaml:"policies"`
		LearningRate           float64        `yaml:"learning_rate"`
		BreakoutImbalanceLevel float64        `yaml:"breakout_imbalance_level"`
		Seed                   int64          `yaml:"seed"` // 0 means time-seeded
		SnapshotInterval       time.Duration  `yaml:"snapshot_interval"`
	} `yaml:"router"`
	Execution struct {
		Constraints        models.ExecutionConstraints `yaml:"constraints"`
		ImpactWeight       float64                     `yaml:"impact_weight"`
		DefaultCorrelation float64                     `yaml:"default_correlation"`
		MinOrderNotional   float64                     `yaml:"min_order_notional"`
		BaseDelayMs        float64                     `yaml:"base_delay_ms"`
		Impact             struct {
			Window     int     `yaml:"window"`
			MinSamples int     `yaml:"min_samples"`
			Rate       float64 `yaml:"rate"`
		} `yaml:"impact"`
	} `yaml:"execution"`
	Features struct {
		VolWindow        int     `yaml:"vol_window"`
		FlowWindow       int     `yaml:"flow_window"`
		ObsPerYear       float64 `yaml:"obs_per_year"`
		RegimeDriftRatio float64 `yaml:"regime_drift_ratio"`
	} `yaml:"features"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		FillsTopic   string   `yaml:"fills_topic"`
		OrdersTopic  string   `yaml:"orders_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	MarketData struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url"`
		APIKey         string        `yaml:"api_key"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"marketdata"`
	RiskGuard struct {
		URL      string        `yaml:"url"`
		Timeout  time.Duration `yaml:"timeout"`
		FailOpen bool          `yaml:"fail_open"`
	} `yaml:"riskguard"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Dispatch struct {
		Enabled   bool   `yaml:"enabled"`
		QueueName string `yaml:"queue_name"`
		Workers   int    `yaml:"workers"`
	} `yaml:"dispatch"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("MARKETDATA_API_KEY"); v != "" {
		c.MarketData.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.MarketData.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_FILLS_TOPIC"); v != "" {
		c.Kafka.FillsTopic = v
	}
	if v := os.Getenv("KAFKA_ORDERS_TOPIC"); v != "" {
		c.Kafka.OrdersTopic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("RISKGUARD_URL"); v != "" {
		c.RiskGuard.URL = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Router.Policies) == 0 {
		return fmt.Errorf("router.policies cannot be empty")
	}
	seen := make(map[string]bool, len(c.Router.Policies))
	for _, p := range c.Router.Policies {
		if p.ID == "" {
			return fmt.Errorf("router.policies entries require an id")
		}
		if seen[p.ID] {
			return fmt.Errorf("router.policies contains duplicate id '%s'", p.ID)
		}
		seen[p.ID] = true
		if p.TargetWeight <= 0 {
			return fmt.Errorf("router.policies '%s': target_weight must be positive", p.ID)
		}
	}

	cons := c.Execution.Constraints
	if cons.MaxNotional <= 0 {
		return fmt.Errorf("execution.constraints.max_notional must be positive")
	}
	if cons.MaxSizePerSymbol <= 0 {
		return fmt.Errorf("execution.constraints.max_size_per_symbol must be positive")
	}
	if cons.InventoryBands.Lower >= cons.InventoryBands.Upper {
		return fmt.Errorf("execution.constraints.inventory_bands: lower must be below upper")
	}

	if c.MarketData.Enabled {
		if c.MarketData.WebSocketURL == "" {
			return fmt.Errorf("marketdata.websocket_url is required when marketdata is enabled")
		}
		if len(c.MarketData.Symbols) == 0 {
			return fmt.Errorf("marketdata.symbols cannot be empty when marketdata is enabled")
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Dispatch.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("dispatch requires redis to be enabled")
	}
	return nil
}
