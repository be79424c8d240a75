package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the whole runtime configuration document. It is loaded once at
// startup, validated, and immutable for the rest of the run; trading
// instances share it read-only.
type Config struct {
	Environment string `yaml:"environment" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Instance struct {
		Symbol string `yaml:"symbol" validate:"required"`
	} `yaml:"instance"`

	Timeframes []TimeframeConfig `yaml:"timeframes" validate:"required,min=1,dive"`

	Rollup struct {
		Capacity int `yaml:"capacity" default:"1000" validate:"gt=0"`
	} `yaml:"rollup"`

	Thresholds struct {
		SMin                          float64 `yaml:"s_min" validate:"gte=0"`
		MMin                          float64 `yaml:"m_min" validate:"gte=0"`
		ConfMin                       float64 `yaml:"conf_min" validate:"gte=0,lte=1"`
		AlphaMin                      float64 `yaml:"alpha_min" validate:"gte=0"`
		FlipModel                     bool    `yaml:"flip_model"`
		FlipMood                      bool    `yaml:"flip_mood"`
		RequireConsensus              bool    `yaml:"require_consensus"`
		AllowModelOnlyWhenMoodNeutral bool    `yaml:"allow_model_only_when_mood_neutral"`
		NeutralBand                   float64 `yaml:"neutral_band" validate:"gte=0"`
	} `yaml:"thresholds"`

	Ensemble struct {
		Enabled bool    `yaml:"enabled" default:"true"`
		Window  int     `yaml:"window" default:"120" validate:"gt=0"`
		Kappa   float64 `yaml:"kappa" default:"2.0"`
	} `yaml:"ensemble"`

	Risk struct {
		EdgeScaleBps    float64 `yaml:"edge_scale_bps" validate:"gt=0"`
		TakerFeeBps     float64 `yaml:"taker_fee_bps" validate:"gte=0"`
		SlippageBps     float64 `yaml:"slippage_bps" validate:"gte=0"`
		BufferBps       float64 `yaml:"buffer_bps" validate:"gte=0"`
		ImpactK         float64 `yaml:"impact_k" validate:"gte=0"`
		MaxImpactBps    float64 `yaml:"max_impact_bps" validate:"gt=0"`
		HardImpactBps   float64 `yaml:"hard_impact_bps" validate:"gt=0"`
		AllowSoftImpact bool    `yaml:"allow_soft_impact"`
		BaseNotional    float64 `yaml:"base_notional" validate:"gt=0"`
		MaxPosition     float64 `yaml:"max_position" validate:"gt=0"`
		ADVWindowDays   int     `yaml:"adv_window_days" default:"20" validate:"gt=0"`
	} `yaml:"risk"`

	Stream struct {
		Type           string        `yaml:"type" default:"websocket" validate:"oneof=websocket kafka"`
		URL            string        `yaml:"url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"15s"`
	} `yaml:"stream"`

	ModelProvider struct {
		URL     string        `yaml:"url" validate:"required"`
		Timeout time.Duration `yaml:"timeout" default:"3s"`
		Retry   RetryConfig   `yaml:"retry"`
	} `yaml:"model_provider"`

	Cohort struct {
		URL          string        `yaml:"url" validate:"required"`
		Timeout      time.Duration `yaml:"timeout" default:"3s"`
		Retry        RetryConfig   `yaml:"retry"`
		StatePath    string        `yaml:"state_path" default:"data/cohort_state.json"`
		StalenessMax time.Duration `yaml:"staleness_max" default:"10m"`
		Redis        struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cohort"`

	Audit struct {
		Backend string `yaml:"backend" default:"kafka" validate:"oneof=kafka clickhouse"`
	} `yaml:"audit"`

	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		DecisionsTopic string   `yaml:"decisions_topic" default:"tradegate.decisions"`
		IntentsTopic   string   `yaml:"intents_topic" default:"tradegate.intents"`
		BarsTopic      string   `yaml:"bars_topic" default:"tradegate.bars"`
		LogsTopic      string   `yaml:"logs_topic" default:"tradegate.logs"`
		RequiredAcks   int      `yaml:"required_acks" default:"-1"`
		Compression    string   `yaml:"compression" default:"gzip"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID  string `yaml:"group_id" default:"tradegate"`
			MinBytes int    `yaml:"min_bytes" default:"1"`
			MaxBytes int    `yaml:"max_bytes" default:"1048576"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"tradegate"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

// TimeframeConfig declares one rollup level. The first entry is the base
// timeframe and must have window 1.
type TimeframeConfig struct {
	Name    string  `yaml:"name" validate:"required"`
	Window  int     `yaml:"window" validate:"gt=0"`
	MinBars int     `yaml:"min_bars" default:"1" validate:"gt=0"`
	Weight  float64 `yaml:"weight" default:"1" validate:"gt=0"`
}

// RetryConfig bounds upstream fetch retries: exponential backoff between
// BackoffMin and BackoffMax with a hard ceiling on total wait.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" default:"4" validate:"gt=0"`
	BackoffMin  time.Duration `yaml:"backoff_min" default:"200ms"`
	BackoffMax  time.Duration `yaml:"backoff_max" default:"5s"`
	MaxElapsed  time.Duration `yaml:"max_elapsed" default:"15s"`
}

// Load reads, defaults, and validates a YAML configuration file. A
// validation failure is fatal to the caller before a single bar is
// processed.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables for the usual deployment knobs.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOL"); v != "" {
		c.Instance.Symbol = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MODEL_PROVIDER_URL"); v != "" {
		c.ModelProvider.URL = v
	}
	if v := os.Getenv("COHORT_URL"); v != "" {
		c.Cohort.URL = v
	}
	if v := os.Getenv("AUDIT_BACKEND"); v != "" {
		c.Audit.Backend = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

var validate = validator.New()

// Validate checks struct tags plus the cross-field rules the tags cannot
// express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Timeframes[0].Window != 1 {
		return fmt.Errorf("timeframes[0] must be the base timeframe (window 1), got %d", c.Timeframes[0].Window)
	}
	for i, tf := range c.Timeframes[1:] {
		if tf.Window < 2 {
			return fmt.Errorf("timeframes[%d] (%s): rollup window must be >= 2", i+1, tf.Name)
		}
	}
	if c.Risk.HardImpactBps < c.Risk.MaxImpactBps {
		return fmt.Errorf("risk.hard_impact_bps (%v) must be >= risk.max_impact_bps (%v)", c.Risk.HardImpactBps, c.Risk.MaxImpactBps)
	}
	if c.Audit.Backend == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required for kafka audit backend")
	}
	if c.Audit.Backend == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host required for clickhouse audit backend")
	}
	if c.Stream.Type == "websocket" && c.Stream.URL == "" {
		return fmt.Errorf("stream.url required for websocket stream")
	}
	if c.Stream.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required for kafka stream")
	}
	return nil
}
