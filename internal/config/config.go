package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Output   OutputConfig   `yaml:"output" envconfig:"OUTPUT"`
}

// PipelineConfig contains the alignment, aggregation, indicator and
// correlation settings threaded through every pipeline stage.
type PipelineConfig struct {
	MarketID        string `yaml:"market_id" envconfig:"MARKET_ID" default:"XNYS" validate:"required"`
	AlignmentPolicy string `yaml:"alignment_policy" envconfig:"ALIGNMENT_POLICY" default:"next_day" validate:"oneof=same_day next_day previous_day"`
	AggregationMode string `yaml:"aggregation_mode" envconfig:"AGGREGATION_MODE" default:"mean" validate:"oneof=mean weighted"`

	// IndicatorWindows maps an output column name to its window length,
	// e.g. sma_20 -> 20. Empty means the built-in default set.
	IndicatorWindows map[string]int `yaml:"indicator_windows" envconfig:"INDICATOR_WINDOWS" validate:"dive,min=1"`

	// Inclusive lag range scanned by the correlation analyzer, in
	// trading sessions. Positive lag = sentiment leads price.
	LagMin int `yaml:"lag_min" envconfig:"LAG_MIN" default:"0"`
	LagMax int `yaml:"lag_max" envconfig:"LAG_MAX" default:"5" validate:"gtefield=LagMin"`

	MinSampleSize int    `yaml:"min_sample_size" envconfig:"MIN_SAMPLE_SIZE" default:"5" validate:"min=1"`
	TargetColumn  string `yaml:"target_column" envconfig:"TARGET_COLUMN" default:"daily_return" validate:"required"`

	MaxConcurrency int `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" default:"4" validate:"min=1"`

	// Weighted aggregation settings. PublisherWeights assigns a
	// reputation weight per publisher (unlisted publishers weigh 1.0);
	// RecencyHalfLifeHours > 0 additionally decays items by age within
	// the day.
	PublisherWeights     map[string]float64 `yaml:"publisher_weights" envconfig:"PUBLISHER_WEIGHTS"`
	RecencyHalfLifeHours float64            `yaml:"recency_half_life_hours" envconfig:"RECENCY_HALF_LIFE_HOURS" validate:"min=0"`

	// SentimentSmoothWindow > 0 adds a trailing rolling mean of the
	// daily sentiment score over that many rows as a derived column.
	SentimentSmoothWindow int `yaml:"sentiment_smooth_window" envconfig:"SENTIMENT_SMOOTH_WINDOW" validate:"min=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/pipeline.log"`
}

// OutputConfig contains export destinations for the feature table and
// correlation report.
type OutputConfig struct {
	Dir            string `yaml:"dir" envconfig:"DIR" default:"out"`
	FeaturesCSV    string `yaml:"features_csv" envconfig:"FEATURES_CSV" default:"features.csv"`
	CorrelationCSV string `yaml:"correlation_csv" envconfig:"CORRELATION_CSV" default:"correlations.csv"`
	Workbook       string `yaml:"workbook" envconfig:"WORKBOOK" default:"report.xlsx"`
	WriteWorkbook  bool   `yaml:"write_workbook" envconfig:"WRITE_WORKBOOK" default:"true"`
}

// DefaultIndicatorWindows is the window set used when the configuration
// does not name any.
func DefaultIndicatorWindows() map[string]int {
	return map[string]int{
		"sma_20":        20,
		"ema_20":        20,
		"rsi_14":        14,
		"volatility_20": 20,
	}
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	return LoadWithPath(os.Getenv("FNS_CONFIG_FILE"))
}

// LoadWithPath loads configuration: struct defaults and FNS_* environment
// variables first, then a YAML file (when path is non-empty and exists)
// layered on top.
func LoadWithPath(path string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("FNS", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("load config from file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills values envconfig cannot default (maps).
func (c *Config) applyDefaults() {
	if len(c.Pipeline.IndicatorWindows) == 0 {
		c.Pipeline.IndicatorWindows = DefaultIndicatorWindows()
	}
}

// Validate checks the configuration against its declared constraints.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Pipeline.LagMax < c.Pipeline.LagMin {
		return fmt.Errorf("lag_max %d below lag_min %d", c.Pipeline.LagMax, c.Pipeline.LagMin)
	}
	return nil
}

// Default returns a configuration with all defaults applied, bypassing
// the environment. Intended for tests and library callers.
func Default() *Config {
	var cfg Config
	// envconfig with an unused prefix only applies struct defaults here.
	if err := envconfig.Process("FNS_DEFAULTS_ONLY", &cfg); err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	cfg.applyDefaults()
	return &cfg
}
