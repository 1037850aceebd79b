package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/treumlabs/signalforge/internal/core"
)

type Config struct {
	Ensemble EnsembleConfig `mapstructure:"ensemble"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Report   ReportConfig   `mapstructure:"report"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// EnsembleConfig controls fusion and the coordination round.
type EnsembleConfig struct {
	Weights       map[string]float64 `mapstructure:"weights"` // source name -> vote weight
	MinConfidence float64            `mapstructure:"min_confidence"`
	SourceTimeout time.Duration      `mapstructure:"source_timeout"`
	CacheTTL      time.Duration      `mapstructure:"cache_ttl"`
	MaxConcurrent int                `mapstructure:"max_concurrent"` // batch fan-out bound
}

// SourcesConfig configures the two LLM-backed signal sources.
// The heuristic ML source needs no configuration.
type SourcesConfig struct {
	Primary      LLMConfig `mapstructure:"primary"`
	Conservative LLMConfig `mapstructure:"conservative"`
}

// LLMConfig selects and configures one LLM provider slot.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // "claude", "openai" or "ollama"
	Claude      ClaudeConfig  `mapstructure:"claude"`
	OpenAI      OpenAIConfig  `mapstructure:"openai"`
	Ollama      OllamaConfig  `mapstructure:"ollama"`
	MinInterval time.Duration `mapstructure:"min_interval"` // pacing between calls
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// BacktestConfig holds simulation parameters.
type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	CommissionRate float64 `mapstructure:"commission_rate"`
	MinCommission  float64 `mapstructure:"min_commission"`
	SlippageRate   float64 `mapstructure:"slippage_rate"`
	MinConfidence  float64 `mapstructure:"min_confidence"`
	StopLossPct    float64 `mapstructure:"stop_loss_pct"`   // negative, e.g. -0.05
	TakeProfitPct  float64 `mapstructure:"take_profit_pct"` // positive, e.g. 0.15
	RiskFreeRate   float64 `mapstructure:"risk_free_rate"`  // annual
}

// ReportConfig selects the backtest report archive backend.
type ReportConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Ensemble: EnsembleConfig{
			Weights: map[string]float64{
				"gpt4":   0.40,
				"claude": 0.35,
				"ml":     0.25,
			},
			MinConfidence: 0.6,
			SourceTimeout: 30 * time.Second,
			CacheTTL:      5 * time.Minute,
			MaxConcurrent: 4,
		},
		Sources: SourcesConfig{
			Primary: LLMConfig{
				MinInterval: 200 * time.Millisecond,
			},
			Conservative: LLMConfig{
				MinInterval: 500 * time.Millisecond,
			},
		},
		Backtest: BacktestConfig{
			InitialCapital: 100_000,
			CommissionRate: 0.001,
			MinCommission:  1.0,
			SlippageRate:   0.0005,
			MinConfidence:  0.6,
			StopLossPct:    -0.05,
			TakeProfitPct:  0.15,
			RiskFreeRate:   0.06,
		},
		Report: ReportConfig{
			Type: "localfs",
			Path: "./reports",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Ensemble validation
	var total float64
	for name, w := range c.Ensemble.Weights {
		if w < 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("weight for %s cannot be negative, got %f", name, w))
		}
		total += w
	}
	if total <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("total ensemble weight must be positive, got %f", total))
	}
	if c.Ensemble.MinConfidence < 0 || c.Ensemble.MinConfidence > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_confidence must be between 0 and 1, got %f", c.Ensemble.MinConfidence))
	}
	if c.Ensemble.SourceTimeout <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("source_timeout must be positive, got %v", c.Ensemble.SourceTimeout))
	}

	// Backtest validation
	if c.Backtest.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %f", c.Backtest.InitialCapital))
	}
	if c.Backtest.CommissionRate < 0 || c.Backtest.SlippageRate < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("commission_rate and slippage_rate cannot be negative"))
	}
	if c.Backtest.MinConfidence < 0 || c.Backtest.MinConfidence > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("backtest min_confidence must be between 0 and 1, got %f", c.Backtest.MinConfidence))
	}
	if c.Backtest.StopLossPct >= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("stop_loss_pct must be negative, got %f", c.Backtest.StopLossPct))
	}
	if c.Backtest.TakeProfitPct <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("take_profit_pct must be positive, got %f", c.Backtest.TakeProfitPct))
	}

	// Source validation - if provider set, check config exists
	for _, src := range []struct {
		name string
		cfg  LLMConfig
	}{
		{"primary", c.Sources.Primary},
		{"conservative", c.Sources.Conservative},
	} {
		switch src.cfg.Provider {
		case "":
		case "claude":
			if src.cfg.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required for %s source", src.name))
			}
		case "openai":
			if src.cfg.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required for %s source", src.name))
			}
		case "ollama":
			if src.cfg.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required for %s source", src.name))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown provider for %s source: %s", src.name, src.cfg.Provider))
		}
	}

	// Report validation
	switch c.Report.Type {
	case "", "localfs":
	case "s3":
		if c.Report.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when report type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown report type: %s", c.Report.Type))
	}

	return nil
}
