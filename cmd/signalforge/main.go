package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/treumlabs/signalforge/internal/config"
	"github.com/treumlabs/signalforge/internal/llm/factory"
	"github.com/treumlabs/signalforge/internal/metrics"
	"github.com/treumlabs/signalforge/internal/source"
)

var (
	cfgFile     string
	debug       bool
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "signalforge",
	Short: "SignalForge - multi-model trading signal ensemble",
	Long: `SignalForge fuses opinions from multiple analysis models (LLM analysts
and a deterministic heuristic) into weighted ensemble trading signals,
and replays those signals against historical data.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "expose prometheus metrics on this address")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, or falls back to defaults when no
// file was given.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// buildSources assembles the signal sources. The heuristic model is
// always on; the LLM analysts join only when a provider is configured.
func buildSources(cfg *config.Config, log *zap.Logger) ([]source.SignalSource, error) {
	sources := []source.SignalSource{source.NewML()}

	if cfg.Sources.Primary.Provider != "" {
		provider, err := factory.New(cfg.Sources.Primary)
		if err != nil {
			return nil, fmt.Errorf("primary source: %w", err)
		}
		sources = append(sources, source.NewPrimary(provider, cfg.Sources.Primary.MinInterval, log))
	}

	if cfg.Sources.Conservative.Provider != "" {
		provider, err := factory.New(cfg.Sources.Conservative)
		if err != nil {
			return nil, fmt.Errorf("conservative source: %w", err)
		}
		sources = append(sources, source.NewConservative(provider, cfg.Sources.Conservative.MinInterval, log))
	}

	return sources, nil
}

// startMetrics exposes the registry over HTTP when metrics are enabled
// by config or by the --metrics-addr flag.
func startMetrics(cfg config.MetricsConfig, reg *metrics.Registry, log *zap.Logger) {
	if metricsAddr != "" {
		cfg.Enabled = true
		cfg.Addr = metricsAddr
	}
	if !cfg.Enabled {
		return
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg.Registry, promhttp.HandlerOpts{}))

		log.Info("metrics server listening", zap.String("addr", cfg.Addr))
		if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
			log.Error("metrics server error", zap.Error(err))
		}
	}()
}
