package main

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/treumlabs/signalforge/internal/core"
	"github.com/treumlabs/signalforge/internal/ensemble"
	"github.com/treumlabs/signalforge/internal/logger"
	"github.com/treumlabs/signalforge/internal/marketdata"
	"github.com/treumlabs/signalforge/internal/marketdata/yahoo"
	"github.com/treumlabs/signalforge/internal/metrics"
)

var signalCmd = &cobra.Command{
	Use:   "signal SYMBOL [SYMBOL...]",
	Short: "Generate ensemble signals for one or more symbols",
	Long:  "Fetch live market data and run a full coordination round for each symbol",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSignal,
}

func init() {
	rootCmd.AddCommand(signalCmd)
}

func runSignal(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	sources, err := buildSources(cfg, log)
	if err != nil {
		return err
	}

	registry := metrics.NewRegistry()
	startMetrics(cfg.Metrics, registry, log)

	coord, err := ensemble.New(ensemble.Config{
		Weights:       cfg.Ensemble.Weights,
		SourceTimeout: cfg.Ensemble.SourceTimeout,
		MaxConcurrent: cfg.Ensemble.MaxConcurrent,
	}, sources, yahoo.New(), marketdata.NewCache(cfg.Ensemble.CacheTTL), registry, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results := coord.GenerateBatch(ctx, args)

	symbols := make([]string, 0, len(results))
	for symbol := range results {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	failed := 0
	for _, symbol := range symbols {
		r := results[symbol]
		if r.Err != nil {
			fmt.Printf("%-10s ERROR: %v\n", symbol, r.Err)
			failed++
			continue
		}
		printSignal(r.Signal)
	}

	if failed == len(results) {
		return fmt.Errorf("all %d symbols failed", failed)
	}
	return nil
}

func printSignal(sig *core.EnsembleSignal) {
	fmt.Printf("=== %s ===\n", sig.Symbol)
	fmt.Printf("Signal:     %s (%s, confidence %.2f)\n", sig.Signal, sig.Band, sig.Confidence)
	fmt.Printf("Price:      %.2f\n", sig.CurrentPrice)
	if sig.TargetPrice != nil {
		fmt.Printf("Target:     %.2f\n", *sig.TargetPrice)
	}
	if sig.StopLoss != nil {
		fmt.Printf("Stop loss:  %.2f\n", *sig.StopLoss)
	}
	fmt.Printf("Sentiment:  %s\n", sig.Sentiment)
	fmt.Printf("Risk:       %s\n", sig.RiskLevel)
	fmt.Printf("Expires:    %s\n", sig.ExpiresAt.Format("2006-01-02 15:04:05"))

	fmt.Println("Opinions:")
	for _, op := range sig.Opinions {
		if op.Analysis.Failed() {
			fmt.Printf("  %-8s FAILED: %s\n", op.Source, op.Analysis.Err)
			continue
		}
		fmt.Printf("  %-8s %s (confidence %.2f)\n", op.Source, op.Analysis.Signal, op.Confidence)
	}
	fmt.Println()
}
