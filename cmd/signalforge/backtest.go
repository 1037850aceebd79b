package main

import (
	"context"
	"fmt"
	"math"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/treumlabs/signalforge/internal/backtest"
	"github.com/treumlabs/signalforge/internal/ensemble"
	"github.com/treumlabs/signalforge/internal/logger"
	"github.com/treumlabs/signalforge/internal/marketdata"
	"github.com/treumlabs/signalforge/internal/marketdata/yahoo"
	"github.com/treumlabs/signalforge/internal/metrics"
	"github.com/treumlabs/signalforge/internal/report"
)

var (
	backtestSymbols []string
	backtestFrom    string
	backtestTo      string
	backtestArchive bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay ensemble signals against historical data",
	Long:  "Fetch historical bars, replay a day-by-day simulation and show performance metrics",
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringSliceVar(&backtestSymbols, "symbols", nil, "Symbols to backtest (required)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD (required)")
	backtestCmd.Flags().BoolVar(&backtestArchive, "report", false, "Archive the result to the configured report store")

	backtestCmd.MarkFlagRequired("symbols")
	backtestCmd.MarkFlagRequired("from")
	backtestCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	fromDate, err := time.Parse("2006-01-02", backtestFrom)
	if err != nil {
		return fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
	}
	toDate, err := time.Parse("2006-01-02", backtestTo)
	if err != nil {
		return fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
	}
	if toDate.Before(fromDate) {
		return fmt.Errorf("end date must be after start date")
	}

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// the replay needs enough history before the start date to warm up
	// the long moving averages
	store := marketdata.NewMemoryStore()
	client := yahoo.New()
	historyFrom := fromDate.AddDate(-2, 0, 0)
	for _, symbol := range backtestSymbols {
		bars, err := client.History(ctx, symbol, historyFrom, toDate)
		if err != nil {
			return fmt.Errorf("fetching history for %s: %w", symbol, err)
		}
		store.Add(bars...)
		log.Info("history loaded", zap.String("symbol", symbol), zap.Int("bars", len(bars)))
	}

	// no snapshot cache here: replay snapshots are point-in-time
	coord, err := ensemble.New(ensemble.Config{
		Weights:       cfg.Ensemble.Weights,
		SourceTimeout: cfg.Ensemble.SourceTimeout,
		MaxConcurrent: cfg.Ensemble.MaxConcurrent,
	}, sources, nil, nil, registry, log)
	if err != nil {
		return err
	}

	engine := backtest.NewEngine(cfg.Backtest, coord, store, registry, log)
	result, err := engine.Run(ctx, backtestSymbols, fromDate, toDate)
	if err != nil {
		return err
	}

	printResult(result)

	if backtestArchive {
		store, err := report.New(cfg.Report)
		if err != nil {
			return err
		}
		key, err := report.Save(ctx, store, result)
		if err != nil {
			return err
		}
		fmt.Printf("\nReport archived: %s\n", key)
	}

	return nil
}

func printResult(r *backtest.Result) {
	m := r.Metrics

	fmt.Println("=== SignalForge Backtest ===")
	fmt.Printf("Symbols:  %v\n", r.Symbols)
	fmt.Printf("Period:   %s to %s\n", r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))
	fmt.Printf("Capital:  %.2f -> %.2f\n", r.InitialCapital, r.FinalEquity)
	fmt.Println()

	fmt.Printf("Total return:     %8.2f%%\n", m.TotalReturn*100)
	fmt.Printf("Annual return:    %8.2f%%\n", m.AnnualReturn*100)
	fmt.Printf("Volatility:       %8.2f%%\n", m.Volatility*100)
	fmt.Printf("Sharpe ratio:     %8.2f\n", m.SharpeRatio)
	fmt.Printf("Sortino ratio:    %8.2f\n", m.SortinoRatio)
	fmt.Printf("Calmar ratio:     %8.2f\n", m.CalmarRatio)
	fmt.Printf("Max drawdown:     %8.2f%% (%d days)\n", m.MaxDrawdown*100, m.MaxDrawdownDuration)
	fmt.Printf("VaR 95:           %8.2f%%\n", m.ValueAtRisk95*100)
	fmt.Printf("CVaR 95:          %8.2f%%\n", m.ConditionalVaR95*100)
	fmt.Println()

	fmt.Printf("Trades:           %8d (%d wins / %d losses)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	fmt.Printf("Win rate:         %8.2f%%\n", m.WinRate*100)
	if math.IsInf(m.ProfitFactor, 1) {
		fmt.Printf("Profit factor:         inf\n")
	} else {
		fmt.Printf("Profit factor:    %8.2f\n", m.ProfitFactor)
	}
	fmt.Printf("Avg win / loss:   %8.2f / %.2f\n", m.AvgWin, m.AvgLoss)
	fmt.Printf("Largest win:      %8.2f\n", m.LargestWin)
	fmt.Printf("Largest loss:     %8.2f\n", m.LargestLoss)
	if m.TotalTrades > 0 {
		fmt.Printf("Avg confidence:   %8.2f\n", m.AvgSignalConfidence)
	}
}
