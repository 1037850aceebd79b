package report

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/treumlabs/signalforge/internal/backtest"
	"github.com/treumlabs/signalforge/internal/config"
)

func TestLocalStore_ImplementsStore(t *testing.T) {
	var _ Store = (*LocalStore)(nil)
	var _ Store = (*S3Store)(nil)
}

func TestLocalStore_WriteRead(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	ctx := context.Background()
	data := []byte(`{"ok":true}`)

	if err := store.Write(ctx, "backtests/run.json", data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := store.Read(ctx, "backtests/run.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}
}

func TestLocalStore_Exists(t *testing.T) {
	store, _ := NewLocalStore(t.TempDir())
	ctx := context.Background()

	exists, _ := store.Exists(ctx, "missing.json")
	if exists {
		t.Error("expected false for missing file")
	}

	store.Write(ctx, "present.json", []byte("x"))
	exists, _ = store.Exists(ctx, "present.json")
	if !exists {
		t.Error("expected true for written file")
	}
}

func TestLocalStore_ListEmptyPrefix(t *testing.T) {
	store, _ := NewLocalStore(t.TempDir())

	paths, err := store.List(context.Background(), "backtests")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("expected no paths, got %v", paths)
	}
}

func TestLocalStore_Delete(t *testing.T) {
	store, _ := NewLocalStore(t.TempDir())
	ctx := context.Background()

	store.Write(ctx, "gone.json", []byte("x"))
	if err := store.Delete(ctx, "gone.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	exists, _ := store.Exists(ctx, "gone.json")
	if exists {
		t.Error("file should be deleted")
	}
}

func sampleResult() *backtest.Result {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 4)
	return &backtest.Result{
		Symbols:        []string{"AAPL"},
		StartDate:      start,
		EndDate:        end,
		InitialCapital: 100_000,
		FinalEquity:    100_360,
		EquityCurve: []backtest.EquityPoint{
			{Date: start, Equity: 100_000, Cash: 100_000},
			{Date: end, Equity: 100_360, Cash: 100_360, Return: 0.0036},
		},
		Trades: []backtest.Trade{
			{ID: "t1", Symbol: "AAPL", EntryPrice: 100, ExitPrice: 112, Quantity: 30, PnL: 360},
		},
		Metrics: backtest.Metrics{TotalReturn: 0.0036, TotalTrades: 1, WinningTrades: 1},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, _ := NewLocalStore(t.TempDir())
	ctx := context.Background()

	key, err := Save(ctx, store, sampleResult())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(key, "backtests/") || !strings.HasSuffix(key, ".json") {
		t.Errorf("unexpected key %q", key)
	}
	if !strings.Contains(key, "20250106_20250110") {
		t.Errorf("key %q should carry the date range", key)
	}

	loaded, err := Load(ctx, store, key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.FinalEquity != 100_360 {
		t.Errorf("final equity = %f, want 100360", loaded.FinalEquity)
	}
	if len(loaded.Trades) != 1 || loaded.Trades[0].PnL != 360 {
		t.Errorf("trades did not survive the round trip: %+v", loaded.Trades)
	}

	paths, err := ListResults(ctx, store)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("expected 1 archived result, got %d", len(paths))
	}
}

func TestSave_InfiniteProfitFactor(t *testing.T) {
	store, _ := NewLocalStore(t.TempDir())
	ctx := context.Background()

	result := sampleResult()
	result.Metrics.ProfitFactor = math.Inf(1)

	key, err := Save(ctx, store, result)
	if err != nil {
		t.Fatalf("Save with infinite profit factor: %v", err)
	}

	loaded, err := Load(ctx, store, key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Metrics.ProfitFactor != 0 {
		t.Errorf("omitted profit factor should load as zero, got %f", loaded.Metrics.ProfitFactor)
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	store, err := New(config.ReportConfig{Type: "localfs", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("New localfs: %v", err)
	}
	if _, ok := store.(*LocalStore); !ok {
		t.Errorf("got %T, want *LocalStore", store)
	}

	store, err = New(config.ReportConfig{Type: "s3", S3: config.S3Config{Bucket: "b", Region: "us-east-1"}})
	if err != nil {
		t.Fatalf("New s3: %v", err)
	}
	if _, ok := store.(*S3Store); !ok {
		t.Errorf("got %T, want *S3Store", store)
	}

	if _, err := New(config.ReportConfig{Type: "carrier-pigeon"}); err == nil {
		t.Error("unknown backend should error")
	}
}
