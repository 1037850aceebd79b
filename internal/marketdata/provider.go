// Package marketdata provides market snapshots and bar history for the
// signal sources and the backtest replay.
package marketdata

import (
	"context"
	"time"

	"github.com/treumlabs/signalforge/internal/core"
)

// SnapshotSource produces a fully derived market snapshot for a symbol.
type SnapshotSource interface {
	Name() string
	Snapshot(ctx context.Context, symbol string) (*core.MarketSnapshot, error)
}

// HistorySource fetches daily OHLCV bars for a symbol over a time range.
type HistorySource interface {
	History(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error)
}
