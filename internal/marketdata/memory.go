package marketdata

import (
	"sort"
	"sync"
	"time"

	"github.com/treumlabs/signalforge/internal/core"
)

// MemoryStore holds daily bar series per symbol for backtest replay.
// Bars are kept sorted by time so point-in-time windows never include
// data after the requested date.
type MemoryStore struct {
	mu   sync.RWMutex
	bars map[string][]core.Bar
}

// NewMemoryStore creates an empty bar store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bars: make(map[string][]core.Bar)}
}

// Add inserts bars, keeping each symbol's series sorted by time.
func (s *MemoryStore) Add(bars ...core.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]bool)
	for _, b := range bars {
		if !b.IsValid() {
			continue
		}
		s.bars[b.Symbol] = append(s.bars[b.Symbol], b)
		touched[b.Symbol] = true
	}
	for sym := range touched {
		series := s.bars[sym]
		sort.Slice(series, func(i, j int) bool {
			return series[i].Time.Before(series[j].Time)
		})
	}
}

// Symbols returns all symbols with at least one bar, sorted.
func (s *MemoryStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	syms := make([]string, 0, len(s.bars))
	for sym := range s.bars {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}

// BarOn returns the bar for symbol on the given calendar day.
func (s *MemoryStore) BarOn(symbol string, day time.Time) (core.Bar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	y, m, d := day.Date()
	for _, b := range s.bars[symbol] {
		by, bm, bd := b.Time.Date()
		if by == y && bm == m && bd == d {
			return b, true
		}
	}
	return core.Bar{}, false
}

// WindowTo returns up to n bars for symbol ending on or before day.
// This is the point-in-time view the replay engine builds snapshots
// from: bars after day are never visible.
func (s *MemoryStore) WindowTo(symbol string, day time.Time, n int) []core.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, day.Location())
	series := s.bars[symbol]

	end := sort.Search(len(series), func(i int) bool {
		return series[i].Time.After(cutoff)
	})

	start := end - n
	if start < 0 {
		start = 0
	}

	window := make([]core.Bar, end-start)
	copy(window, series[start:end])
	return window
}
