// Package source contains the signal sources feeding the ensemble:
// two LLM-backed analysts and a deterministic heuristic model.
package source

import (
	"context"
	"sync"
	"time"

	"github.com/treumlabs/signalforge/internal/core"
)

// SignalSource produces one model opinion for a market snapshot.
// Generate never returns an error: a failed source contributes a
// zero-confidence opinion so fusion can keep going with the rest.
type SignalSource interface {
	Name() string
	Generate(ctx context.Context, snap *core.MarketSnapshot) core.ModelOpinion
}

// pacer enforces a minimum interval between calls to an upstream API.
// A nil pacer or a zero interval never blocks.
type pacer struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

func newPacer(interval time.Duration) *pacer {
	if interval <= 0 {
		return nil
	}
	return &pacer{interval: interval}
}

// wait blocks until the caller may proceed or the context is done.
func (p *pacer) wait(ctx context.Context) error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	now := time.Now()
	at := p.next
	if at.Before(now) {
		at = now
	}
	p.next = at.Add(p.interval)
	p.mu.Unlock()

	delay := time.Until(at)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
