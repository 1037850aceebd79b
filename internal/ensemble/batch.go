package ensemble

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/treumlabs/signalforge/internal/core"
)

// Result carries the outcome of one symbol in a batch round.
type Result struct {
	Signal *core.EnsembleSignal
	Err    error
}

// GenerateBatch runs a coordination round for each symbol, at most
// MaxConcurrent symbols in flight. Per-symbol failures land in the
// result map instead of aborting the batch.
func (c *Coordinator) GenerateBatch(ctx context.Context, symbols []string) map[string]Result {
	results := make(map[string]Result, len(symbols))

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, c.cfg.MaxConcurrent)
	)

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				results[symbol] = Result{Err: ctx.Err()}
				mu.Unlock()
				return
			}

			sig, err := c.Generate(ctx, symbol)
			if err != nil {
				c.logger.Warn("batch symbol failed",
					zap.String("symbol", symbol),
					zap.Error(err))
			}

			mu.Lock()
			results[symbol] = Result{Signal: sig, Err: err}
			mu.Unlock()
		}(symbol)
	}

	wg.Wait()
	return results
}
