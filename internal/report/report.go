// Package report archives backtest results to a pluggable storage
// backend.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/google/uuid"

	"github.com/treumlabs/signalforge/internal/backtest"
	"github.com/treumlabs/signalforge/internal/config"
	"github.com/treumlabs/signalforge/internal/core"
)

// Store is the archive backend for backtest reports.
type Store interface {
	// Write stores data at the given path.
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path.
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths under the prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path.
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)
}

// New builds the store selected by the report configuration.
func New(cfg config.ReportConfig) (Store, error) {
	switch cfg.Type {
	case "", "localfs":
		dir := cfg.Path
		if dir == "" {
			dir = "./reports"
		}
		return NewLocalStore(dir)
	case "s3":
		return NewS3Store(cfg.S3)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown report type: %s", cfg.Type))
	}
}

const resultPrefix = "backtests"

// Save archives a backtest result as JSON and returns the path it was
// written to.
func Save(ctx context.Context, store Store, result *backtest.Result) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", core.WrapError(core.ErrReportFailed, err)
	}

	name := fmt.Sprintf("%s_%s_%s.json",
		result.StartDate.Format("20060102"),
		result.EndDate.Format("20060102"),
		uuid.NewString())
	key := path.Join(resultPrefix, name)

	if err := store.Write(ctx, key, data); err != nil {
		return "", core.WrapError(core.ErrReportFailed, err)
	}
	return key, nil
}

// Load reads an archived result back.
func Load(ctx context.Context, store Store, key string) (*backtest.Result, error) {
	data, err := store.Read(ctx, key)
	if err != nil {
		return nil, core.WrapError(core.ErrReportFailed, err)
	}

	var result backtest.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, core.WrapError(core.ErrReportFailed, err)
	}
	return &result, nil
}

// ListResults returns the archived result paths.
func ListResults(ctx context.Context, store Store) ([]string, error) {
	paths, err := store.List(ctx, resultPrefix)
	if err != nil {
		return nil, core.WrapError(core.ErrReportFailed, err)
	}
	return paths, nil
}
