package sqlite

import (
	"context"
	"github.com/myrjola/twentyq/internal/errors"
	"log/slog"
	"time"
)

// OptimizeInterval is how often RunOptimizer optimizes the mirror during a generation run.
const OptimizeInterval = time.Hour

// Optimize runs PRAGMA optimize on the read-write pool. See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) Optimize(ctx context.Context) error {
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		return errors.Wrap(err, "optimize database")
	}
	db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", slog.Duration("duration", time.Since(start)))
	return nil
}

// RunOptimizer optimizes the database every interval until ctx is done. Failures are logged, not returned.
func (db *Database) RunOptimizer(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.Optimize(ctx); err != nil && ctx.Err() == nil {
				db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", errors.SlogError(err))
			}
		}
	}
}
