package utils

import (
	"context"
	"time"

	"github.com/lifeflow/lifeflow/schedule"
)

// LogCompactor deletes explicit-uncheck rows (count 0) once they are older
// than the retention window. A missing row reads the same as a zero row.
type LogCompactor interface {
	CompactZeroLogs(ctx context.Context, before string, limit int) (int64, error)
}

const compactBatch = 500

// CompactOnce removes zero-count logs dated before now minus retentionDays.
// It works in batches until a batch comes back short.
func CompactOnce(ctx context.Context, c LogCompactor, now time.Time, retentionDays int) (int64, error) {
	before := schedule.DateKey(schedule.Day(now).AddDate(0, 0, -retentionDays))
	var total int64
	for {
		n, err := c.CompactZeroLogs(ctx, before, compactBatch)
		total += n
		if err != nil {
			return total, err
		}
		if n < compactBatch {
			return total, nil
		}
	}
}

// StartLogCompactor launches a background goroutine that periodically
// compacts zero-count logs until ctx is cancelled. It is best-effort and logs failures.
func StartLogCompactor(ctx context.Context, c LogCompactor, interval time.Duration, retentionDays int) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			// Wait first to avoid racing immediately at startup
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			n, err := CompactOnce(ctx, c, time.Now(), retentionDays)
			if err != nil {
				Sugar.Warnf("log compactor failed after removing %d rows: %v", n, err)
				continue
			}
			if n > 0 {
				Sugar.Infof("log compactor removed %d zero-count rows", n)
			}
		}
	}()
}
