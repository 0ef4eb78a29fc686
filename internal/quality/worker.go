package quality

import (
	"context"
	"time"
)

// StartAnalysisTicker runs a background goroutine that periodically
// re-scores calls still carrying default AI dimensions, batchSize at a
// time. The goroutine stops when the context is cancelled.
func StartAnalysisTicker(ctx context.Context, analyzer *Analyzer, interval time.Duration, batchSize int) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := analyzer.AnalyzePending(ctx, batchSize)
				if err != nil {
					analyzer.logger.Error("pending call analysis failed", "error", err)
					continue
				}
				if n > 0 {
					analyzer.logger.Info("pending call analysis", "analyzed", n)
				}
			}
		}
	}()
}
