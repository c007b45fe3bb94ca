package matching

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Cleanup 删除早于保留窗口的批次及其匹配记录，返回删除的批次数。
func (e *Engine) Cleanup(ctx context.Context) (int64, error) {
	cutoff := e.now().Add(-e.cfg.RetentionWindow())

	runs, err := e.runs.FindRunsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find expired runs: %w", err)
	}
	if len(runs) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, r.ID)
	}

	matches, err := e.matches.DeleteMatchesByRunIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete expired matches: %w", err)
	}
	deleted, err := e.runs.DeleteRunsByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete expired runs: %w", err)
	}

	e.logger.Info("expired runs pruned", zap.Int64("runs", deleted), zap.Int64("matches", matches), zap.Time("cutoff", cutoff))
	e.metrics.RunsPruned(deleted)
	return deleted, nil
}
