package matching

import (
	"context"
	"fmt"

	"retiree-match/internal/model"

	"go.uber.org/zap"
)

const newMatchesTitle = "New Matches Found"

// NewMatchesNotification 生成新匹配通知；postingID 为空时链接指向全部匹配。
func NewMatchesNotification(count int64, postingID string) model.NotificationPayload {
	message := fmt.Sprintf("%d new matches found for your job postings!", count)
	if count == 1 {
		message = "1 new match found for your job postings!"
	}
	return model.NotificationPayload{
		Title:   newMatchesTitle,
		Message: message,
		Read:    false,
		Actions: []model.NotificationAction{{
			Label: "View Matches",
			URL:   "/startup/matches/" + postingID,
		}},
	}
}

// notifyStartups 在全部匹配写入后，按公司比较本批次前后的可接受匹配数并发送通知。
func (e *Engine) notifyStartups(ctx context.Context, run model.MatchingRun, targets []string, postingID string) (int, error) {
	startupIDs, err := e.postings.FindStartupIDsForPostings(ctx, targets)
	if err != nil {
		return 0, fmt.Errorf("find startups: %w", err)
	}

	sent := 0
	for _, startupID := range startupIDs {
		relevant := []string{postingID}
		if postingID == "" {
			relevant, err = e.postings.FindIDsByStartup(ctx, startupID)
			if err != nil {
				return sent, fmt.Errorf("find postings of startup %s: %w", startupID, err)
			}
		}

		delta, err := e.newAcceptable(ctx, relevant, run.ID)
		if err != nil {
			return sent, err
		}
		if delta <= 0 {
			continue
		}

		log := e.logger.With(zap.String("run_id", run.ID), zap.String("startup_id", startupID), zap.Int64("delta", delta))
		if err := e.sink.Notify(ctx, startupID, NewMatchesNotification(delta, postingID)); err != nil {
			log.Warn("notify startup failed", zap.Error(err))
			continue
		}
		log.Info("startup notified about new matches")
		e.metrics.NotificationSent()
		sent++
	}
	return sent, nil
}

// newAcceptable 统计在至少一个职位上新达到阈值的不同候选人数。
// 某职位上的回落不抵消其他职位的新增，同一候选人只计一次。
func (e *Engine) newAcceptable(ctx context.Context, postingIDs []string, runID string) (int64, error) {
	threshold := e.cfg.AcceptableScoreThreshold
	total, err := e.matches.CountDistinctAcceptableCandidates(ctx, postingIDs, threshold, "")
	if err != nil {
		return 0, fmt.Errorf("count acceptable after run: %w", err)
	}
	if total == 0 {
		return 0, nil
	}

	before, err := e.matches.AcceptablePairs(ctx, postingIDs, threshold, runID)
	if err != nil {
		return 0, fmt.Errorf("list acceptable before run: %w", err)
	}
	after, err := e.matches.AcceptablePairs(ctx, postingIDs, threshold, "")
	if err != nil {
		return 0, fmt.Errorf("list acceptable after run: %w", err)
	}

	known := make(map[model.PairKey]bool, len(before))
	for _, p := range before {
		known[p] = true
	}
	fresh := make(map[string]bool)
	for _, p := range after {
		if !known[p] {
			fresh[p.CandidateID] = true
		}
	}
	return int64(len(fresh)), nil
}
