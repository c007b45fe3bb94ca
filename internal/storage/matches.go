package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"retiree-match/internal/model"

	"github.com/google/uuid"
)

// latestPair 限定 m 为其 (候选人, 职位) 组合中最新的一条；%s 处追加排除条件。
const latestPair = `NOT EXISTS (
	SELECT 1 FROM matches n
	WHERE n.candidate_id = m.candidate_id
	  AND n.job_posting_id = m.job_posting_id
	  AND (n.created_at > m.created_at OR (n.created_at = m.created_at AND n.id > m.id))%s
)`

// CreateRun 创建新的匹配批次。
func (s *Store) CreateRun(ctx context.Context, isFullRun bool) (model.MatchingRun, error) {
	run := model.MatchingRun{
		ID:        uuid.NewString(),
		IsFullRun: isFullRun,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return model.MatchingRun{}, fmt.Errorf("create matching run: %w", err)
	}
	return run, nil
}

// FindRunsOlderThan 返回创建时间早于 cutoff 的批次。
func (s *Store) FindRunsOlderThan(ctx context.Context, cutoff time.Time) ([]model.MatchingRun, error) {
	var runs []model.MatchingRun
	if err := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff.UTC()).
		Order("created_at").
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("find runs older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return runs, nil
}

// DeleteRunsByIDs 删除批次记录，返回删除行数。
func (s *Store) DeleteRunsByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.MatchingRun{})
	if tx.Error != nil {
		return 0, fmt.Errorf("delete runs: %w", tx.Error)
	}
	return tx.RowsAffected, nil
}

// InsertMatch 追加一条匹配记录。
func (s *Store) InsertMatch(ctx context.Context, m *model.Match) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("insert match %s/%s: %w", m.JobPostingID, m.CandidateID, err)
	}
	return nil
}

// DeleteMatchesByRunIDs 删除属于给定批次的匹配记录，返回删除行数。
func (s *Store) DeleteMatchesByRunIDs(ctx context.Context, runIDs []string) (int64, error) {
	if len(runIDs) == 0 {
		return 0, nil
	}
	tx := s.db.WithContext(ctx).Where("matching_run_id IN ?", runIDs).Delete(&model.Match{})
	if tx.Error != nil {
		return 0, fmt.Errorf("delete matches: %w", tx.Error)
	}
	return tx.RowsAffected, nil
}

// CountDistinctAcceptableCandidates 统计给定职位上最新得分不低于阈值的不同候选人数。
// excludeRunID 非空时，计算“最新”时忽略该批次的记录。
func (s *Store) CountDistinctAcceptableCandidates(ctx context.Context, postingIDs []string, threshold float64, excludeRunID string) (int64, error) {
	if len(postingIDs) == 0 {
		return 0, nil
	}

	query, args := latestQuery("SELECT COUNT(DISTINCT m.candidate_id) FROM matches m", postingIDs, excludeRunID)
	query += " AND m.score >= ?"
	args = append(args, threshold)

	var count int64
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&count).Error; err != nil {
		return 0, fmt.Errorf("count acceptable candidates: %w", err)
	}
	return count, nil
}

// AcceptablePairs 返回给定职位上最新得分不低于阈值的 (候选人, 职位) 组合，
// excludeRunID 的含义同 CountDistinctAcceptableCandidates。
func (s *Store) AcceptablePairs(ctx context.Context, postingIDs []string, threshold float64, excludeRunID string) ([]model.PairKey, error) {
	if len(postingIDs) == 0 {
		return nil, nil
	}

	query, args := latestQuery("SELECT m.candidate_id, m.job_posting_id FROM matches m", postingIDs, excludeRunID)
	query += " AND m.score >= ? ORDER BY m.job_posting_id, m.candidate_id"
	args = append(args, threshold)

	var pairs []model.PairKey
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&pairs).Error; err != nil {
		return nil, fmt.Errorf("list acceptable pairs: %w", err)
	}
	return pairs, nil
}

// LatestMatches 返回给定职位上每个 (候选人, 职位) 组合的最新记录，
// 按职位、得分降序、候选人排序。
func (s *Store) LatestMatches(ctx context.Context, postingIDs []string) ([]model.Match, error) {
	if len(postingIDs) == 0 {
		return nil, nil
	}

	var rows []model.Match
	if err := s.db.WithContext(ctx).
		Where("job_posting_id IN ?", postingIDs).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query latest matches: %w", err)
	}
	return latestPerPair(rows), nil
}

func latestPerPair(rows []model.Match) []model.Match {
	latest := make(map[model.PairKey]model.Match, len(rows))
	for _, m := range rows {
		if cur, ok := latest[m.Pair()]; !ok || m.Newer(cur) {
			latest[m.Pair()] = m
		}
	}

	out := make([]model.Match, 0, len(latest))
	for _, m := range latest {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.JobPostingID != b.JobPostingID {
			return a.JobPostingID < b.JobPostingID
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.CandidateID < b.CandidateID
	})
	return out
}

func latestQuery(head string, postingIDs []string, excludeRunID string) (string, []any) {
	args := []any{postingIDs}
	where := " WHERE m.job_posting_id IN ?"
	inner := ""
	if excludeRunID != "" {
		where += " AND m.matching_run_id <> ?"
		args = append(args, excludeRunID)
		inner = "\n\t  AND n.matching_run_id <> ?"
	}
	where += " AND " + fmt.Sprintf(latestPair, inner)
	if excludeRunID != "" {
		args = append(args, excludeRunID)
	}
	return head + where, args
}
