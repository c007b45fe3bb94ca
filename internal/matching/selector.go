package matching

import (
	"context"
	"fmt"

	"retiree-match/internal/model"
)

// CandidateRepository 候选人查询接口。
type CandidateRepository interface {
	FindAvailable(ctx context.Context, filter model.CandidateFilter) ([]model.Candidate, error)
}

// Selector 为职位粗筛候选人：仅限 available，可选限定单个候选人与职位要求的国家。
// 薪资、工时等条件参与打分而不做过滤。
type Selector struct {
	repo CandidateRepository
}

// NewSelector 创建 Selector。
func NewSelector(repo CandidateRepository) *Selector {
	return &Selector{repo: repo}
}

// Select 返回职位的候选人集合。
func (s *Selector) Select(ctx context.Context, posting model.JobPosting, candidateID string) ([]model.Candidate, error) {
	filter := model.CandidateFilter{
		Country: posting.Location.Country,
		ID:      candidateID,
	}
	candidates, err := s.repo.FindAvailable(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("select candidates for posting %s: %w", posting.ID, err)
	}
	return candidates, nil
}
