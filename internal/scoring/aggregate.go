package scoring

import (
	"context"

	"retiree-match/internal/model"
)

// Result 一组候选人与职位的综合得分。
type Result struct {
	Score      float64     `json:"score"`
	Dimensions []Dimension `json:"dimensions"`
}

// Scorer 组合八个维度计算综合得分。
type Scorer struct {
	levels   *Ordering
	geocoder Geocoder
}

// NewScorer 创建 Scorer；geocoder 为空时距离打分视为不适用。
func NewScorer(levels *Ordering, geocoder Geocoder) *Scorer {
	return &Scorer{levels: levels, geocoder: geocoder}
}

// Score 计算全部维度并归一化。
func (s *Scorer) Score(ctx context.Context, c model.Candidate, p model.JobPosting) Result {
	dims := []Dimension{
		Skills(c, p),
		Expertise(c, p),
		Languages(c, p, s.levels),
		Hours(c, p),
		Salary(c, p),
		Position(c, p),
		Degree(c, p),
		Location(ctx, c, p, s.geocoder),
	}
	return Result{Score: Aggregate(dims), Dimensions: dims}
}

// Aggregate 返回 Σscore/Σmax，全部维度不适用时为 0。
func Aggregate(dims []Dimension) float64 {
	var total, limit float64
	for _, d := range dims {
		total += d.Score
		limit += d.Max
	}
	if limit == 0 {
		return 0
	}
	return total / limit
}
