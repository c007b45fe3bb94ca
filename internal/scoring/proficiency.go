package scoring

import (
	"sort"

	"retiree-match/internal/model"
)

// Ordering 基于参考表的语言熟练度顺序。
type Ordering struct {
	rank map[string]int
}

// NewOrdering 按 (Rank, Code) 排序构建顺序表。
func NewOrdering(levels []model.ProficiencyLevel) *Ordering {
	sorted := make([]model.ProficiencyLevel, len(levels))
	copy(sorted, levels)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Rank != sorted[j].Rank {
			return sorted[i].Rank < sorted[j].Rank
		}
		return sorted[i].Code < sorted[j].Code
	})

	o := &Ordering{rank: make(map[string]int, len(sorted))}
	for i, l := range sorted {
		o.rank[l.ID] = i
	}
	return o
}

// AtLeast 判断 have 是否不低于 want；任一级别未知时返回 false。
func (o *Ordering) AtLeast(have, want string) bool {
	if o == nil {
		return false
	}
	h, ok := o.rank[have]
	if !ok {
		return false
	}
	w, ok := o.rank[want]
	if !ok {
		return false
	}
	return h >= w
}
