package model

import "time"

// MatchingRun 一次匹配批次的不可变标记。
type MatchingRun struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	IsFullRun bool      `json:"isFullRun"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// Match 某批次中候选人与职位的得分记录，只追加不修改。
type Match struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	MatchingRunID string    `gorm:"size:64;not null;uniqueIndex:idx_match_run_pair,priority:1" json:"matchingRunId"`
	JobPostingID  string    `gorm:"size:64;not null;uniqueIndex:idx_match_run_pair,priority:2;index:idx_match_pair,priority:1" json:"jobPostingId"`
	CandidateID   string    `gorm:"size:64;not null;uniqueIndex:idx_match_run_pair,priority:3;index:idx_match_pair,priority:2" json:"candidateId"`
	Score         float64   `json:"score"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
}

// PairKey 标识 (候选人, 职位) 组合。
type PairKey struct {
	CandidateID  string
	JobPostingID string
}

// Pair 返回该记录的组合键。
func (m Match) Pair() PairKey {
	return PairKey{CandidateID: m.CandidateID, JobPostingID: m.JobPostingID}
}

// Newer 判断 m 是否比 other 更新，创建时间相同时按自增 ID。
func (m Match) Newer(other Match) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID > other.ID
	}
	return m.CreatedAt.After(other.CreatedAt)
}
