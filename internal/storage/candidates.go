package storage

import (
	"context"
	"fmt"

	"retiree-match/internal/model"

	"gorm.io/gorm/clause"
)

// FindAvailable 返回状态为 available 的候选人，可按国家与 ID 进一步缩小。
func (s *Store) FindAvailable(ctx context.Context, filter model.CandidateFilter) ([]model.Candidate, error) {
	q := s.db.WithContext(ctx).Model(&model.Candidate{}).Where("status = ?", model.CandidateAvailable)
	if filter.ID != "" {
		q = q.Where("id = ?", filter.ID)
	}
	if filter.Country != "" {
		q = q.Where("address_country = ?", filter.Country)
	}

	var candidates []model.Candidate
	if err := q.Order("id").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("find available candidates: %w", err)
	}
	return candidates, nil
}

// FindCandidate 按 ID 查询候选人，不存在时返回 sql.ErrNoRows。
func (s *Store) FindCandidate(ctx context.Context, id string) (model.Candidate, error) {
	var c model.Candidate
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return model.Candidate{}, fmt.Errorf("find candidate %s: %w", id, notFound(err))
	}
	return c, nil
}

// SaveCandidate 校验并写入候选人，必要时刷新可用状态。
func (s *Store) SaveCandidate(ctx context.Context, c model.Candidate) (model.Candidate, error) {
	if err := c.Validate(); err != nil {
		return model.Candidate{}, err
	}
	if c.Status == "" {
		c.Status = model.CandidateAtCapacity
	}
	c.RefreshStatus()

	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&c)
	if tx.Error != nil {
		return model.Candidate{}, fmt.Errorf("save candidate %s: %w", c.ID, tx.Error)
	}
	return c, nil
}
