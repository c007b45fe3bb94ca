package storage

import (
	"context"
	"errors"
	"fmt"

	"retiree-match/internal/model"

	"gorm.io/gorm/clause"
)

// ErrOwnerChanged 表示试图更换已有职位的所属公司。
var ErrOwnerChanged = errors.New("posting owner cannot change")

// FindPosting 按 ID 查询职位，不存在时返回 sql.ErrNoRows。
func (s *Store) FindPosting(ctx context.Context, id string) (model.JobPosting, error) {
	var p model.JobPosting
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return model.JobPosting{}, fmt.Errorf("find posting %s: %w", id, notFound(err))
	}
	return p, nil
}

// FindUnfilledIDs 返回没有 accepted 合作关系的职位 ID。
func (s *Store) FindUnfilledIDs(ctx context.Context) ([]string, error) {
	accepted := s.db.Model(&model.Cooperation{}).
		Select("job_posting_id").
		Where("status = ?", model.CooperationAccepted)

	var ids []string
	if err := s.db.WithContext(ctx).Model(&model.JobPosting{}).
		Where("id NOT IN (?)", accepted).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("find unfilled postings: %w", err)
	}
	return ids, nil
}

// FindStartupIDsForPostings 返回拥有给定职位的初创公司 ID（去重）。
func (s *Store) FindStartupIDsForPostings(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var startupIDs []string
	if err := s.db.WithContext(ctx).Model(&model.JobPosting{}).
		Distinct("startup_id").
		Where("id IN ?", ids).
		Order("startup_id").
		Pluck("startup_id", &startupIDs).Error; err != nil {
		return nil, fmt.Errorf("find startups for postings: %w", err)
	}
	return startupIDs, nil
}

// FindIDsByStartup 返回某初创公司的全部职位 ID。
func (s *Store) FindIDsByStartup(ctx context.Context, startupID string) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&model.JobPosting{}).
		Where("startup_id = ?", startupID).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("find postings of startup %s: %w", startupID, err)
	}
	return ids, nil
}

// SavePosting 校验并写入职位；已存在时不允许变更所属公司。
func (s *Store) SavePosting(ctx context.Context, p model.JobPosting) (model.JobPosting, error) {
	if err := p.Validate(); err != nil {
		return model.JobPosting{}, err
	}

	var owner []string
	if err := s.db.WithContext(ctx).Model(&model.JobPosting{}).
		Where("id = ?", p.ID).
		Pluck("startup_id", &owner).Error; err != nil {
		return model.JobPosting{}, fmt.Errorf("query posting owner: %w", err)
	}
	if len(owner) > 0 && owner[0] != p.StartupID {
		return model.JobPosting{}, fmt.Errorf("posting %s is owned by %s: %w", p.ID, owner[0], ErrOwnerChanged)
	}

	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&p)
	if tx.Error != nil {
		return model.JobPosting{}, fmt.Errorf("save posting %s: %w", p.ID, tx.Error)
	}
	return p, nil
}

// SaveCooperation 写入合作关系。
func (s *Store) SaveCooperation(ctx context.Context, c model.Cooperation) error {
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return fmt.Errorf("save cooperation: %w", err)
	}
	return nil
}
