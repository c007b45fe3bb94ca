package storage

import (
	"context"
	"fmt"

	"retiree-match/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListProficiencyLevels 按级别顺序返回全部语言熟练度。
func (s *Store) ListProficiencyLevels(ctx context.Context) ([]model.ProficiencyLevel, error) {
	var levels []model.ProficiencyLevel
	if err := orderedLevels(s.db.WithContext(ctx)).Find(&levels).Error; err != nil {
		return nil, fmt.Errorf("list proficiency levels: %w", err)
	}
	return levels, nil
}

// FindCoordinates 查询邮编坐标，不存在时返回 sql.ErrNoRows。
func (s *Store) FindCoordinates(ctx context.Context, zip, country string) (model.ZipCoordinate, error) {
	var c model.ZipCoordinate
	if err := s.db.WithContext(ctx).First(&c, "zip = ? AND country = ?", zip, country).Error; err != nil {
		return model.ZipCoordinate{}, fmt.Errorf("find coordinates %s/%s: %w", zip, country, notFound(err))
	}
	return c, nil
}

// orderedLevels 通过列子句排序，由方言负责加引号。
func orderedLevels(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: "level_rank"}},
		{Column: clause.Column{Name: "code"}},
	}})
}
