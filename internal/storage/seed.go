package storage

import (
	"context"
	"fmt"
	"os"

	"retiree-match/internal/model"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed 描述可导入的参考数据与样例数据。
type Seed struct {
	ProficiencyLevels []model.ProficiencyLevel `yaml:"proficiency_levels"`
	ZipCoordinates    []model.ZipCoordinate    `yaml:"zip_coordinates"`
	Users             []model.User             `yaml:"users"`
	Candidates        []model.Candidate        `yaml:"candidates"`
	Postings          []model.JobPosting       `yaml:"postings"`
	Cooperations      []model.Cooperation      `yaml:"cooperations"`
}

// ImportResult 导入数量统计。
type ImportResult struct {
	Levels       int `json:"levels"`
	Coordinates  int `json:"coordinates"`
	Users        int `json:"users"`
	Candidates   int `json:"candidates"`
	Postings     int `json:"postings"`
	Cooperations int `json:"cooperations"`
}

// LoadSeed 从 YAML 文件读取 Seed。
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return seed, nil
}

// Import 在单个事务中写入 Seed；未提供熟练度表时写入默认 A1..C2。
// 候选人、职位与合作关系走与单条写入相同的校验，已有职位不允许更换所属公司。
func (s *Store) Import(ctx context.Context, seed Seed) (ImportResult, error) {
	res := ImportResult{}
	levels := seed.ProficiencyLevels
	if len(levels) == 0 {
		levels = model.DefaultProficiencyLevels()
	}

	upsert := clause.OnConflict{UpdateAll: true}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(upsert).Create(&levels).Error; err != nil {
			return fmt.Errorf("import proficiency levels: %w", err)
		}
		res.Levels = len(levels)

		if len(seed.ZipCoordinates) > 0 {
			if err := tx.Clauses(upsert).Create(&seed.ZipCoordinates).Error; err != nil {
				return fmt.Errorf("import zip coordinates: %w", err)
			}
			res.Coordinates = len(seed.ZipCoordinates)
		}
		if len(seed.Users) > 0 {
			if err := tx.Clauses(upsert).Create(&seed.Users).Error; err != nil {
				return fmt.Errorf("import users: %w", err)
			}
			res.Users = len(seed.Users)
		}

		in := &Store{db: tx}
		for _, c := range seed.Candidates {
			if _, err := in.SaveCandidate(ctx, c); err != nil {
				return fmt.Errorf("import candidates: %w", err)
			}
			res.Candidates++
		}
		for _, p := range seed.Postings {
			if _, err := in.SavePosting(ctx, p); err != nil {
				return fmt.Errorf("import postings: %w", err)
			}
			res.Postings++
		}
		for _, c := range seed.Cooperations {
			if err := in.SaveCooperation(ctx, c); err != nil {
				return fmt.Errorf("import cooperations: %w", err)
			}
			res.Cooperations++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return res, nil
}
