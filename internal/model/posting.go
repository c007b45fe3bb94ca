package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const (
	MaxPostingSkills    = 10
	MaxPostingExpertise = 5
)

// JobPosting 初创公司发布的兼职职位及匹配条件；空列表表示该维度不适用。
type JobPosting struct {
	ID                string                             `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	StartupID         string                             `gorm:"size:64;index;not null" json:"startupId" yaml:"startup_id"`
	Title             string                             `gorm:"size:256" json:"title" yaml:"title"`
	Location          Address                            `gorm:"embedded;embeddedPrefix:location_" json:"location" yaml:"location"`
	DesiredHours      *float64                           `json:"desiredHours,omitempty" yaml:"desired_hours"`
	HourlyRate        *float64                           `json:"hourlyRate,omitempty" yaml:"hourly_rate"`
	DurationWeeks     *int                               `json:"durationWeeks,omitempty" yaml:"duration_weeks"`
	RequiredSkills    datatypes.JSONSlice[string]        `json:"requiredSkills" yaml:"required_skills"`
	RequiredExpertise datatypes.JSONSlice[string]        `json:"requiredExpertise" yaml:"required_expertise"`
	RequiredDegrees   datatypes.JSONSlice[string]        `json:"requiredDegrees" yaml:"required_degrees"`
	RequiredPositions datatypes.JSONSlice[string]        `json:"requiredPositions" yaml:"required_positions"`
	RequiredLanguages datatypes.JSONSlice[LanguageLevel] `json:"requiredLanguages" yaml:"required_languages"`
	CreatedAt         time.Time                          `json:"createdAt" yaml:"-"`
	UpdatedAt         time.Time                          `json:"updatedAt" yaml:"-"`
}

// Validate 校验必备技能与专长数量上限。
func (p JobPosting) Validate() error {
	if p.StartupID == "" {
		return fmt.Errorf("posting %s has no startup", p.ID)
	}
	if len(p.RequiredSkills) > MaxPostingSkills {
		return fmt.Errorf("posting %s skills %d > %d: %w", p.ID, len(p.RequiredSkills), MaxPostingSkills, ErrTooManyItems)
	}
	if len(p.RequiredExpertise) > MaxPostingExpertise {
		return fmt.Errorf("posting %s expertise %d > %d: %w", p.ID, len(p.RequiredExpertise), MaxPostingExpertise, ErrTooManyItems)
	}
	return nil
}

// CooperationStatus 合作状态。
type CooperationStatus string

const (
	CooperationPending  CooperationStatus = "pending"
	CooperationAccepted CooperationStatus = "accepted"
	CooperationDeclined CooperationStatus = "declined"
)

// Cooperation 候选人与职位的合作关系，accepted 表示职位已招满。
type Cooperation struct {
	ID           uint              `gorm:"primaryKey" json:"id" yaml:"-"`
	JobPostingID string            `gorm:"size:64;index" json:"jobPostingId" yaml:"job_posting_id"`
	CandidateID  string            `gorm:"size:64;index" json:"candidateId" yaml:"candidate_id"`
	Status       CooperationStatus `gorm:"size:32;index" json:"status" yaml:"status"`
	CreatedAt    time.Time         `json:"createdAt" yaml:"-"`
}
