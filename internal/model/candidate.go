package model

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// CandidateStatus 表示候选人的可用状态。
type CandidateStatus string

const (
	CandidateAvailable  CandidateStatus = "available"
	CandidateAtCapacity CandidateStatus = "at_capacity"
)

const (
	MaxCandidateSkills    = 10
	MaxCandidateExpertise = 5
)

// CareerKind 区分履历条目类型。
type CareerKind string

const (
	CareerJob       CareerKind = "job"
	CareerEducation CareerKind = "education"
)

// Address 为候选人住址或职位要求地点，字段均可为空。
type Address struct {
	Street  string `gorm:"size:256" json:"street,omitempty"`
	Zip     string `gorm:"size:32" json:"zip,omitempty"`
	City    string `gorm:"size:128" json:"city,omitempty"`
	Country string `gorm:"size:128;index" json:"country,omitempty"`
}

// LanguageLevel 语言与熟练度引用对。
type LanguageLevel struct {
	LanguageID string `json:"languageId" yaml:"language_id"`
	LevelID    string `json:"levelId" yaml:"level_id"`
}

// CareerElement 履历条目，job 携带 PositionID，education 携带 DegreeID。
type CareerElement struct {
	Kind       CareerKind `json:"kind" yaml:"kind"`
	PositionID string     `json:"positionId,omitempty" yaml:"position_id"`
	DegreeID   string     `json:"degreeId,omitempty" yaml:"degree_id"`
	Start      time.Time  `json:"start" yaml:"start"`
	End        *time.Time `json:"end,omitempty" yaml:"end"`
}

// Candidate 退休专业人士档案。
type Candidate struct {
	ID           string                             `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	FirstName    string                             `gorm:"size:128" json:"firstName" yaml:"first_name"`
	LastName     string                             `gorm:"size:128" json:"lastName" yaml:"last_name"`
	Status       CandidateStatus                    `gorm:"size:32;index;default:at_capacity" json:"status" yaml:"status"`
	Address      Address                            `gorm:"embedded;embeddedPrefix:address_" json:"address" yaml:"address"`
	DesiredHours *float64                           `json:"desiredHours,omitempty" yaml:"desired_hours"`
	ExpectedRate *float64                           `json:"expectedRate,omitempty" yaml:"expected_rate"`
	Skills       datatypes.JSONSlice[string]        `json:"skills" yaml:"skills"`
	Expertise    datatypes.JSONSlice[string]        `json:"expertise" yaml:"expertise"`
	Languages    datatypes.JSONSlice[LanguageLevel] `json:"languages" yaml:"languages"`
	Career       datatypes.JSONSlice[CareerElement] `json:"career" yaml:"career"`
	CreatedAt    time.Time                          `json:"createdAt" yaml:"-"`
	UpdatedAt    time.Time                          `json:"updatedAt" yaml:"-"`
}

var ErrTooManyItems = errors.New("too many items")

// Validate 校验技能与专长数量上限。
func (c Candidate) Validate() error {
	if len(c.Skills) > MaxCandidateSkills {
		return fmt.Errorf("candidate %s skills %d > %d: %w", c.ID, len(c.Skills), MaxCandidateSkills, ErrTooManyItems)
	}
	if len(c.Expertise) > MaxCandidateExpertise {
		return fmt.Errorf("candidate %s expertise %d > %d: %w", c.ID, len(c.Expertise), MaxCandidateExpertise, ErrTooManyItems)
	}
	return nil
}

// RefreshStatus 档案填写姓名后转为 available，返回状态是否变化。
func (c *Candidate) RefreshStatus() bool {
	if c.Status == CandidateAvailable {
		return false
	}
	if c.FirstName == "" || c.LastName == "" {
		return false
	}
	c.Status = CandidateAvailable
	return true
}

// CandidateFilter 候选人筛选条件，空字段表示不限制。
type CandidateFilter struct {
	Country string
	ID      string
}
