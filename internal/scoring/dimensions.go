package scoring

import (
	"context"
	"math"

	"retiree-match/internal/geo"
	"retiree-match/internal/model"
)

// MaxScore 单个维度可得的最高分。
const MaxScore = 100.0

// 维度名称。
const (
	DimSkills    = "skills"
	DimExpertise = "expertise"
	DimLanguages = "languages"
	DimHours     = "hours"
	DimSalary    = "salary"
	DimPosition  = "position"
	DimDegree    = "degree"
	DimLocation  = "location"
)

// Dimension 单个维度的得分；Max 为 0 表示该维度不适用。
type Dimension struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Max   float64 `json:"max"`
}

// Geocoder 将邮编解析为坐标。
type Geocoder interface {
	Locate(ctx context.Context, zip, country string) (geo.Point, error)
}

// RatioToScore 将 [0,1] 比例映射为 floor((r*10)^2)，部分满足会被超线性惩罚。
func RatioToScore(ratio float64) float64 {
	switch {
	case ratio <= 0 || math.IsNaN(ratio):
		return 0
	case ratio >= 1:
		return MaxScore
	}
	return math.Floor(math.Pow(ratio*10, 2))
}

func symmetricDifference(a, b float64) float64 {
	if a+b == 0 {
		return 0
	}
	return math.Abs(a-b) / (a + b)
}

func inapplicable(name string) Dimension {
	return Dimension{Name: name}
}

func ratioDimension(name string, satisfied, required int) Dimension {
	if required < 1 {
		required = 1
	}
	return Dimension{
		Name:  name,
		Score: RatioToScore(float64(satisfied) / float64(required)),
		Max:   RatioToScore(1),
	}
}

func countPresent(required, have []string) int {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	n := 0
	for _, r := range required {
		if _, ok := set[r]; ok {
			n++
		}
	}
	return n
}

// Skills 按满足必备技能的比例计分，始终适用。
func Skills(c model.Candidate, p model.JobPosting) Dimension {
	return ratioDimension(DimSkills, countPresent(p.RequiredSkills, c.Skills), len(p.RequiredSkills))
}

// Expertise 按满足专长领域的比例计分，始终适用。
func Expertise(c model.Candidate, p model.JobPosting) Dimension {
	return ratioDimension(DimExpertise, countPresent(p.RequiredExpertise, c.Expertise), len(p.RequiredExpertise))
}

// Languages 按满足语言要求的比例计分；同一语言且级别不低于要求才算满足。
func Languages(c model.Candidate, p model.JobPosting, levels *Ordering) Dimension {
	satisfied := 0
	for _, want := range p.RequiredLanguages {
		for _, have := range c.Languages {
			if have.LanguageID == want.LanguageID && levels.AtLeast(have.LevelID, want.LevelID) {
				satisfied++
				break
			}
		}
	}
	return ratioDimension(DimLanguages, satisfied, len(p.RequiredLanguages))
}

func closeness(name string, a, b *float64) Dimension {
	if a == nil || b == nil || *a <= 0 || *b <= 0 {
		return inapplicable(name)
	}
	return Dimension{
		Name:  name,
		Score: RatioToScore(1 - symmetricDifference(*a, *b)),
		Max:   RatioToScore(1),
	}
}

// Hours 比较每周工时，双方都给出时适用。
func Hours(c model.Candidate, p model.JobPosting) Dimension {
	return closeness(DimHours, p.DesiredHours, c.DesiredHours)
}

// Salary 比较时薪，双方都给出时适用。
func Salary(c model.Candidate, p model.JobPosting) Dimension {
	return closeness(DimSalary, p.HourlyRate, c.ExpectedRate)
}

func careerMatch(name string, required []string, c model.Candidate, kind model.CareerKind) Dimension {
	if len(required) == 0 {
		return inapplicable(name)
	}
	want := make(map[string]struct{}, len(required))
	for _, r := range required {
		want[r] = struct{}{}
	}
	for _, e := range c.Career {
		if e.Kind != kind {
			continue
		}
		ref := e.PositionID
		if kind == model.CareerEducation {
			ref = e.DegreeID
		}
		if ref == "" {
			continue
		}
		if _, ok := want[ref]; ok {
			return Dimension{Name: name, Score: MaxScore, Max: MaxScore}
		}
	}
	return Dimension{Name: name, Score: 0, Max: MaxScore}
}

// Position 履历中任一 job 职位命中要求即满分。
func Position(c model.Candidate, p model.JobPosting) Dimension {
	return careerMatch(DimPosition, p.RequiredPositions, c, model.CareerJob)
}

// Degree 履历中任一 education 学位命中要求即满分。
func Degree(c model.Candidate, p model.JobPosting) Dimension {
	return careerMatch(DimDegree, p.RequiredDegrees, c, model.CareerEducation)
}

// Location 同城同国满分，否则按两地邮编距离每 10 公里扣 1 分；
// 任一邮编无法解析时视为不适用。
func Location(ctx context.Context, c model.Candidate, p model.JobPosting, g Geocoder) Dimension {
	want, have := p.Location, c.Address
	if want.Zip == "" || want.Country == "" || have.Zip == "" || have.Country == "" {
		return inapplicable(DimLocation)
	}
	if want.City == have.City && want.Country == have.Country {
		return Dimension{Name: DimLocation, Score: MaxScore, Max: MaxScore}
	}
	if g == nil {
		return inapplicable(DimLocation)
	}

	from, err := g.Locate(ctx, have.Zip, have.Country)
	if err != nil {
		return inapplicable(DimLocation)
	}
	to, err := g.Locate(ctx, want.Zip, want.Country)
	if err != nil {
		return inapplicable(DimLocation)
	}

	km := geo.DistanceKm(from, to)
	return Dimension{Name: DimLocation, Score: math.Max(0, MaxScore-km/10), Max: MaxScore}
}
