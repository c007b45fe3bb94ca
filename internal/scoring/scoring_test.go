package scoring

import (
	"context"
	"math"
	"testing"

	"retiree-match/internal/geo"
	"retiree-match/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	levelA1 = "000000000000000001000000"
	levelB1 = "000000000000000003000000"
	levelC2 = "000000000000000006000000"
)

func ptr[T any](v T) *T { return &v }

func TestRatioToScore(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, RatioToScore(0))
	assert.Equal(t, 100.0, RatioToScore(1))
	assert.Equal(t, 25.0, RatioToScore(0.5))
	assert.Equal(t, 1.0, RatioToScore(0.1))
	assert.Equal(t, 56.0, RatioToScore(0.75))
	assert.Equal(t, 81.0, RatioToScore(0.9))

	prev := RatioToScore(0)
	for i := 1; i <= 1000; i++ {
		cur := RatioToScore(float64(i) / 1000)
		require.GreaterOrEqual(t, cur, prev, "ratio %d/1000", i)
		prev = cur
	}
}

func TestOrderingAtLeast(t *testing.T) {
	t.Parallel()

	o := NewOrdering(model.DefaultProficiencyLevels())
	assert.True(t, o.AtLeast(levelA1, levelA1))
	assert.True(t, o.AtLeast(levelC2, levelB1))
	assert.False(t, o.AtLeast(levelA1, levelB1))
	assert.False(t, o.AtLeast("unknown", levelA1))
	assert.False(t, o.AtLeast(levelC2, "unknown"))

	// 级别表扩展时按 Rank 排序，而非代码字母序。
	custom := NewOrdering([]model.ProficiencyLevel{
		{ID: "native", Code: "N", Rank: 10},
		{ID: "c2", Code: "C2", Rank: 6},
	})
	assert.True(t, custom.AtLeast("native", "c2"))
	assert.False(t, custom.AtLeast("c2", "native"))
}

func TestSkillsEndToEndExample(t *testing.T) {
	t.Parallel()

	c := model.Candidate{Skills: []string{"A"}}
	p := model.JobPosting{RequiredSkills: []string{"A", "B"}}

	d := Skills(c, p)
	assert.Equal(t, Dimension{Name: DimSkills, Score: 25, Max: 100}, d)

	rest := []Dimension{d, Hours(c, p), Salary(c, p), Position(c, p), Degree(c, p), Location(context.Background(), c, p, nil)}
	assert.InDelta(t, 0.25, Aggregate(rest), 1e-12)
}

func TestRatioDimensionsAlwaysApply(t *testing.T) {
	t.Parallel()

	empty := model.JobPosting{}
	c := model.Candidate{Skills: []string{"x"}}

	assert.Equal(t, 100.0, Skills(c, empty).Max)
	assert.Equal(t, 0.0, Skills(c, empty).Score)
	assert.Equal(t, 100.0, Expertise(c, empty).Max)
	assert.Equal(t, 100.0, Languages(c, empty, nil).Max)
}

func TestLanguages(t *testing.T) {
	t.Parallel()

	o := NewOrdering(model.DefaultProficiencyLevels())
	p := model.JobPosting{RequiredLanguages: []model.LanguageLevel{
		{LanguageID: "de", LevelID: levelB1},
		{LanguageID: "en", LevelID: levelB1},
	}}
	c := model.Candidate{Languages: []model.LanguageLevel{
		{LanguageID: "de", LevelID: levelC2},
		{LanguageID: "en", LevelID: levelA1},
	}}

	d := Languages(c, p, o)
	assert.Equal(t, 25.0, d.Score)
	assert.Equal(t, 100.0, d.Max)
}

func TestHoursAndSalary(t *testing.T) {
	t.Parallel()

	c := model.Candidate{DesiredHours: ptr(20.0), ExpectedRate: ptr(60.0)}
	p := model.JobPosting{DesiredHours: ptr(20.0), HourlyRate: ptr(40.0)}

	assert.Equal(t, Dimension{Name: DimHours, Score: 100, Max: 100}, Hours(c, p))

	// 1 - |40-60|/100 = 0.8 -> 64
	assert.Equal(t, Dimension{Name: DimSalary, Score: 64, Max: 100}, Salary(c, p))

	assert.Equal(t, 0.0, Hours(model.Candidate{}, p).Max)
	assert.Equal(t, 0.0, Salary(c, model.JobPosting{}).Max)
}

func TestPositionAndDegree(t *testing.T) {
	t.Parallel()

	c := model.Candidate{Career: []model.CareerElement{
		{Kind: model.CareerJob, PositionID: "cfo"},
		{Kind: model.CareerEducation, DegreeID: "mba"},
		{Kind: model.CareerEducation, PositionID: "cto"},
	}}

	assert.Equal(t, 0.0, Position(c, model.JobPosting{}).Max)
	assert.Equal(t, 0.0, Degree(c, model.JobPosting{}).Max)

	assert.Equal(t, 100.0, Position(c, model.JobPosting{RequiredPositions: []string{"cfo", "ceo"}}).Score)
	assert.Equal(t, 0.0, Position(c, model.JobPosting{RequiredPositions: []string{"cto"}}).Score, "education entries do not count as positions")
	assert.Equal(t, 100.0, Degree(c, model.JobPosting{RequiredDegrees: []string{"mba"}}).Score)
	assert.Equal(t, 0.0, Degree(c, model.JobPosting{RequiredDegrees: []string{"phd"}}).Score)
}

func TestLocation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	// 沿经线 45 公里。
	north := 45 / (geo.EarthRadiusMeters / 1000) * 180 / math.Pi
	g := stubGeocoder{points: map[string]geo.Point{
		"Germany/10115": {Lat: 0, Lon: 0},
		"Germany/14467": {Lat: north, Lon: 0},
	}}

	p := model.JobPosting{Location: model.Address{Zip: "10115", City: "Berlin", Country: "Germany"}}
	c := model.Candidate{Address: model.Address{Zip: "14467", City: "Potsdam", Country: "Germany"}}

	d := Location(ctx, c, p, g)
	assert.Equal(t, 100.0, d.Max)
	assert.InDelta(t, 95.5, d.Score, 1e-6)

	same := model.Candidate{Address: model.Address{Zip: "10117", City: "Berlin", Country: "Germany"}}
	assert.Equal(t, Dimension{Name: DimLocation, Score: 100, Max: 100}, Location(ctx, same, p, g))

	unknown := model.Candidate{Address: model.Address{Zip: "99999", City: "Nowhere", Country: "Germany"}}
	assert.Equal(t, Dimension{Name: DimLocation}, Location(ctx, unknown, p, g))

	noZip := model.Candidate{Address: model.Address{City: "Berlin", Country: "Germany"}}
	assert.Equal(t, 0.0, Location(ctx, noZip, p, g).Max)

	far := stubGeocoder{points: map[string]geo.Point{
		"Germany/10115": {Lat: 0, Lon: 0},
		"Germany/14467": {Lat: 20, Lon: 0},
	}}
	assert.Equal(t, 0.0, Location(ctx, c, p, far).Score)
}

func TestScorerBoundsAndIdempotence(t *testing.T) {
	t.Parallel()

	g := stubGeocoder{points: map[string]geo.Point{
		"Germany/10115": {Lat: 52.53, Lon: 13.38},
		"Germany/80331": {Lat: 48.14, Lon: 11.58},
	}}
	s := NewScorer(NewOrdering(model.DefaultProficiencyLevels()), g)

	postings := []model.JobPosting{
		{},
		{RequiredSkills: []string{"a", "b", "c"}, RequiredPositions: []string{"cto"}, DesiredHours: ptr(10.0)},
		{
			Location:          model.Address{Zip: "10115", City: "Berlin", Country: "Germany"},
			RequiredLanguages: []model.LanguageLevel{{LanguageID: "de", LevelID: levelB1}},
			RequiredDegrees:   []string{"mba"},
			HourlyRate:        ptr(80.0),
		},
	}
	candidates := []model.Candidate{
		{},
		{Skills: []string{"a"}, DesiredHours: ptr(30.0), Career: []model.CareerElement{{Kind: model.CareerJob, PositionID: "cto"}}},
		{
			Address:      model.Address{Zip: "80331", City: "München", Country: "Germany"},
			Languages:    []model.LanguageLevel{{LanguageID: "de", LevelID: levelC2}},
			ExpectedRate: ptr(120.0),
		},
	}

	ctx := context.Background()
	for _, p := range postings {
		for _, c := range candidates {
			first := s.Score(ctx, c, p)
			second := s.Score(ctx, c, p)
			assert.Equal(t, first, second)

			require.Len(t, first.Dimensions, 8)
			for _, d := range first.Dimensions {
				assert.Contains(t, []float64{0, 100}, d.Max, d.Name)
				assert.GreaterOrEqual(t, d.Score, 0.0, d.Name)
				assert.LessOrEqual(t, d.Score, d.Max, d.Name)
			}
			assert.GreaterOrEqual(t, first.Score, 0.0)
			assert.LessOrEqual(t, first.Score, 1.0)
		}
	}
}

func TestAggregateAllInapplicable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Aggregate([]Dimension{{Name: DimHours}, {Name: DimLocation}}))
	assert.Equal(t, 0.0, Aggregate(nil))
}

// --- stubs ---

type stubGeocoder struct {
	points map[string]geo.Point
}

func (s stubGeocoder) Locate(ctx context.Context, zip, country string) (geo.Point, error) {
	p, ok := s.points[country+"/"+zip]
	if !ok {
		return geo.Point{}, geo.ErrUnknownLocation
	}
	return p, nil
}
