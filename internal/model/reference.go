package model

// ProficiencyLevel 语言熟练度参考数据，Rank 越大级别越高。
type ProficiencyLevel struct {
	ID   string `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	Code string `gorm:"size:16;uniqueIndex" json:"code" yaml:"code"`
	Rank int    `gorm:"column:level_rank" json:"rank" yaml:"rank"`
}

// ZipCoordinate 邮编中心点坐标。
type ZipCoordinate struct {
	Zip     string  `gorm:"primaryKey;size:32" json:"zip" yaml:"zip"`
	Country string  `gorm:"primaryKey;size:128" json:"country" yaml:"country"`
	Lat     float64 `json:"lat" yaml:"lat"`
	Lon     float64 `json:"lon" yaml:"lon"`
}

// DefaultProficiencyLevels 返回 A1..C2 默认级别表。
func DefaultProficiencyLevels() []ProficiencyLevel {
	return []ProficiencyLevel{
		{ID: "000000000000000001000000", Code: "A1", Rank: 1},
		{ID: "000000000000000002000000", Code: "A2", Rank: 2},
		{ID: "000000000000000003000000", Code: "B1", Rank: 3},
		{ID: "000000000000000004000000", Code: "B2", Rank: 4},
		{ID: "000000000000000005000000", Code: "C1", Rank: 5},
		{ID: "000000000000000006000000", Code: "C2", Rank: 6},
	}
}
