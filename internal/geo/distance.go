package geo

import "math"

// EarthRadiusMeters 赤道半径。
const EarthRadiusMeters = 6378137.0

// Point 经纬度坐标（角度制）。
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceKm 按 haversine 公式计算两点间大圆距离（公里）。
func DistanceKm(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c / 1000
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
