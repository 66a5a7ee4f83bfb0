// 包 geo：坐标值类型与“零值即缺失”规则，供定位、资产登记与反地理各层共用
package geo

import (
	"fmt"
	"math"
	"strconv"
)

// Coordinate：WGS84 经纬度
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// 文档注释：判定单个分量是否可用
// 背景：上游后端以 0 表示“未上报”，赤道/本初子午线上的真实 0 值因此同样被视为缺失。
func usable(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Valid：两个分量均可用
func (c Coordinate) Valid() bool { return usable(c.Latitude) && usable(c.Longitude) }

// From：仅当两个分量都可用时返回坐标，否则返回 nil
func From(lat, lon float64) *Coordinate {
	c := Coordinate{Latitude: lat, Longitude: lon}
	if !c.Valid() {
		return nil
	}
	return &c
}

// String：合成 "<lat>, <lon>" 文本，用最短十进制表示
func (c Coordinate) String() string {
	return FormatDegrees(c.Latitude) + ", " + FormatDegrees(c.Longitude)
}

// FormatDegrees：单个分量的最短十进制文本，用于反地理请求参数
func FormatDegrees(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// CacheKey：三位小数量化后的缓存键（约 100m 网格）
func (c Coordinate) CacheKey() string {
	return fmt.Sprintf("%.3f:%.3f", c.Latitude, c.Longitude)
}

// ParseDegrees：解析文本分量；空串或非法输入返回 false
func ParseDegrees(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// DistanceKm：球面距离（Haversine）
func DistanceKm(a, b Coordinate) float64 {
	const r = 6371.0
	rad := math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * rad
	dLon := (b.Longitude - a.Longitude) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*rad)*math.Cos(b.Latitude*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * r * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
