package revgeo

import (
	"strings"
	"time"

	"asset-tracker/internal/geo"
)

// 文档注释：离线反地理的最小数据结构
// 背景：地址只需到街区/城市粒度，层级从细到粗为 Locality → District → State → Country。
// 约束：几何只接受 GeoJSON 的 Polygon/MultiPolygon；每个多边形第一环为外环，其余为洞。
type Area struct {
	Locality string `json:"locality"`
	District string `json:"district"`
	State    string `json:"state"`
	Country  string `json:"country"`
}

// Label：从细到粗拼接非空层级，去掉相邻重复（如 District 与 Locality 同名）
func (a Area) Label() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Locality, a.District, a.State, a.Country} {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n := len(parts); n > 0 && strings.EqualFold(parts[n-1], p) {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}

func (a Area) Empty() bool { return a.Label() == "" }

// box：minLat, minLon, maxLat, maxLon
type box [4]float64

func (b box) contains(c geo.Coordinate) bool {
	return c.Latitude >= b[0] && c.Longitude >= b[1] && c.Latitude <= b[2] && c.Longitude <= b[3]
}

type polygon struct {
	rings [][]geo.Coordinate
	bound box
}

// Region：一个行政区及其几何
type Region struct {
	Area
	polys []polygon
}

// Place：带名称的参考点，用于最近邻兜底
type Place struct {
	Area
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p Place) coord() geo.Coordinate {
	return geo.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
}

// Snapshot：加载后只读共享
type Snapshot struct {
	Regions  []Region
	Places   []Place
	LoadedAt time.Time
}
