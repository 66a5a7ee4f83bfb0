package revgeo

import (
	"math"
	"sort"

	"asset-tracker/internal/geo"
)

// 文档注释：参考点的二维 KD-Tree
// 背景：区域边界未命中时退化为最近参考点；半径上限避免把远离城市的坐标归到某个城市。
// 约束：偶数层按纬度、奇数层按经度切分；剪枝以查询点到切分线的最短球面距离为下界，高纬度同样不漏检。
type kdNode struct {
	place       Place
	byLon       bool
	left, right *kdNode
}

func buildKD(ps []Place, depth int) *kdNode {
	if len(ps) == 0 {
		return nil
	}
	byLon := depth%2 == 1
	sort.Slice(ps, func(i, j int) bool {
		if byLon {
			return ps[i].Longitude < ps[j].Longitude
		}
		return ps[i].Latitude < ps[j].Latitude
	})
	mid := len(ps) / 2
	return &kdNode{
		place: ps[mid],
		byLon: byLon,
		left:  buildKD(ps[:mid], depth+1),
		right: buildKD(ps[mid+1:], depth+1),
	}
}

// nearest：返回最近参考点与距离（km）；空树返回 false
func (n *kdNode) nearest(c geo.Coordinate) (Place, float64, bool) {
	if n == nil {
		return Place{}, 0, false
	}
	var best Place
	bestKm := math.Inf(1)
	var walk func(*kdNode)
	walk = func(k *kdNode) {
		if k == nil {
			return
		}
		if d := geo.DistanceKm(c, k.place.coord()); d < bestKm {
			best, bestKm = k.place, d
		}
		q, split := c.Latitude, k.place.Latitude
		if k.byLon {
			q, split = c.Longitude, k.place.Longitude
		}
		near, far := k.left, k.right
		if q >= split {
			near, far = k.right, k.left
		}
		walk(near)
		if splitKm(c, math.Abs(q-split), k.byLon) < bestKm {
			walk(far)
		}
	}
	walk(n)
	return best, bestKm, true
}

const earthRadiusKm = 6371.0

// splitKm：查询点到切分线另一侧任意点的距离下界（km）
// 经度切分线是一条经线，下界为到该大圆的横向距离 asin(cosφ·sinΔλ)；Δλ ≥ 90° 时不剪枝。
func splitKm(c geo.Coordinate, deg float64, byLon bool) float64 {
	d := deg * math.Pi / 180
	if !byLon {
		return d * earthRadiusKm
	}
	if d >= math.Pi/2 {
		return 0
	}
	return earthRadiusKm * math.Asin(math.Cos(c.Latitude*math.Pi/180)*math.Sin(d))
}
