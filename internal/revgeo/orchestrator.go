package revgeo

import (
	"time"

	"asset-tracker/internal/geo"
)

// Options：离线查询参数
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	RadiusKm  float64
}

func (o Options) withDefaults() Options {
	if o.CacheSize <= 0 {
		o.CacheSize = 4096
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Hour
	}
	if o.RadiusKm <= 0 {
		o.RadiusKm = 50
	}
	return o
}

// Match：查询结果；Approx 表示来自最近邻而非边界命中
type Match struct {
	Area
	Approx     bool
	DistanceKm float64
}

// 文档注释：离线查询编排器（包围盒 → 点入多边形 → 最近参考点）
// 背景：远程提供方不可用时仍需给出城市级地址；结果按 geohash 缓存。
// 约束：多个区域同时命中时取层级最细者（有 Locality 优先于只有 District，依此类推）。
type Orchestrator struct {
	snap   *Snapshot
	kd     *kdNode
	cache  *LRU[Match]
	radius float64
}

func NewOrchestrator(snap *Snapshot, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	o := &Orchestrator{snap: snap, cache: NewLRU[Match](opts.CacheSize, opts.CacheTTL), radius: opts.RadiusKm}
	if snap != nil && len(snap.Places) > 0 {
		o.kd = buildKD(append([]Place(nil), snap.Places...), 0)
	}
	return o
}

func depth(a Area) int {
	switch {
	case a.Locality != "":
		return 4
	case a.District != "":
		return 3
	case a.State != "":
		return 2
	case a.Country != "":
		return 1
	}
	return 0
}

// Lookup：未命中任何区域且半径内无参考点时返回 false
func (o *Orchestrator) Lookup(c geo.Coordinate) (Match, bool) {
	key := geo.Geohash(c, 7)
	if m, ok := o.cache.Get(key); ok {
		return m, !m.Empty()
	}
	m := o.lookup(c)
	o.cache.Set(key, m)
	return m, !m.Empty()
}

func (o *Orchestrator) lookup(c geo.Coordinate) Match {
	var best Match
	found := false
	if o.snap != nil {
		for _, r := range o.snap.Regions {
			if !r.contains(c) {
				continue
			}
			if !found || depth(r.Area) > depth(best.Area) {
				best = Match{Area: r.Area}
				found = true
			}
		}
	}
	if found && best.Locality != "" {
		return best
	}
	if p, d, ok := o.kd.nearest(c); ok && d <= o.radius {
		near := Match{Area: p.Area, Approx: true, DistanceKm: d}
		if !found || depth(near.Area) > depth(best.Area) {
			return near
		}
	}
	return best
}
