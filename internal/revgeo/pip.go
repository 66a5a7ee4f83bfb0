package revgeo

import "asset-tracker/internal/geo"

// contains：外环命中且不落在任何洞内
func (p polygon) contains(c geo.Coordinate) bool {
	if len(p.rings) == 0 || !p.bound.contains(c) {
		return false
	}
	if !inRing(c, p.rings[0]) {
		return false
	}
	for _, hole := range p.rings[1:] {
		if inRing(c, hole) {
			return false
		}
	}
	return true
}

func (r Region) contains(c geo.Coordinate) bool {
	for _, p := range r.polys {
		if p.contains(c) {
			return true
		}
	}
	return false
}

// inRing：射线法（Even-Odd）
func inRing(c geo.Coordinate, ring []geo.Coordinate) bool {
	if len(ring) < 3 {
		return false
	}
	x, y := c.Longitude, c.Latitude
	in := false
	j := len(ring) - 1
	for i := range ring {
		xi, yi := ring[i].Longitude, ring[i].Latitude
		xj, yj := ring[j].Longitude, ring[j].Latitude
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			in = !in
		}
		j = i
	}
	return in
}
