package revgeo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"asset-tracker/internal/geo"
	"asset-tracker/internal/logger"
)

const placesFile = "places.json"

var ErrEmptySnapshot = errors.New("revgeo: no regions or places found")

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string   `json:"type"`
	Properties Area     `json:"properties"`
	Geometry   geometry `json:"geometry"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// 文档注释：从数据目录加载离线快照
// 背景：区域边界来自目录下的 *.geojson（FeatureCollection 或单个 Feature，properties 含 locality/district/state/country），参考点来自 places.json。
// 约束：单个文件损坏只记录告警并跳过；目录里什么都没有时返回 ErrEmptySnapshot，调用方据此不注册离线提供方。
func LoadSnapshot(dir string) (*Snapshot, error) {
	log := logger.For("revgeo")
	snap := &Snapshot{LoadedAt: time.Now()}

	if b, err := os.ReadFile(filepath.Join(dir, placesFile)); err == nil {
		if err := json.Unmarshal(b, &snap.Places); err != nil {
			log.Warn("revgeo_places_invalid", "dir", dir, "err", err)
			snap.Places = nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read places: %w", err)
	}

	names, err := filepath.Glob(filepath.Join(dir, "*.geojson"))
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := os.ReadFile(name)
		if err != nil {
			log.Warn("revgeo_file_unreadable", "file", name, "err", err)
			continue
		}
		regions, err := parseGeoJSON(b)
		if err != nil {
			log.Warn("revgeo_file_invalid", "file", name, "err", err)
			continue
		}
		snap.Regions = append(snap.Regions, regions...)
	}
	if len(snap.Regions) == 0 && len(snap.Places) == 0 {
		return nil, ErrEmptySnapshot
	}
	log.Info("revgeo_snapshot_loaded", "dir", dir, "regions", len(snap.Regions), "places", len(snap.Places))
	return snap, nil
}

func parseGeoJSON(b []byte) ([]Region, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, err
	}
	var feats []feature
	switch strings.ToLower(head.Type) {
	case "featurecollection":
		var fc featureCollection
		if err := json.Unmarshal(b, &fc); err != nil {
			return nil, err
		}
		feats = fc.Features
	case "feature":
		var f feature
		if err := json.Unmarshal(b, &f); err != nil {
			return nil, err
		}
		feats = []feature{f}
	default:
		return nil, fmt.Errorf("unsupported geojson type %q", head.Type)
	}
	out := make([]Region, 0, len(feats))
	for _, f := range feats {
		polys, err := decodeGeometry(f.Geometry)
		if err != nil {
			return nil, err
		}
		if len(polys) == 0 {
			continue
		}
		out = append(out, Region{Area: f.Properties, polys: polys})
	}
	return out, nil
}

// decodeGeometry：GeoJSON 坐标顺序为 [lon, lat]
func decodeGeometry(g geometry) ([]polygon, error) {
	switch strings.ToLower(g.Type) {
	case "polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("polygon: %w", err)
		}
		return []polygon{newPolygon(rings)}, nil
	case "multipolygon":
		var parts [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &parts); err != nil {
			return nil, fmt.Errorf("multipolygon: %w", err)
		}
		out := make([]polygon, 0, len(parts))
		for _, p := range parts {
			out = append(out, newPolygon(p))
		}
		return out, nil
	case "":
		return nil, nil
	}
	return nil, fmt.Errorf("unsupported geometry %q", g.Type)
}

func newPolygon(rings [][][]float64) polygon {
	p := polygon{bound: box{90, 180, -90, -180}}
	for _, ring := range rings {
		rr := make([]geo.Coordinate, 0, len(ring))
		for _, pt := range ring {
			if len(pt) < 2 {
				continue
			}
			c := geo.Coordinate{Latitude: pt[1], Longitude: pt[0]}
			rr = append(rr, c)
			p.bound[0] = min(p.bound[0], c.Latitude)
			p.bound[1] = min(p.bound[1], c.Longitude)
			p.bound[2] = max(p.bound[2], c.Latitude)
			p.bound[3] = max(p.bound[3], c.Longitude)
		}
		p.rings = append(p.rings, rr)
	}
	return p
}
