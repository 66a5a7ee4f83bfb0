package geocode

import (
	"context"
	"errors"

	"asset-tracker/internal/geo"
	"asset-tracker/internal/logger"
	"asset-tracker/internal/revgeo"
)

// 文档注释：离线快照提供方
// 背景：远程接口全部不可用时，仍可从本地边界与参考点给出城市级地址；通常注册在最后。
// 约束：最近邻结果同样返回，日志里标记 approx。
type LocalProvider struct {
	orch *revgeo.Orchestrator
}

// NewLocalProvider：加载数据目录；目录为空或不可读时返回错误，调用方跳过注册
func NewLocalProvider(dir string, opts revgeo.Options) (*LocalProvider, error) {
	snap, err := revgeo.LoadSnapshot(dir)
	if err != nil {
		return nil, err
	}
	return &LocalProvider{orch: revgeo.NewOrchestrator(snap, opts)}, nil
}

func NewLocalProviderFrom(o *revgeo.Orchestrator) *LocalProvider { return &LocalProvider{orch: o} }

func (p *LocalProvider) Name() string { return "local" }

func (p *LocalProvider) Heartbeat(ctx context.Context) error {
	if p.orch == nil {
		return errors.New("no snapshot")
	}
	return nil
}

func (p *LocalProvider) Reverse(ctx context.Context, c geo.Coordinate) (string, error) {
	if p.orch == nil {
		return "", errors.New("no snapshot")
	}
	m, ok := p.orch.Lookup(c)
	if !ok {
		return "", errNoResult
	}
	logger.L().Debug("local_reverse", "lat", c.Latitude, "lon", c.Longitude, "approx", m.Approx, "distance_km", m.DistanceKm)
	return m.Label(), nil
}
