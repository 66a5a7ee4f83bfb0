package locate

import (
	"context"
	"time"

	"asset-tracker/internal/geo"
)

// Device：权限与定位服务协作方
type Device interface {
	EnsurePermission(ctx context.Context) (bool, error)
	ServiceEnabled(ctx context.Context) (bool, error)
	// CurrentLocation 失败时返回 *PositionError
	CurrentLocation(ctx context.Context) (geo.Coordinate, error)
}

// 文档注释：静态设备（由配置驱动）
// 背景：服务端进程没有真实 GPS，按环境变量模拟授权、服务开关与一次定位结果；FailCode 非零时定位固定失败。
type StaticDevice struct {
	Permission bool
	Service    bool
	Position   geo.Coordinate
	FixDelay   time.Duration
	FailCode   int
}

func (d *StaticDevice) EnsurePermission(ctx context.Context) (bool, error) {
	return d.Permission, ctx.Err()
}

func (d *StaticDevice) ServiceEnabled(ctx context.Context) (bool, error) {
	return d.Service, ctx.Err()
}

func (d *StaticDevice) CurrentLocation(ctx context.Context) (geo.Coordinate, error) {
	if d.FixDelay > 0 {
		t := time.NewTimer(d.FixDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return geo.Coordinate{}, &PositionError{Code: CodeTimeout, Message: ctx.Err().Error()}
		case <-t.C:
		}
	}
	if d.FailCode != 0 {
		return geo.Coordinate{}, &PositionError{Code: d.FailCode}
	}
	if !d.Position.Valid() {
		return geo.Coordinate{}, &PositionError{Code: CodePositionUnavailable, Message: "no fix configured"}
	}
	return d.Position, nil
}
