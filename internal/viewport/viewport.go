// 包 viewport：地图相机控制，所有居中指令经由同一个 Controller 下发到地图表面
package viewport

import (
	"log/slog"
	"sync"
	"time"

	"asset-tracker/internal/geo"
	"asset-tracker/internal/logger"
	"asset-tracker/internal/metrics"
)

// 默认可视范围（纬度/经度跨度，单位度）
const (
	DefaultLatitudeDelta  = 0.0922
	DefaultLongitudeDelta = 0.0421
	MaxDuration           = 5 * time.Second
)

// Region：相机目标区域
type Region struct {
	Center         geo.Coordinate `json:"center"`
	LatitudeDelta  float64        `json:"latitude_delta"`
	LongitudeDelta float64        `json:"longitude_delta"`
}

// Surface：地图表面，AnimateToRegion 是唯一被调用的变更操作
type Surface interface {
	AnimateToRegion(r Region, d time.Duration)
}

// 文档注释：相机控制器
// 背景：定位、焦点合并与“居中到已选资产”三处调用方共用；除地图引用外不持有状态。
// 约束：地图未挂载时指令被丢弃并记录日志；动画时长截断到 [0, MaxDuration]。
type Controller struct {
	mu      sync.RWMutex
	surface Surface
	latD    float64
	lonD    float64
	log     *slog.Logger
}

func NewController(s Surface) *Controller {
	return &Controller{surface: s, latD: DefaultLatitudeDelta, lonD: DefaultLongitudeDelta, log: logger.For("viewport")}
}

// Attach：挂载/替换地图实例；传 nil 表示卸载
func (c *Controller) Attach(s Surface) {
	c.mu.Lock()
	c.surface = s
	c.mu.Unlock()
}

// SetDeltas：覆盖默认跨度，非正值忽略
func (c *Controller) SetDeltas(lat, lon float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lat > 0 {
		c.latD = lat
	}
	if lon > 0 {
		c.lonD = lon
	}
}

func (c *Controller) CenterOn(coord geo.Coordinate, d time.Duration) {
	c.mu.RLock()
	s := c.surface
	r := Region{Center: coord, LatitudeDelta: c.latD, LongitudeDelta: c.lonD}
	c.mu.RUnlock()
	if s == nil {
		c.log.Debug("viewport_detached", "lat", coord.Latitude, "lon", coord.Longitude)
		return
	}
	if d < 0 {
		d = 0
	}
	if d > MaxDuration {
		d = MaxDuration
	}
	metrics.ViewportCommandsTotal.Inc()
	c.log.Debug("viewport_center", "lat", coord.Latitude, "lon", coord.Longitude, "duration_ms", d.Milliseconds())
	s.AnimateToRegion(r, d)
}
