// 包 selection：唯一的当前选择及其异步地址解析
package selection

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"asset-tracker/internal/geo"
	"asset-tracker/internal/logger"
	"asset-tracker/internal/metrics"
	"asset-tracker/internal/registry"
)

type Phase int

const (
	PhaseNone Phase = iota
	PhasePending
	PhaseResolved
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseResolved:
		return "resolved"
	}
	return "none"
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Selection：None 时 Asset 为 nil；Address 仅在 Resolved 且解析成功时非 nil
type Selection struct {
	Phase   Phase           `json:"phase"`
	Asset   *registry.Asset `json:"asset"`
	Address *string         `json:"address"`
}

// Geocoder：反地理协作方；失败只会表现为空地址
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon string) (string, error)
}

type Centerer interface {
	CenterOn(c geo.Coordinate, d time.Duration)
}

// 文档注释：选择解析器
// 背景：连续快速点选时，慢返回的旧地址不得覆盖新选择；每次状态变更递增代号，解析结果回写前比对代号与资产 id。
// 约束：新选择或 Clear 会取消上一次解析的 ctx，但结果是否生效只以代号判定；Close 之后不再写任何状态。
type Resolver struct {
	geocoder Geocoder
	center   Centerer
	animate  time.Duration

	mu       sync.Mutex
	sel      Selection
	gen      uint64
	cancel   context.CancelFunc
	closed   bool
	wg       sync.WaitGroup
	log      *slog.Logger
}

func NewResolver(g Geocoder, c Centerer, animate time.Duration) *Resolver {
	if animate <= 0 {
		animate = time.Second
	}
	return &Resolver{geocoder: g, center: c, animate: animate, log: logger.For("selection")}
}

func (r *Resolver) Current() Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sel
}

// supersedeLocked：进入新代号并取消上一次解析
func (r *Resolver) supersedeLocked() uint64 {
	r.gen++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	return r.gen
}

// Select：标记点击入口
func (r *Resolver) Select(a registry.Asset) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	gen := r.supersedeLocked()
	asset := a
	if a.Location == nil {
		r.sel = Selection{Phase: PhaseResolved, Asset: &asset}
		r.mu.Unlock()
		metrics.SelectionsTotal.WithLabelValues("no_location").Inc()
		r.log.Debug("selection_no_location", "id", a.ID)
		return
	}
	r.sel = Selection{Phase: PhasePending, Asset: &asset}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	metrics.SelectionsTotal.WithLabelValues("tap").Inc()
	if r.center != nil {
		r.center.CenterOn(*a.Location, r.animate)
	}
	go r.resolve(ctx, cancel, gen, asset)
}

func (r *Resolver) resolve(ctx context.Context, cancel context.CancelFunc, gen uint64, a registry.Asset) {
	defer r.wg.Done()
	defer cancel()
	lat := geo.FormatDegrees(a.Location.Latitude)
	lon := geo.FormatDegrees(a.Location.Longitude)
	var addr *string
	if r.geocoder != nil {
		s, err := r.geocoder.ReverseGeocode(ctx, lat, lon)
		if err != nil {
			r.log.Debug("selection_geocode_failed", "id", a.ID, "err", err)
		} else if s = strings.TrimSpace(s); s != "" {
			addr = &s
		}
	}

	r.mu.Lock()
	if r.closed || r.gen != gen || r.sel.Asset == nil || r.sel.Asset.ID != a.ID {
		r.mu.Unlock()
		metrics.SelectionDiscardsTotal.Inc()
		r.log.Debug("selection_stale_discarded", "id", a.ID, "gen", gen)
		return
	}
	r.sel = Selection{Phase: PhaseResolved, Asset: &a, Address: addr}
	r.cancel = nil
	r.mu.Unlock()
	r.log.Debug("selection_resolved", "id", a.ID, "address", addr != nil)
}

// Focus：外部焦点合并后的选择，直接 Resolved 且地址未知
func (r *Resolver) Focus(a registry.Asset) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.supersedeLocked()
	asset := a
	r.sel = Selection{Phase: PhaseResolved, Asset: &asset}
	r.mu.Unlock()
	metrics.SelectionsTotal.WithLabelValues("focus").Inc()
}

// Clear：无条件回到 None
func (r *Resolver) Clear() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.supersedeLocked()
	r.sel = Selection{}
	r.mu.Unlock()
}

// Wait：等待所有在途解析结束（结果可能已被丢弃）
func (r *Resolver) Wait() { r.wg.Wait() }

// Close：卸载；取消在途解析并等待其退出
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.supersedeLocked()
	r.mu.Unlock()
	r.wg.Wait()
}
