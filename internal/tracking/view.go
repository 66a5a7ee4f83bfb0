// 包 tracking：资产实时追踪视图的组合根与挂载生命周期
package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"asset-tracker/internal/auth"
	"asset-tracker/internal/geo"
	"asset-tracker/internal/locate"
	"asset-tracker/internal/logger"
	"asset-tracker/internal/registry"
	"asset-tracker/internal/selection"
	"asset-tracker/internal/viewport"
)

var (
	ErrNotMounted      = errors.New("view not mounted")
	ErrAlreadyMounted  = errors.New("view already mounted")
	ErrUnknownAsset    = errors.New("unknown asset")
	ErrNothingSelected = errors.New("no selected asset with a location")
)

// Notice：非阻塞提示，视图照常可用
type Notice struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

const (
	NoticeFetchFailed  = "asset_fetch_failed"
	NoticeLocateFailed = "self_location_aborted"
)

type Options struct {
	Default       geo.Coordinate
	LocateTimeout time.Duration
	Animate       time.Duration
	LatDelta      float64
	LonDelta      float64
}

// Deps：视图依赖的外部协作方
type Deps struct {
	Device   locate.Device
	Prompter locate.Prompter
	Fetcher  registry.Fetcher
	Tokens   auth.TokenProvider
	Geocoder selection.Geocoder
	Surface  viewport.Surface
	Options  Options
}

// 文档注释：追踪视图
// 背景：挂载时并发启动自身定位与资产拉取，并应用深链焦点；所有异步结果以挂载 ctx 判定是否仍然有效。
// 约束：同一时刻只有一次挂载；卸载会取消挂载 ctx、关闭选择解析器、等待后台任务退出后清空资产表。
type View struct {
	deps     Deps
	viewport *viewport.Controller
	registry *registry.Registry
	animate  time.Duration

	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	acquirer *locate.Acquirer
	resolver *selection.Resolver
	notice   *Notice
	wg       sync.WaitGroup
	log      *slog.Logger
}

func New(d Deps) *View {
	vp := viewport.NewController(d.Surface)
	vp.SetDeltas(d.Options.LatDelta, d.Options.LonDelta)
	animate := d.Options.Animate
	if animate <= 0 {
		animate = time.Second
	}
	return &View{
		deps:     d,
		viewport: vp,
		registry: registry.New(d.Fetcher, d.Tokens),
		animate:  animate,
		log:      logger.For("tracking"),
	}
}

// Viewport：共享相机控制器
func (v *View) Viewport() *viewport.Controller { return v.viewport }

// Mount：启动定位与拉取；focus 非 nil 时立即合并
func (v *View) Mount(parent context.Context, focus *registry.FocusRequest) error {
	v.mu.Lock()
	if v.ctx != nil {
		v.mu.Unlock()
		return ErrAlreadyMounted
	}
	ctx, cancel := context.WithCancel(parent)
	v.ctx, v.cancel = ctx, cancel
	v.acquirer = locate.NewAcquirer(v.deps.Device, v.deps.Prompter, v.viewport, locate.Options{
		Default:    v.deps.Options.Default,
		FixTimeout: v.deps.Options.LocateTimeout,
		Animate:    v.animate,
	})
	v.resolver = selection.NewResolver(v.deps.Geocoder, v.viewport, v.animate)
	v.notice = nil
	acq := v.acquirer
	v.wg.Add(2)
	v.mu.Unlock()
	v.log.Info("view_mounted", "focus", focus != nil)

	if focus != nil {
		if _, err := v.Focus(*focus); err != nil {
			v.log.Warn("view_focus_skipped", "err", err)
		}
	}
	go func() {
		defer v.wg.Done()
		if _, err := acq.Acquire(ctx); err != nil && ctx.Err() == nil {
			v.setNotice(ctx, NoticeLocateFailed, err)
		}
	}()
	go func() {
		defer v.wg.Done()
		_ = v.refresh(ctx)
	}()
	return nil
}

// Unmount：幂等
func (v *View) Unmount() {
	v.mu.Lock()
	if v.ctx == nil {
		v.mu.Unlock()
		return
	}
	v.cancel()
	res := v.resolver
	v.ctx, v.cancel = nil, nil
	v.mu.Unlock()

	res.Close()
	v.wg.Wait()
	v.registry.Reset()
	v.mu.Lock()
	v.notice = nil
	v.mu.Unlock()
	v.log.Info("view_unmounted")
}

func (v *View) mounted() (context.Context, *selection.Resolver, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.ctx == nil {
		return nil, nil, ErrNotMounted
	}
	return v.ctx, v.resolver, nil
}

// WaitIdle：等待挂载时启动的定位与拉取结束
func (v *View) WaitIdle() { v.wg.Wait() }

// Refresh：用户触发的重新拉取
// 约束：计入后台任务，Unmount 会等它结束后再清空资产表。
func (v *View) Refresh() error {
	v.mu.Lock()
	if v.ctx == nil {
		v.mu.Unlock()
		return ErrNotMounted
	}
	ctx := v.ctx
	v.wg.Add(1)
	v.mu.Unlock()
	defer v.wg.Done()
	return v.refresh(ctx)
}

func (v *View) refresh(ctx context.Context) error {
	_, err := v.registry.Refresh(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		v.setNotice(ctx, NoticeFetchFailed, err)
		return err
	}
	v.clearNotice(NoticeFetchFailed)
	return nil
}

func (v *View) setNotice(ctx context.Context, kind string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ctx != ctx {
		return
	}
	v.notice = &Notice{Kind: kind, Message: err.Error(), At: time.Now()}
	v.log.Warn("view_notice", "kind", kind, "err", err)
}

func (v *View) clearNotice(kind string) {
	v.mu.Lock()
	if v.notice != nil && v.notice.Kind == kind {
		v.notice = nil
	}
	v.mu.Unlock()
}

// Select：标记点击
func (v *View) Select(id string) error {
	_, res, err := v.mounted()
	if err != nil {
		return err
	}
	a, ok := v.registry.Get(id)
	if !ok {
		return ErrUnknownAsset
	}
	res.Select(a)
	return nil
}

func (v *View) ClearSelection() error {
	_, res, err := v.mounted()
	if err != nil {
		return err
	}
	res.Clear()
	return nil
}

// 文档注释：外部焦点合并
// 背景：深链进入时把资产并入登记表，直接成为已解析选择（地址未知），有坐标时相机居中。
// 约束：同 id 资产整体替换且状态强制为 Active；之后的每次拉取都会重放该请求。
func (v *View) Focus(req registry.FocusRequest) (registry.Asset, error) {
	_, res, err := v.mounted()
	if err != nil {
		return registry.Asset{}, err
	}
	a := v.registry.Upsert(req)
	res.Focus(a)
	if a.Location != nil {
		v.viewport.CenterOn(*a.Location, v.animate)
	}
	v.log.Info("view_focus", "id", a.ID, "renderable", a.Renderable())
	return a, nil
}

// CenterOnSelected：“居中到已选资产”按钮
func (v *View) CenterOnSelected() error {
	_, res, err := v.mounted()
	if err != nil {
		return err
	}
	s := res.Current()
	if s.Asset == nil || s.Asset.Location == nil {
		return ErrNothingSelected
	}
	v.viewport.CenterOn(*s.Asset.Location, v.animate)
	return nil
}

func (v *View) Markers() []registry.Asset { return v.registry.Markers() }

func (v *View) Assets() []registry.Asset { return v.registry.Assets() }

func (v *View) Selection() selection.Selection {
	_, res, err := v.mounted()
	if err != nil {
		return selection.Selection{}
	}
	return res.Current()
}

func (v *View) SelfLocation() locate.State {
	v.mu.RLock()
	acq := v.acquirer
	v.mu.RUnlock()
	if acq == nil {
		return locate.State{}
	}
	return acq.State()
}

func (v *View) Notice() *Notice {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.notice == nil {
		return nil
	}
	n := *v.notice
	return &n
}

// WaitSelection：等待在途地址解析结束
func (v *View) WaitSelection() {
	_, res, err := v.mounted()
	if err == nil {
		res.Wait()
	}
}
