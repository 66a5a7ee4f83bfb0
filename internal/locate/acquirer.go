// 包 locate：自身定位流水线（权限 → 定位服务 → 单次定位 → 兜底），每次挂载只运行一次
package locate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"asset-tracker/internal/geo"
	"asset-tracker/internal/logger"
	"asset-tracker/internal/metrics"
)

// Phase：自身定位状态
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseFallback
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseFallback:
		return "fallback"
	}
	return "loading"
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// State：Loading 时 Coordinate 为零值
type State struct {
	Phase      Phase          `json:"phase"`
	Coordinate geo.Coordinate `json:"coordinate"`
}

// Centerer：定位完成后的相机居中
type Centerer interface {
	CenterOn(c geo.Coordinate, d time.Duration)
}

type Options struct {
	Default    geo.Coordinate
	FixTimeout time.Duration
	Animate    time.Duration
}

// DefaultCoordinate：未配置时的兜底中心点
var DefaultCoordinate = geo.Coordinate{Latitude: 17.385, Longitude: 78.4867}

// 文档注释：自身定位获取器
// 背景：GeoPermissionGate 与 SelfLocationAcquirer 合一；Fallback 只能经由用户显式选择进入，不做静默兜底。
// 约束：State 仅由 Acquire 写入；ctx 取消（视图卸载）后不再写状态也不再居中。
type Acquirer struct {
	dev    Device
	prompt Prompter
	center Centerer
	opts   Options

	mu    sync.RWMutex
	state State
	log   *slog.Logger
}

func NewAcquirer(dev Device, prompt Prompter, center Centerer, opts Options) *Acquirer {
	if !opts.Default.Valid() {
		opts.Default = DefaultCoordinate
	}
	if opts.FixTimeout <= 0 {
		opts.FixTimeout = 15 * time.Second
	}
	if opts.Animate <= 0 {
		opts.Animate = time.Second
	}
	return &Acquirer{dev: dev, prompt: prompt, center: center, opts: opts, log: logger.For("locate")}
}

func (a *Acquirer) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Acquire：运行定位流水线直到 Ready/Fallback
// 返回：ctx 取消或应答器出错时返回 error，此时状态保持 Loading。
func (a *Acquirer) Acquire(ctx context.Context) (State, error) {
	for {
		st, retry, err := a.attempt(ctx)
		if err != nil {
			a.log.Info("locate_aborted", "err", err)
			metrics.SelfLocationTotal.WithLabelValues("aborted").Inc()
			return a.State(), err
		}
		if retry {
			continue
		}
		if ctx.Err() != nil {
			return a.State(), ctx.Err()
		}
		a.mu.Lock()
		a.state = st
		a.mu.Unlock()
		metrics.SelfLocationTotal.WithLabelValues(st.Phase.String()).Inc()
		a.log.Info("locate_done", "phase", st.Phase.String(), "lat", st.Coordinate.Latitude, "lon", st.Coordinate.Longitude)
		if a.center != nil {
			a.center.CenterOn(st.Coordinate, a.opts.Animate)
		}
		return st, nil
	}
}

// attempt：单轮流程；retry=true 表示从第一步重新开始
func (a *Acquirer) attempt(ctx context.Context) (State, bool, error) {
	granted, err := a.dev.EnsurePermission(ctx)
	if ctx.Err() != nil {
		return State{}, false, ctx.Err()
	}
	if err != nil || !granted {
		a.log.Debug("locate_permission_denied", "err", err)
		c, perr := a.recover(ctx, StagePermission, ErrPermissionDenied, ChoiceRetry, ChoiceCancel)
		if perr != nil {
			return State{}, false, perr
		}
		if c == ChoiceCancel {
			return a.fallback(), false, nil
		}
		return State{}, true, nil
	}

	enabled, err := a.dev.ServiceEnabled(ctx)
	if ctx.Err() != nil {
		return State{}, false, ctx.Err()
	}
	if err != nil || !enabled {
		a.log.Debug("locate_service_disabled", "err", err)
		// 定位服务需由用户在系统层开启，过期位置会误导调度，因此只提供重试
		if _, perr := a.recover(ctx, StageService, ErrServiceUnavailable, ChoiceRetry); perr != nil {
			return State{}, false, perr
		}
		return State{}, true, nil
	}

	fixCtx, cancel := context.WithTimeout(ctx, a.opts.FixTimeout)
	c, err := a.dev.CurrentLocation(fixCtx)
	cancel()
	if ctx.Err() != nil {
		return State{}, false, ctx.Err()
	}
	if err == nil && !c.Valid() {
		err = &PositionError{Code: CodePositionUnavailable, Message: "empty fix"}
	}
	if err != nil {
		kind := classify(err)
		a.log.Debug("locate_fix_error", "err", err, "kind", kind)
		ch, perr := a.recover(ctx, StageFix, kind, ChoiceRetry, ChoiceUseDefault)
		if perr != nil {
			return State{}, false, perr
		}
		if ch == ChoiceUseDefault {
			return a.fallback(), false, nil
		}
		return State{}, true, nil
	}
	return State{Phase: PhaseReady, Coordinate: c}, false, nil
}

func (a *Acquirer) fallback() State {
	return State{Phase: PhaseFallback, Coordinate: a.opts.Default}
}

// recover：呈现恢复选项；应答器给出不允许的选项时按重试处理
func (a *Acquirer) recover(ctx context.Context, stage Stage, cause error, opts ...Choice) (Choice, error) {
	if a.prompt == nil {
		return ChoiceRetry, errors.Join(ErrRetriesExhausted, cause)
	}
	p := Prompt{Stage: stage, Err: cause, Options: opts}
	c, err := a.prompt.Recover(ctx, p)
	if err != nil {
		return ChoiceRetry, err
	}
	if !p.allows(c) {
		return ChoiceRetry, nil
	}
	return c, nil
}
