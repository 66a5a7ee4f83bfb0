package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"asset-tracker/internal/auth"
	"asset-tracker/internal/backend"
	"asset-tracker/internal/logger"
	"asset-tracker/internal/metrics"

	"github.com/google/uuid"
)

var ErrAssetFetchFailed = errors.New("asset fetch failed")

// Fetcher：鉴权拉取资产记录
type Fetcher interface {
	FetchAssets(ctx context.Context, token string) ([]backend.Record, error)
}

// 文档注释：资产登记表
// 背景：集合按 id 唯一；拉取结果整体替换集合，随后重放本次挂载内收到的焦点请求，避免拉取晚于深链到达时把焦点资产冲掉。
// 约束：拉取失败时集合保持原样；ctx 取消后到达的结果直接丢弃。
type Registry struct {
	fetch  Fetcher
	tokens auth.TokenProvider
	newID  func() string

	mu     sync.RWMutex
	assets []Asset
	index  map[string]int
	focus  []FocusRequest
	log    *slog.Logger
}

func New(f Fetcher, tp auth.TokenProvider) *Registry {
	return &Registry{fetch: f, tokens: tp, newID: uuid.NewString, index: map[string]int{}, log: logger.For("registry")}
}

// Refresh：拉取并替换集合，返回替换后的全部资产（含无坐标资产）
func (r *Registry) Refresh(ctx context.Context) ([]Asset, error) {
	token := ""
	if r.tokens != nil {
		t, err := r.tokens.Token(ctx)
		if err != nil {
			metrics.RegistryFetchTotal.WithLabelValues("auth_error").Inc()
			return nil, fmt.Errorf("%w: %w", ErrAssetFetchFailed, err)
		}
		token = t
	}
	recs, err := r.fetch.FetchAssets(ctx, token)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		metrics.RegistryFetchTotal.WithLabelValues("error").Inc()
		r.log.Error("registry_fetch_error", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrAssetFetchFailed, err)
	}
	r.mu.Lock()
	if err := ctx.Err(); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.assets = r.assets[:0:0]
	r.index = make(map[string]int, len(recs))
	for _, rec := range recs {
		r.putLocked(Normalize(rec, r.newID))
	}
	for _, f := range r.focus {
		r.putLocked(f.Asset())
	}
	out := append([]Asset(nil), r.assets...)
	replayed := len(r.focus)
	r.mu.Unlock()
	metrics.RegistryFetchTotal.WithLabelValues("ok").Inc()
	metrics.RegistryAssets.Set(float64(len(out)))
	r.log.Info("registry_refreshed", "records", len(recs), "assets", len(out), "focus_replayed", replayed)
	return out, nil
}

// putLocked：按 id 原位替换或追加
func (r *Registry) putLocked(a Asset) {
	if i, ok := r.index[a.ID]; ok {
		r.assets[i] = a
		return
	}
	r.index[a.ID] = len(r.assets)
	r.assets = append(r.assets, a)
}

// Upsert：合并焦点请求；已存在同 id 资产时整体替换
func (r *Registry) Upsert(f FocusRequest) Asset {
	a := f.Asset()
	r.mu.Lock()
	r.putLocked(a)
	replaced := false
	for i := range r.focus {
		if r.focus[i].ID == f.ID {
			r.focus[i] = f
			replaced = true
			break
		}
	}
	if !replaced {
		r.focus = append(r.focus, f)
	}
	n := len(r.assets)
	r.mu.Unlock()
	metrics.RegistryAssets.Set(float64(n))
	r.log.Debug("registry_focus_upsert", "id", f.ID, "renderable", a.Renderable())
	return a
}

func (r *Registry) Get(id string) (Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return Asset{}, false
	}
	return r.assets[i], true
}

// Assets：全部资产（拉取顺序）
func (r *Registry) Assets() []Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Asset(nil), r.assets...)
}

// Markers：可渲染资产，过滤发生在读取时
func (r *Registry) Markers() []Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Asset, 0, len(r.assets))
	for _, a := range r.assets {
		if a.Renderable() {
			out = append(out, a)
		}
	}
	return out
}

// Reset：卸载时清空集合与焦点记录
func (r *Registry) Reset() {
	r.mu.Lock()
	r.assets = nil
	r.index = map[string]int{}
	r.focus = nil
	r.mu.Unlock()
	metrics.RegistryAssets.Set(0)
}
