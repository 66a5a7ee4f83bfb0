package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"asset-tracker/internal/geo"
	"asset-tracker/internal/logger"
	"asset-tracker/internal/metrics"
	"asset-tracker/internal/revgeo"
	"asset-tracker/internal/store"
)

// SharedCache：第二层缓存（Redis）
type SharedCache interface {
	Get(ctx context.Context, c geo.Coordinate) (string, bool, error)
	Set(ctx context.Context, c geo.Coordinate, addr string) error
}

// AddressStore：第三层持久化（PostgreSQL）
type AddressStore interface {
	LookupAddress(ctx context.Context, hash string, maxAge time.Duration) (*store.Address, error)
	UpsertAddress(ctx context.Context, c geo.Coordinate, address, source string) error
}

type Options struct {
	MemorySize  int
	MemoryTTL   time.Duration
	StoreMaxAge time.Duration
	Timeout     time.Duration
}

// Result：一次解析的地址与来源层级
type Result struct {
	Address string `json:"address"`
	Source  string `json:"source"`
	Tier    string `json:"tier"`
}

type memoEntry struct {
	addr   string
	source string
}

// 文档注释：地址解析服务
// 背景：同一坐标会被多次点选，逐层查询进程内 LRU、Redis、PostgreSQL，全部未命中才调用健康提供方，并把结果逐层回写。
// 约束：任一缓存层出错只记录日志并继续下一层；提供方全部失败时返回 ErrGeocodeFailed，ReverseGeocode 将其吸收为空地址。
type Service struct {
	mgr     *Manager
	memo    *revgeo.LRU[memoEntry]
	shared  SharedCache
	store   AddressStore
	maxAge  time.Duration
	timeout time.Duration
	log     *slog.Logger
}

func NewService(m *Manager, opts Options) *Service {
	if opts.MemorySize <= 0 {
		opts.MemorySize = 4096
	}
	if opts.MemoryTTL <= 0 {
		opts.MemoryTTL = time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	return &Service{
		mgr:     m,
		memo:    revgeo.NewLRU[memoEntry](opts.MemorySize, opts.MemoryTTL),
		maxAge:  opts.StoreMaxAge,
		timeout: opts.Timeout,
		log:     logger.For("geocode"),
	}
}

// WithCache：nil 表示不启用
func (s *Service) WithCache(c SharedCache) *Service {
	s.shared = c
	return s
}

func (s *Service) WithStore(st AddressStore) *Service {
	s.store = st
	return s
}

// Providers：健康快照，供诊断接口展示
func (s *Service) Providers() []ProviderStatus {
	if s.mgr == nil {
		return nil
	}
	return s.mgr.Status()
}

// Stats：诊断快照，提供方健康与持久层累计
type Stats struct {
	Providers []ProviderStatus `json:"providers"`
	Store     *store.Totals    `json:"store,omitempty"`
}

type totalsReader interface {
	GetTotals(ctx context.Context) (*store.Totals, error)
}

// Stats：未挂持久层时 Store 为 nil；统计查询失败只影响 Store 字段
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Providers: s.Providers()}
	if st.Providers == nil {
		st.Providers = []ProviderStatus{}
	}
	tr, ok := s.store.(totalsReader)
	if !ok {
		return st, nil
	}
	t, err := tr.GetTotals(ctx)
	if err != nil {
		return st, fmt.Errorf("geocode stats: %w", err)
	}
	st.Store = t
	return st, nil
}

// ReverseGeocode：选择流程使用的文本入口
// 约束：任何失败（非法坐标、取消、超时、提供方全部失败）都只记录 debug 日志并返回 ("", nil)。
func (s *Service) ReverseGeocode(ctx context.Context, lat, lon string) (string, error) {
	c, err := ParseCoordinate(lat, lon)
	if err != nil {
		s.log.Debug("geocode_absorbed", "lat", lat, "lon", lon, "err", err)
		return "", nil
	}
	r, err := s.Resolve(ctx, c)
	if err != nil {
		s.log.Debug("geocode_absorbed", "lat", lat, "lon", lon, "err", err)
		return "", nil
	}
	return r.Address, nil
}

// ParseCoordinate：文本分量转坐标，零值与非法输入返回 ErrInvalidCoordinate
func ParseCoordinate(lat, lon string) (geo.Coordinate, error) {
	la, ok1 := geo.ParseDegrees(strings.TrimSpace(lat))
	lo, ok2 := geo.ParseDegrees(strings.TrimSpace(lon))
	if !ok1 || !ok2 {
		return geo.Coordinate{}, fmt.Errorf("%w: %q, %q", ErrInvalidCoordinate, lat, lon)
	}
	c := geo.From(la, lo)
	if c == nil || la < -90 || la > 90 || lo < -180 || lo > 180 {
		return geo.Coordinate{}, fmt.Errorf("%w: %q, %q", ErrInvalidCoordinate, lat, lon)
	}
	return *c, nil
}

// Resolve：逐层解析
func (s *Service) Resolve(ctx context.Context, c geo.Coordinate) (Result, error) {
	t0 := time.Now()
	metrics.GeocodeRequestsTotal.Inc()
	defer func() { metrics.GeocodeDurationMs.Observe(float64(time.Since(t0).Milliseconds())) }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := c.CacheKey()
	if e, ok := s.memo.Get(key); ok {
		metrics.GeocodeCacheHitsTotal.WithLabelValues("memory").Inc()
		return Result{Address: e.addr, Source: e.source, Tier: "memory"}, nil
	}
	if s.shared != nil {
		addr, ok, err := s.shared.Get(ctx, c)
		switch {
		case err != nil:
			s.log.Warn("geocode_redis_get_failed", "key", key, "err", err)
		case ok:
			metrics.GeocodeCacheHitsTotal.WithLabelValues("redis").Inc()
			s.memo.Set(key, memoEntry{addr: addr, source: "redis"})
			return Result{Address: addr, Source: "redis", Tier: "redis"}, nil
		}
	}
	if s.store != nil {
		a, err := s.store.LookupAddress(ctx, geo.Geohash(c, 7), s.maxAge)
		switch {
		case err != nil:
			s.log.Warn("geocode_db_lookup_failed", "key", key, "err", err)
		case a != nil && a.Address != "":
			metrics.GeocodeCacheHitsTotal.WithLabelValues("db").Inc()
			s.memo.Set(key, memoEntry{addr: a.Address, source: a.Source})
			s.writeShared(ctx, c, a.Address)
			return Result{Address: a.Address, Source: a.Source, Tier: "db"}, nil
		}
	}

	addr, source, err := s.fromProviders(ctx, c)
	if err != nil {
		metrics.GeocodeEmptyTotal.Inc()
		return Result{}, err
	}
	s.memo.Set(key, memoEntry{addr: addr, source: source})
	s.writeShared(ctx, c, addr)
	if s.store != nil {
		if err := s.store.UpsertAddress(ctx, c, addr, source); err != nil {
			s.log.Warn("geocode_db_upsert_failed", "key", key, "err", err)
		}
	}
	return Result{Address: addr, Source: source, Tier: "provider"}, nil
}

func (s *Service) writeShared(ctx context.Context, c geo.Coordinate, addr string) {
	if s.shared == nil {
		return
	}
	if err := s.shared.Set(ctx, c, addr); err != nil {
		s.log.Warn("geocode_redis_set_failed", "key", c.CacheKey(), "err", err)
	}
}

func (s *Service) fromProviders(ctx context.Context, c geo.Coordinate) (string, string, error) {
	var ps []Provider
	if s.mgr != nil {
		ps = s.mgr.Healthy()
	}
	if len(ps) == 0 {
		return "", "", fmt.Errorf("%w: no healthy provider", ErrGeocodeFailed)
	}
	var lastErr error
	for _, p := range ps {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}
		t0 := time.Now()
		metrics.ProviderRequestsTotal.WithLabelValues(p.Name()).Inc()
		addr, err := p.Reverse(ctx, c)
		metrics.ProviderDurationMs.WithLabelValues(p.Name()).Observe(float64(time.Since(t0).Milliseconds()))
		addr = strings.TrimSpace(addr)
		if err == nil && addr == "" {
			err = errNoResult
		}
		if err != nil {
			metrics.ProviderFailTotal.WithLabelValues(p.Name()).Inc()
			s.log.Debug("geocode_provider_failed", "name", p.Name(), "err", err)
			lastErr = err
			continue
		}
		s.log.Debug("geocode_provider_hit", "name", p.Name(), "lat", c.Latitude, "lon", c.Longitude)
		return addr, p.Name(), nil
	}
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	return "", "", fmt.Errorf("%w: %w", ErrGeocodeFailed, lastErr)
}
