package geocode

import (
	"context"
	"sync"
	"time"

	"asset-tracker/internal/logger"
	"asset-tracker/internal/metrics"
)

type status struct {
	healthy bool
	last    time.Time
	err     string
}

// 文档注释：提供方管理器
// 背景：负责注册、心跳与健康筛选；解析链路按注册顺序依次尝试健康的提供方。
// 约束：心跳在锁外执行，单个慢提供方不会阻塞查询；新注册的提供方默认健康。
type Manager struct {
	mu         sync.RWMutex
	order      []Provider
	st         map[string]status
	hbInterval time.Duration
	hbTimeout  time.Duration
}

func NewManager(interval time.Duration) *Manager {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Manager{st: make(map[string]status), hbInterval: interval, hbTimeout: 3 * time.Second}
}

// Register：同名提供方替换原有位置
func (m *Manager) Register(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	replaced := false
	for i, q := range m.order {
		if q.Name() == p.Name() {
			m.order[i] = p
			replaced = true
		}
	}
	if !replaced {
		m.order = append(m.order, p)
	}
	m.st[p.Name()] = status{healthy: true, last: time.Now()}
	logger.L().Info("geocode_provider_registered", "name", p.Name(), "priority", len(m.order))
}

// Healthy：按注册顺序返回当前健康的提供方
func (m *Manager) Healthy() []Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Provider, 0, len(m.order))
	for _, p := range m.order {
		if m.st[p.Name()].healthy {
			out = append(out, p)
		}
	}
	return out
}

// ProviderStatus：对外展示的健康快照
type ProviderStatus struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

func (m *Manager) Status() []ProviderStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ProviderStatus, 0, len(m.order))
	for _, p := range m.order {
		s := m.st[p.Name()]
		out = append(out, ProviderStatus{Name: p.Name(), Healthy: s.healthy, CheckedAt: s.last, Error: s.err})
	}
	return out
}

// Start：周期心跳，ctx 取消时退出
func (m *Manager) Start(ctx context.Context) {
	t := time.NewTicker(m.hbInterval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.Beat(ctx)
			}
		}
	}()
}

// Beat：立即执行一轮心跳
func (m *Manager) Beat(ctx context.Context) {
	m.mu.RLock()
	ps := append([]Provider(nil), m.order...)
	m.mu.RUnlock()

	for _, p := range ps {
		hctx, cancel := context.WithTimeout(ctx, m.hbTimeout)
		err := p.Heartbeat(hctx)
		cancel()
		s := status{healthy: err == nil, last: time.Now()}
		if err != nil {
			s.err = err.Error()
			logger.L().Debug("geocode_provider_heartbeat_fail", "name", p.Name(), "err", err)
			metrics.ProviderHeartbeatTotal.WithLabelValues(p.Name(), "fail").Inc()
		} else {
			logger.L().Debug("geocode_provider_heartbeat_ok", "name", p.Name())
			metrics.ProviderHeartbeatTotal.WithLabelValues(p.Name(), "ok").Inc()
		}
		m.mu.Lock()
		if _, ok := m.st[p.Name()]; ok {
			m.st[p.Name()] = s
		}
		m.mu.Unlock()
	}
}
