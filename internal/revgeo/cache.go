package revgeo

import (
	"container/list"
	"sync"
	"time"
)

// 文档注释：带 TTL 的进程内 LRU
// 背景：同一台车在短时间内会被反复点选，量化后的坐标键命中率很高；离线编排器与地址服务共用这一实现。
// 约束：过期条目在读取时惰性删除；容量不足 1 时按 1 处理。
type LRU[V any] struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	order *list.List
	items map[string]*list.Element
	now   func() time.Time
}

type entry[V any] struct {
	key     string
	val     V
	expires time.Time
}

func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[V]{cap: capacity, ttl: ttl, order: list.New(), items: make(map[string]*list.Element), now: time.Now}
}

func (c *LRU[V]) Get(k string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	e, ok := c.items[k]
	if !ok {
		return zero, false
	}
	it := e.Value.(*entry[V])
	if c.ttl > 0 && !c.now().Before(it.expires) {
		c.order.Remove(e)
		delete(c.items, k)
		return zero, false
	}
	c.order.MoveToFront(e)
	return it.val, true
}

func (c *LRU[V]) Set(k string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := c.now().Add(c.ttl)
	if e, ok := c.items[k]; ok {
		it := e.Value.(*entry[V])
		it.val, it.expires = v, exp
		c.order.MoveToFront(e)
		return
	}
	c.items[k] = c.order.PushFront(&entry[V]{key: k, val: v, expires: exp})
	for c.order.Len() > c.cap {
		back := c.order.Back()
		c.order.Remove(back)
		delete(c.items, back.Value.(*entry[V]).key)
	}
}

func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
