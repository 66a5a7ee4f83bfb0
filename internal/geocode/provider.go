// 包 geocode：坐标到地址的解析链路（进程内 LRU → Redis → PostgreSQL → 提供方）
package geocode

import (
	"context"
	"errors"

	"asset-tracker/internal/geo"
)

var (
	// ErrGeocodeFailed：所有层级都没有给出地址；对选择流程只表现为空地址
	ErrGeocodeFailed = errors.New("geocode: no address")
	// ErrInvalidCoordinate：输入无法解析或命中零值缺失规则
	ErrInvalidCoordinate = errors.New("geocode: invalid coordinate")
	errNoResult          = errors.New("provider returned no address")
)

// 文档注释：反地理提供方（统一契约）
// 背景：远程接口、外部进程与离线快照都抽象为同构提供方，由 Manager 做心跳与健康筛选。
// 约束：Reverse 无结果时返回错误而非空串；Heartbeat 返回错误即视为不健康。
type Provider interface {
	Name() string
	Reverse(ctx context.Context, c geo.Coordinate) (string, error)
	Heartbeat(ctx context.Context) error
}
