// 包 registry：可追踪资产登记表（拉取、归一化、焦点合并、可渲染过滤）
package registry

import (
	"encoding/json"
	"strings"

	"asset-tracker/internal/geo"
)

// Status：资产状态
type Status int

const (
	StatusIdle Status = iota
	StatusActive
)

func (s Status) String() string {
	if s == StatusActive {
		return "active"
	}
	return "idle"
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	*s = ParseStatus(string(b))
	return nil
}

// 文档注释：状态文本映射
// 背景：后端不同版本对“出车中”的写法不一，统一映射到 Active；其余非空值视为 Idle。
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "busy", "on_trip", "on-trip", "ontrip", "engaged", "dispatched", "en_route", "enroute", "on_duty":
		return StatusActive
	}
	return StatusIdle
}

type Driver struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// 文档注释：归一化后的资产
// 约束：Location 为 nil 的资产保留在登记表中，仅不参与标记渲染；Raw 为后端原始记录或焦点请求。
type Asset struct {
	ID       string          `json:"id"`
	Name     *string         `json:"name"`
	Location *geo.Coordinate `json:"location"`
	Driver   Driver          `json:"driver"`
	Status   Status          `json:"status"`
	Pickup   *string         `json:"pickup"`
	Drop     *string         `json:"drop"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// Renderable：是否进入标记集合
func (a Asset) Renderable() bool { return a.Location != nil }

func strPtr(s string) *string { return &s }
