package registry

import (
	"encoding/json"
	"net/url"
	"strings"

	"asset-tracker/internal/geo"
)

// FocusRequest：外部“聚焦此资产”请求（深链参数）
type FocusRequest struct {
	ID     string  `json:"id"`
	Name   *string `json:"name,omitempty"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Pickup *string `json:"pickup,omitempty"`
	Drop   *string `json:"drop,omitempty"`
}

func optional(v url.Values, k string) *string {
	s := strings.TrimSpace(v.Get(k))
	if s == "" {
		return nil
	}
	return &s
}

// 文档注释：从导航参数解析焦点请求
// 约束：markId、markLat、markLon 任一缺失或坐标无法解析时视为没有焦点请求。
func ParseFocus(v url.Values) (FocusRequest, bool) {
	id := strings.TrimSpace(v.Get("markId"))
	lat, okLat := geo.ParseDegrees(strings.TrimSpace(v.Get("markLat")))
	lon, okLon := geo.ParseDegrees(strings.TrimSpace(v.Get("markLon")))
	if id == "" || !okLat || !okLon {
		return FocusRequest{}, false
	}
	return FocusRequest{
		ID:     id,
		Name:   optional(v, "name"),
		Lat:    lat,
		Lon:    lon,
		Pickup: optional(v, "pickup"),
		Drop:   optional(v, "drop"),
	}, true
}

// Asset：焦点请求对应的资产，状态固定为 Active
func (f FocusRequest) Asset() Asset {
	raw, _ := json.Marshal(f)
	return Asset{
		ID:       f.ID,
		Name:     f.Name,
		Location: geo.From(f.Lat, f.Lon),
		Status:   StatusActive,
		Pickup:   f.Pickup,
		Drop:     f.Drop,
		Raw:      raw,
	}
}
