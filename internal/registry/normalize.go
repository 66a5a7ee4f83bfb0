package registry

import (
	"strings"

	"asset-tracker/internal/backend"
	"asset-tracker/internal/geo"
)

func waypointCoord(w *backend.Waypoint) *geo.Coordinate {
	if w == nil || !w.Latitude.Set || !w.Longitude.Set {
		return nil
	}
	return geo.From(w.Latitude.Value, w.Longitude.Value)
}

// 地址优先取显式文本，其次由坐标合成 "<lat>, <lon>"
func waypointLabel(w *backend.Waypoint) *string {
	if w == nil {
		return nil
	}
	if a := strings.TrimSpace(w.Address); a != "" {
		return strPtr(a)
	}
	if c := waypointCoord(w); c != nil {
		return strPtr(c.String())
	}
	return nil
}

// 文档注释：单条记录归一化
// 规则：
// - 坐标：实时位置经纬度均存在且非零时采用；否则退回预约上车点；否则为 nil；
// - 状态：资产自身状态 → 实时位置状态 → Idle；
// - id：后端 id 缺失时用 newID 生成随机 id。
func Normalize(rec backend.Record, newID func() string) Asset {
	a := Asset{
		ID:     strings.TrimSpace(string(rec.Ambulance.ID)),
		Driver: Driver{Name: rec.Driver.Name, Phone: rec.Driver.Phone},
		Raw:    rec.Raw,
	}
	if a.ID == "" {
		a.ID = newID()
	}
	if n := rec.Ambulance.Name; n != nil {
		a.Name = strPtr(*n)
	}
	if l := rec.Location; l != nil && l.Latitude.Set && l.Longitude.Set {
		a.Location = geo.From(l.Latitude.Value, l.Longitude.Value)
	}
	if rec.Booking != nil {
		if a.Location == nil {
			a.Location = waypointCoord(rec.Booking.Pickup)
		}
		a.Pickup = waypointLabel(rec.Booking.Pickup)
		a.Drop = waypointLabel(rec.Booking.Drop)
	}
	switch {
	case strings.TrimSpace(rec.Ambulance.Status) != "":
		a.Status = ParseStatus(rec.Ambulance.Status)
	case rec.Location != nil && strings.TrimSpace(rec.Location.Status) != "":
		a.Status = ParseStatus(rec.Location.Status)
	default:
		a.Status = StatusIdle
	}
	return a
}
