// 包 backend：资产列表接口的线上结构与 HTTP 客户端
package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// 文档注释：宽松文本
// 背景：后端 id 既可能是数字也可能是字符串；统一转成文本，null 视为缺失。
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

// 文档注释：宽松经纬度分量
// 背景：坐标可能以数字或数字字符串出现；Set=false 表示缺失或无法解析。
type Degrees struct {
	Value float64
	Set   bool
}

func (d *Degrees) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*d = Degrees{}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// 非法文本按缺失处理，不让单条记录拖垮整批
		return nil
	}
	*d = Degrees{Value: f, Set: true}
	return nil
}

type AssetDescriptor struct {
	ID     FlexString `json:"id"`
	Name   *string    `json:"name"`
	Status string     `json:"status"`
}

type DriverDescriptor struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type LiveLocation struct {
	Latitude  Degrees `json:"latitude"`
	Longitude Degrees `json:"longitude"`
	Status    string  `json:"status"`
}

type Waypoint struct {
	Latitude  Degrees `json:"latitude"`
	Longitude Degrees `json:"longitude"`
	Address   string  `json:"address"`
}

type Booking struct {
	Pickup *Waypoint `json:"pickup"`
	Drop   *Waypoint `json:"drop"`
}

// Record：一条资产记录；Raw 保留原始 JSON 供下游透传
type Record struct {
	Ambulance AssetDescriptor  `json:"ambulance"`
	Driver    DriverDescriptor `json:"driver"`
	Location  *LiveLocation    `json:"location"`
	Booking   *Booking         `json:"booking"`
	Raw       json.RawMessage  `json:"-"`
}

func (r *Record) UnmarshalJSON(b []byte) error {
	type plain Record
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = Record(p)
	r.Raw = append(json.RawMessage(nil), b...)
	return nil
}
