package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"asset-tracker/internal/geo"
	"asset-tracker/internal/logger"
)

const amapBase = "https://restapi.amap.com"

// 文档注释：高德逆地理编码响应
// 背景：只解析 status/info/infocode 与 formatted_address；无结果时高德把 formatted_address 返回为空数组。
type regeoResponse struct {
	Status    string `json:"status"`
	Info      string `json:"info"`
	Infocode  string `json:"infocode"`
	Regeocode struct {
		FormattedAddress flexText `json:"formatted_address"`
	} `json:"regeocode"`
}

// flexText：字符串或空数组
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexText(s)
		return nil
	}
	*f = ""
	return nil
}

// 文档注释：高德 Web 服务逆地理提供方
// 参数：key 为后端服务密钥，必填；client 为空时使用 5s 超时的默认客户端；base 仅测试时覆盖。
// 约束：location 参数顺序为 "经度,纬度"；status!="1" 视为失败并携带 infocode。
type AMapProvider struct {
	key    string
	base   string
	client *http.Client
}

func NewAMapProvider(key string, client *http.Client) *AMapProvider {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &AMapProvider{key: key, base: amapBase, client: client}
}

// WithBase：替换接口地址
func (a *AMapProvider) WithBase(base string) *AMapProvider {
	a.base = base
	return a
}

func (a *AMapProvider) Name() string { return "amap" }

// Heartbeat：不消耗配额，只校验密钥已配置
func (a *AMapProvider) Heartbeat(ctx context.Context) error {
	if a.key == "" {
		return errors.New("missing amap key")
	}
	return ctx.Err()
}

func (a *AMapProvider) Reverse(ctx context.Context, c geo.Coordinate) (string, error) {
	if a.key == "" {
		return "", errors.New("missing amap key")
	}
	q := url.Values{}
	q.Set("key", a.key)
	q.Set("location", strconv.FormatFloat(c.Longitude, 'f', 6, 64)+","+strconv.FormatFloat(c.Latitude, 'f', 6, 64))
	q.Set("extensions", "base")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+"/v3/geocode/regeo?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("amap http %d", resp.StatusCode)
	}
	var r regeoResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		logger.L().Error("amap_decode_error", "err", err)
		return "", err
	}
	logger.L().Debug("amap_regeo_resp", "status", r.Status, "infocode", r.Infocode)
	if r.Status != "1" {
		return "", fmt.Errorf("amap error %s: %s", r.Infocode, r.Info)
	}
	if r.Regeocode.FormattedAddress == "" {
		return "", errNoResult
	}
	return string(r.Regeocode.FormattedAddress), nil
}
