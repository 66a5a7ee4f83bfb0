package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"asset-tracker/internal/geo"
)

// 文档注释：外部 HTTP 提供方
// 背景：第三方或自建地址服务通过简单契约接入，不必改动主服务。
// 约束：约定 GET /health 与 GET /reverse?lat=&lon=，后者返回 {"address": "..."}；超时默认 3s。
type HTTPProvider struct {
	name     string
	endpoint string
	client   *http.Client
}

func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	if name == "" {
		name = "http"
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPProvider{name: name, endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

func (h *HTTPProvider) Name() string { return h.name }

func (h *HTTPProvider) Heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

func (h *HTTPProvider) Reverse(ctx context.Context, c geo.Coordinate) (string, error) {
	q := url.Values{}
	q.Set("lat", geo.FormatDegrees(c.Latitude))
	q.Set("lon", geo.FormatDegrees(c.Longitude))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse status %d", resp.StatusCode)
	}
	var m struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return "", err
	}
	if m.Address == "" {
		return "", errNoResult
	}
	return m.Address, nil
}
