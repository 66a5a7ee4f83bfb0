package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"asset-tracker/internal/logger"
)

var ErrUnexpectedPayload = errors.New("unexpected asset list payload")

// StatusError：非 2xx 响应
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("asset list status %d: %s", e.Code, e.Body)
}

// 文档注释：资产列表客户端（鉴权 GET）
// 背景：令牌由调用方显式传入；响应可能是裸数组或 {"data": [...]} 包装。
// 约束：响应体上限 8MB；错误不做重试，由上层决定是否再次刷新。
type Client struct {
	base string
	path string
	http *http.Client
	log  *slog.Logger
}

const maxBody = 8 << 20

func NewClient(base, path string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	if path == "" {
		path = "/ambulances/live"
	}
	return &Client{base: strings.TrimRight(base, "/"), path: "/" + strings.TrimLeft(path, "/"), http: hc, log: logger.For("backend")}
}

func (c *Client) FetchAssets(ctx context.Context, token string) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+c.path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	t0 := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("asset_fetch_http_error", "err", err)
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}
	c.log.Debug("asset_fetch_resp", "status", resp.StatusCode, "bytes", len(body), "duration_ms", time.Since(t0).Milliseconds())
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: snippet}
	}
	return decodeRecords(body)
}

func decodeRecords(body []byte) ([]Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrUnexpectedPayload
	}
	var out []Record
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decode asset list: %w", err)
		}
	case '{':
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("decode asset envelope: %w", err)
		}
		d := bytes.TrimSpace(env.Data)
		if len(d) == 0 || d[0] != '[' {
			return nil, ErrUnexpectedPayload
		}
		if err := json.Unmarshal(d, &out); err != nil {
			return nil, fmt.Errorf("decode asset list: %w", err)
		}
	default:
		return nil, ErrUnexpectedPayload
	}
	return out, nil
}
