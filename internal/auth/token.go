// 包 auth：向资产接口提供 Bearer 令牌的能力，取代读取全局会话
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("no access token configured")
	ErrTokenExpired = errors.New("access token expired")
)

// TokenProvider：按需返回当前访问令牌
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// 文档注释：静态令牌
// 背景：令牌由外部安全存储下发，这里只做过期预检，避免携带必然 401 的令牌请求后端。
// 约束：仅在令牌是 JWT 时解析 exp（不校验签名，签名由后端校验）；非 JWT 的不透明令牌原样返回。
type StaticToken struct {
	raw string
	now func() time.Time
}

func NewStaticToken(raw string) *StaticToken {
	return &StaticToken{raw: strings.TrimSpace(raw), now: time.Now}
}

func (s *StaticToken) Token(ctx context.Context) (string, error) {
	if s.raw == "" {
		return "", ErrNoToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.raw, claims); err != nil {
		return s.raw, nil
	}
	exp, err := claims.GetExpirationTime()
	if err == nil && exp != nil && !exp.Time.After(s.now()) {
		return "", ErrTokenExpired
	}
	return s.raw, nil
}
