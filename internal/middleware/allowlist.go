package middleware

import (
	"net"
	"net/http"
	"strings"

	"asset-tracker/internal/config"
	"asset-tracker/internal/logger"
)

// 文档注释：来源 IP/CIDR 白名单
// 背景：服务只面向院内调度网段与指定调试机，其余来源统一 403。
// 约束：支持 IPv4/IPv6；配置了 RealIPHeader 时取其首个有效 IP，否则以 RemoteAddr 为准。
type Allowlist struct {
	ips          map[string]struct{}
	cidrs        []*net.IPNet
	realIPHeader string
}

func NewAllowlist(c config.OriginConfig) *Allowlist {
	a := &Allowlist{ips: map[string]struct{}{}, realIPHeader: strings.TrimSpace(c.RealIPHeader)}
	for _, s := range config.SplitList(c.AllowIPs) {
		if ip := net.ParseIP(s); ip != nil {
			a.ips[ip.String()] = struct{}{}
		} else {
			logger.L().Warn("allowlist_bad_ip", "value", s)
		}
	}
	for _, s := range config.SplitList(c.AllowCIDRs) {
		if _, n, err := net.ParseCIDR(s); err == nil {
			a.cidrs = append(a.cidrs, n)
		} else {
			logger.L().Warn("allowlist_bad_cidr", "value", s, "err", err)
		}
	}
	if c.AllowLocal {
		a.ips[net.IPv4(127, 0, 0, 1).String()] = struct{}{}
		a.ips[net.IPv6loopback.String()] = struct{}{}
	}
	return a
}

func (a *Allowlist) Allowed(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if _, ok := a.ips[ip.String()]; ok {
		return true
	}
	for _, n := range a.cidrs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (a *Allowlist) clientIP(r *http.Request) net.IP {
	if a.realIPHeader != "" {
		if raw := r.Header.Get(a.realIPHeader); raw != "" {
			first, _, _ := strings.Cut(raw, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip
			}
		}
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}

func (a *Allowlist) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := a.clientIP(r)
		if !a.Allowed(ip) {
			logger.L().Debug("allowlist_block", "remote", r.RemoteAddr)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
