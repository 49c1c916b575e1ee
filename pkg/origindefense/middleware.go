// Package origindefense is a standalone IP/CIDR allow-list middleware for
// the optional control-plane HTTP surface (§9.6). Deployed in front of the
// job-submission API so that only operator-approved addresses can enqueue
// clustering runs; kept free of this module's own internal packages so it
// can be lifted into another project unmodified.
package origindefense

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
)

// Middleware enforces an IP/CIDR allow-list. With ORIGIN_DEFENSE_ENABLE
// unset, Wrap returns its argument unchanged, so local development needs
// no configuration at all.
type Middleware struct {
	l            *slog.Logger
	allowIPs     map[string]struct{}
	allowCIDRs   []*net.IPNet
	realIPHeader string
	mu           sync.RWMutex
}

// NewFromEnv builds a Middleware from:
//
//	ORIGIN_DEFENSE_ENABLE=true            enable enforcement
//	ORIGIN_ALLOW_IPS=1.2.3.4,5.6.7.8       allowed single IPs
//	ORIGIN_ALLOW_CIDRS=10.0.0.0/8,...      allowed CIDR blocks (v4/v6)
//	ORIGIN_ALLOW_LOCAL=true               allow 127.0.0.1/::1
//	ORIGIN_REAL_IP_HEADER=X-Forwarded-For header to trust for the real
//	                                       client IP (first entry wins)
func NewFromEnv(l *slog.Logger) *Middleware {
	m := &Middleware{
		l:            l,
		allowIPs:     map[string]struct{}{},
		realIPHeader: strings.TrimSpace(os.Getenv("ORIGIN_REAL_IP_HEADER")),
	}
	if s := os.Getenv("ORIGIN_ALLOW_IPS"); s != "" {
		for _, p := range strings.Split(s, ",") {
			p = strings.TrimSpace(p)
			if ip := net.ParseIP(p); ip != nil {
				m.allowIPs[ip.String()] = struct{}{}
			}
		}
	}
	if s := os.Getenv("ORIGIN_ALLOW_CIDRS"); s != "" {
		for _, c := range strings.Split(s, ",") {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			if _, n, err := net.ParseCIDR(c); err == nil {
				m.allowCIDRs = append(m.allowCIDRs, n)
			}
		}
	}
	if os.Getenv("ORIGIN_ALLOW_LOCAL") == "true" {
		if ip := net.ParseIP("127.0.0.1"); ip != nil {
			m.allowIPs[ip.String()] = struct{}{}
		}
		if ip := net.ParseIP("::1"); ip != nil {
			m.allowIPs[ip.String()] = struct{}{}
		}
	}
	return m
}

// Wrap returns next unchanged when enforcement is disabled, otherwise a
// handler that checks the caller's IP against the allow-list first.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if os.Getenv("ORIGIN_DEFENSE_ENABLE") != "true" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := m.extractIP(r)
		if ip == nil {
			m.l.Debug("origin_defense_block", "reason", "no_ip")
			write403(w)
			return
		}
		if m.allowed(ip) {
			next.ServeHTTP(w, r)
			return
		}
		m.l.Debug("origin_defense_block", "ip", ip.String())
		write403(w)
	})
}

func (m *Middleware) allowed(ip net.IP) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.allowIPs[ip.String()]; ok {
		return true
	}
	for _, n := range m.allowCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (m *Middleware) extractIP(r *http.Request) net.IP {
	if m.realIPHeader != "" {
		if raw := r.Header.Get(m.realIPHeader); raw != "" {
			first := strings.TrimSpace(strings.Split(raw, ",")[0])
			if ip := net.ParseIP(first); ip != nil {
				return ip
			}
		}
	}
	host := r.RemoteAddr
	if strings.Contains(host, ":") {
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
	}
	return net.ParseIP(host)
}

func write403(w http.ResponseWriter) {
	w.Header().Set("content-type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("403 forbidden: source address not in the control-plane allow-list\n"))
}
