// Package netx builds the outbound HTTP clients shared by the Telegram
// transport and the scraping extractors.
package netx

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	xproxy "golang.org/x/net/proxy"
)

const (
	defaultTimeout       = 60 * time.Second
	defaultHeaderTimeout = 30 * time.Second
	defaultRetryMax      = 2
)

// Config controls proxying. An empty ProxyURL means direct connections.
type Config struct {
	ProxyURL  string   // socks5://, socks5h://, http:// or https://
	NoProxy   []string // hosts, domain suffixes or CIDRs that bypass the proxy
	// Timeout bounds a whole exchange; 0 means 60s, negative means no limit.
	Timeout time.Duration
	// HeaderTimeout bounds the wait for response headers; 0 means 30s.
	HeaderTimeout time.Duration
	UserAgent     string // applied when a request has none
	RetryMax      int    // retries of idempotent requests after transport errors
}

// NewHTTPClient returns a client honouring cfg.
func NewHTTPClient(cfg Config) (*http.Client, error) {
	headerTimeout := cfg.HeaderTimeout
	if headerTimeout <= 0 {
		headerTimeout = defaultHeaderTimeout
	}
	baseDialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	base := &http.Transport{
		ForceAttemptHTTP2:     true,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
		DialContext:           baseDialer.DialContext,
	}

	if p := strings.TrimSpace(cfg.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		switch u.Scheme {
		case "socks5", "socks5h":
			var auth *xproxy.Auth
			if u.User != nil {
				pw, _ := u.User.Password()
				auth = &xproxy.Auth{User: u.User.Username(), Password: pw}
			}
			socks, err := xproxy.SOCKS5("tcp", u.Host, auth, baseDialer)
			if err != nil {
				return nil, fmt.Errorf("socks5 dialer: %w", err)
			}
			noProxy := cfg.NoProxy
			base.DialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
				host, _, _ := net.SplitHostPort(address)
				if HostBypassesProxy(host, noProxy) {
					return baseDialer.DialContext(ctx, network, address)
				}
				if cd, ok := socks.(xproxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, address)
				}
				return socks.Dial(network, address)
			}
		case "http", "https":
			noProxy := cfg.NoProxy
			base.Proxy = func(r *http.Request) (*url.URL, error) {
				if HostBypassesProxy(r.URL.Hostname(), noProxy) {
					return nil, nil
				}
				return u, nil
			}
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
	}

	timeout := cfg.Timeout
	switch {
	case timeout == 0:
		timeout = defaultTimeout
	case timeout < 0:
		timeout = 0
	}
	retries := cfg.RetryMax
	if retries < 0 {
		retries = 0
	}
	return &http.Client{
		Transport: &Transport{Base: base, UserAgent: cfg.UserAgent, RetryMax: retries},
		Timeout:   timeout,
	}, nil
}

// HostBypassesProxy reports whether host is local, private or listed in noProxy.
func HostBypassesProxy(host string, noProxy []string) bool {
	host = strings.ToLower(host)
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	if ip != nil && (ip.IsLoopback() || ip.IsPrivate()) {
		return true
	}
	for _, token := range noProxy {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		if host == token || strings.HasSuffix(host, "."+token) {
			return true
		}
		if ip != nil {
			if _, cidr, err := net.ParseCIDR(token); err == nil && cidr.Contains(ip) {
				return true
			}
		}
	}
	return false
}

// Transport sets a default User-Agent and retries idempotent requests that
// failed before any response arrived.
type Transport struct {
	Base      http.RoundTripper
	UserAgent string
	RetryMax  int
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}
	max := t.RetryMax
	if !(req.Method == http.MethodGet || req.Method == http.MethodHead) || req.Body != nil {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		r := req.Clone(req.Context())
		if t.UserAgent != "" && r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", t.UserAgent)
		}
		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}
