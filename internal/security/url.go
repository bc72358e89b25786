// Package security screens the external inputs mockbird acts on.
// Reference URLs come straight from users, so every fetch target is
// checked against private networks and cloud metadata endpoints before
// a request leaves the process, and workspace file paths are confined
// to their export directory.
package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

const (
	fetchTimeout = 15 * time.Second
	maxRedirects = 10
)

var metadataAddr = netip.MustParseAddr("169.254.169.254")

// URL validates fetch targets to prevent server-side request forgery.
//
// Blocked targets: loopback, RFC 1918 and IPv6 private ranges,
// link-local addresses (including the cloud metadata endpoint), the
// unspecified address, and a short list of known-dangerous hostnames.
// Validate performs static checks only; the client returned by Client
// also verifies every address DNS resolution produces, which closes
// the rebinding hole static checks leave open.
type URL struct {
	allowedSchemes map[string]struct{}
	blockedHosts   map[string]struct{}
	client         *http.Client
}

// NewURL creates a validator with the default scheme and host policy.
func NewURL() *URL {
	v := &URL{
		allowedSchemes: map[string]struct{}{
			"http":  {},
			"https": {},
		},
		blockedHosts: map[string]struct{}{
			"localhost":                {},
			"metadata.google.internal": {},
			"metadata.gce.internal":    {},
			"metadata.internal":        {},
		},
	}
	v.client = &http.Client{
		Timeout: fetchTimeout,
		Transport: &http.Transport{
			DialContext:         v.dialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		CheckRedirect: v.checkRedirect,
	}
	return v
}

// Validate checks whether a URL is safe to fetch. Hostnames that need
// DNS resolution pass static validation; the resolved addresses are
// checked again at dial time.
func (v *URL) Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if _, ok := v.allowedSchemes[strings.ToLower(u.Scheme)]; !ok {
		return fmt.Errorf("unsupported scheme %q (allowed: http, https)", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("missing hostname")
	}

	if _, blocked := v.blockedHosts[strings.ToLower(host)]; blocked {
		return fmt.Errorf("blocked host %q", host)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		return checkAddr(addr)
	}
	return nil
}

// Client returns the pooled HTTP client that enforces this policy on
// every dial and redirect.
func (v *URL) Client() *http.Client {
	return v.client
}

// dialContext resolves the target itself and refuses to connect to any
// address the policy blocks.
func (v *URL) dialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		host, port = address, ""
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if err := checkAddr(addr); err != nil {
			return nil, fmt.Errorf("refusing to dial %s: %w", address, err)
		}
		return (&net.Dialer{}).DialContext(ctx, network, address)
	}

	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}
	for _, addr := range addrs {
		if err := checkAddr(addr); err != nil {
			return nil, fmt.Errorf("refusing to dial %s (resolves to %s): %w", host, addr, err)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no addresses for %s", host)
	}

	// Dial the address that was just checked rather than letting the
	// dialer resolve a second time.
	target := addrs[0].String()
	if port != "" {
		target = net.JoinHostPort(target, port)
	}
	return (&net.Dialer{}).DialContext(ctx, network, target)
}

// checkRedirect re-validates every hop and caps the chain length.
func (v *URL) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if err := v.Validate(req.URL.String()); err != nil {
		return fmt.Errorf("unsafe redirect: %w", err)
	}
	return nil
}

// checkAddr rejects addresses inside ranges the policy blocks.
func checkAddr(addr netip.Addr) error {
	addr = addr.Unmap()

	switch {
	case addr == metadataAddr:
		return fmt.Errorf("cloud metadata endpoint %s not allowed", addr)
	case addr.IsLoopback():
		return fmt.Errorf("loopback address %s not allowed", addr)
	case addr.IsPrivate():
		return fmt.Errorf("private address %s not allowed", addr)
	case addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return fmt.Errorf("link-local address %s not allowed", addr)
	case addr.IsUnspecified():
		return fmt.Errorf("unspecified address %s not allowed", addr)
	}
	return nil
}
