package feedimport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// ErrBlockedAddress is returned for feed URLs that point at loopback,
// private, link-local or otherwise internal addresses, or at hosts outside
// the configured allowlist.
var ErrBlockedAddress = errors.New("feed address not allowed")

const maxRedirects = 5

// sharedAddress is the carrier-grade NAT range, not covered by IsPrivate.
var sharedAddress = netip.MustParsePrefix("100.64.0.0/10")

// guard decides which feed URLs may be fetched.
type guard struct {
	allowPrivate bool
	hosts        []string
}

func (g guard) checkURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrBlockedAddress, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrBlockedAddress)
	}
	if !g.hostAllowed(host) {
		return nil, fmt.Errorf("%w: host %s is not in feeds.allowed_hosts", ErrBlockedAddress, host)
	}
	if addr, err := netip.ParseAddr(host); err == nil && !g.addrAllowed(addr) {
		return nil, fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return u, nil
}

// hostAllowed matches host against the allowlist exactly or as a
// subdomain. An empty allowlist admits every host.
func (g guard) hostAllowed(host string) bool {
	if len(g.hosts) == 0 {
		return true
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, h := range g.hosts {
		h = strings.ToLower(strings.TrimPrefix(h, "."))
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (g guard) addrAllowed(addr netip.Addr) bool {
	if g.allowPrivate {
		return true
	}
	addr = addr.Unmap()
	switch {
	case addr.IsLoopback(), addr.IsPrivate(), addr.IsUnspecified(),
		addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(), addr.IsMulticast(),
		sharedAddress.Contains(addr):
		return false
	}
	return true
}

// control runs after DNS resolution, right before connect, so hostnames
// that resolve to internal addresses and redirects to them are refused.
func (g guard) control(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || !g.addrAllowed(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

// client returns the HTTP client the feed parser fetches with.
func (g guard) client(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: g.control}
	return &http.Client{
		Timeout: timeout,
		// No Proxy: a proxy would connect on our behalf and skip control.
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
			MaxIdleConns:          10,
			IdleConnTimeout:       30 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			_, err := g.checkURL(req.URL.String())
			return err
		},
	}
}
