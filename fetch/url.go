package fetch

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"
)

// ErrBlockedURL is returned for source URLs that fail validation.
var ErrBlockedURL = errors.New("source URL not allowed")

// Reserved ranges not covered by the net.IP helpers.
var (
	cgnat    = mustCIDR("100.64.0.0/10")
	v6unique = mustCIDR("fc00::/7")
	v6link   = mustCIDR("fe80::/10")
)

func mustCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic("invalid CIDR " + s + ": " + err.Error())
	}
	return n
}

// ValidateURL requires HTTPS and rejects localhost, private addresses and
// local domains.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBlockedURL, err)
	}
	if parsed.Scheme != "https" {
		return fmt.Errorf("%w: only HTTPS URLs are allowed", ErrBlockedURL)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrBlockedURL)
	}
	if host == "localhost" {
		return fmt.Errorf("%w: localhost", ErrBlockedURL)
	}
	if strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("%w: local domain %s", ErrBlockedURL, host)
	}
	if ip := net.ParseIP(host); ip != nil && IsPrivateIP(ip) {
		return fmt.Errorf("%w: private address %s", ErrBlockedURL, host)
	}
	return nil
}

// IsPrivateIP reports whether ip is loopback, private, link-local or in
// another reserved range, including IPv4-mapped IPv6 forms.
func IsPrivateIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	return cgnat.Contains(ip) || v6unique.Contains(ip) || v6link.Contains(ip)
}

// IsLocal reports whether source names a local file rather than a URL.
func IsLocal(source string) bool {
	return strings.HasPrefix(source, "file://") || !strings.Contains(source, "://")
}

// LocalPath returns the file path of a local source.
func LocalPath(source string) string {
	return strings.TrimPrefix(source, "file://")
}

// CacheName returns the cache file name for a URL: its last path segment,
// without query string.
func CacheName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" {
		return "download"
	}
	name := path.Base(parsed.Path)
	if name == "/" || name == "." {
		return "download"
	}
	return name
}
