package validator

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
)

// BlockedNetworks contains IP ranges that job sources may not point at
var BlockedNetworks = []string{
	"0.0.0.0/8",      // "This" network
	"127.0.0.0/8",    // Localhost
	"10.0.0.0/8",     // Private network
	"172.16.0.0/12",  // Private network
	"192.168.0.0/16", // Private network
	"169.254.0.0/16", // Link-local (cloud metadata services)
	"::1/128",        // IPv6 localhost
	"fc00::/7",       // IPv6 unique local
	"fe80::/10",      // IPv6 link-local
}

var blockedPrefixes = mustPrefixes(BlockedNetworks)

func mustPrefixes(cidrs []string) []netip.Prefix {
	out := make([]netip.Prefix, len(cidrs))
	for i, c := range cidrs {
		out[i] = netip.MustParsePrefix(c)
	}
	return out
}

// Resolver looks up host addresses. *net.Resolver implements it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// IsBlockedIP checks if an IP address is in a blocked network range
func IsBlockedIP(ipStr string) bool {
	addr, err := netip.ParseAddr(ipStr)
	if err != nil {
		return false
	}
	_, blocked := blockedBy(addr)
	return blocked
}

func blockedBy(addr netip.Addr) (netip.Prefix, bool) {
	addr = addr.Unmap()
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return p, true
		}
	}
	return netip.Prefix{}, false
}

// ValidateHTTPURI validates an HTTP/HTTPS URI for SSRF prevention using the
// system resolver.
func ValidateHTTPURI(uri string) error {
	return CheckHTTPURI(context.Background(), net.DefaultResolver, uri)
}

// CheckHTTPURI rejects http(s) URIs whose host is, or resolves to, a blocked
// address.
func CheckHTTPURI(ctx context.Context, resolver Resolver, uri string) error {
	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid URI: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("expected http or https scheme")
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return fmt.Errorf("URI has no host")
	}

	var addrs []netip.Addr
	if addr, err := netip.ParseAddr(hostname); err == nil {
		addrs = []netip.Addr{addr}
	} else {
		ips, err := resolver.LookupIPAddr(ctx, hostname)
		if err != nil {
			return fmt.Errorf("failed to resolve hostname: %w", err)
		}
		for _, ip := range ips {
			if addr, ok := netip.AddrFromSlice(ip.IP); ok {
				addrs = append(addrs, addr)
			}
		}
	}

	for _, addr := range addrs {
		if prefix, blocked := blockedBy(addr); blocked {
			return fmt.Errorf("access denied: %s resolves to %s (%s)", hostname, addr.Unmap(), blockReason(prefix))
		}
	}
	return nil
}

// blockReason returns a human-readable reason for a blocked range
func blockReason(p netip.Prefix) string {
	switch p.String() {
	case "127.0.0.0/8", "::1/128", "0.0.0.0/8":
		return "localhost access not allowed"
	case "169.254.0.0/16", "fe80::/10":
		return "link-local access not allowed"
	default:
		return "private network access not allowed"
	}
}
