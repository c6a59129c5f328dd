package service

import (
	"context"
	"net"
	"net/url"
)

// Hostnames that are never probed regardless of what they resolve to.
var blockedHosts = map[string]struct{}{
	"localhost":                {},
	"127.0.0.1":                {},
	"0.0.0.0":                  {},
	"metadata.google.internal": {},
	"169.254.169.254":          {},
}

// SafetyFilter decides whether an outbound URL is safe to fetch. It rejects
// anything that points, directly or through DNS, at loopback, private,
// link-local or otherwise non-routable addresses.
type SafetyFilter struct {
	lookup func(ctx context.Context, host string) ([]net.IPAddr, error)
}

// NewSafetyFilter returns a filter backed by the default DNS resolver.
func NewSafetyFilter() *SafetyFilter {
	return &SafetyFilter{
		lookup: net.DefaultResolver.LookupIPAddr,
	}
}

// IsSafe reports whether the URL may be fetched. DNS resolution failure is
// treated as unsafe.
func (f *SafetyFilter) IsSafe(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return false
	}

	if _, blocked := blockedHosts[hostname]; blocked {
		return false
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return isRoutableIP(ip)
	}

	addrs, err := f.lookup(ctx, hostname)
	if err != nil || len(addrs) == 0 {
		return false
	}
	for _, addr := range addrs {
		if !isRoutableIP(addr.IP) {
			return false
		}
	}
	return true
}

func isRoutableIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return false
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return false
	}
	if ip.IsMulticast() || ip.IsInterfaceLocalMulticast() {
		return false
	}
	return true
}
