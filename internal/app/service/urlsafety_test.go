package service

import (
	"context"
	"errors"
	"net"
	"testing"
)

func filterWithResolved(ips ...string) *SafetyFilter {
	return &SafetyFilter{
		lookup: func(ctx context.Context, host string) ([]net.IPAddr, error) {
			addrs := make([]net.IPAddr, len(ips))
			for i, ip := range ips {
				addrs[i] = net.IPAddr{IP: net.ParseIP(ip)}
			}
			return addrs, nil
		},
	}
}

func TestSafetyFilter_RejectsSchemesAndMalformedURLs(t *testing.T) {
	f := filterWithResolved("93.184.216.34")

	cases := []string{
		"ftp://example.com/file",
		"file:///etc/passwd",
		"javascript:alert(1)",
		"",
		"http://",
		"://missing-scheme",
	}
	for _, raw := range cases {
		if f.IsSafe(context.Background(), raw) {
			t.Errorf("expected %q to be unsafe", raw)
		}
	}
}

func TestSafetyFilter_RejectsBlockedHosts(t *testing.T) {
	f := filterWithResolved("93.184.216.34")

	cases := []string{
		"http://localhost/admin",
		"http://127.0.0.1:8080/",
		"http://0.0.0.0/",
		"http://metadata.google.internal/computeMetadata/v1/",
		"http://169.254.169.254/latest/meta-data/",
	}
	for _, raw := range cases {
		if f.IsSafe(context.Background(), raw) {
			t.Errorf("expected %q to be blocked", raw)
		}
	}
}

func TestSafetyFilter_RejectsLiteralPrivateIPs(t *testing.T) {
	f := filterWithResolved("93.184.216.34")

	cases := []string{
		"http://10.0.0.5/",
		"http://172.16.1.1/",
		"http://192.168.1.10/deal",
		"http://127.0.0.53/",
		"http://169.254.1.1/",
		"http://[::1]/",
		"http://[fe80::1]/",
	}
	for _, raw := range cases {
		if f.IsSafe(context.Background(), raw) {
			t.Errorf("expected %q to be rejected", raw)
		}
	}
}

func TestSafetyFilter_AcceptsPublicLiteralIP(t *testing.T) {
	f := filterWithResolved("93.184.216.34")
	if !f.IsSafe(context.Background(), "http://93.184.216.34/") {
		t.Error("expected public literal IP to be safe")
	}
}

func TestSafetyFilter_RejectsHostResolvingToPrivateIP(t *testing.T) {
	// One public and one private address; a single bad address taints the host.
	f := filterWithResolved("93.184.216.34", "10.0.0.8")
	if f.IsSafe(context.Background(), "https://rebinder.example.com/") {
		t.Error("expected host resolving to private address to be unsafe")
	}
}

func TestSafetyFilter_AcceptsHostResolvingToPublicIPs(t *testing.T) {
	f := filterWithResolved("93.184.216.34", "2606:2800:220:1:248:1893:25c8:1946")
	if !f.IsSafe(context.Background(), "https://example.com/deal/42") {
		t.Error("expected host resolving to public addresses to be safe")
	}
}

func TestSafetyFilter_ResolutionFailureIsUnsafe(t *testing.T) {
	f := &SafetyFilter{
		lookup: func(ctx context.Context, host string) ([]net.IPAddr, error) {
			return nil, errors.New("no such host")
		},
	}
	if f.IsSafe(context.Background(), "https://gone.example.com/") {
		t.Error("expected resolution failure to be unsafe")
	}
}
