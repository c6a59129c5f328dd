package service

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"
)

// OutcomeKind classifies a single probe attempt.
type OutcomeKind int

const (
	// OutcomeAccessible means the URL returned a live page.
	OutcomeAccessible OutcomeKind = iota
	// OutcomeHardNotFound is an HTTP 404 or 410, a definitive dead link.
	OutcomeHardNotFound
	// OutcomeSoftNotFound is a success status whose body reads "not found".
	OutcomeSoftNotFound
	// OutcomeHTTPError is any other >=400 status.
	OutcomeHTTPError
	// OutcomeTimeout means the request exceeded the probe deadline.
	OutcomeTimeout
	// OutcomeBlocked means the safety filter refused to fetch the URL.
	OutcomeBlocked
	// OutcomeNetworkError covers DNS, connect and transport failures.
	OutcomeNetworkError
)

// ProbeOutcome is the structured result of probing one URL.
type ProbeOutcome struct {
	URL        string
	Kind       OutcomeKind
	StatusCode int
	Err        string
}

// Accessible reports whether the probe found a live page.
func (o ProbeOutcome) Accessible() bool {
	return o.Kind == OutcomeAccessible
}

// Definitive reports whether the outcome unambiguously marks the link dead.
// Only these outcomes remove a deal without a grace period.
func (o ProbeOutcome) Definitive() bool {
	return o.Kind == OutcomeHardNotFound || o.Kind == OutcomeSoftNotFound
}

// Reason returns a short machine-readable tag for logs and audit events.
func (o ProbeOutcome) Reason() string {
	switch o.Kind {
	case OutcomeAccessible:
		return "accessible"
	case OutcomeHardNotFound:
		return "hard_404"
	case OutcomeSoftNotFound:
		return "soft_404_detected"
	case OutcomeHTTPError:
		return "http_error"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeBlocked:
		return "blocked_url"
	default:
		return "network_error"
	}
}

const (
	probeUserAgent = "Mozilla/5.0 (compatible; DealSphere URL Checker/1.0)"
	probeAccept    = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	// Only the head of the body is scanned for soft-404 phrases.
	bodySnippetLimit = 5000

	maxRedirects = 10
)

var errBlockedRedirect = errors.New("redirect target blocked by safety filter")

// URLSafety guards outbound fetches; the production implementation is
// *SafetyFilter.
type URLSafety interface {
	IsSafe(ctx context.Context, rawURL string) bool
}

// Prober issues bounded-timeout GET requests and classifies the result.
// One Prober (and its connection pool) is shared across a batch of probes.
type Prober struct {
	client *http.Client
	safety URLSafety
}

// NewProber builds a prober with a shared transport sized for concurrent
// batch probing. Redirect hops are re-checked against the safety filter so a
// public URL cannot bounce the prober into a private network.
func NewProber(safety URLSafety, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	p := &Prober{safety: safety}
	p.client = &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.New("too many redirects")
			}
			if !safety.IsSafe(req.Context(), req.URL.String()) {
				return errBlockedRedirect
			}
			return nil
		},
	}
	return p
}

// Probe checks a single URL. It never returns an error: every failure mode
// maps onto an outcome kind so callers can apply policy with one switch.
func (p *Prober) Probe(ctx context.Context, rawURL string) ProbeOutcome {
	if !p.safety.IsSafe(ctx, rawURL) {
		return ProbeOutcome{URL: rawURL, Kind: OutcomeBlocked, Err: "blocked_url"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ProbeOutcome{URL: rawURL, Kind: OutcomeNetworkError, Err: err.Error()}
	}
	req.Header.Set("User-Agent", probeUserAgent)
	req.Header.Set("Accept", probeAccept)

	resp, err := p.client.Do(req)
	if err != nil {
		return ProbeOutcome{URL: rawURL, Kind: classifyTransportError(err), Err: err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ProbeOutcome{URL: rawURL, Kind: OutcomeHardNotFound, StatusCode: resp.StatusCode}
	case resp.StatusCode >= 400:
		return ProbeOutcome{URL: rawURL, Kind: OutcomeHTTPError, StatusCode: resp.StatusCode}
	}

	snippet, err := io.ReadAll(io.LimitReader(resp.Body, bodySnippetLimit))
	if err != nil {
		return ProbeOutcome{URL: rawURL, Kind: classifyTransportError(err), StatusCode: resp.StatusCode, Err: err.Error()}
	}

	if containsSoft404(string(snippet)) {
		return ProbeOutcome{URL: rawURL, Kind: OutcomeSoftNotFound, StatusCode: resp.StatusCode, Err: "soft_404_detected"}
	}

	return ProbeOutcome{URL: rawURL, Kind: OutcomeAccessible, StatusCode: resp.StatusCode}
}

func classifyTransportError(err error) OutcomeKind {
	if errors.Is(err, errBlockedRedirect) {
		return OutcomeBlocked
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return OutcomeTimeout
	}
	return OutcomeNetworkError
}
