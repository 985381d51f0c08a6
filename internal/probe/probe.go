// Package probe checks whether a control-plane API answers at a given
// endpoint before any credentials are committed to it.
package probe

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/buildforever/farmctl/internal/fault"
)

// Result describes one probe attempt.
type Result struct {
	// Reachable means the endpoint answered with an API-shaped response.
	Reachable bool
	// AuthRequired means the endpoint answered but rejected the anonymous
	// request, which still proves a control plane is listening.
	AuthRequired bool
	// InsecureTLS means the endpoint only answered once certificate
	// verification was disabled.
	InsecureTLS bool
	// Version is the reported API version when the endpoint exposes it.
	Version string
}

// Prober checks control-plane endpoints over HTTPS.
type Prober struct {
	timeout time.Duration

	// newClient is swapped in tests to point at a local server.
	newClient func(insecure bool) *resty.Client
}

// New creates a Prober with sane connection timeouts.
func New() *Prober {
	p := &Prober{timeout: 10 * time.Second}
	p.newClient = p.defaultClient
	return p
}

func (p *Prober) defaultClient(insecure bool) *resty.Client {
	c := resty.New().SetTimeout(p.timeout)
	if insecure {
		c.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	return c
}

// Endpoint probes host:port for a control-plane API. A certificate failure
// is retried once without verification so self-signed installations are
// still detected; the result records that the retry was needed.
func (p *Prober) Endpoint(ctx context.Context, host string, port int) (Result, error) {
	url := fmt.Sprintf("https://%s:%d/api2/json/version", host, port)

	res, err := p.attempt(ctx, url, false)
	if err == nil {
		return res, nil
	}
	if !isTLSError(err) {
		return Result{}, fault.New(fault.Connect, fmt.Errorf("probe %s: %w", url, err))
	}

	res, err = p.attempt(ctx, url, true)
	if err != nil {
		return Result{}, fault.New(fault.Connect, fmt.Errorf("probe %s: %w", url, err))
	}
	res.InsecureTLS = true
	return res, nil
}

func (p *Prober) attempt(ctx context.Context, url string, insecure bool) (Result, error) {
	resp, err := p.newClient(insecure).R().SetContext(ctx).Get(url)
	if err != nil {
		return Result{}, err
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return Result{Reachable: true, Version: versionFromBody(resp.Body())}, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Reachable: true, AuthRequired: true}, nil
	default:
		return Result{}, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
}

func isTLSError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "tls:") ||
		strings.Contains(msg, "x509:") ||
		strings.Contains(msg, "certificate")
}

// versionFromBody pulls the version field out of the envelope. A missing or
// malformed body is not an error, the probe already succeeded.
func versionFromBody(body []byte) string {
	var envelope struct {
		Data struct {
			Version string `json:"version"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Data.Version
}
