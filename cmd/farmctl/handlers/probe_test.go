package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildforever/farmctl/internal/fault"
	"github.com/buildforever/farmctl/internal/probe"
)

type fakeProber struct {
	res probe.Result
	err error

	host string
	port int
}

func (f *fakeProber) Endpoint(ctx context.Context, host string, port int) (probe.Result, error) {
	f.host, f.port = host, port
	return f.res, f.err
}

func withProber(t *testing.T, p *fakeProber) {
	t.Helper()
	orig := newProber
	newProber = func() EndpointProber { return p }
	t.Cleanup(func() { newProber = orig })
}

func TestProbe_Reachable(t *testing.T) {
	p := &fakeProber{res: probe.Result{Reachable: true, Version: "8.1.4"}}
	withProber(t, p)

	require.NoError(t, Probe(context.Background(), "pve.lab", 8006))
	assert.Equal(t, "pve.lab", p.host)
	assert.Equal(t, 8006, p.port)
}

func TestProbe_AuthRequiredIsStillUp(t *testing.T) {
	p := &fakeProber{res: probe.Result{Reachable: true, AuthRequired: true}}
	withProber(t, p)

	require.NoError(t, Probe(context.Background(), "pve.lab", 8006))
}

func TestProbe_Unreachable(t *testing.T) {
	p := &fakeProber{err: fault.Newf(fault.Connect, "connection refused")}
	withProber(t, p)

	err := Probe(context.Background(), "pve.lab", 8006)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pve.lab:8006")
}
