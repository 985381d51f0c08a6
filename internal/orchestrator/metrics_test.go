package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildforever/farmctl/internal/config"
	"github.com/buildforever/farmctl/internal/fault"
)

// The counters are process-wide, so the test measures deltas and must not
// run in parallel with the other deployment tests.
func TestDeploy_IncrementsCounters(t *testing.T) {
	containerCounter := resourcesCreatedTotal.WithLabelValues(string(config.KindContainer))
	vmCounter := resourcesCreatedTotal.WithLabelValues(string(config.KindVirtualMachine))
	mediaFailures := resourceFailuresTotal.WithLabelValues(string(fault.MediaUnavailable))

	runsBefore := testutil.ToFloat64(deploymentsTotal)
	containersBefore := testutil.ToFloat64(containerCounter)
	vmsBefore := testutil.ToFloat64(vmCounter)
	mediaFailuresBefore := testutil.ToFloat64(mediaFailures)

	tc := &testClient{}
	resolver := &fakeResolver{
		unattendedErr: fault.Media(errors.New("no installer URL"), "https://example.com/download", "windows-11.iso"),
	}
	o := newTestOrchestrator(tc, resolver, nil)

	report, err := o.Deploy(context.Background(), config.DeploymentRequest{
		Agents: []config.AgentSpec{
			{OS: config.OSDebian},
			{OS: config.OSWindows11},
		},
		StoragePool: "local",
		Network:     config.NetworkConfig{Mode: config.NetworkDHCP, Bridge: "vmbr0"},
	})
	require.NoError(t, err)
	o.WaitBackground()

	assert.True(t, report.Success)
	assert.Equal(t, runsBefore+1, testutil.ToFloat64(deploymentsTotal))
	assert.Equal(t, containersBefore+1, testutil.ToFloat64(containerCounter))
	assert.Equal(t, vmsBefore+1, testutil.ToFloat64(vmCounter))
	assert.Equal(t, mediaFailuresBefore+1, testutil.ToFloat64(mediaFailures))
}
