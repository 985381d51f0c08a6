package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildforever/farmctl/internal/builder"
	"github.com/buildforever/farmctl/internal/config"
	"github.com/buildforever/farmctl/internal/fault"
	"github.com/buildforever/farmctl/internal/media"
	"github.com/buildforever/farmctl/internal/proxmox"
	"github.com/buildforever/farmctl/internal/remote"
	"github.com/buildforever/farmctl/internal/scripts"
)

// fakeResolver counts calls per resolution path.
type fakeResolver struct {
	mu sync.Mutex

	mediaCalls      int
	templateCalls   int
	unattendedCalls int
	answerCalls     int

	mediaErr      error
	unattendedErr error
}

func (f *fakeResolver) EnsureMedia(ctx context.Context, node string, os config.OS) (media.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mediaCalls++
	if f.mediaErr != nil {
		return media.Media{}, f.mediaErr
	}
	return media.Media{VolID: "local:iso/" + media.ISOFilename(os)}, nil
}

func (f *fakeResolver) EnsureContainerTemplate(ctx context.Context, node string, os config.OS) (media.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templateCalls++
	return media.Media{VolID: "local:vztmpl/" + os.ContainerTemplate()}, nil
}

func (f *fakeResolver) EnsureUnattendedISO(ctx context.Context, node string, os config.OS, params scripts.UnattendParams, setupComplete string) (media.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unattendedCalls++
	if f.unattendedErr != nil {
		return media.Media{}, f.unattendedErr
	}
	return media.Media{VolID: "local:iso/" + media.UnattendedISOFilename(os)}, nil
}

func (f *fakeResolver) EnsureAnswerISO(ctx context.Context, node string, os config.OS, params scripts.UnattendParams) (media.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answerCalls++
	return media.Media{VolID: "local:iso/" + media.AnswerISOFilename(os)}, nil
}

// testClient is a happy-path control plane that records create calls.
type testClient struct {
	mu sync.Mutex

	containerParams []map[string]string
	vmParams        []map[string]string
	started         []int

	failContainerNamed string
}

func (c *testClient) client() *proxmox.MockClient {
	return &proxmox.MockClient{
		ListNodesFunc: func(ctx context.Context) ([]proxmox.Node, error) {
			return []proxmox.Node{{Name: "pve1", Status: "online"}}, nil
		},
		ListVMIDsFunc: func(ctx context.Context) ([]int, error) {
			return []int{100, 101}, nil
		},
		CreateContainerFunc: func(ctx context.Context, node string, params map[string]string) (string, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.failContainerNamed != "" && params["hostname"] == c.failContainerNamed {
				return "", fault.Newf(fault.TaskFailure, "container creation refused")
			}
			c.containerParams = append(c.containerParams, params)
			return "UPID:pve1:ct:create", nil
		},
		CreateVMFunc: func(ctx context.Context, node string, params map[string]string) (string, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.vmParams = append(c.vmParams, params)
			return "UPID:pve1:vm:create", nil
		},
		StartContainerFunc: func(ctx context.Context, node string, vmid int) (string, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.started = append(c.started, vmid)
			return "", nil
		},
		StartVMFunc: func(ctx context.Context, node string, vmid int) (string, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.started = append(c.started, vmid)
			return "", nil
		},
		TaskStatusFunc: func(ctx context.Context, node, upid string) (proxmox.TaskStatus, error) {
			return proxmox.TaskStatus{Status: "stopped", ExitStatus: "OK"}, nil
		},
		ContainerIPFunc: func(ctx context.Context, node string, vmid int) (string, error) {
			return fmt.Sprintf("192.168.1.%d", vmid), nil
		},
	}
}

func newTestOrchestrator(tc *testClient, resolver MediaResolver, exec remote.Executor) *Orchestrator {
	if exec == nil {
		exec = &remote.MockExecutor{}
	}
	return New(tc.client(), exec, resolver, NewStatusStore(),
		WithObserver(NopObserver{}),
		WithBuilderOptions(builder.WithStartDelay(0)),
	)
}

func TestDeploy_CIServerFailureDoesNotBlockAgents(t *testing.T) {
	t.Parallel()

	tc := &testClient{failContainerNamed: "ci-server"}
	o := newTestOrchestrator(tc, &fakeResolver{}, nil)

	report, err := o.Deploy(context.Background(), config.DeploymentRequest{
		DeployCIServer: true,
		CIServerDomain: "ci.example.com",
		Agents: []config.AgentSpec{
			{OS: config.OSDebian},
			{OS: config.OSUbuntu},
		},
		StoragePool: "local",
		Network:     config.NetworkConfig{Mode: config.NetworkDHCP, Bridge: "vmbr0"},
	})
	require.NoError(t, err)
	o.WaitBackground()

	assert.True(t, report.Success)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "ci-server")
	require.Len(t, report.CreatedResources, 2)
	for _, res := range report.CreatedResources {
		assert.Contains(t, res.Name, "agent-")
	}
}

func TestDeploy_SelectedISOSkipsUnattendedSynthesis(t *testing.T) {
	t.Parallel()

	tc := &testClient{}
	resolver := &fakeResolver{}
	o := newTestOrchestrator(tc, resolver, nil)

	report, err := o.Deploy(context.Background(), config.DeploymentRequest{
		Agents: []config.AgentSpec{
			{OS: config.OSWindows11, SelectedISO: "local:iso/my-windows.iso"},
		},
		StoragePool: "local",
		Network:     config.NetworkConfig{Mode: config.NetworkDHCP, Bridge: "vmbr0"},
	})
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 0, resolver.unattendedCalls)
	assert.Equal(t, 1, resolver.answerCalls)

	require.Len(t, tc.vmParams, 1)
	params := tc.vmParams[0]
	assert.Equal(t, "local:iso/my-windows.iso,media=cdrom", params["ide2"])
	assert.Equal(t, "local:iso/autounattend-windows-11.iso,media=cdrom", params["sata0"])
}

func TestDeploy_EndToEndThreeResources(t *testing.T) {
	t.Parallel()

	tc := &testClient{}
	resolver := &fakeResolver{
		unattendedErr: fault.Media(errors.New("no installer URL"), "https://example.com/download", "windows-11.iso"),
	}
	o := newTestOrchestrator(tc, resolver, nil)

	report, err := o.Deploy(context.Background(), config.DeploymentRequest{
		DeployCIServer: true,
		CIServerDomain: "ci.example.com",
		Agents: []config.AgentSpec{
			{OS: config.OSDebian},
			{OS: config.OSWindows11},
		},
		StoragePool: "local",
		Network:     config.NetworkConfig{Mode: config.NetworkDHCP, Bridge: "vmbr0"},
	})
	require.NoError(t, err)
	o.WaitBackground()

	// The windows media failure is recorded but all three resources exist.
	assert.True(t, report.Success)
	require.Len(t, report.CreatedResources, 3)
	require.Len(t, report.Errors, 1)

	var windows CreatedResource
	for _, res := range report.CreatedResources {
		if res.Kind == config.KindVirtualMachine {
			windows = res
		}
	}
	assert.Contains(t, windows.Status, "select an ISO")
	assert.Empty(t, windows.MediaRefs)

	// A VM without install media is created but never started.
	assert.NotContains(t, tc.started, windows.ID)
}

func TestDeploy_DistinctIDsWithinRun(t *testing.T) {
	t.Parallel()

	tc := &testClient{}
	o := newTestOrchestrator(tc, &fakeResolver{}, nil)

	report, err := o.Deploy(context.Background(), config.DeploymentRequest{
		Agents: []config.AgentSpec{
			{OS: config.OSDebian},
			{OS: config.OSDebian},
		},
		StoragePool: "local",
		Network:     config.NetworkConfig{Mode: config.NetworkDHCP, Bridge: "vmbr0"},
	})
	require.NoError(t, err)
	o.WaitBackground()

	// Two identical agents yield two distinct resources: there is no
	// dedup-by-hostname logic, re-running a request provisions again.
	require.Len(t, report.CreatedResources, 2)
	assert.NotEqual(t, report.CreatedResources[0].ID, report.CreatedResources[1].ID)
}

func TestDeploy_NoNodes(t *testing.T) {
	t.Parallel()

	client := &proxmox.MockClient{
		ListNodesFunc: func(ctx context.Context) ([]proxmox.Node, error) {
			return nil, nil
		},
	}
	o := New(client, &remote.MockExecutor{}, &fakeResolver{}, NewStatusStore(), WithObserver(NopObserver{}))

	_, err := o.Deploy(context.Background(), config.DeploymentRequest{
		Agents:  []config.AgentSpec{{OS: config.OSDebian}},
		Network: config.NetworkConfig{Mode: config.NetworkDHCP},
	})
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Validation))
}

func TestDeploy_BackgroundProvisioningUpdatesStatus(t *testing.T) {
	t.Parallel()

	var guestScripts []string
	var mu sync.Mutex
	exec := &remote.MockExecutor{
		RunInGuestFunc: func(ctx context.Context, vmid int, script string) (remote.Result, error) {
			mu.Lock()
			defer mu.Unlock()
			guestScripts = append(guestScripts, script)
			return remote.Result{ExitCode: 0}, nil
		},
	}

	tc := &testClient{}
	o := newTestOrchestrator(tc, &fakeResolver{}, exec)

	report, err := o.Deploy(context.Background(), config.DeploymentRequest{
		Agents:      []config.AgentSpec{{OS: config.OSDebian}},
		StoragePool: "local",
		Network:     config.NetworkConfig{Mode: config.NetworkDHCP, Bridge: "vmbr0"},
	})
	require.NoError(t, err)

	results := o.WaitBackground()
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)

	st, ok := o.Status().Get(report.CreatedResources[0].ID)
	require.True(t, ok)
	assert.Equal(t, PhaseRunning, st.Phase)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, guestScripts)
	assert.Contains(t, guestScripts[len(guestScripts)-1], "qemu-guest-agent")
}

func TestDeploy_BackgroundFailureIsDiscoverable(t *testing.T) {
	t.Parallel()

	exec := &remote.MockExecutor{
		RunInGuestFunc: func(ctx context.Context, vmid int, script string) (remote.Result, error) {
			return remote.Result{ExitCode: 1}, fault.Exec(errors.New("exit 1"), "apt broke")
		},
	}

	tc := &testClient{}
	o := newTestOrchestrator(tc, &fakeResolver{}, exec)

	report, err := o.Deploy(context.Background(), config.DeploymentRequest{
		Agents:      []config.AgentSpec{{OS: config.OSDebian}},
		StoragePool: "local",
		Network:     config.NetworkConfig{Mode: config.NetworkDHCP, Bridge: "vmbr0"},
	})
	require.NoError(t, err)

	// Creation already succeeded; the report does not see the install failure.
	assert.True(t, report.Success)
	assert.Empty(t, report.Errors)

	results := o.WaitBackground()
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)

	st, ok := o.Status().Get(report.CreatedResources[0].ID)
	require.True(t, ok)
	assert.Equal(t, PhaseFailed, st.Phase)
}

func TestDeploy_TargetNodeHonored(t *testing.T) {
	t.Parallel()

	var createdOn string
	client := &proxmox.MockClient{
		ListNodesFunc: func(ctx context.Context) ([]proxmox.Node, error) {
			return []proxmox.Node{{Name: "pve1"}, {Name: "pve2"}}, nil
		},
		ListVMIDsFunc: func(ctx context.Context) ([]int, error) { return nil, nil },
		CreateContainerFunc: func(ctx context.Context, node string, params map[string]string) (string, error) {
			createdOn = node
			return "UPID:x", nil
		},
		TaskStatusFunc: func(ctx context.Context, node, upid string) (proxmox.TaskStatus, error) {
			return proxmox.TaskStatus{Status: "stopped", ExitStatus: "OK"}, nil
		},
	}
	o := New(client, &remote.MockExecutor{}, &fakeResolver{}, NewStatusStore(),
		WithObserver(NopObserver{}),
		WithBuilderOptions(builder.WithStartDelay(0)),
	)

	_, err := o.Deploy(context.Background(), config.DeploymentRequest{
		TargetNode:  "pve2",
		Agents:      []config.AgentSpec{{OS: config.OSDebian}},
		StoragePool: "local",
		Network:     config.NetworkConfig{Mode: config.NetworkDHCP, Bridge: "vmbr0"},
	})
	require.NoError(t, err)
	o.WaitBackground()
	assert.Equal(t, "pve2", createdOn)
}

func TestGroup_PanicCaptured(t *testing.T) {
	t.Parallel()

	g := &Group{}
	g.Go("boom", func() error { panic("unexpected") })
	g.Go("fine", func() error { return nil })

	results := g.Wait()
	require.Len(t, results, 2)

	var panicked *TaskResult
	for i := range results {
		if results[i].Name == "boom" {
			panicked = &results[i]
		}
	}
	require.NotNil(t, panicked)
	require.Error(t, panicked.Err)
	assert.Contains(t, panicked.Err.Error(), "panic")
}

func TestStatusStore_Transitions(t *testing.T) {
	t.Parallel()

	s := NewStatusStore()
	s.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	s.Track(105, "agent-debian-105", config.KindContainer)
	s.Transition(105, PhaseProvisioning, "installing")

	st, ok := s.Get(105)
	require.True(t, ok)
	assert.Equal(t, PhaseProvisioning, st.Phase)
	assert.Equal(t, "installing", st.Detail)
	assert.Equal(t, "agent-debian-105", st.Name)

	_, ok = s.Get(999)
	assert.False(t, ok)

	assert.Len(t, s.All(), 1)
}
