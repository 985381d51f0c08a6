package proxmox

import (
	"context"
)

// MockClient is a func-field test double for Client. Unset fields answer
// with zero values so tests only wire the calls they care about.
type MockClient struct {
	ListNodesFunc        func(ctx context.Context) ([]Node, error)
	ListVMIDsFunc        func(ctx context.Context) ([]int, error)
	CreateContainerFunc  func(ctx context.Context, node string, params map[string]string) (string, error)
	CreateVMFunc         func(ctx context.Context, node string, params map[string]string) (string, error)
	StartContainerFunc   func(ctx context.Context, node string, vmid int) (string, error)
	StartVMFunc          func(ctx context.Context, node string, vmid int) (string, error)
	StopContainerFunc    func(ctx context.Context, node string, vmid int) (string, error)
	StopVMFunc           func(ctx context.Context, node string, vmid int) (string, error)
	ContainerStatusFunc  func(ctx context.Context, node string, vmid int) (string, error)
	ContainerIPFunc      func(ctx context.Context, node string, vmid int) (string, error)
	TaskStatusFunc       func(ctx context.Context, node, upid string) (TaskStatus, error)
	ListVolumesFunc      func(ctx context.Context, node, storage string) ([]Volume, error)
	DownloadURLFunc      func(ctx context.Context, node, storage, filename, url string) (string, error)
	DownloadTemplateFunc func(ctx context.Context, node, storage, template string) (string, error)
}

func (m *MockClient) ListNodes(ctx context.Context) ([]Node, error) {
	if m.ListNodesFunc != nil {
		return m.ListNodesFunc(ctx)
	}
	return nil, nil
}

func (m *MockClient) ListVMIDs(ctx context.Context) ([]int, error) {
	if m.ListVMIDsFunc != nil {
		return m.ListVMIDsFunc(ctx)
	}
	return nil, nil
}

func (m *MockClient) CreateContainer(ctx context.Context, node string, params map[string]string) (string, error) {
	if m.CreateContainerFunc != nil {
		return m.CreateContainerFunc(ctx, node, params)
	}
	return "", nil
}

func (m *MockClient) CreateVM(ctx context.Context, node string, params map[string]string) (string, error) {
	if m.CreateVMFunc != nil {
		return m.CreateVMFunc(ctx, node, params)
	}
	return "", nil
}

func (m *MockClient) StartContainer(ctx context.Context, node string, vmid int) (string, error) {
	if m.StartContainerFunc != nil {
		return m.StartContainerFunc(ctx, node, vmid)
	}
	return "", nil
}

func (m *MockClient) StartVM(ctx context.Context, node string, vmid int) (string, error) {
	if m.StartVMFunc != nil {
		return m.StartVMFunc(ctx, node, vmid)
	}
	return "", nil
}

func (m *MockClient) StopContainer(ctx context.Context, node string, vmid int) (string, error) {
	if m.StopContainerFunc != nil {
		return m.StopContainerFunc(ctx, node, vmid)
	}
	return "", nil
}

func (m *MockClient) StopVM(ctx context.Context, node string, vmid int) (string, error) {
	if m.StopVMFunc != nil {
		return m.StopVMFunc(ctx, node, vmid)
	}
	return "", nil
}

func (m *MockClient) ContainerStatus(ctx context.Context, node string, vmid int) (string, error) {
	if m.ContainerStatusFunc != nil {
		return m.ContainerStatusFunc(ctx, node, vmid)
	}
	return "", nil
}

func (m *MockClient) ContainerIP(ctx context.Context, node string, vmid int) (string, error) {
	if m.ContainerIPFunc != nil {
		return m.ContainerIPFunc(ctx, node, vmid)
	}
	return "", nil
}

func (m *MockClient) TaskStatus(ctx context.Context, node, upid string) (TaskStatus, error) {
	if m.TaskStatusFunc != nil {
		return m.TaskStatusFunc(ctx, node, upid)
	}
	return TaskStatus{}, nil
}

func (m *MockClient) ListVolumes(ctx context.Context, node, storage string) ([]Volume, error) {
	if m.ListVolumesFunc != nil {
		return m.ListVolumesFunc(ctx, node, storage)
	}
	return nil, nil
}

func (m *MockClient) DownloadURL(ctx context.Context, node, storage, filename, url string) (string, error) {
	if m.DownloadURLFunc != nil {
		return m.DownloadURLFunc(ctx, node, storage, filename, url)
	}
	return "", nil
}

func (m *MockClient) DownloadTemplate(ctx context.Context, node, storage, template string) (string, error) {
	if m.DownloadTemplateFunc != nil {
		return m.DownloadTemplateFunc(ctx, node, storage, template)
	}
	return "", nil
}

var _ Client = (*MockClient)(nil)
