package remote

import (
	"context"
)

// MockExecutor is a func-field test double for Executor.
type MockExecutor struct {
	RunOnHostFunc  func(ctx context.Context, command string) (Result, error)
	RunInGuestFunc func(ctx context.Context, vmid int, script string) (Result, error)
}

func (m *MockExecutor) RunOnHost(ctx context.Context, command string) (Result, error) {
	if m.RunOnHostFunc != nil {
		return m.RunOnHostFunc(ctx, command)
	}
	return Result{}, nil
}

func (m *MockExecutor) RunInGuest(ctx context.Context, vmid int, script string) (Result, error) {
	if m.RunInGuestFunc != nil {
		return m.RunInGuestFunc(ctx, vmid, script)
	}
	return Result{}, nil
}

var _ Executor = (*MockExecutor)(nil)
