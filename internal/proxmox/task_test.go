package proxmox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildforever/farmctl/internal/fault"
)

func TestWaitForTask_Success(t *testing.T) {
	t.Parallel()

	mock := &MockClient{
		TaskStatusFunc: func(ctx context.Context, node, upid string) (TaskStatus, error) {
			return TaskStatus{Status: "stopped", ExitStatus: "OK"}, nil
		},
	}
	err := WaitForTask(context.Background(), mock, "pve1", "UPID:pve1:0001", time.Minute)
	require.NoError(t, err)
}

func TestWaitForTask_Failure(t *testing.T) {
	t.Parallel()

	mock := &MockClient{
		TaskStatusFunc: func(ctx context.Context, node, upid string) (TaskStatus, error) {
			return TaskStatus{Status: "stopped", ExitStatus: "unable to create CT 102"}, nil
		},
	}
	err := WaitForTask(context.Background(), mock, "pve1", "UPID:pve1:0002", time.Minute)
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.TaskFailure))
	assert.False(t, fault.IsKind(err, fault.TaskTimeout))
	assert.Contains(t, err.Error(), "unable to create CT 102")
}

func TestWaitForTask_Timeout(t *testing.T) {
	t.Parallel()

	mock := &MockClient{
		TaskStatusFunc: func(ctx context.Context, node, upid string) (TaskStatus, error) {
			return TaskStatus{Status: "running"}, nil
		},
	}
	err := WaitForTask(context.Background(), mock, "pve1", "UPID:pve1:0003", time.Millisecond)
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.TaskTimeout))
	assert.False(t, fault.IsKind(err, fault.TaskFailure))
}

func TestWaitForTask_StatusErrorsToleratedUntilDeadline(t *testing.T) {
	t.Parallel()

	mock := &MockClient{
		TaskStatusFunc: func(ctx context.Context, node, upid string) (TaskStatus, error) {
			return TaskStatus{}, errors.New("connection reset")
		},
	}
	err := WaitForTask(context.Background(), mock, "pve1", "UPID:pve1:0004", time.Millisecond)
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.TaskTimeout))
}

func TestWaitForTask_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := &MockClient{
		TaskStatusFunc: func(ctx context.Context, node, upid string) (TaskStatus, error) {
			return TaskStatus{Status: "running"}, nil
		},
	}
	err := WaitForTask(ctx, mock, "pve1", "UPID:pve1:0005", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTaskStatusPredicates(t *testing.T) {
	t.Parallel()

	assert.False(t, TaskStatus{Status: "running"}.Finished())
	assert.True(t, TaskStatus{Status: "stopped"}.Finished())
	assert.True(t, TaskStatus{Status: "stopped", ExitStatus: "OK"}.OK())
	assert.False(t, TaskStatus{Status: "stopped", ExitStatus: "some error"}.OK())
}
