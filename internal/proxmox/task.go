package proxmox

import (
	"context"
	"errors"
	"time"

	"github.com/buildforever/farmctl/internal/fault"
	"github.com/buildforever/farmctl/internal/util/retry"
)

const (
	// DefaultTaskTimeout bounds long-running tasks such as ISO downloads.
	DefaultTaskTimeout = 3600 * time.Second

	taskPollInterval = 2 * time.Second
)

// WaitForTask polls the task until it finishes. A task that finishes with a
// non-OK exit status yields a TaskFailure fault; a task still running when
// the timeout expires yields a TaskTimeout fault, so callers can tell "it
// broke" apart from "it is still going".
func WaitForTask(ctx context.Context, tw TaskWatcher, node, upid string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}

	var last TaskStatus
	err := retry.Poll(ctx, timeout, taskPollInterval, func() (bool, error) {
		status, err := tw.TaskStatus(ctx, node, upid)
		if err != nil {
			// Transient status lookups are tolerated until the deadline.
			return false, err
		}
		last = status
		return status.Finished(), nil
	})

	switch {
	case err == nil:
	case errors.Is(err, retry.ErrDeadline):
		return fault.Newf(fault.TaskTimeout, "task %s on %s did not finish within %s", upid, node, timeout)
	default:
		return err
	}

	if !last.OK() {
		return fault.Newf(fault.TaskFailure, "task %s on %s failed: %s", upid, node, last.ExitStatus)
	}
	return nil
}
