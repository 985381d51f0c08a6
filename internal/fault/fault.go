// Package fault defines the error taxonomy shared by all provisioning
// components. Every external-call failure is converted into a *Fault at the
// boundary of the component that made the call; nothing crosses component
// boundaries as an unstructured error.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a provisioning failure.
type Kind string

const (
	// Connect indicates the control plane or remote shell was unreachable.
	Connect Kind = "connect"
	// Auth indicates rejected credentials.
	Auth Kind = "auth"
	// TaskFailure indicates a control-plane task reported failure.
	TaskFailure Kind = "task_failure"
	// TaskTimeout indicates task polling exceeded its deadline. Distinct from
	// TaskFailure so callers can decide whether cleanup is worth attempting.
	TaskTimeout Kind = "task_timeout"
	// MediaUnavailable indicates no install image could be resolved. Carries
	// manual-remediation info; this is a user-actionable outcome, not a bug.
	MediaUnavailable Kind = "media_unavailable"
	// RemoteExec indicates a non-zero exit inside the host or a guest.
	RemoteExec Kind = "remote_exec"
	// Validation indicates a malformed request, rejected before any resource
	// was touched.
	Validation Kind = "validation"
)

// Fault is a classified provisioning error.
type Fault struct {
	Kind Kind
	Err  error

	// ManualURL and ExpectedFilename are set for MediaUnavailable faults so
	// the caller can tell the user where to fetch the image and what to name
	// it in storage.
	ManualURL        string
	ExpectedFilename string

	// Stderr carries captured remote output for RemoteExec faults.
	Stderr string
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// New creates a Fault of the given kind wrapping err.
func New(kind Kind, err error) *Fault {
	return &Fault{Kind: kind, Err: err}
}

// Newf creates a Fault of the given kind from a formatted message.
func Newf(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Media creates a MediaUnavailable fault carrying remediation info.
func Media(err error, manualURL, expectedFilename string) *Fault {
	return &Fault{
		Kind:             MediaUnavailable,
		Err:              err,
		ManualURL:        manualURL,
		ExpectedFilename: expectedFilename,
	}
}

// Exec creates a RemoteExec fault carrying captured stderr.
func Exec(err error, stderr string) *Fault {
	return &Fault{Kind: RemoteExec, Err: err, Stderr: stderr}
}

// KindOf returns the Kind of err if it is (or wraps) a Fault, or "" otherwise.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// IsKind reports whether err is (or wraps) a Fault of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// As extracts the Fault from err, or nil if there is none.
func As(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return nil
}
