package orchestrator

import (
	"strconv"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/buildforever/farmctl/internal/config"
)

// Phase is the lifecycle phase of one provisioned resource.
type Phase string

const (
	PhaseCreated      Phase = "created"
	PhaseProvisioning Phase = "provisioning"
	PhaseRunning      Phase = "running"
	PhaseFailed       Phase = "failed"
)

// ResourceStatus is the last observed state of one resource in a run.
type ResourceStatus struct {
	VMID      int
	Name      string
	Kind      config.ResourceKind
	Phase     Phase
	Detail    string
	UpdatedAt time.Time
}

// StatusStore tracks per-resource provisioning state. Each Orchestrator owns
// its own store, so concurrent runs in one process never share state; the
// store is safe for the background provisioning goroutines to update while
// callers poll it.
type StatusStore struct {
	m cmap.ConcurrentMap[string, ResourceStatus]

	now func() time.Time
}

// NewStatusStore creates an empty store.
func NewStatusStore() *StatusStore {
	return &StatusStore{m: cmap.New[ResourceStatus](), now: time.Now}
}

func key(vmid int) string { return strconv.Itoa(vmid) }

// Track registers a freshly created resource.
func (s *StatusStore) Track(vmid int, name string, kind config.ResourceKind) {
	s.m.Set(key(vmid), ResourceStatus{
		VMID:      vmid,
		Name:      name,
		Kind:      kind,
		Phase:     PhaseCreated,
		UpdatedAt: s.now(),
	})
}

// Transition moves a tracked resource to a new phase.
func (s *StatusStore) Transition(vmid int, phase Phase, detail string) {
	k := key(vmid)
	st, ok := s.m.Get(k)
	if !ok {
		st = ResourceStatus{VMID: vmid}
	}
	st.Phase = phase
	st.Detail = detail
	st.UpdatedAt = s.now()
	s.m.Set(k, st)
}

// Get returns the status of one resource.
func (s *StatusStore) Get(vmid int) (ResourceStatus, bool) {
	return s.m.Get(key(vmid))
}

// All returns a snapshot of every tracked resource.
func (s *StatusStore) All() []ResourceStatus {
	out := make([]ResourceStatus, 0, s.m.Count())
	for _, st := range s.m.Items() {
		out = append(out, st)
	}
	return out
}
