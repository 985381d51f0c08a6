// Package orchestrator drives one deployment run end to end: node
// selection, the optional CI-server phase, and per-agent resource creation
// with fault isolation between agents.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/buildforever/farmctl/internal/builder"
	"github.com/buildforever/farmctl/internal/config"
	"github.com/buildforever/farmctl/internal/fault"
	"github.com/buildforever/farmctl/internal/media"
	"github.com/buildforever/farmctl/internal/proxmox"
	"github.com/buildforever/farmctl/internal/remote"
	"github.com/buildforever/farmctl/internal/scripts"
)

// MediaResolver is the slice of the image resolver the orchestrator uses.
type MediaResolver interface {
	EnsureMedia(ctx context.Context, node string, os config.OS) (media.Media, error)
	EnsureContainerTemplate(ctx context.Context, node string, os config.OS) (media.Media, error)
	EnsureUnattendedISO(ctx context.Context, node string, os config.OS, params scripts.UnattendParams, setupComplete string) (media.Media, error)
	EnsureAnswerISO(ctx context.Context, node string, os config.OS, params scripts.UnattendParams) (media.Media, error)
}

// Orchestrator runs deployment requests against one control plane.
type Orchestrator struct {
	client   proxmox.Client
	exec     remote.Executor
	resolver MediaResolver
	builder  *builder.Builder
	status   *StatusStore
	obs      Observer
	group    *Group

	logDir           string
	ciInstallTimeout time.Duration

	allocated map[int]bool
}

// Option adjusts orchestrator behavior.
type Option func(*Orchestrator)

// WithObserver routes run events to obs instead of the console.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.obs = obs }
}

// WithLogDir enables per-resource provisioning log files under dir.
func WithLogDir(dir string) Option {
	return func(o *Orchestrator) { o.logDir = dir }
}

// WithCIInstallTimeout overrides the synchronous CI-server install timeout.
func WithCIInstallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.ciInstallTimeout = d }
}

// WithBuilderOptions forwards options to the resource builder.
func WithBuilderOptions(opts ...builder.Option) Option {
	return func(o *Orchestrator) { o.builder = builder.New(o.client, opts...) }
}

// New creates an Orchestrator. The status store is injected so callers can
// poll provisioning state while background tasks run.
func New(client proxmox.Client, exec remote.Executor, resolver MediaResolver, status *StatusStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:           client,
		exec:             exec,
		resolver:         resolver,
		builder:          builder.New(client),
		status:           status,
		obs:              NewConsoleObserver(),
		group:            &Group{},
		ciInstallTimeout: 30 * time.Minute,
		allocated:        make(map[int]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Status returns the injected status store.
func (o *Orchestrator) Status() *StatusStore { return o.status }

// WaitBackground blocks until all fire-and-forget provisioning tasks from
// previous Deploy calls have finished and returns their outcomes.
func (o *Orchestrator) WaitBackground() []TaskResult { return o.group.Wait() }

// Deploy executes one run. The returned error is non-nil only when the run
// could not start at all (invalid request, no usable node); once resources
// are being created, failures are accumulated into the report instead.
func (o *Orchestrator) Deploy(ctx context.Context, req config.DeploymentRequest) (Report, error) {
	if err := req.Validate(); err != nil {
		return Report{}, err
	}
	deploymentsTotal.Inc()

	node, err := o.selectNode(ctx, req.TargetNode)
	if err != nil {
		return Report{}, err
	}
	o.obs.Event(Event{Type: EventPhaseStarted, Phase: "deploy", Message: "node selected", Fields: map[string]string{"node": node}})

	report := Report{Node: node}

	if req.DeployCIServer {
		o.ciServerPhase(ctx, node, req, &report)
	}

	for _, agent := range req.Agents {
		o.agentPhase(ctx, node, agent, req, &report)
	}

	report.Success = len(report.CreatedResources) > 0
	switch {
	case report.Success && len(report.Errors) == 0:
		report.Message = fmt.Sprintf("created %d resources", len(report.CreatedResources))
	case report.Success:
		report.Message = fmt.Sprintf("created %d resources with %d errors", len(report.CreatedResources), len(report.Errors))
	default:
		report.Message = "no resources created"
	}
	o.obs.Event(Event{Type: EventPhaseCompleted, Phase: "deploy", Message: report.Message})
	return report, nil
}

// selectNode picks the pinned node when it exists in the cluster, else the
// first listed node.
func (o *Orchestrator) selectNode(ctx context.Context, target string) (string, error) {
	nodes, err := o.client.ListNodes(ctx)
	if err != nil {
		return "", err
	}
	if len(nodes) == 0 {
		return "", fault.Newf(fault.Validation, "cluster has no nodes")
	}
	if target != "" {
		for _, n := range nodes {
			if n.Name == target {
				return target, nil
			}
		}
		o.obs.Printf("target node %q not found, falling back to %q", target, nodes[0].Name)
	}
	return nodes[0].Name, nil
}

// nextID allocates the smallest unused resource ID, remembering IDs handed
// out earlier in this run since the control plane may not list them yet.
func (o *Orchestrator) nextID(ctx context.Context) (int, error) {
	ids, err := o.client.ListVMIDs(ctx)
	if err != nil {
		return 0, err
	}
	used := make(map[int]bool, len(ids)+len(o.allocated))
	for _, id := range ids {
		used[id] = true
	}
	for id := range o.allocated {
		used[id] = true
	}
	candidate := proxmox.MinVMID
	for used[candidate] {
		candidate++
	}
	o.allocated[candidate] = true
	return candidate, nil
}

func (o *Orchestrator) fail(report *Report, resource string, err error) {
	msg := fmt.Sprintf("%s: %v", resource, err)
	report.Errors = append(report.Errors, msg)
	kind := fault.KindOf(err)
	if kind == "" {
		kind = "unclassified"
	}
	resourceFailuresTotal.WithLabelValues(string(kind)).Inc()
	o.obs.Event(Event{Type: EventResourceFailed, Phase: "deploy", Resource: resource, Message: err.Error()})
}
