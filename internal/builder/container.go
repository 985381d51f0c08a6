// Package builder creates the compute resources agents run on, deriving the
// control-plane creation parameters from declarative specs.
package builder

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/buildforever/farmctl/internal/proxmox"
)

// resourceClient is the slice of the control-plane client builders need.
type resourceClient interface {
	proxmox.ResourceManager
	proxmox.TaskWatcher
}

// Builder turns resource specs into created (and optionally started)
// containers and VMs.
type Builder struct {
	client resourceClient

	taskTimeout time.Duration
	startDelay  time.Duration
}

// Option adjusts Builder behavior.
type Option func(*Builder)

// WithTaskTimeout overrides the creation-task wait deadline.
func WithTaskTimeout(d time.Duration) Option {
	return func(b *Builder) { b.taskTimeout = d }
}

// WithStartDelay overrides the settle delay between creation and start.
func WithStartDelay(d time.Duration) Option {
	return func(b *Builder) { b.startDelay = d }
}

// New creates a Builder over the given client.
func New(client resourceClient, opts ...Option) *Builder {
	b := &Builder{
		client:      client,
		taskTimeout: proxmox.DefaultTaskTimeout,
		startDelay:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ContainerSpec describes one LXC container to create.
type ContainerSpec struct {
	VMID     int
	Hostname string
	Template string
	Storage  string
	DiskGB   int
	Cores    int
	MemoryMB int

	Bridge string
	// IP is "dhcp" or an address, optionally in CIDR notation.
	IP      string
	Gateway string

	SSHPublicKeys string
	RootPassword  string

	Start bool
}

// Params derives the creation form values. Containers are always
// unprivileged and start on node boot.
func (s ContainerSpec) Params() map[string]string {
	params := map[string]string{
		"vmid":         strconv.Itoa(s.VMID),
		"hostname":     s.Hostname,
		"ostemplate":   s.Template,
		"storage":      s.Storage,
		"rootfs":       s.Storage + ":" + strconv.Itoa(s.DiskGB),
		"cores":        strconv.Itoa(s.Cores),
		"memory":       strconv.Itoa(s.MemoryMB),
		"unprivileged": "1",
		"onboot":       "1",
		"start":        "0",
	}
	if s.Start {
		params["start"] = "1"
	}

	if s.IP == "" || s.IP == "dhcp" {
		params["net0"] = "name=eth0,bridge=" + s.Bridge + ",ip=dhcp"
	} else {
		cidr := s.IP
		if !strings.Contains(cidr, "/") {
			cidr += "/24"
		}
		net := "name=eth0,bridge=" + s.Bridge + ",ip=" + cidr
		if s.Gateway != "" {
			net += ",gw=" + s.Gateway
		}
		params["net0"] = net
	}

	if s.SSHPublicKeys != "" {
		params["ssh-public-keys"] = s.SSHPublicKeys
	}
	if s.RootPassword != "" {
		params["password"] = s.RootPassword
	}
	return params
}

// CreateContainer creates the container and waits for the creation task.
// When the spec asks for a started container, the start is issued after a
// short settle delay; creation reports the container as ready slightly
// before it can be started.
func (b *Builder) CreateContainer(ctx context.Context, node string, spec ContainerSpec) error {
	upid, err := b.client.CreateContainer(ctx, node, spec.Params())
	if err != nil {
		return err
	}
	if err := proxmox.WaitForTask(ctx, b.client, node, upid, b.taskTimeout); err != nil {
		return err
	}

	if spec.Start {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.startDelay):
		}
		if _, err := b.client.StartContainer(ctx, node, spec.VMID); err != nil {
			return err
		}
	}
	return nil
}

// StopContainer stops the container and waits for the stop task.
func (b *Builder) StopContainer(ctx context.Context, node string, vmid int) error {
	upid, err := b.client.StopContainer(ctx, node, vmid)
	if err != nil {
		return err
	}
	return proxmox.WaitForTask(ctx, b.client, node, upid, b.taskTimeout)
}
