// Package proxmox provides a wrapper around the Proxmox VE HTTP API.
package proxmox

import (
	"context"
)

// Node is one compute node of the cluster.
type Node struct {
	Name   string `json:"node"`
	Status string `json:"status"`
}

// TaskStatus is the state of one asynchronous control-plane task.
type TaskStatus struct {
	Status     string `json:"status"`
	ExitStatus string `json:"exitstatus"`
}

// Finished reports whether the task reached a terminal state.
func (s TaskStatus) Finished() bool {
	return s.Status == "stopped"
}

// OK reports whether a finished task succeeded.
func (s TaskStatus) OK() bool {
	return s.ExitStatus == "OK"
}

// Volume is one content item of a storage pool.
type Volume struct {
	VolID   string `json:"volid"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// NodeLister enumerates the cluster's compute nodes.
type NodeLister interface {
	// ListNodes returns all nodes known to the cluster.
	ListNodes(ctx context.Context) ([]Node, error)
}

// ResourceManager creates and controls containers and virtual machines.
// Creation calls return the task ID of the asynchronous control-plane task;
// callers wait for it with a TaskWatcher.
type ResourceManager interface {
	// ListVMIDs returns every resource ID in use across the cluster.
	ListVMIDs(ctx context.Context) ([]int, error)

	// CreateContainer creates an LXC container on the node.
	CreateContainer(ctx context.Context, node string, params map[string]string) (string, error)

	// CreateVM creates a QEMU virtual machine on the node.
	CreateVM(ctx context.Context, node string, params map[string]string) (string, error)

	// StartContainer starts an existing container.
	StartContainer(ctx context.Context, node string, vmid int) (string, error)

	// StartVM starts an existing virtual machine.
	StartVM(ctx context.Context, node string, vmid int) (string, error)

	// StopContainer stops a running container.
	StopContainer(ctx context.Context, node string, vmid int) (string, error)

	// StopVM stops a running virtual machine.
	StopVM(ctx context.Context, node string, vmid int) (string, error)

	// ContainerStatus returns the container's runtime status, e.g. "running".
	ContainerStatus(ctx context.Context, node string, vmid int) (string, error)

	// ContainerIP returns the first non-loopback IPv4 address of a running
	// container, or empty when none is assigned yet.
	ContainerIP(ctx context.Context, node string, vmid int) (string, error)
}

// TaskWatcher inspects asynchronous control-plane tasks.
type TaskWatcher interface {
	// TaskStatus returns the current state of the task identified by upid.
	TaskStatus(ctx context.Context, node, upid string) (TaskStatus, error)
}

// StorageManager inspects and fills storage pools.
type StorageManager interface {
	// ListVolumes returns the content of a storage pool on a node.
	ListVolumes(ctx context.Context, node, storage string) ([]Volume, error)

	// DownloadURL asks the node to download url into the storage pool under
	// filename. Returns the task ID of the download task.
	DownloadURL(ctx context.Context, node, storage, filename, url string) (string, error)

	// DownloadTemplate asks the node to fetch a container template from the
	// public template index. Returns the task ID.
	DownloadTemplate(ctx context.Context, node, storage, template string) (string, error)
}

// Client bundles every capability of the control plane.
type Client interface {
	NodeLister
	ResourceManager
	TaskWatcher
	StorageManager
}
