package proxmox

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/buildforever/farmctl/internal/config"
	"github.com/buildforever/farmctl/internal/fault"
)

// RealClient implements Client against the Proxmox VE HTTP API.
type RealClient struct {
	http    *resty.Client
	profile config.ConnectionProfile

	mu       sync.Mutex
	ticketed bool
}

// NewRealClient creates a client for the given connection profile. Token
// authentication is applied immediately; password authentication acquires a
// ticket lazily on the first request.
func NewRealClient(profile config.ConnectionProfile) *RealClient {
	http := resty.New().
		SetBaseURL(fmt.Sprintf("https://%s:%d/api2/json", profile.Host, profile.Port)).
		SetHeader("Accept", "application/json")

	if !profile.TLSVerify {
		http.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) // #nosec G402
	}
	if profile.UsesToken() {
		http.SetHeader("Authorization",
			fmt.Sprintf("PVEAPIToken=%s!%s=%s", profile.User, profile.TokenName, profile.TokenSecret))
	}

	return &RealClient{http: http, profile: profile}
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type ticketData struct {
	Ticket    string `json:"ticket"`
	CSRFToken string `json:"CSRFPreventionToken"`
}

// login acquires an authentication ticket for password-based access.
func (c *RealClient) login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticketed || c.profile.UsesToken() {
		return nil
	}

	var out envelope[ticketData]
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": c.profile.User,
			"password": c.profile.Password,
		}).
		SetResult(&out).
		Post("/access/ticket")
	if err != nil {
		return fault.Newf(fault.Connect, "cannot reach control plane at %s: %v", c.profile.Host, err)
	}
	if resp.IsError() {
		return fault.Newf(fault.Auth, "authentication failed for %s: %s", c.profile.User, resp.Status())
	}

	c.http.SetCookie(&http.Cookie{Name: "PVEAuthCookie", Value: out.Data.Ticket})
	c.http.SetHeader("CSRFPreventionToken", out.Data.CSRFToken)
	c.ticketed = true
	return nil
}

// call performs one API request with authentication and error classification.
func (c *RealClient) call(ctx context.Context, method, path string, form map[string]string, result any) error {
	if err := c.login(ctx); err != nil {
		return err
	}

	req := c.http.R().SetContext(ctx)
	if form != nil {
		req.SetFormData(form)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	return classify(path, resp, err)
}

// ListNodes returns all nodes known to the cluster.
func (c *RealClient) ListNodes(ctx context.Context) ([]Node, error) {
	var out envelope[[]Node]
	if err := c.call(ctx, resty.MethodGet, "/nodes", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListVMIDs returns every resource ID in use across the cluster.
func (c *RealClient) ListVMIDs(ctx context.Context) ([]int, error) {
	var out envelope[[]struct {
		VMID int `json:"vmid"`
	}]
	if err := c.call(ctx, resty.MethodGet, "/cluster/resources?type=vm", nil, &out); err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(out.Data))
	for _, r := range out.Data {
		ids = append(ids, r.VMID)
	}
	return ids, nil
}

// CreateContainer creates an LXC container on the node.
func (c *RealClient) CreateContainer(ctx context.Context, node string, params map[string]string) (string, error) {
	return c.createTask(ctx, fmt.Sprintf("/nodes/%s/lxc", node), params)
}

// CreateVM creates a QEMU virtual machine on the node.
func (c *RealClient) CreateVM(ctx context.Context, node string, params map[string]string) (string, error) {
	return c.createTask(ctx, fmt.Sprintf("/nodes/%s/qemu", node), params)
}

// StartContainer starts an existing container.
func (c *RealClient) StartContainer(ctx context.Context, node string, vmid int) (string, error) {
	return c.createTask(ctx, fmt.Sprintf("/nodes/%s/lxc/%d/status/start", node, vmid), nil)
}

// StartVM starts an existing virtual machine.
func (c *RealClient) StartVM(ctx context.Context, node string, vmid int) (string, error) {
	return c.createTask(ctx, fmt.Sprintf("/nodes/%s/qemu/%d/status/start", node, vmid), nil)
}

// StopContainer stops a running container.
func (c *RealClient) StopContainer(ctx context.Context, node string, vmid int) (string, error) {
	return c.createTask(ctx, fmt.Sprintf("/nodes/%s/lxc/%d/status/stop", node, vmid), nil)
}

// StopVM stops a running virtual machine.
func (c *RealClient) StopVM(ctx context.Context, node string, vmid int) (string, error) {
	return c.createTask(ctx, fmt.Sprintf("/nodes/%s/qemu/%d/status/stop", node, vmid), nil)
}

// ContainerStatus returns the container's runtime status.
func (c *RealClient) ContainerStatus(ctx context.Context, node string, vmid int) (string, error) {
	var out envelope[struct {
		Status string `json:"status"`
	}]
	path := fmt.Sprintf("/nodes/%s/lxc/%d/status/current", node, vmid)
	if err := c.call(ctx, resty.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.Data.Status, nil
}

// ContainerIP returns the first non-loopback IPv4 address of the container.
func (c *RealClient) ContainerIP(ctx context.Context, node string, vmid int) (string, error) {
	var out envelope[[]struct {
		Name string `json:"name"`
		Inet string `json:"inet"`
	}]
	path := fmt.Sprintf("/nodes/%s/lxc/%d/interfaces", node, vmid)
	if err := c.call(ctx, resty.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	for _, iface := range out.Data {
		if iface.Name == "lo" || iface.Inet == "" {
			continue
		}
		// inet carries CIDR notation, e.g. 192.168.1.10/24
		addr := iface.Inet
		for i := range addr {
			if addr[i] == '/' {
				addr = addr[:i]
				break
			}
		}
		return addr, nil
	}
	return "", nil
}

// TaskStatus returns the current state of an asynchronous task.
func (c *RealClient) TaskStatus(ctx context.Context, node, upid string) (TaskStatus, error) {
	var out envelope[TaskStatus]
	path := fmt.Sprintf("/nodes/%s/tasks/%s/status", node, upid)
	if err := c.call(ctx, resty.MethodGet, path, nil, &out); err != nil {
		return TaskStatus{}, err
	}
	return out.Data, nil
}

// ListVolumes returns the content of a storage pool on a node.
func (c *RealClient) ListVolumes(ctx context.Context, node, storage string) ([]Volume, error) {
	var out envelope[[]Volume]
	path := fmt.Sprintf("/nodes/%s/storage/%s/content", node, storage)
	if err := c.call(ctx, resty.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// DownloadURL asks the node to fetch url into the storage pool.
func (c *RealClient) DownloadURL(ctx context.Context, node, storage, filename, url string) (string, error) {
	path := fmt.Sprintf("/nodes/%s/storage/%s/download-url", node, storage)
	return c.createTask(ctx, path, map[string]string{
		"content":  "iso",
		"filename": filename,
		"url":      url,
	})
}

// DownloadTemplate asks the node to fetch a container template from the
// public template index.
func (c *RealClient) DownloadTemplate(ctx context.Context, node, storage, template string) (string, error) {
	path := fmt.Sprintf("/nodes/%s/aplinfo", node)
	return c.createTask(ctx, path, map[string]string{
		"storage":  storage,
		"template": template,
	})
}

// createTask POSTs to an endpoint that answers with a task ID.
func (c *RealClient) createTask(ctx context.Context, path string, params map[string]string) (string, error) {
	var out envelope[string]
	if err := c.call(ctx, resty.MethodPost, path, params, &out); err != nil {
		return "", err
	}
	if out.Data == "" {
		return "", fault.Newf(fault.TaskFailure, "%s returned no task id", path)
	}
	return out.Data, nil
}

var _ Client = (*RealClient)(nil)
