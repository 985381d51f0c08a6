package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/buildforever/farmctl/internal/config"
	"github.com/buildforever/farmctl/internal/fault"
	"github.com/buildforever/farmctl/internal/proxmox"
	"github.com/buildforever/farmctl/internal/remote"
	"github.com/buildforever/farmctl/internal/scripts"
)

// Media identifies one resolved install image in storage.
type Media struct {
	VolID  string
	Cached bool
}

// storageClient is the slice of the control-plane client the resolver needs.
type storageClient interface {
	proxmox.StorageManager
	proxmox.TaskWatcher
}

// Resolver makes install media available in a storage pool: it reuses what
// is already there, downloads what the vendor offers, and synthesizes
// unattended Windows images on the node.
type Resolver struct {
	client  storageClient
	urls    URLSource
	exec    remote.Executor
	storage string

	downloadTimeout time.Duration
	now             func() time.Time
}

// NewResolver wires a resolver for one storage pool.
func NewResolver(client storageClient, urls URLSource, exec remote.Executor, storage string) *Resolver {
	return &Resolver{
		client:          client,
		urls:            urls,
		exec:            exec,
		storage:         storage,
		downloadTimeout: proxmox.DefaultTaskTimeout,
		now:             time.Now,
	}
}

// ISOFilename is the storage filename for a given OS's install media.
func ISOFilename(os config.OS) string {
	if os == config.OSMacOS {
		return fmt.Sprintf("macos-%s-recovery.dmg", DefaultMacOSVersion)
	}
	return string(os) + ".iso"
}

// UnattendedISOFilename names the synthesized full unattended image.
func UnattendedISOFilename(os config.OS) string {
	return string(os) + "-unattended.iso"
}

// AnswerISOFilename names the small answer-file-only image.
func AnswerISOFilename(os config.OS) string {
	return "autounattend-" + string(os) + ".iso"
}

// findVolume returns the volid of a stored volume whose ID contains name.
// The match is deliberately a substring, not a basename comparison: derived
// images embed the base filename (autounattend-windows-10.iso contains
// windows-10.iso) and count as the base being present.
func (r *Resolver) findVolume(ctx context.Context, node, name string) (string, error) {
	volumes, err := r.client.ListVolumes(ctx, node, r.storage)
	if err != nil {
		return "", err
	}
	for _, v := range volumes {
		if strings.Contains(v.VolID, name) {
			return v.VolID, nil
		}
	}
	return "", nil
}

// download fetches url into storage and waits for the download task.
func (r *Resolver) download(ctx context.Context, node, filename, url string) (string, error) {
	upid, err := r.client.DownloadURL(ctx, node, r.storage, filename, url)
	if err != nil {
		return "", err
	}
	if err := proxmox.WaitForTask(ctx, r.client, node, upid, r.downloadTimeout); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:iso/%s", r.storage, filename), nil
}

// EnsureMedia makes the install image for the OS available and returns its
// volid. Existing media short-circuits everything, including URL resolution.
func (r *Resolver) EnsureMedia(ctx context.Context, node string, os config.OS) (Media, error) {
	filename := ISOFilename(os)

	if volid, err := r.findVolume(ctx, node, filename); err != nil {
		return Media{}, err
	} else if volid != "" {
		return Media{VolID: volid, Cached: true}, nil
	}

	switch os.Family() {
	case config.FamilyLinux:
		url, ok := linuxISOURLs[os]
		if !ok {
			return Media{}, fault.Media(fmt.Errorf("no installer url pinned for %s", os), "", filename)
		}
		volid, err := r.download(ctx, node, filename, url)
		if err != nil {
			return Media{}, err
		}
		return Media{VolID: volid}, nil

	case config.FamilyWindows:
		url, err := r.urls.WindowsISO(ctx, os)
		if err != nil {
			return Media{}, fault.Media(
				fmt.Errorf("automatic download failed: %w", err),
				manualDownloadPages[os],
				filename,
			)
		}
		volid, err := r.download(ctx, node, filename, url)
		if err != nil {
			return Media{}, err
		}
		return Media{VolID: volid}, nil

	case config.FamilyMacOS:
		url, err := r.urls.MacRecovery(ctx, DefaultMacOSVersion)
		if err != nil {
			return Media{}, fault.Media(err, "", filename)
		}
		volid, err := r.download(ctx, node, filename, url)
		if err != nil {
			return Media{}, err
		}
		return Media{VolID: volid}, nil
	}

	return Media{}, fault.Newf(fault.Validation, "no media strategy for %s", os)
}

// EnsureContainerTemplate makes the LXC template for a Linux OS available
// and returns its volid.
func (r *Resolver) EnsureContainerTemplate(ctx context.Context, node string, os config.OS) (Media, error) {
	template := os.ContainerTemplate()
	if template == "" {
		return Media{}, fault.Newf(fault.Validation, "%s has no container template", os)
	}

	if volid, err := r.findVolume(ctx, node, template); err != nil {
		return Media{}, err
	} else if volid != "" {
		return Media{VolID: volid, Cached: true}, nil
	}

	upid, err := r.client.DownloadTemplate(ctx, node, r.storage, template)
	if err != nil {
		return Media{}, err
	}
	if err := proxmox.WaitForTask(ctx, r.client, node, upid, r.downloadTimeout); err != nil {
		return Media{}, err
	}
	return Media{VolID: fmt.Sprintf("%s:vztmpl/%s", r.storage, template)}, nil
}

// EnsureUnattendedISO builds (or reuses) a fully unattended Windows install
// image: base media plus answer file plus optional first-boot registration
// script, repacked on the node itself.
func (r *Resolver) EnsureUnattendedISO(ctx context.Context, node string, os config.OS, params scripts.UnattendParams, setupComplete string) (Media, error) {
	filename := UnattendedISOFilename(os)

	if volid, err := r.findVolume(ctx, node, filename); err != nil {
		return Media{}, err
	} else if volid != "" {
		return Media{VolID: volid, Cached: true}, nil
	}

	if _, err := r.EnsureMedia(ctx, node, os); err != nil {
		return Media{}, err
	}

	workDir := fmt.Sprintf("/tmp/win-unattend-%s-%d", os, r.now().Unix())
	script := scripts.UnattendedISOBuild(workDir, ISOFilename(os), filename, scripts.Autounattend(params), setupComplete)

	if err := r.runBuild(ctx, script); err != nil {
		return Media{}, err
	}
	return Media{VolID: fmt.Sprintf("%s:iso/%s", r.storage, filename)}, nil
}

// EnsureAnswerISO builds (or reuses) the small answer-file image attached
// next to user-selected install media.
func (r *Resolver) EnsureAnswerISO(ctx context.Context, node string, os config.OS, params scripts.UnattendParams) (Media, error) {
	filename := AnswerISOFilename(os)

	if volid, err := r.findVolume(ctx, node, filename); err != nil {
		return Media{}, err
	} else if volid != "" {
		return Media{VolID: volid, Cached: true}, nil
	}

	script := scripts.AnswerISOBuild(filename, scripts.Autounattend(params))
	if err := r.runBuild(ctx, script); err != nil {
		return Media{}, err
	}
	return Media{VolID: fmt.Sprintf("%s:iso/%s", r.storage, filename)}, nil
}

// runBuild executes an ISO build script on the node and checks its success
// sentinel; exit status alone is not trusted because the scripts shell out
// to tools that swallow errors.
func (r *Resolver) runBuild(ctx context.Context, script string) error {
	res, err := r.exec.RunOnHost(ctx, script)
	if err != nil {
		return err
	}
	if !strings.Contains(res.Stdout, "SUCCESS:") {
		msg := res.Stderr
		if msg == "" {
			msg = res.Stdout
		}
		return fault.Exec(fmt.Errorf("iso build did not report success"), msg)
	}
	return nil
}
