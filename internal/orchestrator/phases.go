package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/buildforever/farmctl/internal/builder"
	"github.com/buildforever/farmctl/internal/config"
	"github.com/buildforever/farmctl/internal/scripts"
)

// ciServerPhase creates and synchronously provisions the CI server. A
// failure is recorded but never aborts agent creation: agents may register
// against a CI server that comes up later, or against none.
func (o *Orchestrator) ciServerPhase(ctx context.Context, node string, req config.DeploymentRequest, report *Report) {
	const name = "ci-server"

	tmpl, err := o.resolver.EnsureContainerTemplate(ctx, node, config.OSDebian)
	if err != nil {
		o.fail(report, name, err)
		return
	}
	vmid, err := o.nextID(ctx)
	if err != nil {
		o.fail(report, name, err)
		return
	}

	o.obs.Event(Event{Type: EventResourceCreating, Phase: "ci-server", Resource: name, Fields: map[string]string{"id": fmt.Sprint(vmid)}})
	spec := builder.CIServerContainerSpec(vmid, tmpl.VolID, req)
	if err := o.builder.CreateContainer(ctx, node, spec); err != nil {
		o.fail(report, name, err)
		return
	}

	o.status.Track(vmid, name, config.KindContainer)
	resourcesCreatedTotal.WithLabelValues(string(config.KindContainer)).Inc()
	res := CreatedResource{
		ID:      vmid,
		Kind:    config.KindContainer,
		Name:    name,
		Status:  string(PhaseCreated),
		Profile: config.CIServerProfile,
	}
	if ip, err := o.client.ContainerIP(ctx, node, vmid); err == nil {
		res.IPAddress = ip
	}

	// Install synchronously; the CI server must be answering before agents
	// try to register against it.
	o.status.Transition(vmid, PhaseProvisioning, "installing CI server")
	installCtx, cancel := context.WithTimeout(ctx, o.ciInstallTimeout)
	defer cancel()
	if err := o.provisionCIServer(installCtx, vmid, req); err != nil {
		o.status.Transition(vmid, PhaseFailed, err.Error())
		res.Status = string(PhaseFailed)
		o.fail(report, name, err)
	} else {
		o.status.Transition(vmid, PhaseRunning, "")
		res.Status = string(PhaseRunning)
	}
	report.CreatedResources = append(report.CreatedResources, res)
	o.obs.Event(Event{Type: EventResourceCreated, Phase: "ci-server", Resource: name, Fields: map[string]string{"id": fmt.Sprint(vmid)}})
}

func (o *Orchestrator) provisionCIServer(ctx context.Context, vmid int, req config.DeploymentRequest) error {
	if req.Credential != nil {
		script := scripts.Credential(config.FamilyLinux, *req.Credential)
		if _, err := o.exec.RunInGuest(ctx, vmid, script); err != nil {
			return fmt.Errorf("inject credential: %w", err)
		}
		o.logf(vmid, "credential %q injected", req.Credential.Username)
	}
	if _, err := o.exec.RunInGuest(ctx, vmid, scripts.CIServerInstall(req)); err != nil {
		return fmt.Errorf("install CI server: %w", err)
	}
	o.logf(vmid, "CI server installed at %s", req.CIURL())
	return nil
}

// agentPhase creates one agent resource. Every failure is contained to this
// agent; siblings are always attempted.
func (o *Orchestrator) agentPhase(ctx context.Context, node string, agent config.AgentSpec, req config.DeploymentRequest, report *Report) {
	switch agent.OS.Kind() {
	case config.KindContainer:
		o.linuxAgent(ctx, node, agent, req, report)
	default:
		o.vmAgent(ctx, node, agent, req, report)
	}
}

// linuxAgent creates and starts the container, then hands provisioning to a
// supervised background task. The run does not block on agent software
// installation, only on the resource existing.
func (o *Orchestrator) linuxAgent(ctx context.Context, node string, agent config.AgentSpec, req config.DeploymentRequest, report *Report) {
	osName := string(agent.OS)

	tmpl, err := o.resolver.EnsureContainerTemplate(ctx, node, agent.OS)
	if err != nil {
		o.fail(report, "agent-"+osName, err)
		return
	}
	vmid, err := o.nextID(ctx)
	if err != nil {
		o.fail(report, "agent-"+osName, err)
		return
	}
	name := fmt.Sprintf("agent-%s-%d", osName, vmid)

	o.obs.Event(Event{Type: EventResourceCreating, Phase: "agents", Resource: name})
	spec := builder.AgentContainerSpec(agent, vmid, name, tmpl.VolID, req)
	if err := o.builder.CreateContainer(ctx, node, spec); err != nil {
		o.fail(report, name, err)
		return
	}

	o.status.Track(vmid, name, config.KindContainer)
	resourcesCreatedTotal.WithLabelValues(string(config.KindContainer)).Inc()
	res := CreatedResource{
		ID:      vmid,
		Kind:    config.KindContainer,
		Name:    name,
		Status:  string(PhaseCreated),
		Profile: agent.OS.Profile(),
	}
	if ip, err := o.client.ContainerIP(ctx, node, vmid); err == nil {
		res.IPAddress = ip
	}
	report.CreatedResources = append(report.CreatedResources, res)
	o.obs.Event(Event{Type: EventResourceCreated, Phase: "agents", Resource: name, Fields: map[string]string{"id": fmt.Sprint(vmid)}})

	agentOS := agent.OS
	o.group.Go(name, func() error {
		return o.provisionLinuxAgent(context.WithoutCancel(ctx), vmid, agentOS, req)
	})
}

func (o *Orchestrator) provisionLinuxAgent(ctx context.Context, vmid int, os config.OS, req config.DeploymentRequest) error {
	o.status.Transition(vmid, PhaseProvisioning, "installing agent software")
	o.logf(vmid, "provisioning %s agent", os)

	if req.Credential != nil {
		script := scripts.Credential(config.FamilyLinux, *req.Credential)
		if _, err := o.exec.RunInGuest(ctx, vmid, script); err != nil {
			o.status.Transition(vmid, PhaseFailed, err.Error())
			o.logf(vmid, "credential injection failed: %v", err)
			return err
		}
	}
	if mounts := scripts.Mounts(config.FamilyLinux, req.SharedMounts); mounts != "" {
		if _, err := o.exec.RunInGuest(ctx, vmid, mounts); err != nil {
			o.logf(vmid, "shared mounts failed (continuing): %v", err)
		}
	}
	if _, err := o.exec.RunInGuest(ctx, vmid, scripts.AgentInstall(os, req)); err != nil {
		o.status.Transition(vmid, PhaseFailed, err.Error())
		o.logf(vmid, "agent install failed: %v", err)
		return err
	}

	o.status.Transition(vmid, PhaseRunning, "")
	o.logf(vmid, "agent ready")
	return nil
}

// vmAgent creates one Windows or macOS VM with whatever install media could
// be resolved. An unresolvable image is a user-actionable outcome, not a
// creation failure: the VM is still created, without media, and the status
// says what to do.
func (o *Orchestrator) vmAgent(ctx context.Context, node string, agent config.AgentSpec, req config.DeploymentRequest, report *Report) {
	osName := string(agent.OS)

	vmid, err := o.nextID(ctx)
	if err != nil {
		o.fail(report, "agent-"+osName, err)
		return
	}
	name := fmt.Sprintf("agent-%s-%d", osName, vmid)

	spec := builder.AgentVMSpec(agent, vmid, name, req)
	var note string
	if agent.OS.Family() == config.FamilyMacOS {
		note = o.macosMedia(ctx, node, agent, &spec, report)
	} else {
		note = o.windowsMedia(ctx, node, agent, req, &spec, report)
	}
	// Without install media there is nothing to boot into.
	spec.Start = spec.InstallISO != ""

	o.obs.Event(Event{Type: EventResourceCreating, Phase: "agents", Resource: name})
	if err := o.builder.CreateVM(ctx, node, spec); err != nil {
		o.fail(report, name, err)
		return
	}

	status := string(PhaseCreated)
	if note != "" {
		status = note
	}
	o.status.Track(vmid, name, config.KindVirtualMachine)
	if note != "" {
		o.status.Transition(vmid, PhaseCreated, note)
	}
	resourcesCreatedTotal.WithLabelValues(string(config.KindVirtualMachine)).Inc()

	var mediaRefs []string
	for _, ref := range []string{spec.InstallISO, spec.VirtioISO, spec.AnswerISO} {
		if ref != "" {
			mediaRefs = append(mediaRefs, ref)
		}
	}
	report.CreatedResources = append(report.CreatedResources, CreatedResource{
		ID:        vmid,
		Kind:      config.KindVirtualMachine,
		Name:      name,
		Status:    status,
		Profile:   agent.OS.Profile(),
		MediaRefs: mediaRefs,
	})
	o.obs.Event(Event{Type: EventResourceCreated, Phase: "agents", Resource: name, Fields: map[string]string{"id": fmt.Sprint(vmid)}})
}

// windowsMedia resolves install media in priority order: a user-selected
// ISO needs only the small answer ISO; otherwise a full unattended image is
// synthesized; if that fails the VM gets no media and the note tells the
// user to select an ISO. Returns a status note, empty when media resolved.
func (o *Orchestrator) windowsMedia(ctx context.Context, node string, agent config.AgentSpec, req config.DeploymentRequest, spec *builder.VMSpec, report *Report) string {
	params := o.unattendParams(agent, req)

	if agent.SelectedISO != "" {
		answer, err := o.resolver.EnsureAnswerISO(ctx, node, agent.OS, params)
		if err != nil {
			o.fail(report, "agent-"+string(agent.OS), err)
			return "answer ISO synthesis failed; created without media"
		}
		spec.InstallISO = agent.SelectedISO
		spec.AnswerISO = answer.VolID
		spec.VirtioISO = o.findVirtioISO(ctx, node, req.StoragePool)
		o.obs.Event(Event{Type: EventMediaResolved, Phase: "agents", Message: agent.SelectedISO})
		return ""
	}

	unattended, err := o.resolver.EnsureUnattendedISO(ctx, node, agent.OS, params, scripts.WindowsSetupComplete(agent.OS, req))
	if err != nil {
		o.fail(report, "agent-"+string(agent.OS), err)
		o.obs.Event(Event{Type: EventMediaMissing, Phase: "agents", Message: err.Error()})
		return "no usable install media; select an ISO from storage and redeploy"
	}
	spec.InstallISO = unattended.VolID
	spec.VirtioISO = o.findVirtioISO(ctx, node, req.StoragePool)
	o.obs.Event(Event{Type: EventMediaResolved, Phase: "agents", Message: unattended.VolID})
	return ""
}

// macosMedia resolves the recovery image. Bootloader preparation happens
// out of band; the note records that it is still pending.
func (o *Orchestrator) macosMedia(ctx context.Context, node string, agent config.AgentSpec, spec *builder.VMSpec, report *Report) string {
	rec, err := o.resolver.EnsureMedia(ctx, node, agent.OS)
	if err != nil {
		o.fail(report, "agent-"+string(agent.OS), err)
		o.obs.Event(Event{Type: EventMediaMissing, Phase: "agents", Message: err.Error()})
		return "recovery image unavailable; created without media"
	}
	spec.InstallISO = rec.VolID
	o.obs.Event(Event{Type: EventMediaResolved, Phase: "agents", Message: rec.VolID})
	return "created; bootloader preparation pending"
}

func (o *Orchestrator) unattendParams(agent config.AgentSpec, req config.DeploymentRequest) scripts.UnattendParams {
	params := scripts.UnattendParams{
		OS:       agent.OS,
		Username: "builder",
		Password: "Builder123!",
		DNS:      req.Network.DNS,
	}
	if req.Credential != nil {
		if req.Credential.Username != "" {
			params.Username = req.Credential.Username
		}
		if req.Credential.Password != "" {
			params.Password = req.Credential.Password
		}
	}
	if req.Network.Mode == config.NetworkStatic {
		params.StaticIP = agent.StaticIP
		params.Gateway = agent.Gateway
		if params.Gateway == "" {
			params.Gateway = req.Network.Gateway
		}
	}
	return params
}

// findVirtioISO looks for a driver ISO already present in storage. Missing
// drivers degrade the install, they do not block it.
func (o *Orchestrator) findVirtioISO(ctx context.Context, node, storage string) string {
	volumes, err := o.client.ListVolumes(ctx, node, storage)
	if err != nil {
		return ""
	}
	for _, v := range volumes {
		if strings.Contains(v.VolID, "virtio-win") {
			return v.VolID
		}
	}
	return ""
}

// logf appends one timestamped line to the resource's provisioning log.
// Logging never fails a run.
func (o *Orchestrator) logf(vmid int, format string, args ...interface{}) {
	if o.logDir == "" {
		return
	}
	if err := os.MkdirAll(o.logDir, 0o755); err != nil {
		return
	}
	path := filepath.Join(o.logDir, fmt.Sprintf("resource-%d.log", vmid))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %s\n", time.Now().Format(time.RFC3339), fmt.Sprintf(format, args...))
}
