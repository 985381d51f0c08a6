package builder

import (
	"context"
	"strconv"
	"time"

	"github.com/buildforever/farmctl/internal/config"
	"github.com/buildforever/farmctl/internal/proxmox"
)

// appleSMCArgs unlocks macOS guests on QEMU. The OSK string is the value
// every Apple machine ships in its SMC and is required verbatim.
const appleSMCArgs = "-device isa-applesmc,osk=ourhardworkbythesewordsguardedpleasedontsteal(c)AppleComputerInc" +
	" -smbios type=2" +
	" -device usb-kbd,bus=ehci.0,port=2" +
	" -global nec-usb-xhci.msi=off" +
	" -global ICH9-LPC.acpi-pci-hotplug-with-bridge-support=off" +
	" -cpu host,kvm=on,vendor=GenuineIntel,+kvm_pv_unhalt,+kvm_pv_eoi,+hypervisor,+invtsc"

// VMSpec describes one QEMU virtual machine to create.
type VMSpec struct {
	VMID     int
	Name     string
	OS       config.OS
	Cores    int
	MemoryMB int
	DiskGB   int
	Storage  string
	Bridge   string

	// InstallISO is the volid of the installer attached to ide2. When set
	// the machine boots from it first.
	InstallISO string
	// VirtioISO is the volid of the driver ISO attached to ide3.
	VirtioISO string
	// AnswerISO is the volid of the unattended-answer ISO attached to sata0.
	AnswerISO string

	Start bool
}

// Params derives the creation form values. Firmware and machine type follow
// the guest OS: Windows and macOS need OVMF on a q35 board, everything else
// runs SeaBIOS on the default pc machine.
func (s VMSpec) Params() map[string]string {
	params := map[string]string{
		"vmid":    strconv.Itoa(s.VMID),
		"name":    s.Name,
		"memory":  strconv.Itoa(s.MemoryMB),
		"cores":   strconv.Itoa(s.Cores),
		"sockets": "1",
		"cpu":     "host",
		"net0":    "virtio,bridge=" + s.Bridge,
		"scsihw":  "virtio-scsi-pci",
		"scsi0":   s.Storage + ":" + strconv.Itoa(s.DiskGB),
		"agent":   "enabled=1",
	}

	switch s.OS.Family() {
	case config.FamilyMacOS:
		params["bios"] = "ovmf"
		params["machine"] = "q35"
		params["vga"] = "vmware"
		params["ostype"] = "other"
		params["efidisk0"] = s.Storage + ":1"
		params["args"] = appleSMCArgs
	case config.FamilyWindows:
		params["bios"] = "ovmf"
		params["machine"] = "q35"
		params["efidisk0"] = s.Storage + ":1"
		if s.OS.RequiresTPM() {
			params["ostype"] = "win11"
			params["tpmstate0"] = s.Storage + ":1,version=v2.0"
		} else {
			params["ostype"] = "win10"
		}
	default:
		params["bios"] = "seabios"
		params["machine"] = "pc"
		params["ostype"] = "l26"
	}

	if s.InstallISO != "" {
		params["ide2"] = s.InstallISO + ",media=cdrom"
		params["boot"] = "order=ide2;scsi0"
	} else {
		params["boot"] = "order=scsi0"
	}
	if s.VirtioISO != "" {
		params["ide3"] = s.VirtioISO + ",media=cdrom"
	}
	if s.AnswerISO != "" {
		params["sata0"] = s.AnswerISO + ",media=cdrom"
	}
	return params
}

// CreateVM creates the virtual machine, waits for the creation task, and
// starts it when requested.
func (b *Builder) CreateVM(ctx context.Context, node string, spec VMSpec) error {
	upid, err := b.client.CreateVM(ctx, node, spec.Params())
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
		if _, err := b.client.StartVM(ctx, node, spec.VMID); err != nil {
			return err
		}
	}
	return nil
}

// StopVM stops the virtual machine and waits for the stop task.
func (b *Builder) StopVM(ctx context.Context, node string, vmid int) error {
	upid, err := b.client.StopVM(ctx, node, vmid)
	if err != nil {
		return err
	}
	return proxmox.WaitForTask(ctx, b.client, node, upid, b.taskTimeout)
}

// AgentContainerSpec derives the container spec for one Linux agent, using
// the per-OS default resource profile and the request's network policy.
func AgentContainerSpec(agent config.AgentSpec, vmid int, name, template string, req config.DeploymentRequest) ContainerSpec {
	profile := agent.OS.Profile()
	spec := ContainerSpec{
		VMID:     vmid,
		Hostname: name,
		Template: template,
		Storage:  req.StoragePool,
		DiskGB:   profile.DiskGB,
		Cores:    profile.Cores,
		MemoryMB: profile.MemoryMB,
		Bridge:   req.Network.Bridge,
		IP:       "dhcp",
		Start:    true,
	}
	if req.Network.Mode == config.NetworkStatic {
		spec.IP = agent.StaticIP
		spec.Gateway = agent.Gateway
		if spec.Gateway == "" {
			spec.Gateway = req.Network.Gateway
		}
	}
	if req.Credential != nil {
		spec.SSHPublicKeys = req.Credential.SSHPublicKey
		spec.RootPassword = req.Credential.Password
	}
	return spec
}

// AgentVMSpec derives the VM spec for one Windows or macOS agent.
func AgentVMSpec(agent config.AgentSpec, vmid int, name string, req config.DeploymentRequest) VMSpec {
	profile := agent.OS.Profile()
	return VMSpec{
		VMID:     vmid,
		Name:     name,
		OS:       agent.OS,
		Cores:    profile.Cores,
		MemoryMB: profile.MemoryMB,
		DiskGB:   profile.DiskGB,
		Storage:  req.StoragePool,
		Bridge:   req.Network.Bridge,
		Start:    true,
	}
}

// CIServerContainerSpec derives the container spec for the CI server, sized
// by the fixed CI server profile.
func CIServerContainerSpec(vmid int, template string, req config.DeploymentRequest) ContainerSpec {
	spec := ContainerSpec{
		VMID:     vmid,
		Hostname: "ci-server",
		Template: template,
		Storage:  req.StoragePool,
		DiskGB:   config.CIServerProfile.DiskGB,
		Cores:    config.CIServerProfile.Cores,
		MemoryMB: config.CIServerProfile.MemoryMB,
		Bridge:   req.Network.Bridge,
		IP:       "dhcp",
		Start:    true,
	}
	if req.Credential != nil {
		spec.SSHPublicKeys = req.Credential.SSHPublicKey
		spec.RootPassword = req.Credential.Password
	}
	return spec
}
