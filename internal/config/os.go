package config

import "fmt"

// OS identifies a supported agent operating system.
type OS string

const (
	OSDebian        OS = "debian"
	OSUbuntu        OS = "ubuntu"
	OSArch          OS = "arch"
	OSRocky         OS = "rocky"
	OSWindows10     OS = "windows-10"
	OSWindows11     OS = "windows-11"
	OSWinServer2022 OS = "windows-server-2022"
	OSWinServer2025 OS = "windows-server-2025"
	OSMacOS         OS = "macos"
)

// Family groups operating systems by how they are provisioned.
type Family string

const (
	FamilyLinux   Family = "linux"
	FamilyWindows Family = "windows"
	FamilyMacOS   Family = "macos"
)

// ResourceKind is the control-plane resource type backing an agent.
type ResourceKind string

const (
	KindContainer      ResourceKind = "container"
	KindVirtualMachine ResourceKind = "vm"
)

// ResourceProfile is the compute sizing for one agent.
type ResourceProfile struct {
	Cores    int `json:"cores" yaml:"cores"`
	MemoryMB int `json:"memoryMB" yaml:"memory_mb"`
	DiskGB   int `json:"diskGB" yaml:"disk_gb"`
}

// osInfo carries the static per-OS provisioning parameters.
type osInfo struct {
	family  Family
	profile ResourceProfile
}

var osTable = map[OS]osInfo{
	OSDebian:        {FamilyLinux, ResourceProfile{Cores: 2, MemoryMB: 4096, DiskGB: 40}},
	OSUbuntu:        {FamilyLinux, ResourceProfile{Cores: 2, MemoryMB: 4096, DiskGB: 40}},
	OSArch:          {FamilyLinux, ResourceProfile{Cores: 2, MemoryMB: 4096, DiskGB: 40}},
	OSRocky:         {FamilyLinux, ResourceProfile{Cores: 2, MemoryMB: 4096, DiskGB: 40}},
	OSWindows10:     {FamilyWindows, ResourceProfile{Cores: 4, MemoryMB: 8192, DiskGB: 60}},
	OSWindows11:     {FamilyWindows, ResourceProfile{Cores: 4, MemoryMB: 8192, DiskGB: 60}},
	OSWinServer2022: {FamilyWindows, ResourceProfile{Cores: 4, MemoryMB: 16384, DiskGB: 80}},
	OSWinServer2025: {FamilyWindows, ResourceProfile{Cores: 4, MemoryMB: 16384, DiskGB: 80}},
	OSMacOS:         {FamilyMacOS, ResourceProfile{Cores: 4, MemoryMB: 8192, DiskGB: 80}},
}

// SupportedOS lists all operating systems in deterministic order.
var SupportedOS = []OS{
	OSDebian, OSUbuntu, OSArch, OSRocky,
	OSWindows10, OSWindows11, OSWinServer2022, OSWinServer2025,
	OSMacOS,
}

// ParseOS validates a raw OS identifier.
func ParseOS(raw string) (OS, error) {
	os := OS(raw)
	if _, ok := osTable[os]; !ok {
		return "", fmt.Errorf("unsupported os identifier: %q", raw)
	}
	return os, nil
}

// Valid reports whether the OS is a known identifier.
func (o OS) Valid() bool {
	_, ok := osTable[o]
	return ok
}

// Family returns the provisioning family of the OS.
func (o OS) Family() Family {
	return osTable[o].family
}

// Profile returns the static resource profile for the OS.
func (o OS) Profile() ResourceProfile {
	return osTable[o].profile
}

// Kind returns the control-plane resource kind used to host the OS.
// Linux agents run as containers; Windows and macOS need full VMs.
func (o OS) Kind() ResourceKind {
	if o.Family() == FamilyLinux {
		return KindContainer
	}
	return KindVirtualMachine
}

// RequiresTPM reports whether the Windows variant mandates a TPM 2.0 module.
func (o OS) RequiresTPM() bool {
	return o == OSWindows11 || o == OSWinServer2025
}

// Tags returns the CI tag list advertised by an agent of this OS.
func (o OS) Tags() string {
	switch o {
	case OSWindows10:
		return "windows,windows-10,desktop"
	case OSWindows11:
		return "windows,windows-11,desktop"
	case OSWinServer2022:
		return "windows,server,2022"
	case OSWinServer2025:
		return "windows,server,2025"
	case OSMacOS:
		return "macos,darwin"
	case OSRocky:
		return "linux,rocky,rhel"
	default:
		return fmt.Sprintf("linux,%s", o)
	}
}

// ContainerTemplate returns the LXC template filename for Linux agents.
func (o OS) ContainerTemplate() string {
	switch o {
	case OSDebian:
		return "debian-12-standard_12.2-1_amd64.tar.zst"
	case OSUbuntu:
		return "ubuntu-22.04-standard_22.04-1_amd64.tar.zst"
	case OSRocky:
		return "rockylinux-9-default_20221109_amd64.tar.xz"
	case OSArch:
		return "archlinux-base_20231015-1_amd64.tar.zst"
	default:
		return ""
	}
}
