// Package media resolves, downloads, and synthesizes the install images
// agents boot from: Linux ISOs, Windows ISOs with unattended answer files,
// and macOS recovery images.
package media

import (
	"context"

	"github.com/buildforever/farmctl/internal/config"
)

// URLSource resolves vendor download URLs for install media. The lookups hit
// vendor endpoints that change shape over time, so they sit behind this
// interface and the rest of the resolver stays testable offline.
type URLSource interface {
	// WindowsISO returns a direct download URL for the given Windows variant.
	WindowsISO(ctx context.Context, os config.OS) (string, error)

	// MacRecovery returns a download URL for the recovery image of the given
	// macOS version.
	MacRecovery(ctx context.Context, version string) (string, error)
}

// linuxISOURLs carries the pinned installer URLs for Linux VMs. Containers
// use templates instead, so these only matter when a Linux OS is forced onto
// a VM.
var linuxISOURLs = map[config.OS]string{
	config.OSDebian: "https://cdimage.debian.org/debian-cd/current/amd64/iso-cd/debian-12.4.0-amd64-netinst.iso",
	config.OSUbuntu: "https://releases.ubuntu.com/22.04.3/ubuntu-22.04.3-live-server-amd64.iso",
	config.OSRocky:  "https://download.rockylinux.org/pub/rocky/9/isos/x86_64/Rocky-9.3-x86_64-minimal.iso",
	config.OSArch:   "https://geo.mirror.pkgbuild.com/iso/latest/archlinux-x86_64.iso",
}

// manualDownloadPages point users at the official page for each Windows
// variant when automatic resolution fails.
var manualDownloadPages = map[config.OS]string{
	config.OSWindows10:     "https://www.microsoft.com/software-download/windows10ISO",
	config.OSWindows11:     "https://www.microsoft.com/software-download/windows11",
	config.OSWinServer2022: "https://www.microsoft.com/evalcenter/evaluate-windows-server-2022",
	config.OSWinServer2025: "https://www.microsoft.com/evalcenter/evaluate-windows-server-2025",
}

// MockURLSource is a func-field test double for URLSource.
type MockURLSource struct {
	WindowsISOFunc  func(ctx context.Context, os config.OS) (string, error)
	MacRecoveryFunc func(ctx context.Context, version string) (string, error)
}

func (m *MockURLSource) WindowsISO(ctx context.Context, os config.OS) (string, error) {
	if m.WindowsISOFunc != nil {
		return m.WindowsISOFunc(ctx, os)
	}
	return "", nil
}

func (m *MockURLSource) MacRecovery(ctx context.Context, version string) (string, error) {
	if m.MacRecoveryFunc != nil {
		return m.MacRecoveryFunc(ctx, version)
	}
	return "", nil
}

var _ URLSource = (*MockURLSource)(nil)
