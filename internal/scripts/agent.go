package scripts

import (
	"text/template"

	"github.com/buildforever/farmctl/internal/config"
)

var linuxAgentTmpl = template.Must(template.New("linux-agent-install").Parse(`#!/bin/bash
set -e

{{.InstallGuestAgent}}
curl -fsSL https://get.docker.com | sh
systemctl enable docker
systemctl start docker
{{.Mounts}}
{{.InstallRunner}}
{{- if .CIURL}}

gitlab-runner register \
    --non-interactive \
    --url "{{.CIURL}}" \
    --registration-token "{{.Token}}" \
    --executor "docker" \
    --docker-image "alpine:latest" \
    --description "{{.Description}}" \
    --tag-list "{{.Tags}}" \
    --run-untagged="true" \
    --locked="false"

gitlab-runner start
{{- end}}

echo "Agent ({{.Description}}) installation complete!"
`))

var windowsAgentTmpl = template.Must(template.New("windows-agent-install").Parse(`$ErrorActionPreference = "Stop"

New-Item -ItemType Directory -Force -Path C:\GitLab-Runner

Invoke-WebRequest -Uri "https://gitlab-runner-downloads.s3.amazonaws.com/latest/binaries/gitlab-runner-windows-amd64.exe" -OutFile "C:\GitLab-Runner\gitlab-runner.exe"
{{.Mounts}}
{{- if .CIURL}}

cd C:\GitLab-Runner
.\gitlab-runner.exe register ` + "`" + `
    --non-interactive ` + "`" + `
    --url "{{.CIURL}}" ` + "`" + `
    --registration-token "{{.Token}}" ` + "`" + `
    --executor "shell" ` + "`" + `
    --description "{{.Description}}" ` + "`" + `
    --tag-list "{{.Tags}}" ` + "`" + `
    --run-untagged="true" ` + "`" + `
    --locked="false"

.\gitlab-runner.exe install
.\gitlab-runner.exe start
{{- end}}

Write-Host "Agent (Windows) installation complete!"
`))

var macosAgentTmpl = template.Must(template.New("macos-agent-install").Parse(`#!/bin/bash
set -e

if ! command -v brew &> /dev/null; then
    /bin/bash -c "$(curl -fsSL https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh)"
fi

brew install gitlab-runner
{{.Mounts}}
{{- if .CIURL}}

gitlab-runner register \
    --non-interactive \
    --url "{{.CIURL}}" \
    --registration-token "{{.Token}}" \
    --executor "shell" \
    --description "{{.Description}}" \
    --tag-list "{{.Tags}}" \
    --run-untagged="true" \
    --locked="false"

brew services start gitlab-runner
{{- end}}

xcode-select --install 2>/dev/null || true
brew install cocoapods fastlane

echo "Agent (macOS) installation complete!"
`))

type agentData struct {
	CIURL             string
	Token             string
	Description       string
	Tags              string
	Mounts            string
	InstallGuestAgent string
	InstallRunner     string
}

const aptGuestAgent = `apt-get install -y qemu-guest-agent
systemctl enable qemu-guest-agent
systemctl start qemu-guest-agent`

const dnfGuestAgent = `dnf install -y qemu-guest-agent
systemctl enable qemu-guest-agent
systemctl start qemu-guest-agent`

const pacmanGuestAgent = `pacman -Sy --noconfirm qemu-guest-agent
systemctl enable qemu-guest-agent
systemctl start qemu-guest-agent`

const aptRunner = `curl -L "https://packages.gitlab.com/install/repositories/runner/gitlab-runner/script.deb.sh" | bash
apt-get install -y gitlab-runner`

const dnfRunner = `curl -L "https://packages.gitlab.com/install/repositories/runner/gitlab-runner/script.rpm.sh" | bash
dnf install -y gitlab-runner`

const binaryRunner = `curl -L "https://gitlab-runner-downloads.s3.amazonaws.com/latest/binaries/gitlab-runner-linux-amd64" -o /usr/local/bin/gitlab-runner
chmod +x /usr/local/bin/gitlab-runner
gitlab-runner install --user=gitlab-runner --working-directory=/home/gitlab-runner`

// AgentInstall renders the runner installation script for one agent.
// Registration is emitted only when both a CI URL and a token are known;
// without them the agent is installed but left standalone.
func AgentInstall(os config.OS, req config.DeploymentRequest) string {
	ciURL := req.CIURL()
	token := req.RegistrationToken
	if ciURL == "" || token == "" {
		ciURL, token = "", ""
	}

	data := agentData{
		CIURL:       ciURL,
		Token:       token,
		Description: string(os) + "-agent",
		Tags:        os.Tags(),
		Mounts:      Mounts(os.Family(), req.SharedMounts),
	}

	switch os.Family() {
	case config.FamilyWindows:
		return render(windowsAgentTmpl, data)
	case config.FamilyMacOS:
		return render(macosAgentTmpl, data)
	}

	switch os {
	case config.OSRocky:
		data.InstallGuestAgent = dnfGuestAgent
		data.InstallRunner = dnfRunner
	case config.OSArch:
		data.InstallGuestAgent = pacmanGuestAgent
		data.InstallRunner = binaryRunner
	default:
		data.InstallGuestAgent = aptGuestAgent
		data.InstallRunner = aptRunner
	}
	return render(linuxAgentTmpl, data)
}
