package scripts

import (
	"text/template"

	"github.com/buildforever/farmctl/internal/config"
)

var ciServerTmpl = template.Must(template.New("ci-server-install").Parse(`#!/bin/bash
set -e

apt-get update
apt-get install -y curl openssh-server ca-certificates tzdata perl
{{.Mounts}}
curl -sS https://packages.gitlab.com/install/repositories/gitlab/gitlab-ee/script.deb.sh | bash

GITLAB_ROOT_PASSWORD="{{.AdminPassword}}" EXTERNAL_URL="{{.ExternalURL}}" apt-get install -y gitlab-ee

cat >> /etc/gitlab/gitlab.rb << 'GITLAB_CONFIG'
gitlab_rails['initial_root_password'] = "{{.AdminPassword}}"
{{- if .LetsEncryptEmail}}
letsencrypt['enable'] = true
letsencrypt['contact_emails'] = ['{{.LetsEncryptEmail}}']
{{- end}}
GITLAB_CONFIG

gitlab-ctl reconfigure

echo "GitLab installation complete!"
`))

type ciServerData struct {
	ExternalURL      string
	AdminPassword    string
	LetsEncryptEmail string
	Mounts           string
}

// CIServerInstall renders the GitLab installation script for the CI server
// container. TLS via Let's Encrypt is enabled only when an admin email is
// given; the external URL degrades to plain HTTP otherwise.
func CIServerInstall(req config.DeploymentRequest) string {
	scheme := "http://"
	if req.CIAdminEmail != "" {
		scheme = "https://"
	}
	return render(ciServerTmpl, ciServerData{
		ExternalURL:      scheme + req.CIServerDomain,
		AdminPassword:    req.CIAdminPassword,
		LetsEncryptEmail: req.CIAdminEmail,
		Mounts:           Mounts(config.FamilyLinux, req.SharedMounts),
	})
}
