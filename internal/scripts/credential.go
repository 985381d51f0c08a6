package scripts

import (
	"text/template"

	"github.com/buildforever/farmctl/internal/config"
)

var linuxCredentialTmpl = template.Must(template.New("linux-credential").Parse(`#!/bin/bash
set -e

useradd -m -s /bin/bash {{.Username}} || true
usermod -aG sudo {{.Username}} || usermod -aG wheel {{.Username}} || true
{{- if .Password}}

echo "{{.Username}}:{{.Password}}" | chpasswd
{{- end}}
{{- if .SSHPublicKey}}

mkdir -p /home/{{.Username}}/.ssh
chmod 700 /home/{{.Username}}/.ssh
echo "{{.SSHPublicKey}}" >> /home/{{.Username}}/.ssh/authorized_keys
chmod 600 /home/{{.Username}}/.ssh/authorized_keys
chown -R {{.Username}}:{{.Username}} /home/{{.Username}}/.ssh
{{- end}}

echo "{{.Username}} ALL=(ALL) NOPASSWD:ALL" > /etc/sudoers.d/{{.Username}}
chmod 440 /etc/sudoers.d/{{.Username}}

echo "User {{.Username}} created successfully"
`))

var windowsCredentialTmpl = template.Must(template.New("windows-credential").Parse(`$ErrorActionPreference = "Stop"

$username = "{{.Username}}"
$password = ConvertTo-SecureString "{{.Password}}" -AsPlainText -Force

$userExists = Get-LocalUser -Name $username -ErrorAction SilentlyContinue

if (-not $userExists) {
    New-LocalUser -Name $username -Password $password -FullName "{{.Username}}" -Description "farmctl deployment account"
    Add-LocalGroupMember -Group "Administrators" -Member $username
    Write-Host "User $username created successfully"
} else {
    Set-LocalUser -Name $username -Password $password
    Write-Host "User $username password updated"
}

$sshFeature = Get-WindowsCapability -Online | Where-Object Name -like 'OpenSSH.Server*'
if ($sshFeature -and $sshFeature.State -ne 'Installed') {
    Add-WindowsCapability -Online -Name OpenSSH.Server~~~~0.0.1.0
    Start-Service sshd
    Set-Service -Name sshd -StartupType Automatic
}

Write-Host "Windows user setup complete"
`))

var windowsSSHKeyTmpl = template.Must(template.New("windows-ssh-key").Parse(`$ErrorActionPreference = "Stop"

$username = "{{.Username}}"
$sshKey = "{{.SSHPublicKey}}"

$userProfile = (Get-CimInstance Win32_UserProfile | Where-Object { $_.LocalPath -like "*$username*" }).LocalPath
if (-not $userProfile) {
    $userProfile = "C:\Users\$username"
}

$sshDir = "$userProfile\.ssh"
if (-not (Test-Path $sshDir)) {
    New-Item -ItemType Directory -Path $sshDir -Force
}

$authorizedKeys = "$sshDir\authorized_keys"
Add-Content -Path $authorizedKeys -Value $sshKey

$acl = Get-Acl $authorizedKeys
$acl.SetAccessRuleProtection($true, $false)
$rule = New-Object System.Security.AccessControl.FileSystemAccessRule("Administrators","FullControl","Allow")
$acl.AddAccessRule($rule)
$rule = New-Object System.Security.AccessControl.FileSystemAccessRule("SYSTEM","FullControl","Allow")
$acl.AddAccessRule($rule)
Set-Acl -Path $authorizedKeys -AclObject $acl

Write-Host "SSH key added for $username"
`))

var macosCredentialTmpl = template.Must(template.New("macos-credential").Parse(`#!/bin/bash
set -e

USERNAME="{{.Username}}"

if ! dscl . -read /Users/$USERNAME &>/dev/null; then
    MAXID=$(dscl . -list /Users UniqueID | awk '{print $2}' | sort -ug | tail -1)
    NEWID=$((MAXID+1))

    sudo dscl . -create /Users/$USERNAME
    sudo dscl . -create /Users/$USERNAME UserShell /bin/zsh
    sudo dscl . -create /Users/$USERNAME RealName "$USERNAME"
    sudo dscl . -create /Users/$USERNAME UniqueID $NEWID
    sudo dscl . -create /Users/$USERNAME PrimaryGroupID 20
    sudo dscl . -create /Users/$USERNAME NFSHomeDirectory /Users/$USERNAME

    sudo createhomedir -c -u $USERNAME

    echo "User $USERNAME created"
fi
{{- if .Password}}

sudo dscl . -passwd /Users/$USERNAME "{{.Password}}"
{{- end}}

sudo dscl . -append /Groups/admin GroupMembership $USERNAME
{{- if .SSHPublicKey}}

sudo mkdir -p /Users/$USERNAME/.ssh
sudo chmod 700 /Users/$USERNAME/.ssh
echo "{{.SSHPublicKey}}" | sudo tee -a /Users/$USERNAME/.ssh/authorized_keys
sudo chmod 600 /Users/$USERNAME/.ssh/authorized_keys
sudo chown -R $USERNAME:staff /Users/$USERNAME/.ssh
{{- end}}

echo "macOS user setup complete"
`))

// Credential renders the account creation script for the given OS family.
// Windows key installation is a separate script, see WindowsSSHKey.
func Credential(family config.Family, cred config.InjectedCredential) string {
	switch family {
	case config.FamilyWindows:
		return render(windowsCredentialTmpl, cred)
	case config.FamilyMacOS:
		return render(macosCredentialTmpl, cred)
	default:
		return render(linuxCredentialTmpl, cred)
	}
}

// WindowsSSHKey renders the script that installs an authorized key for a
// Windows account. Separate from Credential because it needs the account's
// profile directory to exist.
func WindowsSSHKey(cred config.InjectedCredential) string {
	return render(windowsSSHKeyTmpl, cred)
}
