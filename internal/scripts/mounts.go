package scripts

import (
	"strings"
	"text/template"

	"github.com/buildforever/farmctl/internal/config"
)

var nfsMountLinuxTmpl = template.Must(template.New("nfs-mount-linux").Parse(`
echo "Setting up NFS share..."
apt-get install -y nfs-common || dnf install -y nfs-utils || pacman -Sy --noconfirm nfs-utils
mkdir -p {{.MountPath}}
echo "{{.Share}} {{.MountPath}} nfs defaults,_netdev 0 0" >> /etc/fstab
mount -a
echo "NFS share mounted at {{.MountPath}}"
`))

var cifsMountLinuxTmpl = template.Must(template.New("cifs-mount-linux").Parse(`
echo "Setting up CIFS share..."
apt-get install -y cifs-utils || dnf install -y cifs-utils || pacman -Sy --noconfirm cifs-utils
mkdir -p {{.MountPath}}
{{- if .Username}}
cat > /root/.smbcredentials << 'EOF'
username={{.Username}}
password={{.Password}}
{{- if .Domain}}
domain={{.Domain}}
{{- end}}
EOF
chmod 600 /root/.smbcredentials
echo "//{{.Share}} {{.MountPath}} cifs credentials=/root/.smbcredentials,_netdev 0 0" >> /etc/fstab
{{- else}}
echo "//{{.Share}} {{.MountPath}} cifs defaults,_netdev 0 0" >> /etc/fstab
{{- end}}
mount -a
echo "CIFS share mounted at {{.MountPath}}"
`))

var nfsMountWindowsTmpl = template.Must(template.New("nfs-mount-windows").Parse(`
Write-Host "Setting up NFS share..."
Install-WindowsFeature -Name NFS-Client -ErrorAction SilentlyContinue
$nfsDrive = "{{.Drive}}"
$nfsPath = "\\{{.Server}}\{{.WindowsPath}}"
New-PSDrive -Name ($nfsDrive.TrimEnd(':')) -PSProvider FileSystem -Root $nfsPath -Persist -ErrorAction SilentlyContinue
Write-Host "NFS share mounted at $nfsDrive"
`))

var cifsMountWindowsTmpl = template.Must(template.New("cifs-mount-windows").Parse(`
Write-Host "Setting up CIFS share..."
$sambaDrive = "{{.Drive}}"
$sambaPath = "\\{{.Share}}"
{{- if .Username}}
$secPassword = ConvertTo-SecureString "{{.Password}}" -AsPlainText -Force
$credential = New-Object System.Management.Automation.PSCredential("{{.QualifiedUser}}", $secPassword)
New-PSDrive -Name ($sambaDrive.TrimEnd(':')) -PSProvider FileSystem -Root $sambaPath -Credential $credential -Persist
{{- else}}
New-PSDrive -Name ($sambaDrive.TrimEnd(':')) -PSProvider FileSystem -Root $sambaPath -Persist
{{- end}}
Write-Host "CIFS share mounted at $sambaDrive"
`))

var nfsMountMacTmpl = template.Must(template.New("nfs-mount-macos").Parse(`
echo "Setting up NFS share..."
mkdir -p {{.MountPath}}
mount -t nfs {{.Share}} {{.MountPath}}
echo "NFS share mounted at {{.MountPath}}"
`))

var cifsMountMacTmpl = template.Must(template.New("cifs-mount-macos").Parse(`
echo "Setting up CIFS share..."
mkdir -p {{.MountPath}}
mount -t smbfs {{.SMBURL}} {{.MountPath}}
echo "CIFS share mounted at {{.MountPath}}"
`))

type mountData struct {
	config.SharedMount
	Server        string
	WindowsPath   string
	Drive         string
	QualifiedUser string
	SMBURL        string
}

func newMountData(m config.SharedMount) mountData {
	d := mountData{SharedMount: m}

	// Windows mounts need a drive letter, not a unix path.
	d.Drive = m.MountPath
	if len(d.Drive) != 2 || d.Drive[1] != ':' {
		if m.Kind == "nfs" {
			d.Drive = "N:"
		} else {
			d.Drive = "S:"
		}
	}

	// NFS shares come as server:/path; Windows needs them as UNC components.
	d.Server = m.Share
	d.WindowsPath = "/"
	if i := strings.IndexByte(m.Share, ':'); i >= 0 {
		d.Server = m.Share[:i]
		d.WindowsPath = m.Share[i+1:]
	}
	d.WindowsPath = strings.ReplaceAll(d.WindowsPath, "/", `\`)

	d.QualifiedUser = m.Username
	if m.Domain != "" {
		d.QualifiedUser = m.Domain + `\` + m.Username
	}

	switch {
	case m.Username != "" && m.Domain != "":
		d.SMBURL = "smb://" + m.Domain + ";" + m.Username + ":" + m.Password + "@" + m.Share
	case m.Username != "":
		d.SMBURL = "smb://" + m.Username + ":" + m.Password + "@" + m.Share
	default:
		d.SMBURL = "smb://" + m.Share
	}
	return d
}

// Mounts renders the shared storage fragments for one OS family. Empty when
// no mounts are configured.
func Mounts(family config.Family, mounts []config.SharedMount) string {
	var b strings.Builder
	for _, m := range mounts {
		if m.Share == "" {
			continue
		}
		data := newMountData(m)
		switch family {
		case config.FamilyWindows:
			if m.Kind == "nfs" {
				b.WriteString(render(nfsMountWindowsTmpl, data))
			} else {
				b.WriteString(render(cifsMountWindowsTmpl, data))
			}
		case config.FamilyMacOS:
			if m.Kind == "nfs" {
				b.WriteString(render(nfsMountMacTmpl, data))
			} else {
				b.WriteString(render(cifsMountMacTmpl, data))
			}
		default:
			if m.Kind == "nfs" {
				b.WriteString(render(nfsMountLinuxTmpl, data))
			} else {
				b.WriteString(render(cifsMountLinuxTmpl, data))
			}
		}
	}
	return b.String()
}
