// Package config defines the deployment configuration model: the
// control-plane connection profile, the declarative deployment request, and
// the static per-OS provisioning tables.
package config

// ConnectionProfile identifies one control-plane endpoint. Authentication is
// either user+password or an API token pair. Immutable per deployment run.
type ConnectionProfile struct {
	Host        string `mapstructure:"host" yaml:"host" validate:"required"`
	Port        int    `mapstructure:"port" yaml:"port"`
	User        string `mapstructure:"user" yaml:"user" validate:"required"`
	Password    string `mapstructure:"password" yaml:"password"`
	TokenName   string `mapstructure:"token_name" yaml:"token_name"`
	TokenSecret string `mapstructure:"token_secret" yaml:"token_secret"`
	TLSVerify   bool   `mapstructure:"tls_verify" yaml:"tls_verify"`
}

// UsesToken reports whether token authentication is configured.
func (p ConnectionProfile) UsesToken() bool {
	return p.TokenName != "" && p.TokenSecret != ""
}

// AgentSpec describes one requested build agent.
type AgentSpec struct {
	OS OS `mapstructure:"os" yaml:"os" validate:"required"`

	// SelectedISO is the storage volume ID of a user-pre-selected installer
	// image. Only meaningful for Windows agents; when set, the orchestrator
	// synthesizes just the small answer ISO instead of a full unattended image.
	SelectedISO string `mapstructure:"selected_iso" yaml:"selected_iso,omitempty"`

	// StaticIP/Gateway are used only when the request's network mode is static.
	StaticIP string `mapstructure:"static_ip" yaml:"static_ip,omitempty"`
	Gateway  string `mapstructure:"gateway" yaml:"gateway,omitempty"`
}

// NetworkMode selects between DHCP and static per-agent addressing.
type NetworkMode string

const (
	NetworkDHCP   NetworkMode = "dhcp"
	NetworkStatic NetworkMode = "static"
)

// NetworkConfig is the request-level network policy.
type NetworkConfig struct {
	Mode    NetworkMode `mapstructure:"mode" yaml:"mode"`
	Bridge  string      `mapstructure:"bridge" yaml:"bridge"`
	DNS     string      `mapstructure:"dns" yaml:"dns"`
	Gateway string      `mapstructure:"gateway" yaml:"gateway,omitempty"`
}

// SharedMount describes one NFS or CIFS share mounted into every resource.
type SharedMount struct {
	Kind      string `mapstructure:"kind" yaml:"kind" validate:"oneof=nfs cifs"`
	Share     string `mapstructure:"share" yaml:"share" validate:"required"`
	MountPath string `mapstructure:"mount_path" yaml:"mount_path"`
	Username  string `mapstructure:"username" yaml:"username,omitempty"`
	Password  string `mapstructure:"password" yaml:"password,omitempty"`
	Domain    string `mapstructure:"domain" yaml:"domain,omitempty"`
}

// InjectedCredential is the account created inside every provisioned resource.
type InjectedCredential struct {
	Username     string `mapstructure:"username" yaml:"username" validate:"required"`
	Password     string `mapstructure:"password" yaml:"password,omitempty"`
	SSHPublicKey string `mapstructure:"ssh_public_key" yaml:"ssh_public_key,omitempty"`
}

// DeploymentRequest is the declarative description of one provisioning run.
// Constructed once per run and never mutated.
type DeploymentRequest struct {
	CIServerDomain    string              `mapstructure:"ci_server_domain" yaml:"ci_server_domain" validate:"required_if=DeployCIServer true"`
	CIAdminPassword   string              `mapstructure:"ci_admin_password" yaml:"ci_admin_password"`
	CIAdminEmail      string              `mapstructure:"ci_admin_email" yaml:"ci_admin_email"`
	DeployCIServer    bool                `mapstructure:"deploy_ci_server" yaml:"deploy_ci_server"`
	ExistingCIURL     string              `mapstructure:"existing_ci_url" yaml:"existing_ci_url,omitempty"`
	RegistrationToken string              `mapstructure:"registration_token" yaml:"registration_token,omitempty"`
	Agents            []AgentSpec         `mapstructure:"agents" yaml:"agents" validate:"dive"`
	Network           NetworkConfig       `mapstructure:"network" yaml:"network"`
	SharedMounts      []SharedMount       `mapstructure:"shared_mounts" yaml:"shared_mounts,omitempty" validate:"dive"`
	Credential        *InjectedCredential `mapstructure:"credential" yaml:"credential,omitempty"`

	// TargetNode pins the run to one compute node; empty means "first
	// available".
	TargetNode string `mapstructure:"target_node" yaml:"target_node,omitempty"`

	// StoragePool holds install media and resource disks.
	StoragePool string `mapstructure:"storage_pool" yaml:"storage_pool"`
}

// CIURL returns the CI endpoint agents should register against: the freshly
// deployed server's domain when one is requested, else the existing URL.
// Empty means agents run standalone.
func (r DeploymentRequest) CIURL() string {
	if r.DeployCIServer {
		return "https://" + r.CIServerDomain
	}
	return r.ExistingCIURL
}

// Config is the top-level farmctl configuration file.
type Config struct {
	Connection ConnectionProfile `mapstructure:"connection" yaml:"connection"`
	Deployment DeploymentRequest `mapstructure:"deployment" yaml:"deployment"`

	// LogDir receives the per-resource provisioning log files.
	LogDir string `mapstructure:"log_dir" yaml:"log_dir"`

	// StorePath is the sqlite database holding saved configs, credentials and
	// deployment history.
	StorePath string `mapstructure:"store_path" yaml:"store_path"`
}

// CIServerProfile is the fixed sizing for the CI server container: larger
// than any agent profile.
var CIServerProfile = ResourceProfile{Cores: 4, MemoryMB: 8192, DiskGB: 100}
