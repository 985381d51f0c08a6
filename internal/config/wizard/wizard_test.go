package wizard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildforever/farmctl/internal/config"
)

func TestResultToConfig(t *testing.T) {
	t.Parallel()

	r := &Result{
		Host:            "pve.lab",
		Port:            8006,
		User:            "root@pam",
		AuthKind:        "password",
		Password:        "s3cret",
		DeployCIServer:  true,
		CIServerDomain:  "ci.lab",
		CIAdminPassword: "admin-pass",
		AgentOSes:       []string{"debian", "windows-11"},
		NetworkMode:     "dhcp",
		Bridge:          "vmbr0",
		StoragePool:     "local-lvm",
		CredUsername:    "builder",
		CredSSHKey:      "ssh-ed25519 AAAA",
	}

	cfg, err := r.ToConfig()
	require.NoError(t, err)

	assert.Equal(t, "pve.lab", cfg.Connection.Host)
	assert.Equal(t, "s3cret", cfg.Connection.Password)
	assert.Empty(t, cfg.Connection.TokenName)
	require.Len(t, cfg.Deployment.Agents, 2)
	assert.Equal(t, config.OSWindows11, cfg.Deployment.Agents[1].OS)
	assert.Equal(t, "local-lvm", cfg.Deployment.StoragePool)
	require.NotNil(t, cfg.Deployment.Credential)
	assert.Equal(t, "builder", cfg.Deployment.Credential.Username)

	// Defaults applied.
	assert.Equal(t, "8.8.8.8", cfg.Deployment.Network.DNS)
	assert.Equal(t, "farmctl.db", cfg.StorePath)

	require.NoError(t, cfg.Validate())
}

func TestResultToConfig_TokenAuth(t *testing.T) {
	t.Parallel()

	r := &Result{
		Host:      "pve.lab",
		User:      "farmctl@pve",
		AuthKind:  "token",
		TokenName: "automation",
		TokenSec:  "tok",
		AgentOSes: []string{"ubuntu"},
	}

	cfg, err := r.ToConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.Connection.Password)
	assert.Equal(t, "automation", cfg.Connection.TokenName)
	assert.True(t, cfg.Connection.UsesToken())
}

func TestResultToConfig_UnknownOS(t *testing.T) {
	t.Parallel()

	r := &Result{Host: "h", User: "u", Password: "p", AgentOSes: []string{"templeos"}}
	_, err := r.ToConfig()
	require.Error(t, err)
}

func TestWriteConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "farmctl.yaml")
	cfg := &config.Config{
		Connection: config.ConnectionProfile{Host: "pve.lab", User: "root@pam", Password: "x"},
	}
	cfg.ApplyDefaults()

	require.NoError(t, WriteConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# farmctl deployment configuration")
	assert.Contains(t, string(data), "pve.lab")

	// Round-trips through the loader.
	loaded, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pve.lab", loaded.Connection.Host)
}

func TestWriteConfig_RefusesOverwriteWithoutConfirm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farmctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0o600))

	orig := confirmOverwrite
	confirmOverwrite = func(string) (bool, error) { return false, nil }
	defer func() { confirmOverwrite = orig }()

	cfg := &config.Config{Connection: config.ConnectionProfile{Host: "h", User: "u", Password: "p"}}
	cfg.ApplyDefaults()

	err := WriteConfig(cfg, path)
	require.Error(t, err)

	data, _ := os.ReadFile(path)
	assert.Equal(t, "existing", string(data))
}
