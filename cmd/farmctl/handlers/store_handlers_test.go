package handlers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildforever/farmctl/internal/store"
)

func withTempStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	orig := openStore
	openStore = func(path string) (*store.Store, error) { return s, nil }
	t.Cleanup(func() { openStore = orig })
	return s
}

func TestSaveAndShowConfig(t *testing.T) {
	s := withTempStore(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "farmctl.yaml")
	yaml := `connection:
  host: pve.lab
  user: root@pam
  password: x
deployment:
  agents:
    - os: debian
  network:
    mode: dhcp
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	require.NoError(t, SaveConfig("lab", path))

	cfg, err := s.GetConfig("lab")
	require.NoError(t, err)
	assert.Contains(t, cfg.YAML, "pve.lab")

	require.NoError(t, ShowConfig("lab"))
	require.NoError(t, ListConfigs())
	require.NoError(t, DeleteConfig("lab"))

	_, err = s.GetConfig("lab")
	require.Error(t, err)
}

func TestSaveConfig_RejectsInvalidFile(t *testing.T) {
	withTempStore(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connection: {}\n"), 0o600))

	require.Error(t, SaveConfig("bad", path))
}

func TestCredentialHandlers(t *testing.T) {
	s := withTempStore(t)

	require.NoError(t, AddCredential(store.Credential{
		Name: "lab", Host: "pve.lab", Port: 8006, User: "root@pam", Password: "x",
	}, false))
	require.NoError(t, AddCredential(store.Credential{
		Name: "prod", Host: "pve.prod", Port: 8006, User: "farmctl@pve",
		TokenName: "automation", TokenSecret: "tok",
	}, true))

	def, err := s.DefaultCredential()
	require.NoError(t, err)
	assert.Equal(t, "prod", def.Name)

	require.NoError(t, SetDefaultCredential("lab"))
	def, err = s.DefaultCredential()
	require.NoError(t, err)
	assert.Equal(t, "lab", def.Name)

	require.NoError(t, ListCredentials())
	require.NoError(t, DeleteCredential("prod"))
}

func TestAddCredential_RequiresSecret(t *testing.T) {
	withTempStore(t)

	err := AddCredential(store.Credential{Name: "x", Host: "h", User: "u"}, false)
	require.Error(t, err)
}

func TestHistory_Empty(t *testing.T) {
	withTempStore(t)
	require.NoError(t, History(5))
}
