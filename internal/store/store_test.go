package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildforever/farmctl/internal/fault"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "farmctl.db"))
	require.NoError(t, err)
	return s
}

func TestSavedConfigRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.SaveConfig("lab", "connection:\n  host: pve.lab\n"))

	cfg, err := s.GetConfig("lab")
	require.NoError(t, err)
	assert.Equal(t, "lab", cfg.Name)
	assert.Contains(t, cfg.YAML, "pve.lab")

	// Saving again under the same name updates in place.
	require.NoError(t, s.SaveConfig("lab", "connection:\n  host: pve2.lab\n"))
	cfg, err = s.GetConfig("lab")
	require.NoError(t, err)
	assert.Contains(t, cfg.YAML, "pve2.lab")

	configs, err := s.ListConfigs()
	require.NoError(t, err)
	require.Len(t, configs, 1)
}

func TestGetConfig_Missing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.GetConfig("nope")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Validation))
}

func TestDeleteConfig_MissingIsNoError(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	assert.NoError(t, s.DeleteConfig("never-existed"))
}

func TestCredentialDefaultIsExclusive(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.SaveCredential(Credential{
		Name: "lab", Host: "pve.lab", Port: 8006, User: "root@pam", Password: "s3cret",
	}, true))
	require.NoError(t, s.SaveCredential(Credential{
		Name: "prod", Host: "pve.prod", Port: 8006, User: "farmctl@pve",
		TokenName: "automation", TokenSecret: "tok",
	}, true))

	def, err := s.DefaultCredential()
	require.NoError(t, err)
	assert.Equal(t, "prod", def.Name)

	// Only one default survives.
	creds, err := s.ListCredentials()
	require.NoError(t, err)
	require.Len(t, creds, 2)
	defaults := 0
	for _, c := range creds {
		if c.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestListCredentials_Redacted(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.SaveCredential(Credential{
		Name: "lab", Host: "pve.lab", User: "root@pam",
		Password: "s3cret", TokenSecret: "tok",
	}, false))

	creds, err := s.ListCredentials()
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "********", creds[0].Password)
	assert.Equal(t, "********", creds[0].TokenSecret)

	// The stored secret is untouched.
	cred, err := s.GetCredential("lab")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cred.Password)
}

func TestDefaultCredential_NoneConfigured(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.DefaultCredential()
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Validation))
}

func TestDeploymentHistory(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordDeployment(DeploymentRecord{
			Node:       "pve1",
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + 30*time.Minute),
			Succeeded:  2,
			Failed:     i,
			Report:     `[{"name":"agent-debian-105","ok":true}]`,
		}))
	}

	recs, err := s.History(2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.True(t, recs[0].StartedAt.After(recs[1].StartedAt))
	assert.Equal(t, 2, recs[0].Failed)
}
