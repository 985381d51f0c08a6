package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "farmctl", cmd.Use)
	assert.Equal(t, "Provision CI build farms on a Proxmox-style control plane", cmd.Short)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	expectedSubcommands := []string{
		"init",
		"deploy",
		"probe",
		"media",
		"configs",
		"credentials",
		"history",
		"version",
	}

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range expectedSubcommands {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
}

func TestDeploy_Flags(t *testing.T) {
	cmd := Deploy()

	require.NotNil(t, cmd.Flags().Lookup("config"))
	require.NotNil(t, cmd.Flags().Lookup("wait"))
	require.NotNil(t, cmd.Flags().Lookup("metrics-addr"))
	assert.Equal(t, "c", cmd.Flags().Lookup("config").Shorthand)
}

func TestProbe_RequiresHostArg(t *testing.T) {
	cmd := Probe()
	require.NotNil(t, cmd.Args)
	assert.Error(t, cmd.Args(cmd, []string{}))
	assert.NoError(t, cmd.Args(cmd, []string{"pve.lab"}))
}

func TestCredentials_AddFlags(t *testing.T) {
	cmd := Credentials()

	for _, sub := range cmd.Commands() {
		if sub.Name() != "add" {
			continue
		}
		assert.NotNil(t, sub.Flags().Lookup("host"))
		assert.NotNil(t, sub.Flags().Lookup("user"))
		assert.NotNil(t, sub.Flags().Lookup("token-secret"))
		return
	}
	t.Fatal("add subcommand not found")
}
