package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/buildforever/farmctl/internal/config"
	"github.com/buildforever/farmctl/internal/config/wizard"
)

// Function variables for dependency injection in tests.
var (
	runWizard   = wizard.Run
	writeConfig = wizard.WriteConfig
	isTerminal  = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
)

// Init creates a deployment configuration file, interactively when attached
// to a terminal.
func Init(ctx context.Context, output string, nonInteractive bool) error {
	if nonInteractive || !isTerminal() {
		cfg := exampleConfig()
		if err := writeConfig(cfg, output); err != nil {
			return err
		}
		fmt.Printf("Wrote example configuration to %s; edit it before deploying.\n", output)
		return nil
	}

	result, err := runWizard(ctx)
	if err != nil {
		return err
	}
	cfg, err := result.ToConfig()
	if err != nil {
		return err
	}
	if err := writeConfig(cfg, output); err != nil {
		return err
	}
	fmt.Printf("Wrote configuration to %s\n", output)
	fmt.Println("Next: farmctl deploy -c " + output)
	return nil
}

// exampleConfig is the non-interactive starting point: one CI server and a
// small mixed farm, with placeholders the user must replace.
func exampleConfig() *config.Config {
	cfg := &config.Config{
		Connection: config.ConnectionProfile{
			Host: "pve.example.com",
			User: "root@pam",
			// Set a password here or token_name/token_secret below.
			Password: "changeme",
		},
		Deployment: config.DeploymentRequest{
			DeployCIServer:  true,
			CIServerDomain:  "ci.example.com",
			CIAdminPassword: "changeme",
			Agents: []config.AgentSpec{
				{OS: config.OSDebian},
				{OS: config.OSWindows11},
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}
