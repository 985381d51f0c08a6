package wizard

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/buildforever/farmctl/internal/config"
)

func runConnectionGroup(ctx context.Context, result *Result) error {
	var portInput string
	result.AuthKind = "password"

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Control-plane host").
				Description("Hostname or IP of the hypervisor API").
				Placeholder("pve.example.com").
				Value(&result.Host).
				Validate(validateHost),
			huh.NewInput().
				Title("API port").
				Placeholder("8006").
				Value(&portInput).
				Validate(validatePort),
			huh.NewInput().
				Title("User").
				Description("API user including realm, e.g. root@pam").
				Placeholder("root@pam").
				Value(&result.User).
				Validate(validateUser),
			huh.NewSelect[string]().
				Title("Authentication").
				Options(
					huh.NewOption("Password", "password"),
					huh.NewOption("API token", "token"),
				).
				Value(&result.AuthKind),
		).Title("Connection"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	result.Port = 8006
	if portInput != "" {
		result.Port, _ = strconv.Atoi(portInput)
	}

	if result.AuthKind == "token" {
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Token name").
					Placeholder("automation").
					Value(&result.TokenName),
				huh.NewInput().
					Title("Token secret").
					EchoMode(huh.EchoModePassword).
					Value(&result.TokenSec),
			).Title("API Token"),
		).RunWithContext(ctx)
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&result.Password),
		).Title("Password"),
	).RunWithContext(ctx)
}

func runCIServerGroup(ctx context.Context, result *Result) error {
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Deploy a CI server?").
				Description("Installs a fresh CI server container agents register against").
				Value(&result.DeployCIServer),
		).Title("CI Server"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	if result.DeployCIServer {
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("CI server domain").
					Placeholder("ci.example.com").
					Value(&result.CIServerDomain).
					Validate(validateHost),
				huh.NewInput().
					Title("Admin password").
					EchoMode(huh.EchoModePassword).
					Value(&result.CIAdminPassword),
				huh.NewInput().
					Title("Admin email (optional, enables TLS)").
					Placeholder("admin@example.com").
					Value(&result.CIAdminEmail),
			).Title("New CI Server"),
		).RunWithContext(ctx)
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Existing CI URL (optional)").
				Placeholder("https://ci.example.com").
				Value(&result.ExistingCIURL),
			huh.NewInput().
				Title("Runner registration token (optional)").
				Value(&result.RegistrationTok),
		).Title("Existing CI Server"),
	).RunWithContext(ctx)
}

func runAgentsGroup(ctx context.Context, result *Result) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Agent operating systems").
				Description("One agent is created per selection").
				Options(agentOSOptions()...).
				Value(&result.AgentOSes).
				Validate(func(selected []string) error {
					if len(selected) == 0 {
						return fmt.Errorf("select at least one OS")
					}
					return nil
				}),
		).Title("Agents"),
	).RunWithContext(ctx)
}

func runNetworkGroup(ctx context.Context, result *Result) error {
	result.NetworkMode = string(config.NetworkDHCP)
	result.Bridge = "vmbr0"
	result.StoragePool = "local"

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Network mode").
				Options(
					huh.NewOption("DHCP", string(config.NetworkDHCP)),
					huh.NewOption("Static (per-agent IPs set in the config file)", string(config.NetworkStatic)),
				).
				Value(&result.NetworkMode),
			huh.NewInput().
				Title("Bridge").
				Placeholder("vmbr0").
				Value(&result.Bridge),
			huh.NewInput().
				Title("Storage pool").
				Description("Holds install media and resource disks").
				Placeholder("local").
				Value(&result.StoragePool),
		).Title("Network & Storage"),
	).RunWithContext(ctx)
}

func runCredentialGroup(ctx context.Context, result *Result) error {
	var inject bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Inject a user account into every resource?").
				Value(&inject),
		).Title("Credential"),
	).RunWithContext(ctx)
	if err != nil || !inject {
		return err
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&result.CredUsername).
				Validate(validateUsername),
			huh.NewInput().
				Title("Password (optional)").
				EchoMode(huh.EchoModePassword).
				Value(&result.CredPassword),
			huh.NewInput().
				Title("SSH public key (optional)").
				Placeholder("ssh-ed25519 AAAA...").
				Value(&result.CredSSHKey),
		).Title("Injected Account"),
	).RunWithContext(ctx)
}

func agentOSOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(config.SupportedOS))
	for _, os := range config.SupportedOS {
		opts = append(opts, huh.NewOption(string(os), string(os)))
	}
	return opts
}

func validateHost(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("required")
	}
	if strings.ContainsAny(s, " /") {
		return fmt.Errorf("enter a bare hostname or IP")
	}
	return nil
}

func validatePort(s string) error {
	if s == "" {
		return nil
	}
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("port must be 1-65535")
	}
	return nil
}

func validateUser(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}

func validateUsername(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	if strings.ContainsAny(s, " \t") {
		return fmt.Errorf("no whitespace in usernames")
	}
	return nil
}
