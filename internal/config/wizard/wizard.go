// Package wizard implements the interactive configuration flow for
// farmctl init.
package wizard

import (
	"context"
	"fmt"

	"github.com/buildforever/farmctl/internal/config"
)

// Result holds all answers from the interactive wizard.
type Result struct {
	// Connection
	Host      string
	Port      int
	User      string
	AuthKind  string // "password" or "token"
	Password  string
	TokenName string
	TokenSec  string
	VerifyTLS bool

	// CI server
	DeployCIServer  bool
	CIServerDomain  string
	CIAdminPassword string
	CIAdminEmail    string
	ExistingCIURL   string
	RegistrationTok string

	// Agents
	AgentOSes []string

	// Network and storage
	NetworkMode string
	Bridge      string
	StoragePool string

	// Injected credential (optional)
	CredUsername string
	CredPassword string
	CredSSHKey   string
}

// Run walks the user through all question groups. The context cancels the
// forms on Ctrl+C.
func Run(ctx context.Context) (*Result, error) {
	result := &Result{}

	if err := runConnectionGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("connection: %w", err)
	}
	if err := runCIServerGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("ci server: %w", err)
	}
	if err := runAgentsGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	if err := runNetworkGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("network: %w", err)
	}
	if err := runCredentialGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("credential: %w", err)
	}

	return result, nil
}

// ToConfig converts wizard answers into a Config with defaults applied.
func (r *Result) ToConfig() (*config.Config, error) {
	cfg := &config.Config{
		Connection: config.ConnectionProfile{
			Host:      r.Host,
			Port:      r.Port,
			User:      r.User,
			TLSVerify: r.VerifyTLS,
		},
		Deployment: config.DeploymentRequest{
			DeployCIServer:    r.DeployCIServer,
			CIServerDomain:    r.CIServerDomain,
			CIAdminPassword:   r.CIAdminPassword,
			CIAdminEmail:      r.CIAdminEmail,
			ExistingCIURL:     r.ExistingCIURL,
			RegistrationToken: r.RegistrationTok,
			Network: config.NetworkConfig{
				Mode:   config.NetworkMode(r.NetworkMode),
				Bridge: r.Bridge,
			},
			StoragePool: r.StoragePool,
		},
	}

	if r.AuthKind == "token" {
		cfg.Connection.TokenName = r.TokenName
		cfg.Connection.TokenSecret = r.TokenSec
	} else {
		cfg.Connection.Password = r.Password
	}

	for _, raw := range r.AgentOSes {
		os, err := config.ParseOS(raw)
		if err != nil {
			return nil, err
		}
		cfg.Deployment.Agents = append(cfg.Deployment.Agents, config.AgentSpec{OS: os})
	}

	if r.CredUsername != "" {
		cfg.Deployment.Credential = &config.InjectedCredential{
			Username:     r.CredUsername,
			Password:     r.CredPassword,
			SSHPublicKey: r.CredSSHKey,
		}
	}

	cfg.ApplyDefaults()
	return cfg, nil
}
