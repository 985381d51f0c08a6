package config

import (
	"github.com/go-playground/validator/v10"

	"github.com/buildforever/farmctl/internal/fault"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for common errors. Violations are
// reported as fault.Validation so callers can reject the request before any
// resource is touched.
func (c *Config) Validate() error {
	if err := c.Connection.validateAuth(); err != nil {
		return err
	}
	return c.Deployment.Validate()
}

func (p ConnectionProfile) validateAuth() error {
	if p.Host == "" {
		return fault.Newf(fault.Validation, "connection.host is required")
	}
	if p.User == "" {
		return fault.Newf(fault.Validation, "connection.user is required")
	}
	if p.Password == "" && !p.UsesToken() {
		return fault.Newf(fault.Validation, "connection requires a password or a token pair")
	}
	return nil
}

// Validate checks the deployment request invariants.
func (r DeploymentRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fault.New(fault.Validation, err)
	}

	if r.DeployCIServer && r.CIServerDomain == "" {
		return fault.Newf(fault.Validation, "ci_server_domain is required when deploy_ci_server is set")
	}

	for i, agent := range r.Agents {
		if !agent.OS.Valid() {
			return fault.Newf(fault.Validation, "agents[%d]: unsupported os %q", i, agent.OS)
		}
		if r.Network.Mode == NetworkStatic && agent.StaticIP == "" {
			return fault.Newf(fault.Validation, "agents[%d]: static network mode requires static_ip", i)
		}
	}

	switch r.Network.Mode {
	case NetworkDHCP, NetworkStatic:
	default:
		return fault.Newf(fault.Validation, "network.mode must be dhcp or static, got %q", r.Network.Mode)
	}

	return nil
}
