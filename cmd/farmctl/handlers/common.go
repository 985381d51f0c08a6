// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic and
// can be tested independently of the CLI framework.
package handlers

import (
	"context"

	"github.com/buildforever/farmctl/internal/config"
	"github.com/buildforever/farmctl/internal/media"
	"github.com/buildforever/farmctl/internal/orchestrator"
	"github.com/buildforever/farmctl/internal/probe"
	"github.com/buildforever/farmctl/internal/proxmox"
	"github.com/buildforever/farmctl/internal/remote"
	"github.com/buildforever/farmctl/internal/store"
)

// defaultStorePath is used by the local-store commands, which run without a
// loaded deployment config.
const defaultStorePath = "farmctl.db"

// Deployer interface for testing - matches orchestrator.Orchestrator.
type Deployer interface {
	Deploy(ctx context.Context, req config.DeploymentRequest) (orchestrator.Report, error)
	WaitBackground() []orchestrator.TaskResult
}

// EndpointProber interface for testing - matches probe.Prober.
type EndpointProber interface {
	Endpoint(ctx context.Context, host string, port int) (probe.Result, error)
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// newClient creates a control-plane API client.
	newClient = func(profile config.ConnectionProfile) proxmox.Client {
		return proxmox.NewRealClient(profile)
	}

	// newExecutor creates a remote shell executor for the control-plane host.
	newExecutor = func(profile config.ConnectionProfile) remote.Executor {
		return remote.NewSSHExecutor(profile)
	}

	// newURLSource creates the installer URL resolver.
	newURLSource = func() media.URLSource {
		return media.NewVendorURLSource()
	}

	// newResolver creates the install-media resolver.
	newResolver = func(client proxmox.Client, urls media.URLSource, exec remote.Executor, storage string) orchestrator.MediaResolver {
		return media.NewResolver(client, urls, exec, storage)
	}

	// newDeployer creates the deployment orchestrator.
	newDeployer = func(client proxmox.Client, exec remote.Executor, resolver orchestrator.MediaResolver, opts ...orchestrator.Option) Deployer {
		return orchestrator.New(client, exec, resolver, orchestrator.NewStatusStore(), opts...)
	}

	// newProber creates the connectivity prober.
	newProber = func() EndpointProber {
		return probe.New()
	}

	// openStore opens the local sqlite store.
	openStore = store.Open

	// loadConfigFile loads config from file (for testing injection).
	loadConfigFile = config.LoadFile

	// findConfigFile finds the config file (for testing injection).
	findConfigFile = config.FindConfigFile
)
