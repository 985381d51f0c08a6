package handlers

import (
	"context"
	"fmt"

	"github.com/buildforever/farmctl/internal/config"
	"github.com/buildforever/farmctl/internal/fault"
)

// EnsureMedia resolves and downloads the install image for one agent OS
// into the configured storage pool ahead of a deploy.
func EnsureMedia(ctx context.Context, configPath, rawOS string) error {
	os, err := config.ParseOS(rawOS)
	if err != nil {
		return fault.New(fault.Validation, err)
	}

	path, err := findConfigFile(configPath)
	if err != nil {
		return err
	}
	cfg, err := loadConfigFile(path)
	if err != nil {
		return err
	}

	client := newClient(cfg.Connection)
	exec := newExecutor(cfg.Connection)
	resolver := newResolver(client, newURLSource(), exec, cfg.Deployment.StoragePool)

	nodes, err := client.ListNodes(ctx)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fault.Newf(fault.Validation, "cluster has no nodes")
	}
	node := nodes[0].Name
	if cfg.Deployment.TargetNode != "" {
		node = cfg.Deployment.TargetNode
	}

	var volID string
	var cached bool
	if os.Kind() == config.KindContainer {
		m, err := resolver.EnsureContainerTemplate(ctx, node, os)
		if err != nil {
			return describeMediaFailure(os, err)
		}
		volID, cached = m.VolID, m.Cached
	} else {
		m, err := resolver.EnsureMedia(ctx, node, os)
		if err != nil {
			return describeMediaFailure(os, err)
		}
		volID, cached = m.VolID, m.Cached
	}

	if cached {
		fmt.Printf("%s: already in storage as %s\n", os, volID)
	} else {
		fmt.Printf("%s: downloaded to %s\n", os, volID)
	}
	return nil
}

// describeMediaFailure surfaces the manual-remediation info carried by
// media faults.
func describeMediaFailure(os config.OS, err error) error {
	f := fault.As(err)
	if f == nil || f.Kind != fault.MediaUnavailable {
		return err
	}
	msg := fmt.Sprintf("no install image could be resolved for %s", os)
	if f.ManualURL != "" {
		msg += fmt.Sprintf("\ndownload it manually from %s", f.ManualURL)
	}
	if f.ExpectedFilename != "" {
		msg += fmt.Sprintf("\nand upload it to storage as %q", f.ExpectedFilename)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
