package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/buildforever/farmctl/internal/orchestrator"
	"github.com/buildforever/farmctl/internal/store"
)

// Deploy provisions the build farm described by the configuration file.
//
// The run's report is printed as JSON and appended to the deployment
// history. Linux agents keep installing in the background after the report
// is printed; with wait set, Deploy blocks until they finish and reports
// their outcomes too. With metricsAddr set, the run's Prometheus counters
// are served on that address for its duration.
func Deploy(ctx context.Context, configPath string, wait bool, metricsAddr string) error {
	path, err := findConfigFile(configPath)
	if err != nil {
		return err
	}
	cfg, err := loadConfigFile(path)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		bound, stop, err := serveMetrics(metricsAddr)
		if err != nil {
			return err
		}
		defer stop()
		fmt.Fprintf(os.Stderr, "serving metrics on http://%s/metrics\n", bound)
	}

	client := newClient(cfg.Connection)
	exec := newExecutor(cfg.Connection)
	resolver := newResolver(client, newURLSource(), exec, cfg.Deployment.StoragePool)
	deployer := newDeployer(client, exec, resolver, orchestrator.WithLogDir(cfg.LogDir))

	started := time.Now()
	report, err := deployer.Deploy(ctx, cfg.Deployment)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	recordRun(cfg.StorePath, report, started)

	if wait {
		fmt.Fprintln(os.Stderr, "waiting for background agent provisioning...")
		for _, res := range deployer.WaitBackground() {
			if res.Err != nil {
				fmt.Fprintf(os.Stderr, "%s: provisioning failed: %v\n", res.Name, res.Err)
			} else {
				fmt.Fprintf(os.Stderr, "%s: ready\n", res.Name)
			}
		}
	}

	if !report.Success {
		return fmt.Errorf("deployment created no resources")
	}
	return nil
}

// recordRun appends the run to the local history. History is best-effort:
// a broken store must not fail a deployment that already happened.
func recordRun(storePath string, report orchestrator.Report, started time.Time) {
	s, err := openStore(storePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open store: %v\n", err)
		return
	}

	encoded, err := json.Marshal(report.CreatedResources)
	if err != nil {
		encoded = []byte("[]")
	}
	rec := store.DeploymentRecord{
		Node:       report.Node,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Succeeded:  len(report.CreatedResources),
		Failed:     len(report.Errors),
		Report:     string(encoded),
	}
	if err := s.RecordDeployment(rec); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not record deployment: %v\n", err)
	}
}

// serveMetrics exposes the process metrics on addr until stop is called.
// The bound address is returned so ":0" can be used in tests.
func serveMetrics(addr string) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("cannot listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux}
	go func() { _ = srv.Serve(ln) }()

	return ln.Addr().String(), func() { _ = srv.Close() }, nil
}
