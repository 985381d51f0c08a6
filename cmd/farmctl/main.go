// Package main is the entry point for the farmctl CLI.
//
// farmctl provisions CI build farms on a Proxmox-style control plane: an
// optional CI server container plus Linux, Windows and macOS build agents,
// with install media resolved or synthesized on the fly.
//
// Commands: init, deploy, probe, media, configs, credentials, history.
//
// For detailed usage information, run:
//
//	farmctl --help
package main

import (
	"fmt"
	"os"

	"github.com/buildforever/farmctl/cmd/farmctl/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
