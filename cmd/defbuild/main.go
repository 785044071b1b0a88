// Package main provides the defbuild binary.
//
// defbuild reads per-definition manifests, derives container image tags and
// computes a dependency-respecting, paginated build order for a build driver
// to consume. It never builds or pushes images itself.
//
// Usage:
//
//	defbuild [-config path] <command> [args...]
//
// Commands:
//
//	tags        - Print the tag list for a definition and release
//	plan        - Print one page of the paginated build plan
//	resolve     - Resolve a tag string back to its definition and variant
//	update-tag  - Rewrite a tag string for a new version and registry
//	stage       - Copy a definition directory into a staging folder
//	version     - Show defbuild version
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitCommandError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// A local .env file may carry DEFBUILD_* overrides; absence is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("defbuild %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: defbuild [-config path] <command> [args...]")
		return ExitUsageError
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	logger := SetupLogger(cfg)
	logger.Debug("starting defbuild",
		"version", Version,
		"config", *configPath,
		"command", args[0],
	)

	return dispatch(args[0], args[1:], cfg, logger)
}
