package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/defbuild/defbuild/internal/core/plan"
	"github.com/defbuild/defbuild/internal/core/registry"
	"github.com/defbuild/defbuild/internal/core/tags"
	shellmanifest "github.com/defbuild/defbuild/internal/shell/manifest"
	"github.com/defbuild/defbuild/internal/shell/staging"
)

// dispatch routes the command to the appropriate handler.
func dispatch(cmd string, args []string, cfg *Config, logger *slog.Logger) int {
	switch cmd {
	case "tags":
		return tagsCmd(args, cfg, logger)
	case "plan":
		return planCmd(args, cfg, logger)
	case "resolve":
		return resolveCmd(args, cfg, logger)
	case "update-tag":
		return updateTagCmd(args, cfg, logger)
	case "stage":
		return stageCmd(args, cfg, logger)
	case "version":
		fmt.Printf("defbuild %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		return ExitUsageError
	}
}

// loadRegistry populates the registry and lookup from the configured
// definitions root.
func loadRegistry(cfg *Config, logger *slog.Logger) (*registry.Registry, *tags.Lookup, error) {
	loader := shellmanifest.NewLoader(afero.NewOsFs(), logger)
	return loader.Load(cfg.Definitions.Root)
}

// tagsCmd handles the "tags" command.
func tagsCmd(args []string, cfg *Config, logger *slog.Logger) int {
	fs := flag.NewFlagSet("tags", flag.ContinueOnError)
	id := fs.String("id", "", "Definition id (required)")
	release := fs.String("release", "main", "Release ref (v-prefixed tag or branch name)")
	mode := fs.String("mode", "all", "Version part handling: all-latest, all, full-only, major-minor, major")
	variant := fs.String("variant", "", "Variant name (defaults to the first declared variant)")
	if err := fs.Parse(args); err != nil {
		return ExitUsageError
	}
	if *id == "" {
		fmt.Fprintln(os.Stderr, "tags: -id is required")
		return ExitUsageError
	}

	parsedMode, err := tags.ParseVersionPartMode(*mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tags: %v\n", err)
		return ExitUsageError
	}

	reg, _, err := loadRegistry(cfg, logger)
	if err != nil {
		logger.Error("failed to load registry", "error", err)
		return ExitConfigError
	}

	list, err := tags.List(reg, *id, *release, parsedMode, cfg.Registry.Name, cfg.Registry.Path, *variant)
	if err != nil {
		logger.Error("failed to generate tags", "id", *id, "error", err)
		return ExitCommandError
	}
	if list == nil {
		fmt.Fprintf(os.Stderr, "tags: unknown definition %q\n", *id)
		return ExitCommandError
	}
	for _, tag := range list {
		fmt.Println(tag)
	}
	return ExitSuccess
}

// planCmd handles the "plan" command.
func planCmd(args []string, cfg *Config, logger *slog.Logger) int {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	page := fs.Int("page", 1, "1-based page to print")
	pageTotal := fs.Int("page-total", 1, "Total number of pages to split the plan into")
	exclude := fs.String("exclude", "", "Comma-separated definition ids to skip")
	if err := fs.Parse(args); err != nil {
		return ExitUsageError
	}

	reg, _, err := loadRegistry(cfg, logger)
	if err != nil {
		logger.Error("failed to load registry", "error", err)
		return ExitConfigError
	}

	var excluded []string
	if *exclude != "" {
		excluded = strings.Split(*exclude, ",")
	}

	result, err := plan.Build(reg, *page, *pageTotal, excluded)
	if err != nil {
		logger.Error("failed to compute build plan", "error", err)
		return ExitCommandError
	}

	out, err := yaml.Marshal(result)
	if err != nil {
		logger.Error("failed to render build plan", "error", err)
		return ExitCommandError
	}
	os.Stdout.Write(out)
	return ExitSuccess
}

// resolveCmd handles the "resolve" command.
func resolveCmd(args []string, cfg *Config, logger *slog.Logger) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	tag := fs.String("tag", "", "Fully-qualified tag to resolve (required)")
	if err := fs.Parse(args); err != nil {
		return ExitUsageError
	}
	if *tag == "" {
		fmt.Fprintln(os.Stderr, "resolve: -tag is required")
		return ExitUsageError
	}

	_, lookup, err := loadRegistry(cfg, logger)
	if err != nil {
		logger.Error("failed to load registry", "error", err)
		return ExitConfigError
	}

	entry, err := lookup.DefinitionFromTag(*tag, cfg.Registry.Name, cfg.Registry.Path)
	if err != nil {
		logger.Error("failed to resolve tag", "tag", *tag, "error", err)
		return ExitCommandError
	}
	if entry.Variant != "" {
		fmt.Printf("%s %s\n", entry.ID, entry.Variant)
	} else {
		fmt.Println(entry.ID)
	}
	return ExitSuccess
}

// updateTagCmd handles the "update-tag" command.
func updateTagCmd(args []string, cfg *Config, logger *slog.Logger) int {
	fs := flag.NewFlagSet("update-tag", flag.ContinueOnError)
	tag := fs.String("tag", "", "Current tag (required)")
	version := fs.String("version", "", "New version (required)")
	newRegistry := fs.String("registry", "", "New registry (defaults to configured registry)")
	newPath := fs.String("path", "", "New registry path (defaults to configured path)")
	variant := fs.String("variant", "", "Variant override")
	if err := fs.Parse(args); err != nil {
		return ExitUsageError
	}
	if *tag == "" || *version == "" {
		fmt.Fprintln(os.Stderr, "update-tag: -tag and -version are required")
		return ExitUsageError
	}
	if *newRegistry == "" {
		*newRegistry = cfg.Registry.Name
	}
	if *newPath == "" {
		*newPath = cfg.Registry.Path
	}

	reg, lookup, err := loadRegistry(cfg, logger)
	if err != nil {
		logger.Error("failed to load registry", "error", err)
		return ExitConfigError
	}

	updated, err := lookup.UpdatedTag(reg, *tag, cfg.Registry.Name, cfg.Registry.Path,
		*version, *newRegistry, *newPath, *variant)
	if err != nil {
		logger.Error("failed to update tag", "tag", *tag, "error", err)
		return ExitCommandError
	}
	fmt.Println(updated)
	return ExitSuccess
}

// stageCmd handles the "stage" command.
func stageCmd(args []string, cfg *Config, logger *slog.Logger) int {
	fs := flag.NewFlagSet("stage", flag.ContinueOnError)
	id := fs.String("id", "", "Definition id to stage (required)")
	if err := fs.Parse(args); err != nil {
		return ExitUsageError
	}
	if *id == "" {
		fmt.Fprintln(os.Stderr, "stage: -id is required")
		return ExitUsageError
	}

	stager := staging.NewStager(afero.NewOsFs(), cfg.Staging.Root, logger)
	dest, err := stager.Stage(filepath.Join(cfg.Definitions.Root, *id))
	if err != nil {
		logger.Error("failed to stage definition", "id", *id, "error", err)
		return ExitCommandError
	}
	fmt.Println(dest)
	return ExitSuccess
}
