package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/harmonyui/harmonycn/internal/config"
	"github.com/harmonyui/harmonycn/internal/diff"
	"github.com/harmonyui/harmonycn/internal/errors"
	"github.com/harmonyui/harmonycn/internal/registry"
	"github.com/harmonyui/harmonycn/internal/transform"
)

func diffCmd() *cobra.Command {
	var (
		cwd    string
		output string
	)

	cmd := &cobra.Command{
		Use:   "diff [component]",
		Short: "Check for updates against the registry",
		Long: `Compare installed components with the registry.

Registry files are rewritten for the project's style and import aliases
before comparison, so only real modifications are reported.

Without a component name, every installed component is checked and the
changed files are listed. With a name, the changes are printed.

Examples:
  harmonycn diff
  harmonycn diff button
  harmonycn diff --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runDiff(cmd.Context(), cwd, name, output)
		},
	}

	cmd.Flags().StringVarP(&cwd, "cwd", "c", "", "The working directory (default: current directory)")
	cmd.Flags().StringVarP(&output, "output", "o", diff.FormatText, "Output format: text, json or yaml")

	return cmd
}

// newEngine wires the registry client and diff engine for cfg.
func newEngine(cfg *config.Config, logger *slog.Logger) (*diff.Engine, *registry.Client, error) {
	source, err := registry.NewSource(cfg.Registry, cfg.Publish.Branch)
	if err != nil {
		return nil, nil, err
	}
	client := registry.New(source,
		registry.WithLogger(logger),
		registry.WithMetrics(metrics()),
	)
	engine := &diff.Engine{
		Registry:    client,
		Transformer: transform.Default(),
		Config:      cfg,
		Logger:      logger,
		Metrics:     metrics(),
	}
	return engine, client, nil
}

func runDiff(ctx context.Context, cwd, name, output string) error {
	switch output {
	case diff.FormatText, diff.FormatJSON, diff.FormatYAML:
	default:
		return errors.New(errors.CodeValidation).
			WithDetailf("unknown output format %q", output).
			WithSuggestion("Use text, json or yaml")
	}

	logger := newLogger()
	cfg, err := loadConfig(cwd)
	if err != nil {
		return err
	}

	engine, client, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	index, err := client.FetchIndex(ctx)
	if err != nil {
		return err
	}

	if name == "" {
		updates, err := engine.FindUpdatedComponents(ctx, index)
		if err != nil {
			return err
		}
		if output != diff.FormatText {
			return diff.Summarize(updates, false).Write(os.Stdout, output)
		}
		printUpdates(updates)
		return nil
	}

	item, ok := registry.Find(index, name)
	if !ok {
		return errors.New(errors.CodeComponentNotFound).
			WithDetailf("The component %s does not exist in %s", name, cfg.Registry)
	}

	changes, err := engine.DiffComponent(ctx, item)
	if err != nil {
		return err
	}

	if output != diff.FormatText {
		var updates []diff.ComponentUpdate
		if len(changes) > 0 {
			updates = append(updates, diff.ComponentUpdate{Name: item.Name, Item: item, Changes: changes})
		}
		return diff.Summarize(updates, true).Write(os.Stdout, output)
	}

	if len(changes) == 0 {
		info("No updates found for %s.", name)
		return nil
	}
	color := os.Getenv("NO_COLOR") == ""
	for _, change := range changes {
		info("- %s", change.FilePath)
		if err := diff.WriteColored(os.Stdout, change.Patch, color); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}

func printUpdates(updates []diff.ComponentUpdate) {
	if len(updates) == 0 {
		info("No updates found.")
		return
	}

	info("The following components have updates available:")
	for _, u := range updates {
		info("- %s", u.Name)
		for _, c := range u.Changes {
			info("  - %s", c.FilePath)
		}
	}
	fmt.Println()
	info("Run 'harmonycn diff <component>' to see the changes.")
}
