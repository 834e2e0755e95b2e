package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/harmonyui/harmonycn/internal/config"
	"github.com/harmonyui/harmonycn/internal/errors"
	"github.com/harmonyui/harmonycn/internal/github"
	"github.com/harmonyui/harmonycn/internal/publish"
	"github.com/harmonyui/harmonycn/internal/server"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		cwd      string
		rollback bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the registry update server",
		Long: `Run an HTTP server that opens registry pull requests on behalf of
clients without Git host credentials.

The server publishes to the repository configured in components.json,
authenticating with the GITHUB_TOKEN environment variable.

Endpoints:
  POST /api/registry/update   {files, style, registry} -> {url}
  GET  /api/registry/events   websocket feed of publish steps
  GET  /healthz
  GET  /metrics

Examples:
  harmonycn serve
  harmonycn serve --addr=127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr, cwd, rollback)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on")
	cmd.Flags().StringVarP(&cwd, "cwd", "c", "", "The working directory (default: current directory)")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Delete the created branch if a later step fails")

	return cmd
}

func runServe(ctx context.Context, addr, cwd string, rollback bool) error {
	logger := newLogger()
	cfg, err := loadConfig(cwd)
	if err != nil {
		return err
	}
	if !cfg.HasPublishTarget() {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("No registry repository configured").
			WithSuggestion("Set publish.owner and publish.repo in components.json")
	}

	token := os.Getenv(config.EnvToken)
	if token == "" {
		return errors.New(errors.CodeConfigMissing).
			WithDetail(config.EnvToken + " is not set").
			WithSuggestion("Export a token with contents and pull request write access")
	}

	host := github.NewClient(github.Config{
		BaseURL: cfg.Publish.APIBaseURL,
		Token:   token,
		Metrics: metrics(),
	}, nil)

	events := server.NewEventHub(metrics())
	pipeline := publish.New(host,
		publish.WithLogger(logger),
		publish.WithMetrics(metrics()),
		publish.WithObserver(events),
		publish.WithRollback(rollback),
	)

	target := publish.Target{
		Repo:       github.Repo{Owner: cfg.Publish.Owner, Name: cfg.Publish.Repo},
		BaseBranch: cfg.Publish.Branch,
	}

	srv := server.New(server.Config{
		Addr:      addr,
		Target:    target,
		Publisher: pipeline,
		Content:   host,
		Events:    events,
		Logger:    logger,
		Metrics:   metrics(),
		Gatherer:  prometheus.DefaultGatherer,
	})

	success("Serving %s on %s", target.Repo.FullName(), addr)
	return srv.ListenAndServe(ctx)
}
