package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harmonyui/harmonycn/internal/config"
	"github.com/harmonyui/harmonycn/internal/diff"
	"github.com/harmonyui/harmonycn/internal/errors"
	"github.com/harmonyui/harmonycn/internal/github"
	"github.com/harmonyui/harmonycn/internal/publish"
	"github.com/harmonyui/harmonycn/internal/registry"
	"github.com/harmonyui/harmonycn/internal/server"
)

type pushOptions struct {
	components []string
	cwd        string
	all        bool
	force      bool
	silent     bool
	rollback   bool
	exclude    []string
}

// info prints unless --silent is set.
func (o pushOptions) info(format string, args ...any) {
	if !o.silent {
		info(format, args...)
	}
}

// warn prints unless --silent is set.
func (o pushOptions) warn(format string, args ...any) {
	if !o.silent {
		warn(format, args...)
	}
}

func pushCmd() *cobra.Command {
	var opts pushOptions

	cmd := &cobra.Command{
		Use:   "push [components...]",
		Short: "Publish local component changes to the registry",
		Long: `Publish modified components to the registry repository.

The selected components are compared with the registry and every changed
file, together with the regenerated style documents, is committed to a
new branch. A pull request is opened against the registry's base branch.

When publish.server is set in components.json (or HARMONYCN_SERVER), the
change set is sent to that update server instead, and no local credential
is needed.

Examples:
  harmonycn push button card
  harmonycn push --all
  harmonycn push --all --exclude "**/*.test.tsx"
  harmonycn push button --force --rollback`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.components = args
			return runPush(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.cwd, "cwd", "c", "", "The working directory (default: current directory)")
	cmd.Flags().BoolVarP(&opts.all, "all", "a", false, "Push every installed component")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Push all files of the selected components, changed or not")
	cmd.Flags().BoolVarP(&opts.silent, "silent", "s", false, "Mute output")
	cmd.Flags().BoolVar(&opts.rollback, "rollback", false, "Delete the created branch if a later step fails")
	cmd.Flags().StringArrayVar(&opts.exclude, "exclude", nil, "Glob of repository paths to leave out (repeatable)")

	return cmd
}

func runPush(ctx context.Context, opts pushOptions) error {
	say := opts.info

	logger := newLogger()
	cfg, err := loadConfig(opts.cwd)
	if err != nil {
		return err
	}

	engine, client, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	say("Checking registry.")
	index, err := client.FetchIndex(ctx)
	if err != nil {
		return err
	}

	selected, err := selectComponents(index, opts)
	if err != nil {
		return err
	}

	var (
		sources []publish.File
		items   []registry.Item
	)
	if opts.force {
		sources, items, err = installedFiles(engine, cfg, selected)
	} else {
		sources, items, err = changedFiles(ctx, engine, selected)
	}
	if err != nil {
		return err
	}

	say("Found %d update(s).", len(items))
	for _, item := range items {
		say("- %s", item.Name)
	}

	sources, err = publish.Exclude(sources, opts.exclude)
	if err != nil {
		return errors.New(errors.CodeValidation).Wrap(err)
	}
	if len(sources) == 0 || len(items) == 0 {
		say("No updates found.")
		return nil
	}

	var url string
	if cfg.Publish.Server != "" {
		url, err = pushToServer(ctx, cfg, sources, items, opts)
	} else {
		url, err = pushToHost(ctx, cfg, sources, items, opts)
	}
	if err != nil {
		return err
	}

	if !opts.silent {
		success("Pull Request created: %s", url)
	}
	return nil
}

// selectComponents resolves the requested names against the index.
func selectComponents(index []registry.Item, opts pushOptions) ([]registry.Item, error) {
	if opts.all {
		return index, nil
	}
	if len(opts.components) == 0 {
		return nil, errors.New(errors.CodeValidation).
			WithDetail("No components selected").
			WithSuggestion("Pass component names, or --all to push every installed component")
	}

	selected := make([]registry.Item, 0, len(opts.components))
	for _, name := range opts.components {
		item, ok := registry.Find(index, name)
		if !ok {
			return nil, errors.New(errors.CodeComponentNotFound).
				WithDetailf("The component %s does not exist", name)
		}
		selected = append(selected, item)
	}
	return selected, nil
}

// changedFiles returns the local content of every file that differs from
// the registry, addressed by its registry source path.
func changedFiles(ctx context.Context, engine *diff.Engine, selected []registry.Item) ([]publish.File, []registry.Item, error) {
	updates, err := engine.FindUpdatedComponents(ctx, selected)
	if err != nil {
		return nil, nil, err
	}

	var (
		files []publish.File
		items []registry.Item
	)
	for _, u := range updates {
		for _, c := range u.Changes {
			files = append(files, publish.File{Path: c.ComponentRelativePath, Content: c.FileContent})
		}
		items = append(items, u.Item)
	}
	return files, items, nil
}

// installedFiles returns every installed file of the selected items.
func installedFiles(engine *diff.Engine, cfg *config.Config, selected []registry.Item) ([]publish.File, []registry.Item, error) {
	var (
		files []publish.File
		items []registry.Item
	)
	for _, item := range selected {
		if !engine.Installed(item) {
			continue
		}
		for _, f := range item.Files {
			content, err := os.ReadFile(filepath.Join(cfg.ComponentsPath(), filepath.FromSlash(f.Path)))
			if os.IsNotExist(err) {
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			files = append(files, publish.File{
				Path:    registry.SourcePath(cfg.Style, f.Path),
				Content: string(content),
			})
		}
		items = append(items, item)
	}
	return files, items, nil
}

// localReader reads registry source paths from the components directory.
func localReader(cfg *config.Config) registry.ReadFunc {
	prefix := registry.SourcePath(cfg.Style, "")
	return func(path string) (string, error) {
		rel := strings.TrimPrefix(path, prefix)
		data, err := os.ReadFile(filepath.Join(cfg.ComponentsPath(), filepath.FromSlash(rel)))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

func pushToHost(ctx context.Context, cfg *config.Config, sources []publish.File, items []registry.Item, opts pushOptions) (string, error) {
	if !cfg.HasPublishTarget() {
		return "", errors.New(errors.CodeConfigInvalid).
			WithDetail("No registry repository configured").
			WithSuggestion("Set publish.owner and publish.repo in components.json, or use a github.com registry URL")
	}

	logger := newLogger()
	built, err := registry.BuildStyles(items, cfg.Style, localReader(cfg))
	if err != nil {
		return "", err
	}
	for _, name := range built.Skipped {
		opts.warn("Skipping %s: not every file is installed", name)
	}
	files := sources
	for _, bf := range built.Files {
		files = append(files, publish.File{Path: bf.Path, Content: bf.Content})
	}

	token, err := newAuthenticator(cfg, logger).Credential(ctx)
	if err != nil {
		return "", err
	}

	host := github.NewClient(github.Config{
		BaseURL: cfg.Publish.APIBaseURL,
		Token:   token,
		Metrics: metrics(),
	}, nil)

	pipelineOpts := []publish.Option{
		publish.WithLogger(logger),
		publish.WithMetrics(metrics()),
		publish.WithRollback(opts.rollback),
		publish.WithIdentity(publish.DefaultIdentity()),
	}
	if !opts.silent {
		pipelineOpts = append(pipelineOpts, publish.WithObserver(publish.ObserverFunc(printEvent)))
	}

	res, err := publish.New(host, pipelineOpts...).Publish(ctx, files, publish.Target{
		Repo:       github.Repo{Owner: cfg.Publish.Owner, Name: cfg.Publish.Repo},
		BaseBranch: cfg.Publish.Branch,
	})
	if err != nil {
		return "", err
	}
	return res.PullRequestURL, nil
}

func pushToServer(ctx context.Context, cfg *config.Config, sources []publish.File, items []registry.Item, opts pushOptions) (string, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return "", err
	}

	resp, err := server.NewClient(cfg.Publish.Server, nil).Update(ctx, server.UpdateRequest{
		Files:    sources,
		Style:    cfg.Style,
		Registry: raw,
	})
	if err != nil {
		return "", err
	}
	for _, name := range resp.Skipped {
		opts.warn("The server skipped %s: not every file could be read", name)
	}
	return resp.URL, nil
}

func printEvent(e publish.Event) {
	switch e.Status {
	case publish.StatusSucceeded:
		success("%s", e.Step)
	case publish.StatusFailed:
		errorMsg("%s failed: %s", e.Step, e.Detail)
	}
}
