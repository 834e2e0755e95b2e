package publish

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/harmonyui/harmonycn/internal/errors"
	"github.com/harmonyui/harmonycn/internal/github"
	"github.com/harmonyui/harmonycn/internal/telemetry"
)

// Defaults for the commit and pull request a run creates.
const (
	CommitMessage    = "Update files content"
	PullRequestTitle = "Update files"
	PullRequestBody  = "Update files"

	blobConcurrency = 5
)

// Host is the part of the Git host API a run needs. *github.Client
// implements it.
type Host interface {
	GetBranch(ctx context.Context, repo github.Repo, branch string) (*github.Branch, error)
	GetCommit(ctx context.Context, repo github.Repo, sha string) (*github.Commit, error)
	CreateRef(ctx context.Context, repo github.Repo, ref, sha string) (*github.Ref, error)
	CreateBlob(ctx context.Context, repo github.Repo, content string) (*github.Blob, error)
	CreateTree(ctx context.Context, repo github.Repo, baseTree string, entries []github.TreeEntry) (*github.Tree, error)
	CreateCommit(ctx context.Context, repo github.Repo, commit github.NewCommit) (*github.Commit, error)
	UpdateRef(ctx context.Context, repo github.Repo, ref, sha string, force bool) (*github.Ref, error)
	CreatePullRequest(ctx context.Context, repo github.Repo, pr github.NewPullRequest) (*github.PullRequest, error)
	DeleteRef(ctx context.Context, repo github.Repo, ref string) error
}

// File is one file to commit, addressed by its repository path.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Target is the repository and base branch a run opens its pull request
// against.
type Target struct {
	Repo       github.Repo
	BaseBranch string
}

// Graph records the Git objects a run read and created.
type Graph struct {
	BranchRef     string
	BaseCommitSHA string
	BaseTreeSHA   string
	Entries       []github.TreeEntry
	NewTreeSHA    string
	NewCommitSHA  string
}

// Result is the outcome of a successful run.
type Result struct {
	RunID             string
	Branch            string
	PullRequestURL    string
	PullRequestNumber int
	Graph             Graph
}

// Pipeline publishes files through a Host.
type Pipeline struct {
	host      Host
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	observers []Observer
	rollback  bool
	identity  *github.Signature
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics records runs on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithObserver adds an observer that receives every step event.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observers = append(p.observers, o)
	}
}

// WithRollback deletes the created branch when a later step fails.
func WithRollback(enabled bool) Option {
	return func(p *Pipeline) {
		p.rollback = enabled
	}
}

// WithIdentity sets the commit author and committer. Without one the host
// attributes the commit to the token's account.
func WithIdentity(sig *github.Signature) Option {
	return func(p *Pipeline) {
		p.identity = sig
	}
}

// WithClock replaces time.Now, which names the branch.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a pipeline.
func New(host Host, opts ...Option) *Pipeline {
	p := &Pipeline{
		host:   host,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish commits files to a new branch and opens a pull request for it.
func (p *Pipeline) Publish(ctx context.Context, files []File, target Target) (res *Result, err error) {
	if err := validate(files, target); err != nil {
		return nil, err
	}

	run := &run{
		Pipeline: p,
		id:       uuid.New().String(),
		files:    files,
		target:   target,
	}
	run.branch = fmt.Sprintf("update-%d", p.now().UnixMilli())
	run.log = p.logger.With("run_id", run.id, "repo", target.Repo.FullName(), "branch", run.branch)

	ctx, span := telemetry.StartSpan(ctx, "publish",
		attribute.String("publish.run_id", run.id),
		attribute.String("publish.repo", target.Repo.FullName()),
		attribute.Int("publish.files", len(files)),
	)
	defer func() {
		telemetry.EndSpan(span, err)
		p.metrics.RecordPublish(err)
	}()

	run.log.Info("publishing files", "files", len(files))
	res, err = run.execute(ctx)
	if err != nil && p.rollback && run.branchCreated {
		run.rollbackBranch(ctx)
	}
	return res, err
}

func validate(files []File, target Target) error {
	if len(files) == 0 {
		return errors.New(errors.CodeValidation).WithDetail("no files to publish")
	}
	if target.Repo.Owner == "" || target.Repo.Name == "" || target.BaseBranch == "" {
		return errors.New(errors.CodeValidation).
			WithDetail("publish target needs an owner, a repository and a base branch").
			WithSuggestion("Set publish.owner and publish.repo in components.json")
	}
	seen := make(map[string]bool, len(files))
	for i, f := range files {
		if f.Path == "" {
			return errors.New(errors.CodeValidation).WithDetailf("file %d has no path", i)
		}
		if seen[f.Path] {
			return errors.New(errors.CodeValidation).WithDetailf("file %q listed twice", f.Path)
		}
		seen[f.Path] = true
	}
	return nil
}

// run holds the state of one Publish call.
type run struct {
	*Pipeline
	id            string
	files         []File
	target        Target
	branch        string
	branchCreated bool
	graph         Graph
	log           *slog.Logger
}

func (r *run) execute(ctx context.Context) (*Result, error) {
	repo := r.target.Repo
	r.graph.BranchRef = "refs/heads/" + r.branch

	var baseSHA string
	err := r.step(ctx, StepReadBase, func(ctx context.Context) error {
		base, err := r.host.GetBranch(ctx, repo, r.target.BaseBranch)
		if err != nil {
			return err
		}
		baseSHA = base.Commit.SHA
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.step(ctx, StepCreateBranch, func(ctx context.Context) error {
		if _, err := r.host.CreateRef(ctx, repo, r.graph.BranchRef, baseSHA); err != nil {
			return err
		}
		r.branchCreated = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.step(ctx, StepReadBranch, func(ctx context.Context) error {
		tip, err := r.host.GetBranch(ctx, repo, r.branch)
		if err != nil {
			return err
		}
		commit, err := r.host.GetCommit(ctx, repo, tip.Commit.SHA)
		if err != nil {
			return err
		}
		r.graph.BaseCommitSHA = commit.SHA
		r.graph.BaseTreeSHA = commit.Tree.SHA
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.step(ctx, StepCreateBlobs, func(ctx context.Context) error {
		entries := make([]github.TreeEntry, len(r.files))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(blobConcurrency)
		for i, f := range r.files {
			i, f := i, f
			g.Go(func() error {
				blob, err := r.host.CreateBlob(gctx, repo, f.Content)
				if err != nil {
					return fmt.Errorf("%s: %w", f.Path, err)
				}
				entries[i] = github.TreeEntry{
					Path: f.Path,
					Mode: github.ModeFile,
					Type: github.TypeBlob,
					SHA:  blob.SHA,
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		r.graph.Entries = entries
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.step(ctx, StepCreateTree, func(ctx context.Context) error {
		tree, err := r.host.CreateTree(ctx, repo, r.graph.BaseTreeSHA, r.graph.Entries)
		if err != nil {
			return err
		}
		r.graph.NewTreeSHA = tree.SHA
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.step(ctx, StepCreateCommit, func(ctx context.Context) error {
		commit, err := r.host.CreateCommit(ctx, repo, github.NewCommit{
			Message:   CommitMessage,
			Tree:      r.graph.NewTreeSHA,
			Parents:   []string{r.graph.BaseCommitSHA},
			Author:    r.identity,
			Committer: r.identity,
		})
		if err != nil {
			return err
		}
		r.graph.NewCommitSHA = commit.SHA
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.step(ctx, StepUpdateRef, func(ctx context.Context) error {
		_, err := r.host.UpdateRef(ctx, repo, "heads/"+r.branch, r.graph.NewCommitSHA, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	var pr *github.PullRequest
	err = r.step(ctx, StepOpenPullRequest, func(ctx context.Context) error {
		var err error
		pr, err = r.host.CreatePullRequest(ctx, repo, github.NewPullRequest{
			Title: PullRequestTitle,
			Body:  PullRequestBody,
			Head:  r.branch,
			Base:  r.target.BaseBranch,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("pull request opened", "url", pr.HTMLURL)
	return &Result{
		RunID:             r.id,
		Branch:            r.branch,
		PullRequestURL:    pr.HTMLURL,
		PullRequestNumber: pr.Number,
		Graph:             r.graph,
	}, nil
}

// step runs fn inside a span and reports it to observers.
func (r *run) step(ctx context.Context, step Step, fn func(ctx context.Context) error) error {
	ctx, span := telemetry.StartSpan(ctx, "publish."+string(step),
		attribute.String("publish.run_id", r.id),
	)

	r.emit(step, StatusStarted, "")
	err := fn(ctx)
	telemetry.EndSpan(span, err)

	if err != nil {
		r.log.Error("publish step failed", "step", step, "error", err)
		r.emit(step, StatusFailed, err.Error())
		return errors.New(errors.CodePublish).
			WithDetail(string(step) + " failed").
			Wrap(err)
	}

	r.log.Debug("publish step done", "step", step)
	r.emit(step, StatusSucceeded, "")
	return nil
}

// rollbackBranch deletes the branch created by this run. It runs even when
// ctx was canceled.
func (r *run) rollbackBranch(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	r.emit(StepRollback, StatusStarted, "")
	if err := r.host.DeleteRef(ctx, r.target.Repo, "heads/"+r.branch); err != nil {
		r.log.Warn("rollback failed, branch left behind", "error", err)
		r.emit(StepRollback, StatusFailed, err.Error())
		return
	}
	r.log.Info("rolled back branch")
	r.emit(StepRollback, StatusSucceeded, "")
}

func (r *run) emit(step Step, status Status, detail string) {
	ev := Event{
		RunID:  r.id,
		Step:   step,
		Status: status,
		Detail: detail,
		Time:   time.Now().UTC(),
	}
	for _, o := range r.observers {
		o.Observe(ev)
	}
}
