// Package diff compares a project's installed components with the
// registry.
//
// Registry content is passed through a transform.Transformer first, so the
// comparison is between what the project would have installed and what it
// has now. Only files that exist locally and carry registry content are
// compared; anything else is skipped.
package diff

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/harmonyui/harmonycn/internal/config"
	"github.com/harmonyui/harmonycn/internal/errors"
	"github.com/harmonyui/harmonycn/internal/registry"
	"github.com/harmonyui/harmonycn/internal/telemetry"
	"github.com/harmonyui/harmonycn/internal/transform"
)

// Registry is the part of registry.Client the engine reads from.
type Registry interface {
	FetchTree(ctx context.Context, style string, items []registry.Item) ([]registry.Item, error)
	FetchBaseColor(ctx context.Context, baseColor string) (*registry.BaseColor, error)
}

// ChangeRecord is one local file that differs from the registry.
type ChangeRecord struct {
	// FilePath is the absolute path of the local file.
	FilePath string

	// ComponentRelativePath addresses the file in the registry repository.
	ComponentRelativePath string

	Patch           []Segment
	RegistryContent string
	FileContent     string
}

// ComponentUpdate is a registry item with at least one changed file.
type ComponentUpdate struct {
	Name    string
	Item    registry.Item
	Changes []ChangeRecord
}

// Engine compares installed components against the registry.
type Engine struct {
	Registry    Registry
	Transformer transform.Transformer
	Config      *config.Config
	Logger      *slog.Logger
	Metrics     *telemetry.Metrics
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e.Logger
}

func (e *Engine) transformer() transform.Transformer {
	if e.Transformer == nil {
		return transform.Default()
	}
	return e.Transformer
}

// localPath is where a registry file is installed in the project.
func (e *Engine) localPath(file registry.File) string {
	return filepath.Join(e.Config.ComponentsPath(), filepath.FromSlash(file.Path))
}

// Installed reports whether any file of item exists in the project.
func (e *Engine) Installed(item registry.Item) bool {
	for _, f := range item.Files {
		if fileExists(e.localPath(f)) {
			return true
		}
	}
	return false
}

// FindUpdatedComponents diffs every installed item of index and returns
// those with at least one changed file, in index order.
func (e *Engine) FindUpdatedComponents(ctx context.Context, index []registry.Item) ([]ComponentUpdate, error) {
	var updates []ComponentUpdate
	for _, item := range index {
		if !e.Installed(item) {
			continue
		}

		changes, err := e.DiffComponent(ctx, item)
		if err != nil {
			return nil, err
		}
		if len(changes) == 0 {
			continue
		}
		updates = append(updates, ComponentUpdate{
			Name:    item.Name,
			Item:    item,
			Changes: changes,
		})
	}
	return updates, nil
}

// DiffComponent compares the files of one registry item with the project.
func (e *Engine) DiffComponent(ctx context.Context, item registry.Item) ([]ChangeRecord, error) {
	if e.Config == nil {
		return nil, errors.New(errors.CodeConfigMissing)
	}
	cfg := e.Config
	log := e.logger()

	tree, err := e.Registry.FetchTree(ctx, cfg.Style, []registry.Item{item})
	if err != nil {
		return nil, err
	}
	baseColor, err := e.Registry.FetchBaseColor(ctx, cfg.Tailwind.BaseColor)
	if err != nil {
		return nil, err
	}

	var changes []ChangeRecord
	for _, resolved := range tree {
		for _, file := range resolved.Files {
			filePath := e.localPath(file)
			local, err := os.ReadFile(filePath)
			if err != nil {
				if !os.IsNotExist(err) {
					log.Warn("cannot read component file", "path", filePath, "error", err)
				}
				continue
			}
			if !file.HasContent() {
				log.Debug("registry file has no content", "component", resolved.Name, "path", file.Path)
				continue
			}

			registryContent, err := e.transformer().Transform(ctx, transform.Input{
				Filename:  file.Path,
				Raw:       file.Content,
				Style:     cfg.Style,
				BaseColor: baseColor,
				Aliases:   cfg.Aliases,
			})
			if err != nil {
				return nil, errors.Newf(errors.CategoryValidation, "transform %s: %v", file.Path, err)
			}

			patch := Lines(registryContent, string(local))
			if !Changed(patch) {
				continue
			}
			changes = append(changes, ChangeRecord{
				FilePath:              filePath,
				ComponentRelativePath: registry.SourcePath(cfg.Style, file.Path),
				Patch:                 patch,
				RegistryContent:       registryContent,
				FileContent:           string(local),
			})
		}
	}

	e.Metrics.RecordChangedFiles(len(changes))
	log.Debug("component diffed", "component", item.Name, "changes", len(changes))
	return changes, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
