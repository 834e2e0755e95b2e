package registry

import (
	"encoding/json"
	"fmt"
)

// ReadFunc returns the content of a repository path.
type ReadFunc func(path string) (string, error)

// BuiltFile is a generated registry document and the repository path it
// belongs at.
type BuiltFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// BuildResult is the output of BuildStyles.
type BuildResult struct {
	Files []BuiltFile

	// Skipped names items with at least one unreadable source file.
	Skipped []string
}

// BuildStyles renders the style documents of items. Each file's content is
// read from registry/<style>/<path>, and the item is emitted at
// public/r/styles/<style>/<name>.json. An item is skipped when any of its
// sources cannot be read; an item that fails validation fails the build.
func BuildStyles(items []Item, style string, read ReadFunc) (*BuildResult, error) {
	result := &BuildResult{}

	for _, item := range items {
		if err := Validate(item); err != nil {
			return nil, err
		}

		built := item
		built.Files = make([]File, 0, len(item.Files))
		readable := true
		for _, f := range item.Files {
			content, err := read(SourcePath(style, f.Path))
			if err != nil {
				readable = false
				break
			}
			f.Content = content
			if f.Type == "" {
				f.Type = item.Type
			}
			built.Files = append(built.Files, f)
		}
		if !readable {
			result.Skipped = append(result.Skipped, item.Name)
			continue
		}

		data, err := json.MarshalIndent(built, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", item.Name, err)
		}
		result.Files = append(result.Files, BuiltFile{
			Path:    OutputPath(style, item.Name),
			Content: string(data) + "\n",
		})
	}

	return result, nil
}
