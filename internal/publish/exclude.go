package publish

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Exclude drops files whose path matches any of the glob patterns. Patterns
// support ** and are matched against the full repository path.
func Exclude(files []File, patterns []string) ([]File, error) {
	if len(patterns) == 0 {
		return files, nil
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}

	kept := make([]File, 0, len(files))
	for _, f := range files {
		excluded := false
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, f.Path); ok {
				excluded = true
				break
			}
		}
		if !excluded {
			kept = append(kept, f)
		}
	}
	return kept, nil
}
