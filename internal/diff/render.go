package diff

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
)

// WriteColored writes segments with added text in green and removed text
// in red. Unchanged text is written as-is.
func WriteColored(w io.Writer, segments []Segment, color bool) error {
	for _, s := range segments {
		text := s.Text
		if color {
			switch {
			case s.Added:
				text = colorGreen + text + colorReset
			case s.Removed:
				text = colorRed + text + colorReset
			}
		}
		if _, err := io.WriteString(w, text); err != nil {
			return err
		}
	}
	return nil
}

// Summary is the machine-readable form of a diff run.
type Summary struct {
	Components []ComponentSummary `json:"components" yaml:"components"`
}

// ComponentSummary lists the changed files of one component.
type ComponentSummary struct {
	Name  string        `json:"name" yaml:"name"`
	Type  string        `json:"type" yaml:"type"`
	Files []FileSummary `json:"files" yaml:"files"`
}

// FileSummary describes one changed file.
type FileSummary struct {
	Path         string    `json:"path" yaml:"path"`
	RegistryPath string    `json:"registryPath" yaml:"registryPath"`
	Added        int       `json:"added" yaml:"added"`
	Removed      int       `json:"removed" yaml:"removed"`
	Patch        []Segment `json:"patch,omitempty" yaml:"patch,omitempty"`
}

// Summarize converts updates to a Summary. Patches are included when
// withPatch is set.
func Summarize(updates []ComponentUpdate, withPatch bool) Summary {
	s := Summary{Components: make([]ComponentSummary, 0, len(updates))}
	for _, u := range updates {
		cs := ComponentSummary{Name: u.Name, Type: string(u.Item.Type)}
		for _, c := range u.Changes {
			added, removed := Counts(c.Patch)
			fs := FileSummary{
				Path:         c.FilePath,
				RegistryPath: c.ComponentRelativePath,
				Added:        added,
				Removed:      removed,
			}
			if withPatch {
				fs.Patch = c.Patch
			}
			cs.Files = append(cs.Files, fs)
		}
		s.Components = append(s.Components, cs)
	}
	return s
}

// Output formats accepted by Summary.Write.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Write encodes s as JSON or YAML.
func (s Summary) Write(w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
