package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Segment is one run of a line diff. At most one of Added and Removed is
// set; neither means the text is common to both sides.
type Segment struct {
	Text    string `json:"text" yaml:"text"`
	Added   bool   `json:"added,omitempty" yaml:"added,omitempty"`
	Removed bool   `json:"removed,omitempty" yaml:"removed,omitempty"`
}

// Lines computes a line-granularity diff from a to b. Identical inputs give
// a single unchanged segment; two empty inputs give none.
func Lines(a, b string) []Segment {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	segments := make([]Segment, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		seg := Segment{Text: d.Text}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			seg.Added = true
		case diffmatchpatch.DiffDelete:
			seg.Removed = true
		}
		segments = append(segments, seg)
	}
	return segments
}

// Changed reports whether segments describe any difference.
func Changed(segments []Segment) bool {
	return len(segments) > 1
}

// Counts returns the number of added and removed lines.
func Counts(segments []Segment) (added, removed int) {
	for _, s := range segments {
		n := lineCount(s.Text)
		switch {
		case s.Added:
			added += n
		case s.Removed:
			removed += n
		}
	}
	return added, removed
}

func lineCount(s string) int {
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
