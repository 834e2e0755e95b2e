package diff

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/harmonyui/harmonycn/internal/registry"
)

func TestWriteColored(t *testing.T) {
	segs := []Segment{
		{Text: "same\n"},
		{Text: "old\n", Removed: true},
		{Text: "new\n", Added: true},
	}

	var plain bytes.Buffer
	if err := WriteColored(&plain, segs, false); err != nil {
		t.Fatal(err)
	}
	if plain.String() != "same\nold\nnew\n" {
		t.Errorf("plain = %q", plain.String())
	}

	var colored bytes.Buffer
	WriteColored(&colored, segs, true)
	want := "same\n" + colorRed + "old\n" + colorReset + colorGreen + "new\n" + colorReset
	if colored.String() != want {
		t.Errorf("colored = %q, want %q", colored.String(), want)
	}
}

func testUpdates() []ComponentUpdate {
	return []ComponentUpdate{{
		Name: "button",
		Item: registry.Item{Name: "button", Type: registry.TypeUI},
		Changes: []ChangeRecord{{
			FilePath:              "/p/components/ui/button.tsx",
			ComponentRelativePath: "registry/default/ui/button.tsx",
			Patch:                 Lines("a\nb\n", "a\nc\nd\n"),
		}},
	}}
}

func TestSummarize(t *testing.T) {
	s := Summarize(testUpdates(), false)
	if len(s.Components) != 1 {
		t.Fatalf("components = %d, want 1", len(s.Components))
	}
	c := s.Components[0]
	if c.Name != "button" || c.Type != "registry:ui" || len(c.Files) != 1 {
		t.Fatalf("component = %+v", c)
	}
	f := c.Files[0]
	if f.Added != 2 || f.Removed != 1 {
		t.Errorf("added/removed = %d/%d, want 2/1", f.Added, f.Removed)
	}
	if f.RegistryPath != "registry/default/ui/button.tsx" {
		t.Errorf("RegistryPath = %q", f.RegistryPath)
	}
	if f.Patch != nil {
		t.Error("patch should be omitted")
	}

	if p := Summarize(testUpdates(), true).Components[0].Files[0].Patch; len(p) == 0 {
		t.Error("patch should be included")
	}
}

func TestSummary_Write(t *testing.T) {
	s := Summarize(testUpdates(), false)

	var js bytes.Buffer
	if err := s.Write(&js, FormatJSON); err != nil {
		t.Fatalf("json: %v", err)
	}
	var fromJSON Summary
	if err := json.Unmarshal(js.Bytes(), &fromJSON); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if fromJSON.Components[0].Files[0].Added != 2 {
		t.Errorf("json summary = %+v", fromJSON)
	}

	var ys bytes.Buffer
	if err := s.Write(&ys, FormatYAML); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(ys.String(), "registryPath: registry/default/ui/button.tsx") {
		t.Errorf("yaml output:\n%s", ys.String())
	}
	var fromYAML Summary
	if err := yaml.Unmarshal(ys.Bytes(), &fromYAML); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if fromYAML.Components[0].Name != "button" {
		t.Errorf("yaml summary = %+v", fromYAML)
	}

	if err := s.Write(&bytes.Buffer{}, "xml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}
