package registry

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/harmonyui/harmonycn/internal/errors"
)

func TestBuildStyles(t *testing.T) {
	sources := map[string]string{
		"registry/new-york/ui/button.tsx": "export const Button = 1\n",
	}
	read := func(path string) (string, error) {
		if c, ok := sources[path]; ok {
			return c, nil
		}
		return "", fmt.Errorf("%s: not found", path)
	}

	items := []Item{
		{Name: "button", Type: TypeUI, Files: []File{{Path: "ui/button.tsx"}}},
		{Name: "card", Type: TypeUI, Files: []File{{Path: "ui/card.tsx"}}},
	}

	result, err := BuildStyles(items, "new-york", read)
	if err != nil {
		t.Fatalf("BuildStyles error: %v", err)
	}
	if len(result.Files) != 1 {
		t.Fatalf("files = %+v", result.Files)
	}
	if result.Files[0].Path != "public/r/styles/new-york/button.json" {
		t.Errorf("path = %q", result.Files[0].Path)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "card" {
		t.Errorf("skipped = %v", result.Skipped)
	}

	built, err := DecodeItem([]byte(result.Files[0].Content))
	if err != nil {
		t.Fatalf("built document does not decode: %v", err)
	}
	if built.Files[0].Content != "export const Button = 1\n" || built.Files[0].Type != TypeUI {
		t.Errorf("built file = %+v", built.Files[0])
	}
	if !json.Valid([]byte(result.Files[0].Content)) {
		t.Error("output is not valid JSON")
	}
}

func TestBuildStyles_RejectsInvalidItem(t *testing.T) {
	items := []Item{{Name: "page", Type: "registry:page"}}
	read := func(string) (string, error) { return "", nil }

	if _, err := BuildStyles(items, "default", read); !errors.HasCode(err, errors.CodeValidation) {
		t.Errorf("err = %v, want E101", err)
	}
}
