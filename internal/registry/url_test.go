package registry

import (
	"testing"

	"github.com/harmonyui/harmonycn/internal/config"
	"github.com/harmonyui/harmonycn/internal/errors"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in     string
		branch string
		want   string
	}{
		{"https://github.com/acme/ui", "", "https://raw.githubusercontent.com/acme/ui/refs/heads/master/public/r"},
		{"https://github.com/acme/ui.git", "master", "https://raw.githubusercontent.com/acme/ui/refs/heads/master/public/r"},
		{"https://github.com/acme/ui", "main", "https://raw.githubusercontent.com/acme/ui/refs/heads/main/public/r"},
		{"https://ui.shadcn.com/r/", "main", "https://ui.shadcn.com/r"},
		{"  https://registry.example.com/r  ", "", "https://registry.example.com/r"},
		{"s3://bucket/r/", "", "s3://bucket/r"},
		{"", "", config.DefaultRegistry},
	}

	for _, tt := range tests {
		t.Run(tt.in+"@"+tt.branch, func(t *testing.T) {
			got, err := NormalizeURL(tt.in, tt.branch)
			if err != nil {
				t.Fatalf("NormalizeURL(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeURL_Rejects(t *testing.T) {
	for _, in := range []string{"ftp://example.com/r", "registry.example.com", "https://"} {
		if _, err := NormalizeURL(in, ""); !errors.HasCode(err, errors.CodeValidation) {
			t.Errorf("NormalizeURL(%q) err = %v, want E101", in, err)
		}
	}
}

func TestPaths(t *testing.T) {
	if got := StylePath("default", "button"); got != "styles/default/button.json" {
		t.Errorf("StylePath = %q", got)
	}
	if got := ColorPath("zinc"); got != "colors/zinc.json" {
		t.Errorf("ColorPath = %q", got)
	}
	if got := SourcePath("default", "/ui/button.tsx"); got != "registry/default/ui/button.tsx" {
		t.Errorf("SourcePath = %q", got)
	}
	if got := OutputPath("default", "button"); got != "public/r/styles/default/button.json" {
		t.Errorf("OutputPath = %q", got)
	}
}
