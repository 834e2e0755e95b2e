package main

import (
	"runtime"
	"strings"
	"testing"
)

func TestVersionInfo(t *testing.T) {
	lines := strings.Split(strings.TrimSuffix(versionInfo(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("versionInfo() has %d lines, want 2", len(lines))
	}
	if want := "harmonycn " + version + " (" + commit + ", built " + date + ")"; lines[0] != want {
		t.Errorf("release line = %q, want %q", lines[0], want)
	}
	if !strings.HasPrefix(lines[1], runtime.Version()) {
		t.Errorf("toolchain line = %q", lines[1])
	}
}
