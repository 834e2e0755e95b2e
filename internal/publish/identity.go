package publish

import (
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/harmonyui/harmonycn/internal/github"
)

// LoadIdentity reads user.name and user.email from a git config file.
// It returns nil when either is missing.
func LoadIdentity(path string) (*github.Signature, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}

	user := cfg.Section("user")
	name := user.Key("name").String()
	email := user.Key("email").String()
	if name == "" || email == "" {
		return nil, nil
	}
	return &github.Signature{Name: name, Email: email}, nil
}

// DefaultIdentity reads ~/.gitconfig. Any failure yields nil.
func DefaultIdentity() *github.Signature {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	sig, err := LoadIdentity(filepath.Join(home, ".gitconfig"))
	if err != nil {
		return nil
	}
	return sig
}
