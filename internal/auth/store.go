package auth

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/harmonyui/harmonycn/internal/errors"
)

// TokenFileName is the credential file created in the project directory.
const TokenFileName = ".token"

// ErrNoCredential is returned by Store.Load when no credential is stored.
var ErrNoCredential = errors.Newf(errors.CategoryAuth, "no stored credential")

// Store persists the access token in dir/.token.
//
// The file is single-process; concurrent writers are not coordinated.
type Store struct {
	dir string
}

// NewStore creates a store for dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the credential file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, TokenFileName)
}

// Load returns the stored token.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoCredential
		}
		return "", errors.Newf(errors.CategoryAuth, "read credential").Wrap(err)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return "", errors.Newf(errors.CategoryAuth, "corrupt credential file %s", s.Path()).
			WithSuggestion("Run 'harmonycn auth logout' and sign in again").
			Wrap(err)
	}
	token := string(decoded)
	if token == "" {
		return "", ErrNoCredential
	}
	return token, nil
}

// Save writes token with mode 0600, replacing any previous file
// atomically.
func (s *Store) Save(token string) error {
	tmp, err := os.CreateTemp(s.dir, TokenFileName+"-*")
	if err != nil {
		return errors.Newf(errors.CategoryAuth, "save credential").Wrap(err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return errors.Newf(errors.CategoryAuth, "save credential").Wrap(err)
	}
	if _, err := tmp.WriteString(base64.StdEncoding.EncodeToString([]byte(token))); err != nil {
		tmp.Close()
		return errors.Newf(errors.CategoryAuth, "save credential").Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Newf(errors.CategoryAuth, "save credential").Wrap(err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		return errors.Newf(errors.CategoryAuth, "save credential").Wrap(err)
	}
	return nil
}

// Delete removes the credential file. A missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return errors.Newf(errors.CategoryAuth, "delete credential").Wrap(err)
	}
	return nil
}
