package auth

import (
	"context"
	"io"
	"log/slog"

	"github.com/harmonyui/harmonycn/internal/errors"
)

// Authenticator returns the stored credential, running the device flow
// when there is none.
type Authenticator struct {
	Store    *Store
	Config   Config
	Prompter Prompter
	Sleeper  Sleeper
	Logger   *slog.Logger
}

// Credential returns an access token.
func (a *Authenticator) Credential(ctx context.Context) (string, error) {
	log := a.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	token, err := a.Store.Load()
	if err == nil {
		log.Debug("using stored credential", "path", a.Store.Path())
		return token, nil
	}
	if !errors.Is(err, ErrNoCredential) {
		return "", err
	}

	cfg := a.Config
	if cfg.Logger == nil {
		cfg.Logger = log
	}
	cred, err := Run(ctx, NewFlow(cfg), a.Prompter, a.Sleeper)
	if err != nil {
		return "", err
	}

	if err := a.Store.Save(cred.AccessToken); err != nil {
		return "", err
	}
	log.Info("credential stored", "path", a.Store.Path())
	return cred.AccessToken, nil
}
