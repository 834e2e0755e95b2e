package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/harmonyui/harmonycn/internal/auth"
	"github.com/harmonyui/harmonycn/internal/config"
	"github.com/harmonyui/harmonycn/internal/errors"
	"github.com/harmonyui/harmonycn/internal/github"
)

func authCmd() *cobra.Command {
	var cwd string

	cmd := &cobra.Command{
		Use:   "auth [command]",
		Short: "Manage the Git host credential",
		Long: `Manage the credential used to open pull requests.

The credential is obtained with the device authorization flow: harmonycn
prints a code, you enter it on the Git host, and the token is stored in
the project's .token file. The file is obfuscated, not encrypted.

Commands:
  login    Authorize and store a new credential
  logout   Remove the stored credential
  status   Show the account of the stored credential`,
	}

	cmd.PersistentFlags().StringVarP(&cwd, "cwd", "c", "", "The working directory (default: current directory)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "login",
			Short: "Authorize and store a new credential",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runLogin(cmd.Context(), cwd)
			},
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Remove the stored credential",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runLogout(cwd)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the account of the stored credential",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAuthStatus(cmd.Context(), cwd)
			},
		},
	)

	return cmd
}

// newAuthenticator stores the credential next to components.json.
func newAuthenticator(cfg *config.Config, logger *slog.Logger) *auth.Authenticator {
	return &auth.Authenticator{
		Store: auth.NewStore(cfg.Dir()),
		Config: auth.Config{
			ClientID: cfg.Auth.ClientID,
			BaseURL:  cfg.Auth.BaseURL,
			Logger:   logger,
			Metrics:  metrics(),
		},
		Prompter: auth.PrompterFunc(func(code auth.DeviceCode) error {
			info("Please go to %s and enter the code %s", code.VerificationURI, code.UserCode)
			return nil
		}),
		Logger: logger,
	}
}

func runLogin(ctx context.Context, cwd string) error {
	cfg, err := loadConfig(cwd)
	if err != nil {
		return err
	}

	a := newAuthenticator(cfg, newLogger())
	if err := a.Store.Delete(); err != nil {
		return err
	}
	if _, err := a.Credential(ctx); err != nil {
		return err
	}

	success("Credential stored in %s", a.Store.Path())
	return nil
}

func runLogout(cwd string) error {
	cfg, err := loadConfig(cwd)
	if err != nil {
		return err
	}

	store := auth.NewStore(cfg.Dir())
	if err := store.Delete(); err != nil {
		return err
	}
	success("Removed %s", store.Path())
	return nil
}

func runAuthStatus(ctx context.Context, cwd string) error {
	cfg, err := loadConfig(cwd)
	if err != nil {
		return err
	}

	token, err := auth.NewStore(cfg.Dir()).Load()
	if errors.Is(err, auth.ErrNoCredential) {
		warn("Not logged in. Run 'harmonycn auth login'.")
		return nil
	}
	if err != nil {
		return err
	}

	client := github.NewClient(github.Config{
		BaseURL: cfg.Publish.APIBaseURL,
		Token:   token,
		Metrics: metrics(),
	}, nil)
	user, err := client.GetUser(ctx)
	if err != nil {
		return errors.New(errors.CodeAuthDenied).
			WithDetail("The stored credential was rejected").
			WithSuggestion("Run 'harmonycn auth login' to authorize again").
			Wrap(err)
	}

	success("Logged in as %s", user.Login)
	return nil
}
