package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/edjs/internal/auth"
	"github.com/desertthunder/edjs/internal/models"
	"github.com/desertthunder/edjs/internal/server"
	"github.com/desertthunder/edjs/internal/shared"
	"github.com/desertthunder/edjs/internal/ui"
)

// statusOutput is the JSON shape of `auth status`.
type statusOutput struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	Scope         string       `json:"scope"`
	Remote        string       `json:"remote"`
	Mode          string       `json:"mode"`
	Source        string       `json:"source"`
	Error         string       `json:"error,omitempty"`
}

// AuthStatus runs one reconciliation pass for the configured page and prints the result.
//
// With --remote the auth service is asked directly and nothing is cached.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	rec, err := r.session(ctx)
	if err != nil {
		return err
	}

	out := statusOutput{
		Scope:  r.cache.Scope(),
		Remote: r.status.Endpoints().BaseURL(),
		Mode:   r.status.Mode(),
		Source: "session",
	}

	var state models.AuthState
	if cmd.Bool("remote") {
		r.logger.Info("checking auth status with the remote service")
		out.Source = "remote"
		state, err = r.status.Check(ctx)
		if err != nil {
			r.logger.Warn("remote status check failed", "error", err)
			out.Error = err.Error()
			state = models.LoggedOut()
		}
	} else {
		state = rec.Reconcile(ctx, r.pageLocation(), r.now())
	}

	state = state.Normalize()
	out.Authenticated = state.Authenticated
	out.User = state.User

	if cmd.Bool("json") {
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	p := ui.Project(state, r.status.Endpoints(), r.spectacles(), r.config.Site.PageURL)
	if err := r.writePlain("%s", ui.RenderHeader(p)); err != nil {
		return err
	}
	if out.Error != "" {
		return r.writePlain("\nremote check failed: %s\n", out.Error)
	}
	return nil
}

// AuthLogin opens the remote login page with the local listener as return address and waits
// for the visitor to come back.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	rec, err := r.session(ctx)
	if err != nil {
		return err
	}

	logger := shared.WithLogger(r.logger, "component", "server")
	router, callback := server.NewRoutes(server.RoutesOpts{
		Reconciler: rec,
		Now:        r.now,
		Logger:     logger,
		Metrics:    r.metrics,
		Gatherer:   r.registry,
	})
	srv := server.NewServer(r.config.ListenAddr(), router, logger)

	navigator := r.navigator
	if cmd.Bool("no-browser") {
		navigator = shared.NavigatorFunc(func(url string) error {
			return r.writePlain("Open this URL in your browser to log in:\n\n  %s\n\n", url)
		})
	}

	loginURL := rec.Endpoints().LoginURL(r.config.CallbackURL())
	flow := server.NewLoginFlow(server.LoginFlowOpts{
		Server:    srv,
		Handler:   callback,
		Navigator: navigator,
		LoginURL:  loginURL,
		Timeout:   cmd.Duration("timeout"),
		Logger:    logger,
		OpenFailed: func(url string, _ error) {
			if err := r.writePlain("Could not open a browser. Visit this URL to log in:\n\n  %s\n\n", url); err != nil {
				r.logger.Warn("failed to print login URL", "url", url, "error", err)
			}
		},
	})

	if err := r.writePlain("Waiting for login on %s ...\n", r.config.CallbackURL()); err != nil {
		return err
	}
	result, err := flow.Run(ctx)
	if err != nil && !errors.Is(err, shared.ErrLoginIncomplete) {
		return fmt.Errorf("login failed: %w", err)
	}

	if werr := r.writeState(result.State); werr != nil {
		return werr
	}
	if result.CleanURL != "" {
		if werr := r.writePlain("Returned to %s\n", result.CleanURL); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}
	return r.writePlain("✓ Logged in as %s\n", result.State.User.Label())
}

// AuthCallback reconciles a pasted login return URL and prints the URL without its auth parameters.
func (r *Runner) AuthCallback(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.StringArg("url")
	if raw == "" {
		return fmt.Errorf("%w: return URL is required", shared.ErrMissingArgument)
	}

	loc, err := auth.NewPageLocation(raw)
	if err != nil {
		return err
	}
	if !auth.HasAuthParams(loc.URL()) {
		r.logger.Warn("url carries no login return parameters", "url", raw)
	}

	rec, err := r.session(ctx)
	if err != nil {
		return err
	}

	state := rec.Reconcile(ctx, loc, r.now())
	if err := r.writeState(state); err != nil {
		return err
	}
	return r.writePlain("Clean URL: %s\n", loc.String())
}

// AuthLogout clears the local session and opens the remote logout page.
//
// Only a failure to clear local state is an error; a browser that cannot be opened leaves
// the logout URL printed instead.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	rec, err := r.session(ctx)
	if err != nil {
		return err
	}

	err = rec.Logout(ctx)
	if err != nil {
		r.logger.Warn("logout incomplete", "error", err)
		if errors.Is(err, shared.ErrStorage) || errors.Is(err, shared.ErrMalformedEntry) {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		if werr := r.writePlain("Open %s to end the remote session\n", rec.Endpoints().LogoutURL()); werr != nil {
			return werr
		}
	}

	return r.writePlain("✓ Logged out\n")
}

func (r *Runner) writeState(state models.AuthState) error {
	p := ui.Project(state, r.status.Endpoints(), r.spectacles(), r.config.Site.PageURL)
	return r.writePlain("%s", ui.RenderHeader(p))
}
