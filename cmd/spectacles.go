package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/edjs/internal/shared"
	"github.com/desertthunder/edjs/internal/ui"
)

// project reconciles once for the configured page and maps the result to what the page shows.
func (r *Runner) project(ctx context.Context) (ui.Projection, error) {
	rec, err := r.session(ctx)
	if err != nil {
		return ui.Projection{}, err
	}
	state := rec.Reconcile(ctx, r.pageLocation(), r.now())
	return ui.Project(state, rec.Endpoints(), r.spectacles(), r.config.Site.PageURL), nil
}

// Spectacles prints one reservation button per spectacle for the current session.
func (r *Runner) Spectacles(ctx context.Context, cmd *cli.Command) error {
	p, err := r.project(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(p.Buttons, cmd.Bool("pretty"))
	}
	return r.writePlain("%s", ui.Render(p))
}

// Reserve opens the reservation page for a spectacle, or the login page with a return to it
// when the visitor is logged out.
func (r *Runner) Reserve(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("spectacle")
	if id == "" {
		return fmt.Errorf("%w: spectacle id is required", shared.ErrMissingArgument)
	}

	p, err := r.project(ctx)
	if err != nil {
		return err
	}

	btn, ok := p.Button(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrUnknownSpectacle, id)
	}

	r.logger.Info("opening reservation", "spectacle", id, "authenticated", p.Authenticated)
	if err := r.navigator.Open(btn.URL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		return r.writePlain("Open this URL to reserve %s:\n\n  %s\n", btn.Title, btn.URL)
	}
	return r.writePlain("✓ %s: %s\n", btn.Label, btn.URL)
}
