package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/edjs/internal/auth"
	"github.com/desertthunder/edjs/internal/server"
	"github.com/desertthunder/edjs/internal/shared"
	"github.com/desertthunder/edjs/internal/ui"
)

// Watch launches the interactive terminal UI. The callback listener and the periodic recheck
// run for as long as the UI is open, and every state change is pushed to the view.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	rec, err := r.session(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := shared.WithLogger(r.logger, "component", "server")
	router, _ := server.NewRoutes(server.RoutesOpts{
		Reconciler: rec,
		Now:        r.now,
		Logger:     logger,
		Metrics:    r.metrics,
		Gatherer:   r.registry,
	})
	srv := server.NewServer(r.config.ListenAddr(), router, logger)
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	interval := r.config.Auth.RecheckInterval.Duration
	if cmd.IsSet("interval") {
		interval = cmd.Duration("interval")
	}
	poller := auth.NewPoller(rec, auth.PollerOpts{
		Interval: interval,
		Logger:   shared.WithLogger(r.logger, "component", "poller"),
	})

	rec.Reconcile(ctx, r.pageLocation(), r.now())

	model := ui.NewModel(ctx, ui.Options{
		Controller: rec,
		Endpoints:  rec.Endpoints(),
		Spectacles: r.spectacles(),
		PageURL:    r.config.CallbackURL(),
		Recheck:    poller.Trigger,
	})
	p := tea.NewProgram(model, tea.WithContext(ctx))

	unsubscribe := rec.Subscribe(ui.Forward(p))
	defer unsubscribe()

	go poller.Run(ctx)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
