package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/edjs/internal/auth"
	"github.com/desertthunder/edjs/internal/metrics"
	"github.com/desertthunder/edjs/internal/models"
	"github.com/desertthunder/edjs/internal/services"
	"github.com/desertthunder/edjs/internal/session"
	"github.com/desertthunder/edjs/internal/shared"
	"github.com/desertthunder/edjs/internal/storage"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The session components (storage, cache, status service, reconciler) are built on first use
// so that setup commands work before a database exists.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	navigator  shared.Navigator
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	now        func() time.Time
	logger     *log.Logger
	output     io.Writer

	db         *sql.DB
	store      storage.Store
	cache      *session.Cache
	status     *services.StatusService
	reconciler *auth.Reconciler
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Navigator  shared.Navigator
	// Store replaces the configured storage backend.
	Store  storage.Store
	Now    func() time.Time
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Navigator == nil {
		opts.Navigator = shared.BrowserNavigator{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	registry := prometheus.NewRegistry()
	m := metrics.New()
	if err := m.Register(registry); err != nil {
		opts.Logger.Warn("failed to register metrics", "error", err)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		navigator:  opts.Navigator,
		registry:   registry,
		metrics:    m,
		now:        opts.Now,
		logger:     opts.Logger,
		output:     opts.Output,
		store:      opts.Store,
	}
}

// SetLogger replaces the logger. Components built afterwards log through it.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, cacheCommand, spectaclesCommand, reserveCommand, watchCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// spectacles returns the configured catalogue, or the built-in one.
func (r *Runner) spectacles() []models.Spectacle {
	if len(r.config.Spectacles) == 0 {
		return models.DefaultSpectacles
	}
	out := make([]models.Spectacle, 0, len(r.config.Spectacles))
	for _, s := range r.config.Spectacles {
		out = append(out, models.Spectacle{ID: s.ID, Title: s.Title})
	}
	return out
}

func (r *Runner) openStore(ctx context.Context) (storage.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	switch r.config.Storage.Driver {
	case storage.DriverSQLite, "":
	default:
		store, err := storage.Open(r.config, nil)
		if err != nil {
			return nil, err
		}
		r.store = store
		return store, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database)

	if err := shared.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := storage.Open(r.config, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	r.db = db
	r.store = store
	return store, nil
}

// session builds the reconciler and everything it depends on, once.
func (r *Runner) session(ctx context.Context) (*auth.Reconciler, error) {
	if r.reconciler != nil {
		return r.reconciler, nil
	}

	store, err := r.openStore(ctx)
	if err != nil {
		return nil, err
	}

	r.cache = session.NewCache(store, shared.WithLogger(r.logger, "component", "session"))
	r.status = services.NewStatusService(services.StatusServiceOpts{
		BaseURL:    r.config.RemoteURL(),
		Mode:       r.config.Remote.Mode,
		Credential: r.config.Remote.Credential,
		Timeout:    r.config.Remote.Timeout.Duration,
		Client:     r.httpClient,
		Logger:     shared.WithLogger(r.logger, "component", "status"),
		Metrics:    r.metrics,
	})
	r.reconciler = auth.NewReconciler(auth.ReconcilerOpts{
		Cache:          r.cache,
		Fetcher:        r.status,
		Navigator:      r.navigator,
		Endpoints:      r.status.Endpoints(),
		RemoteFallback: r.config.Auth.RemoteFallback,
		Now:            r.now,
		Logger:         shared.WithLogger(r.logger, "component", "reconciler"),
		Metrics:        r.metrics,
	})

	r.logger.Debug("session ready", "scope", store.Scope(), "remote", r.status.Endpoints().BaseURL(), "mode", r.status.Mode())
	return r.reconciler, nil
}

// pageLocation is the address the CLI stands on when no return URL was given.
func (r *Runner) pageLocation() auth.Location {
	loc, err := auth.NewPageLocation(r.config.Site.PageURL)
	if err != nil {
		r.logger.Warn("ignoring invalid site.page_url", "error", err)
		return nil
	}
	return loc
}

// Close releases the database, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
