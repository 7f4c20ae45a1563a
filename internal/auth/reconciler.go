package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/edjs/internal/metrics"
	"github.com/desertthunder/edjs/internal/models"
	"github.com/desertthunder/edjs/internal/services"
	"github.com/desertthunder/edjs/internal/shared"
)

// SessionCache is the persisted snapshot store, satisfied by session.Cache.
type SessionCache interface {
	Get(ctx context.Context) (models.CachedAuth, bool, error)
	Set(ctx context.Context, entry models.CachedAuth) error
	Clear(ctx context.Context) error
}

// Observer receives every change of the authoritative state.
type Observer func(models.AuthState)

// ReconcilerOpts wires a [Reconciler]. Fetcher may be nil when RemoteFallback is off.
type ReconcilerOpts struct {
	Cache          SessionCache
	Fetcher        services.StatusFetcher
	Navigator      shared.Navigator
	Endpoints      services.Endpoints
	RemoteFallback bool
	Now            func() time.Time
	Logger         *log.Logger
	Metrics        *metrics.Metrics
}

type subscription struct {
	id int
	fn Observer
}

// Reconciler owns the authoritative [models.AuthState].
//
// Passes may overlap. Observers are only notified when a pass produces a state different from
// the last one emitted, so overlapping passes converge.
type Reconciler struct {
	cache          SessionCache
	fetcher        services.StatusFetcher
	navigator      shared.Navigator
	endpoints      services.Endpoints
	remoteFallback bool
	now            func() time.Time
	logger         *log.Logger
	metrics        *metrics.Metrics

	mu        sync.Mutex
	state     models.AuthState
	observers []subscription
	nextID    int
}

func NewReconciler(opts ReconcilerOpts) *Reconciler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Navigator == nil {
		opts.Navigator = shared.BrowserNavigator{}
	}

	return &Reconciler{
		cache:          opts.Cache,
		fetcher:        opts.Fetcher,
		navigator:      opts.Navigator,
		endpoints:      opts.Endpoints,
		remoteFallback: opts.RemoteFallback && opts.Fetcher != nil,
		now:            opts.Now,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		state:          models.LoggedOut(),
	}
}

// State returns a copy of the last emitted state.
func (r *Reconciler) State() models.AuthState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// Subscribe registers fn and returns a func that removes it.
func (r *Reconciler) Subscribe(fn Observer) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.observers = append(r.observers, subscription{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, s := range r.observers {
			if s.id == id {
				r.observers = append(r.observers[:i:i], r.observers[i+1:]...)
				return
			}
		}
	}
}

// Recheck runs a pass without a URL signal.
func (r *Reconciler) Recheck(ctx context.Context) models.AuthState {
	return r.Reconcile(ctx, nil, r.now())
}

// Reconcile produces the authoritative state with the precedence URL, fresh cache, remote check.
// loc may be nil when there is no page address to read.
func (r *Reconciler) Reconcile(ctx context.Context, loc Location, now time.Time) models.AuthState {
	state, source := r.resolve(ctx, loc, now)
	r.metrics.ObserveReconcile(source)
	r.logger.Info("reconciled", "source", source, "authenticated", state.Authenticated)

	r.emit(state)
	return state.Clone()
}

func (r *Reconciler) resolve(ctx context.Context, loc Location, now time.Time) (models.AuthState, string) {
	if loc != nil {
		if u := loc.URL(); u != nil {
			if state, ok := ParseReturn(u); ok {
				r.store(ctx, state, now)
				loc.Replace(StripAuthParams(u))
				return state, metrics.SourceURL
			}
		}
	}

	if state, ok := r.cached(ctx, now); ok {
		return state, metrics.SourceCache
	}

	if !r.remoteFallback {
		return models.LoggedOut(), metrics.SourceDefault
	}

	state := r.fetcher.Fetch(ctx)
	if state.Authenticated {
		r.store(ctx, state, now)
	}
	return state, metrics.SourceRemote
}

// cached returns the cached state when a fresh authenticated entry exists. Stale entries are
// deleted; unreadable ones are treated as absent.
func (r *Reconciler) cached(ctx context.Context, now time.Time) (models.AuthState, bool) {
	if r.cache == nil {
		return models.LoggedOut(), false
	}

	entry, ok, err := r.cache.Get(ctx)
	switch {
	case errors.Is(err, shared.ErrMalformedEntry):
		r.logger.Warn("cache entry was malformed and has been discarded", "error", err)
		return models.LoggedOut(), false
	case err != nil:
		r.logger.Warn("cache read failed, treating as absent", "error", err)
		return models.LoggedOut(), false
	case !ok:
		return models.LoggedOut(), false
	}

	if !entry.Fresh(now) {
		r.logger.Debug("cache entry is stale", "timestamp", entry.Timestamp)
		if err := r.cache.Clear(ctx); err != nil {
			r.logger.Warn("failed to delete stale cache entry", "error", err)
		}
		return models.LoggedOut(), false
	}

	state := entry.State()
	return state, state.Authenticated
}

func (r *Reconciler) store(ctx context.Context, state models.AuthState, now time.Time) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, models.NewCachedAuth(state, now)); err != nil {
		r.logger.Warn("failed to write cache entry", "error", err)
	}
}

func (r *Reconciler) emit(state models.AuthState) {
	r.mu.Lock()
	if r.state.Equal(state) {
		r.mu.Unlock()
		return
	}
	r.state = state.Clone()
	observers := make([]Observer, len(r.observers))
	for i, s := range r.observers {
		observers[i] = s.fn
	}
	r.mu.Unlock()

	r.metrics.ObserveEmission(state.Authenticated)
	for _, fn := range observers {
		fn(state.Clone())
	}
}

// Logout clears local state first and then opens the remote logout page.
//
// The returned error only reports navigation or cache failures; local state is logged out regardless.
func (r *Reconciler) Logout(ctx context.Context) error {
	var errs []error
	if r.cache != nil {
		if err := r.cache.Clear(ctx); err != nil {
			r.logger.Warn("failed to clear cache on logout", "error", err)
			errs = append(errs, err)
		}
	}
	r.emit(models.LoggedOut())
	r.logger.Info("logged out locally")

	if err := r.navigator.Open(r.endpoints.LogoutURL()); err != nil {
		errs = append(errs, fmt.Errorf("failed to open logout page: %w", err))
	}
	return errors.Join(errs...)
}

// Open navigates to target with the configured navigator.
func (r *Reconciler) Open(target string) error {
	return r.navigator.Open(target)
}

func (r *Reconciler) Endpoints() services.Endpoints { return r.endpoints }
