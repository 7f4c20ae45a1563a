package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/edjs/internal/models"
	"github.com/desertthunder/edjs/internal/shared"
)

type keyLister interface {
	Keys(ctx context.Context) ([]string, error)
}

type scopePurger interface {
	PurgeScope(ctx context.Context) (int64, error)
}

// cacheOutput is the JSON shape of `cache show`.
type cacheOutput struct {
	Scope     string             `json:"scope"`
	Present   bool               `json:"present"`
	Entry     *models.CachedAuth `json:"entry,omitempty"`
	Age       string             `json:"age,omitempty"`
	Fresh     bool               `json:"fresh"`
	Keys      []string           `json:"keys,omitempty"`
	Malformed bool               `json:"malformed,omitempty"`
}

// CacheShow prints the cached auth snapshot for the configured scope.
func (r *Runner) CacheShow(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.session(ctx); err != nil {
		return err
	}

	now := r.now()
	out := cacheOutput{Scope: r.cache.Scope()}

	entry, ok, err := r.cache.Get(ctx)
	switch {
	case errors.Is(err, shared.ErrMalformedEntry):
		out.Malformed = true
	case err != nil:
		return err
	case ok:
		out.Present = true
		out.Entry = &entry
		out.Fresh = entry.Fresh(now)
		if age, err := entry.Age(now); err == nil {
			out.Age = age.Truncate(time.Second).String()
		}
	}

	if lister, ok := r.store.(keyLister); ok {
		keys, err := lister.Keys(ctx)
		if err != nil {
			return err
		}
		out.Keys = keys
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	if err := r.writePlain("Scope: %s\n", out.Scope); err != nil {
		return err
	}
	switch {
	case out.Malformed:
		return r.writePlain("Entry was malformed and has been cleared\n")
	case !out.Present:
		return r.writePlain("No cached session\n")
	}

	state := entry.State()
	if err := r.writePlain("State: %s\nCaptured: %s (%s ago)\n", state, entry.Timestamp, out.Age); err != nil {
		return err
	}
	if out.Fresh {
		return r.writePlain("Fresh: yes\n")
	}
	return r.writePlain("Fresh: no, older than %s\n", models.FreshnessWindow)
}

// CacheClear removes the cached auth snapshot and its mirrors without touching the remote session.
//
// With --purge every key stored under the scope is removed, when the backend supports it.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.session(ctx); err != nil {
		return err
	}

	if err := r.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session cache: %w", err)
	}
	r.logger.Info("session cache cleared", "scope", r.cache.Scope())

	if cmd.Bool("purge") {
		purger, ok := r.store.(scopePurger)
		if !ok {
			return fmt.Errorf("%w: %s storage cannot purge a scope", shared.ErrNotImplemented, r.config.Storage.Driver)
		}
		n, err := purger.PurgeScope(ctx)
		if err != nil {
			return err
		}
		r.logger.Info("scope purged", "scope", r.cache.Scope(), "rows", n)
	}

	return r.writePlain("✓ Cleared session cache for scope %s\n", r.cache.Scope())
}
