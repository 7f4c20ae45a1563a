// Package session persists the last known authentication snapshot in scoped storage.
//
// The snapshot lives under [KeyAuthStatus] as JSON. The user type and professional type are
// mirrored under their own keys for fast lookups by other scripts on the page.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/edjs/internal/models"
	"github.com/desertthunder/edjs/internal/shared"
	"github.com/desertthunder/edjs/internal/storage"
)

const (
	KeyAuthStatus       = "edjs_auth_status"
	KeyUserType         = "userType"
	KeyProfessionalType = "professionalType"
)

// Cache reads and writes [models.CachedAuth] through a [storage.Store].
//
// Get followed by Set is not atomic.
type Cache struct {
	store  storage.Store
	logger *log.Logger
}

// NewCache wraps store. A nil logger discards output.
func NewCache(store storage.Store, logger *log.Logger) *Cache {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Cache{store: store, logger: logger}
}

// Get returns the snapshot and whether one was present.
//
// An entry that does not decode is removed along with the mirrors and [shared.ErrMalformedEntry]
// is returned.
func (c *Cache) Get(ctx context.Context) (models.CachedAuth, bool, error) {
	raw, ok, err := c.store.Get(ctx, KeyAuthStatus)
	if err != nil {
		return models.CachedAuth{}, false, err
	}
	if !ok {
		return models.CachedAuth{}, false, nil
	}

	var entry models.CachedAuth
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.logger.Warn("discarding malformed cache entry", "scope", c.store.Scope(), "error", err)
		if cerr := c.Clear(ctx); cerr != nil {
			return models.CachedAuth{}, false, errors.Join(fmt.Errorf("%w: %v", shared.ErrMalformedEntry, err), cerr)
		}
		return models.CachedAuth{}, false, fmt.Errorf("%w: %v", shared.ErrMalformedEntry, err)
	}
	return entry, true, nil
}

// Set overwrites the snapshot and refreshes the mirrors.
func (c *Cache) Set(ctx context.Context, entry models.CachedAuth) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.store.Set(ctx, KeyAuthStatus, string(data)); err != nil {
		return err
	}

	var userType, professionalType string
	if entry.User != nil {
		userType = entry.User.UserType
		professionalType = entry.User.ProfessionalType
	}
	if err := c.mirror(ctx, KeyUserType, userType); err != nil {
		return err
	}
	return c.mirror(ctx, KeyProfessionalType, professionalType)
}

func (c *Cache) mirror(ctx context.Context, key, value string) error {
	if value == "" {
		return c.store.Remove(ctx, key)
	}
	return c.store.Set(ctx, key, value)
}

// Clear removes the snapshot and both mirrors.
func (c *Cache) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range []string{KeyAuthStatus, KeyUserType, KeyProfessionalType} {
		if err := c.store.Remove(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Cache) UserType(ctx context.Context) (string, bool, error) {
	return c.store.Get(ctx, KeyUserType)
}

func (c *Cache) ProfessionalType(ctx context.Context) (string, bool, error) {
	return c.store.Get(ctx, KeyProfessionalType)
}

// Scope returns the storage scope the cache is bound to.
func (c *Cache) Scope() string { return c.store.Scope() }
