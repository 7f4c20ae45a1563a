package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/edjs/internal/models"
	"github.com/desertthunder/edjs/internal/services"
	"github.com/desertthunder/edjs/internal/session"
	"github.com/desertthunder/edjs/internal/shared"
	"github.com/desertthunder/edjs/internal/storage"
	tu "github.com/desertthunder/edjs/internal/testing"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store     *storage.MemoryStore
	cache     *session.Cache
	fetcher   *tu.FakeFetcher
	navigator *tu.FakeNavigator
	clock     *tu.FixedClock
	r         *Reconciler
	emitted   []models.AuthState
	mu        sync.Mutex
}

func newFixture(t *testing.T, remoteFallback bool) *fixture {
	t.Helper()
	f := &fixture{
		store:     storage.NewMemoryStore(nil, "tab"),
		fetcher:   tu.NewFakeFetcher(models.LoggedOut()),
		navigator: &tu.FakeNavigator{},
		clock:     tu.NewFixedClock(epoch),
	}
	f.cache = session.NewCache(f.store, nil)
	f.r = NewReconciler(ReconcilerOpts{
		Cache:          f.cache,
		Fetcher:        f.fetcher,
		Navigator:      f.navigator,
		Endpoints:      services.NewEndpoints("https://app.edjs.art"),
		RemoteFallback: remoteFallback,
		Now:            f.clock.Now,
	})
	f.r.Subscribe(func(s models.AuthState) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.emitted = append(f.emitted, s)
	})
	return f
}

func (f *fixture) emissions() []models.AuthState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AuthState(nil), f.emitted...)
}

func (f *fixture) seed(t *testing.T, user *models.User, at time.Time) {
	t.Helper()
	if err := f.cache.Set(context.Background(), models.NewCachedAuth(models.NewAuthState(user), at)); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}
}

func TestReconcileURLSignal(t *testing.T) {
	ctx := context.Background()

	t.Run("Authenticates, caches and strips", func(t *testing.T) {
		f := newFixture(t, true)
		loc, _ := NewPageLocation("https://edjs.art/spectacles?logged_in=true&user_email=a%40b.com&user_name=Alice&user_type=professional&keep=1")

		state := f.r.Reconcile(ctx, loc, epoch)

		if !state.Authenticated || state.User.Email != "a@b.com" || state.User.DisplayName != "Alice" {
			t.Fatalf("expected Alice, got %v", state)
		}
		if loc.String() != "https://edjs.art/spectacles?keep=1" {
			t.Errorf("expected stripped location, got %s", loc)
		}
		if loc.Replaced() != 1 {
			t.Errorf("expected a single replace, got %d", loc.Replaced())
		}

		entry, ok, err := f.cache.Get(ctx)
		if err != nil || !ok {
			t.Fatalf("expected cache entry, got ok=%v err=%v", ok, err)
		}
		if entry.Timestamp != epoch.Format(models.TimestampLayout) {
			t.Errorf("expected timestamp %s, got %s", epoch.Format(models.TimestampLayout), entry.Timestamp)
		}
		if v, _, _ := f.cache.UserType(ctx); v != "professional" {
			t.Errorf("expected userType mirror, got %q", v)
		}
		if f.fetcher.Calls() != 0 {
			t.Errorf("expected no remote check, got %d", f.fetcher.Calls())
		}
		if got := f.emissions(); len(got) != 1 || !got[0].Equal(state) {
			t.Errorf("expected one emission of %v, got %v", state, got)
		}
	})

	t.Run("Takes precedence over cache", func(t *testing.T) {
		for _, age := range []time.Duration{time.Hour, 48 * time.Hour} {
			f := newFixture(t, true)
			f.seed(t, &models.User{Email: "bob@example.com", DisplayName: "Bob", Role: "user"}, epoch.Add(-age))
			loc, _ := NewPageLocation("https://edjs.art/?logged_in=true&user_email=a%40b.com&user_name=Alice")

			state := f.r.Reconcile(ctx, loc, epoch)
			if state.User.Email != "a@b.com" || state.User.DisplayName != "Alice" {
				t.Errorf("age %s: expected URL identity, got %v", age, state)
			}

			entry, _, _ := f.cache.Get(ctx)
			if entry.User == nil || entry.User.Email != "a@b.com" {
				t.Errorf("age %s: expected cache overwritten, got %+v", age, entry.User)
			}
		}
	})

	t.Run("Location without signal is left alone", func(t *testing.T) {
		f := newFixture(t, false)
		loc, _ := NewPageLocation("https://edjs.art/?logged_in=false&user_email=x")

		if state := f.r.Reconcile(ctx, loc, epoch); state.Authenticated {
			t.Errorf("expected logged out, got %v", state)
		}
		if loc.Replaced() != 0 {
			t.Error("expected location not to be replaced")
		}
	})
}

func TestReconcileCache(t *testing.T) {
	ctx := context.Background()
	user := tu.SampleUser()

	t.Run("Absent", func(t *testing.T) {
		f := newFixture(t, false)
		if state := f.r.Reconcile(ctx, nil, epoch); state.Authenticated {
			t.Errorf("expected logged out, got %v", state)
		}
		if len(f.emissions()) != 0 {
			t.Error("expected no emission when state stays logged out")
		}
	})

	t.Run("Fresh at 23h59m", func(t *testing.T) {
		f := newFixture(t, true)
		f.seed(t, user, epoch.Add(-(23*time.Hour + 59*time.Minute)))

		state := f.r.Reconcile(ctx, nil, epoch)
		if !state.Authenticated || state.User.Email != user.Email {
			t.Errorf("expected cached user, got %v", state)
		}
		if f.fetcher.Calls() != 0 {
			t.Error("expected fresh cache to skip the remote check")
		}
	})

	t.Run("Stale at 24h01m", func(t *testing.T) {
		f := newFixture(t, false)
		f.seed(t, user, epoch.Add(-(24*time.Hour + time.Minute)))

		if state := f.r.Reconcile(ctx, nil, epoch); state.Authenticated {
			t.Errorf("expected logged out, got %v", state)
		}
		if _, ok, _ := f.cache.Get(ctx); ok {
			t.Error("expected stale entry deleted")
		}
		if _, ok, _ := f.cache.UserType(ctx); ok {
			t.Error("expected stale mirrors deleted")
		}
	})

	t.Run("Malformed entry", func(t *testing.T) {
		f := newFixture(t, false)
		f.store.Set(ctx, session.KeyAuthStatus, "not json")

		if state := f.r.Reconcile(ctx, nil, epoch); state.Authenticated {
			t.Errorf("expected logged out, got %v", state)
		}
		if _, ok, _ := f.store.Get(ctx, session.KeyAuthStatus); ok {
			t.Error("expected malformed entry discarded")
		}
	})

	t.Run("Storage failure", func(t *testing.T) {
		r := NewReconciler(ReconcilerOpts{Cache: brokenCache{}, Now: tu.NewFixedClock(epoch).Now})
		if state := r.Recheck(ctx); state.Authenticated {
			t.Errorf("expected logged out, got %v", state)
		}
	})

	t.Run("Idempotent recheck", func(t *testing.T) {
		f := newFixture(t, false)
		f.seed(t, user, epoch.Add(-time.Hour))

		first := f.r.Reconcile(ctx, nil, epoch)
		second := f.r.Reconcile(ctx, nil, epoch.Add(time.Minute))

		if !first.Equal(second) {
			t.Errorf("expected identical states, got %v and %v", first, second)
		}
		if n := len(f.emissions()); n != 1 {
			t.Errorf("expected one emission, got %d", n)
		}
	})
}

type brokenCache struct{}

func (brokenCache) Get(context.Context) (models.CachedAuth, bool, error) {
	return models.CachedAuth{}, false, shared.ErrStorage
}
func (brokenCache) Set(context.Context, models.CachedAuth) error { return shared.ErrStorage }
func (brokenCache) Clear(context.Context) error                  { return shared.ErrStorage }

func TestReconcileRemote(t *testing.T) {
	ctx := context.Background()

	t.Run("Fallback when nothing else decides", func(t *testing.T) {
		f := newFixture(t, true)
		f.fetcher.Set(models.NewAuthState(tu.SampleUser()))

		state := f.r.Reconcile(ctx, nil, epoch)
		if !state.Authenticated {
			t.Fatalf("expected remote state, got %v", state)
		}
		if f.fetcher.Calls() != 1 {
			t.Errorf("expected one remote check, got %d", f.fetcher.Calls())
		}

		entry, ok, _ := f.cache.Get(ctx)
		if !ok || !entry.IsAuthenticated || entry.Timestamp != epoch.Format(models.TimestampLayout) {
			t.Errorf("expected remote result cached at now, got %+v", entry)
		}
	})

	t.Run("Unauthenticated result is not cached", func(t *testing.T) {
		f := newFixture(t, true)
		f.r.Reconcile(ctx, nil, epoch)

		if _, ok, _ := f.cache.Get(ctx); ok {
			t.Error("expected nothing cached")
		}
	})

	t.Run("Disabled", func(t *testing.T) {
		f := newFixture(t, false)
		f.fetcher.Set(models.NewAuthState(tu.SampleUser()))

		if state := f.r.Reconcile(ctx, nil, epoch); state.Authenticated {
			t.Errorf("expected logged out, got %v", state)
		}
		if f.fetcher.Calls() != 0 {
			t.Error("expected no remote check")
		}
	})

	t.Run("Timeout fails closed", func(t *testing.T) {
		f := newFixture(t, true)
		f.fetcher.Set(models.NewAuthState(tu.SampleUser()))
		f.fetcher.Delay = time.Second

		tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		if state := f.r.Reconcile(tctx, nil, epoch); state.Authenticated {
			t.Errorf("expected logged out on timeout, got %v", state)
		}
		if len(f.emissions()) != 0 {
			t.Error("expected no emission")
		}
	})

	t.Run("Remote logout is observed", func(t *testing.T) {
		f := newFixture(t, true)
		f.fetcher.Set(models.NewAuthState(tu.SampleUser()))
		f.r.Reconcile(ctx, nil, epoch)

		f.fetcher.Set(models.LoggedOut())
		f.clock.Advance(25 * time.Hour)
		f.r.Recheck(ctx)

		got := f.emissions()
		if len(got) != 2 || got[1].Authenticated {
			t.Errorf("expected login then logout emissions, got %v", got)
		}
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("Clears cache and navigates", func(t *testing.T) {
		f := newFixture(t, false)
		f.seed(t, tu.SampleUser(), epoch)
		f.r.Reconcile(ctx, nil, epoch)

		if err := f.r.Logout(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.r.State().Authenticated {
			t.Error("expected logged out state")
		}
		if _, ok, _ := f.cache.Get(ctx); ok {
			t.Error("expected cache cleared")
		}

		got := f.emissions()
		if len(got) != 2 || got[1].Authenticated {
			t.Errorf("expected logout emission, got %v", got)
		}
		if opened := f.navigator.Opened(); len(opened) != 1 || opened[0] != "https://app.edjs.art/auth?mode=logout" {
			t.Errorf("expected logout page opened, got %v", opened)
		}

		if state := f.r.Reconcile(ctx, nil, epoch); state.Authenticated {
			t.Errorf("expected subsequent pass to stay logged out, got %v", state)
		}
	})

	t.Run("Local state cleared when navigation fails", func(t *testing.T) {
		f := newFixture(t, false)
		f.seed(t, tu.SampleUser(), epoch)
		f.r.Reconcile(ctx, nil, epoch)
		f.navigator.Err = shared.ErrNavigation

		if err := f.r.Logout(ctx); !errors.Is(err, shared.ErrNavigation) {
			t.Errorf("expected navigation error reported, got %v", err)
		}
		if f.r.State().Authenticated {
			t.Error("expected logged out state")
		}
		if _, ok, _ := f.cache.Get(ctx); ok {
			t.Error("expected cache cleared")
		}
	})

	t.Run("Logging out twice emits once", func(t *testing.T) {
		f := newFixture(t, false)
		f.seed(t, tu.SampleUser(), epoch)
		f.r.Reconcile(ctx, nil, epoch)

		f.r.Logout(ctx)
		f.r.Logout(ctx)
		if n := len(f.emissions()); n != 2 {
			t.Errorf("expected 2 emissions, got %d", n)
		}
	})
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	var calls atomic.Int32
	unsubscribe := f.r.Subscribe(func(models.AuthState) { calls.Add(1) })

	loc, _ := NewPageLocation("https://edjs.art/?logged_in=true")
	f.r.Reconcile(ctx, loc, epoch)
	unsubscribe()
	unsubscribe()
	f.r.Logout(ctx)

	if calls.Load() != 1 {
		t.Errorf("expected one notification before unsubscribing, got %d", calls.Load())
	}
	if n := len(f.emissions()); n != 2 {
		t.Errorf("expected remaining observer to see both changes, got %d", n)
	}
}

func TestStateIsACopy(t *testing.T) {
	f := newFixture(t, false)
	loc, _ := NewPageLocation("https://edjs.art/?logged_in=true&user_name=Alice")
	f.r.Reconcile(context.Background(), loc, epoch)

	s := f.r.State()
	s.User.DisplayName = "Mallory"
	if f.r.State().User.DisplayName != "Alice" {
		t.Error("expected State to return a copy")
	}
}

func TestOverlappingPassesConverge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.fetcher.Set(models.NewAuthState(tu.SampleUser()))
	f.fetcher.Delay = 5 * time.Millisecond

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.r.Recheck(ctx)
		}()
	}
	wg.Wait()

	if n := len(f.emissions()); n != 1 {
		t.Errorf("expected a single emission, got %d", n)
	}
	if !f.r.State().Authenticated {
		t.Error("expected converged authenticated state")
	}
}
