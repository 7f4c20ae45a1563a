package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/edjs/internal/metrics"
	"github.com/desertthunder/edjs/internal/shared"
	tu "github.com/desertthunder/edjs/internal/testing"
)

const authenticatedBody = `{"isAuthenticated":true,"user":{"email":"ada@example.com","full_name":"Ada","role":"user","user_type":"professional"}}`

func TestEndpoints(t *testing.T) {
	e := NewEndpoints("https://app.edjs.art/")

	tt := []struct {
		name string
		got  string
		want string
	}{
		{"base", e.BaseURL(), "https://app.edjs.art"},
		{"status", e.StatusURL(), "https://app.edjs.art/api/auth/status"},
		{"callback status", e.CallbackStatusURL("authCallback_1"), "https://app.edjs.art/api/auth/status?callback=authCallback_1"},
		{"login", e.LoginURL("https://edjs.art/spectacles?x=1"), "https://app.edjs.art/auth?mode=login&redirect=https%3A%2F%2Fedjs.art%2Fspectacles%3Fx%3D1"},
		{"register", e.RegisterURL(), "https://app.edjs.art/auth?mode=register"},
		{"logout", e.LogoutURL(), "https://app.edjs.art/auth?mode=logout"},
		{"reservation", e.ReservationURL("antigone"), "https://app.edjs.art/reservation/antigone"},
		{"auth return", e.AuthReturnURL("https://edjs.art/spectacle-antigone.html"), "https://app.edjs.art/auth?return_url=https%3A%2F%2Fedjs.art%2Fspectacle-antigone.html"},
		{"spectacles", e.SpectaclesURL(), "https://app.edjs.art/spectacles"},
		{"reservations", e.ReservationsURL(), "https://app.edjs.art/my-reservations"},
		{"profile", e.ProfileURL(), "https://app.edjs.art/profile"},
		{"help", e.HelpURL(), "https://app.edjs.art/help"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, tc.got)
			}
		})
	}
}

func TestCallbackRegistry(t *testing.T) {
	t.Run("Register and Deliver", func(t *testing.T) {
		r := NewCallbackRegistry(nil)
		name, ch, release := r.Register()
		defer release()

		if !strings.HasPrefix(name, CallbackPrefix) {
			t.Errorf("expected name prefixed with %s, got %s", CallbackPrefix, name)
		}
		if r.Len() != 1 {
			t.Fatalf("expected 1 registration, got %d", r.Len())
		}

		if err := r.Deliver(name, []byte(`{}`)); err != nil {
			t.Fatalf("deliver failed: %v", err)
		}
		if got := string(<-ch); got != `{}` {
			t.Errorf("unexpected payload %s", got)
		}
		if r.Len() != 0 {
			t.Errorf("expected registration consumed, got %d", r.Len())
		}
	})

	t.Run("Deliver is one-time", func(t *testing.T) {
		r := NewCallbackRegistry(nil)
		name, _, release := r.Register()
		defer release()

		r.Deliver(name, []byte(`{}`))
		if err := r.Deliver(name, []byte(`{}`)); !errors.Is(err, shared.ErrCallbackUnknown) {
			t.Errorf("expected ErrCallbackUnknown on second delivery, got %v", err)
		}
	})

	t.Run("Unknown and released names are dropped", func(t *testing.T) {
		r := NewCallbackRegistry(nil)
		if err := r.Deliver("authCallback_nope", []byte(`{}`)); !errors.Is(err, shared.ErrCallbackUnknown) {
			t.Errorf("expected ErrCallbackUnknown, got %v", err)
		}

		name, _, release := r.Register()
		release()
		release()
		if err := r.Deliver(name, []byte(`{}`)); !errors.Is(err, shared.ErrCallbackUnknown) {
			t.Errorf("expected released name to be unknown, got %v", err)
		}
		if r.Len() != 0 {
			t.Errorf("expected no registrations, got %d", r.Len())
		}
	})

	t.Run("Names are unique", func(t *testing.T) {
		r := NewCallbackRegistry(nil)
		a, _, ra := r.Register()
		b, _, rb := r.Register()
		defer ra()
		defer rb()
		if a == b {
			t.Errorf("expected distinct names, got %s twice", a)
		}
	})
}

func TestParsePadded(t *testing.T) {
	tt := []struct {
		name     string
		body     string
		callback string
		payload  string
		wantErr  bool
	}{
		{name: "plain", body: `authCallback_1({"isAuthenticated":false})`, callback: "authCallback_1", payload: `{"isAuthenticated":false}`},
		{name: "semicolon and whitespace", body: " authCallback_2 ( {\"a\":1} );\n", callback: "authCallback_2", payload: `{"a":1}`},
		{name: "multiline payload", body: "cb({\n\"a\": 1\n})", callback: "cb", payload: "{\n\"a\": 1\n}"},
		{name: "bare json", body: `{"isAuthenticated":true}`, wantErr: true},
		{name: "argument not json", body: `cb(alert(1))`, wantErr: true},
		{name: "empty", body: ``, wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			name, payload, err := ParsePadded([]byte(tc.body))
			if tc.wantErr {
				if !errors.Is(err, shared.ErrStatusResponse) {
					t.Fatalf("expected ErrStatusResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tc.callback || string(payload) != tc.payload {
				t.Errorf("expected %s(%s), got %s(%s)", tc.callback, tc.payload, name, payload)
			}
		})
	}
}

func TestNewStatusService(t *testing.T) {
	tt := []struct {
		name       string
		opts       StatusServiceOpts
		wantMode   string
		wantBase   string
		wantTimout time.Duration
	}{
		{
			name:       "defaults",
			opts:       StatusServiceOpts{},
			wantMode:   shared.ModeCallback,
			wantBase:   shared.ProductionRemoteURL,
			wantTimout: DefaultStatusTimeout,
		},
		{
			name:       "auto with credential",
			opts:       StatusServiceOpts{BaseURL: "http://localhost:5173", Mode: shared.ModeAuto, Credential: "sid=1", Timeout: time.Second},
			wantMode:   shared.ModeCredentialed,
			wantBase:   "http://localhost:5173",
			wantTimout: time.Second,
		},
		{
			name:       "explicit callback with credential",
			opts:       StatusServiceOpts{Mode: shared.ModeCallback, Credential: "sid=1"},
			wantMode:   shared.ModeCallback,
			wantBase:   shared.ProductionRemoteURL,
			wantTimout: DefaultStatusTimeout,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStatusService(tc.opts)
			if s.Mode() != tc.wantMode {
				t.Errorf("expected mode %s, got %s", tc.wantMode, s.Mode())
			}
			if s.Endpoints().BaseURL() != tc.wantBase {
				t.Errorf("expected base %s, got %s", tc.wantBase, s.Endpoints().BaseURL())
			}
			if s.timeout != tc.wantTimout {
				t.Errorf("expected timeout %s, got %s", tc.wantTimout, s.timeout)
			}
			if s.Registry() == nil {
				t.Error("expected a registry")
			}
		})
	}
}

func TestStatusServiceCredentialed(t *testing.T) {
	ctx := context.Background()

	t.Run("Authenticated", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/auth/status" {
				t.Errorf("expected path /api/auth/status, got %s", r.URL.Path)
			}
			if got := r.Header.Get("Accept"); got != "application/json" {
				t.Errorf("expected Accept application/json, got %q", got)
			}
			if got := r.Header.Get("Cookie"); got != "sid=abc" {
				t.Errorf("expected credential cookie, got %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, authenticatedBody)
		}))
		defer server.Close()

		s := NewStatusService(StatusServiceOpts{BaseURL: server.URL, Credential: "sid=abc"})
		state := s.Fetch(ctx)

		if !state.Authenticated {
			t.Fatal("expected authenticated state")
		}
		if state.User.Email != "ada@example.com" || state.User.DisplayName != "Ada" || state.User.UserType != "professional" {
			t.Errorf("unexpected user %+v", state.User)
		}
	})

	t.Run("Fails closed", func(t *testing.T) {
		tt := []struct {
			name    string
			handler http.HandlerFunc
			wantErr error
		}{
			{
				name:    "server error",
				handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
				wantErr: shared.ErrStatusResponse,
			},
			{
				name:    "invalid json",
				handler: func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "<html>") },
				wantErr: shared.ErrStatusResponse,
			},
			{
				name:    "authenticated without user",
				handler: func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"isAuthenticated":true,"user":null}`) },
			},
			{
				name:    "not authenticated",
				handler: func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"isAuthenticated":false,"user":null}`) },
			},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				server := httptest.NewServer(tc.handler)
				defer server.Close()

				s := NewStatusService(StatusServiceOpts{BaseURL: server.URL, Mode: shared.ModeCredentialed})
				state, err := s.Check(ctx)
				if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
					t.Errorf("expected %v, got %v", tc.wantErr, err)
				}
				if tc.wantErr == nil && err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if state.Authenticated || s.Fetch(ctx).Authenticated {
					t.Error("expected logged out state")
				}
			})
		}
	})

	t.Run("Transport error", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		s := NewStatusService(StatusServiceOpts{BaseURL: "http://remote.test", Mode: shared.ModeCredentialed, Client: client})

		state, err := s.Check(ctx)
		if !errors.Is(err, shared.ErrStatusRequest) {
			t.Errorf("expected ErrStatusRequest, got %v", err)
		}
		if state.Authenticated {
			t.Error("expected logged out state")
		}
	})

	t.Run("Body read error", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
		client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
		s := NewStatusService(StatusServiceOpts{BaseURL: "http://remote.test", Mode: shared.ModeCredentialed, Client: client})

		if _, err := s.Check(ctx); !errors.Is(err, shared.ErrStatusRequest) {
			t.Errorf("expected ErrStatusRequest, got %v", err)
		}
	})
}

func TestStatusServiceCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("Authenticated", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := r.URL.Query().Get("callback")
			if !strings.HasPrefix(name, CallbackPrefix) {
				t.Errorf("expected callback parameter, got %q", name)
			}
			if r.Header.Get("Cookie") != "" {
				t.Error("expected no credential in callback mode")
			}
			w.Header().Set("Content-Type", "application/javascript")
			fmt.Fprintf(w, "%s(%s);", name, authenticatedBody)
		}))
		defer server.Close()

		s := NewStatusService(StatusServiceOpts{BaseURL: server.URL})
		state := s.Fetch(ctx)

		if !state.Authenticated || state.User.Email != "ada@example.com" {
			t.Errorf("expected authenticated ada, got %v", state)
		}
		if n := s.Registry().Len(); n != 0 {
			t.Errorf("expected no dangling registration, got %d", n)
		}
	})

	t.Run("Foreign callback is dropped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "authCallback_someoneelse(%s)", authenticatedBody)
		}))
		defer server.Close()

		s := NewStatusService(StatusServiceOpts{BaseURL: server.URL})
		state, err := s.Check(ctx)
		if !errors.Is(err, shared.ErrStatusResponse) {
			t.Errorf("expected ErrStatusResponse, got %v", err)
		}
		if state.Authenticated {
			t.Error("expected logged out state")
		}
		if n := s.Registry().Len(); n != 0 {
			t.Errorf("expected no dangling registration, got %d", n)
		}
	})

	t.Run("Load error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		s := NewStatusService(StatusServiceOpts{BaseURL: server.URL})
		if state := s.Fetch(ctx); state.Authenticated {
			t.Error("expected logged out state")
		}
		if n := s.Registry().Len(); n != 0 {
			t.Errorf("expected no dangling registration, got %d", n)
		}
	})

	t.Run("Timeout fails closed without dangling registration", func(t *testing.T) {
		var cancelled atomic.Bool
		done := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer close(done)
			select {
			case <-r.Context().Done():
				cancelled.Store(true)
			case <-time.After(5 * time.Second):
			}
		}))
		defer server.Close()

		m := metrics.New()
		s := NewStatusService(StatusServiceOpts{BaseURL: server.URL, Timeout: 50 * time.Millisecond, Metrics: m})

		start := time.Now()
		state, err := s.Check(ctx)
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Errorf("expected check to resolve near its timeout, took %s", elapsed)
		}
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if state.Authenticated {
			t.Error("expected logged out state")
		}
		if n := s.Registry().Len(); n != 0 {
			t.Errorf("expected no dangling registration, got %d", n)
		}

		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatal("expected in-flight request to be torn down")
		}
		if !cancelled.Load() {
			t.Error("expected in-flight request to be cancelled")
		}
	})

	t.Run("Caller cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		s := NewStatusService(StatusServiceOpts{BaseURL: server.URL})
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := s.Check(cctx); err == nil {
			t.Error("expected error for cancelled context")
		}
		if n := s.Registry().Len(); n != 0 {
			t.Errorf("expected no dangling registration, got %d", n)
		}
	})
}
