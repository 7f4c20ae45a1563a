package auth

import (
	"net/url"
	"testing"

	"github.com/desertthunder/edjs/internal/models"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse %s: %v", raw, err)
	}
	return u
}

func TestParseReturn(t *testing.T) {
	tt := []struct {
		name  string
		raw   string
		ok    bool
		want  models.User
		authd bool
	}{
		{
			name:  "full parameters",
			raw:   "https://edjs.art/spectacles?logged_in=true&user_email=a%40b.com&user_name=Alice&user_type=professional&professional_type=teacher",
			ok:    true,
			authd: true,
			want:  models.User{Email: "a@b.com", DisplayName: "Alice", Role: "user", UserType: "professional", ProfessionalType: "teacher"},
		},
		{
			name:  "placeholders",
			raw:   "https://edjs.art/?logged_in=true",
			ok:    true,
			authd: true,
			want:  models.User{Email: "user@example.com", DisplayName: "User", Role: "user"},
		},
		{name: "logged_in false", raw: "https://edjs.art/?logged_in=false&user_email=a%40b.com"},
		{name: "logged_in uppercase", raw: "https://edjs.art/?logged_in=TRUE"},
		{name: "no parameters", raw: "https://edjs.art/spectacles"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			state, ok := ParseReturn(mustParse(t, tc.raw))
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if state.Authenticated != tc.authd {
				t.Fatalf("expected authenticated=%v, got %v", tc.authd, state.Authenticated)
			}
			if tc.authd && *state.User != tc.want {
				t.Errorf("expected %+v, got %+v", tc.want, *state.User)
			}
		})
	}

	t.Run("nil url", func(t *testing.T) {
		if _, ok := ParseReturn(nil); ok {
			t.Error("expected no signal for nil url")
		}
	})
}

func TestStripAuthParams(t *testing.T) {
	tt := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "only auth params",
			raw:  "https://edjs.art/spectacles?logged_in=true&user_email=a%40b.com&user_name=Alice&user_type=x&professional_type=y",
			want: "https://edjs.art/spectacles",
		},
		{
			name: "keeps other params and fragment",
			raw:  "https://edjs.art/spectacle-antigone.html?logged_in=true&utm_source=mail#tickets",
			want: "https://edjs.art/spectacle-antigone.html?utm_source=mail#tickets",
		},
		{
			name: "nothing to strip",
			raw:  "https://edjs.art/?a=1",
			want: "https://edjs.art/?a=1",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			u := mustParse(t, tc.raw)
			got := StripAuthParams(u)
			if got.String() != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
			if u.String() != tc.raw {
				t.Error("expected input url to be left untouched")
			}
			if HasAuthParams(got) {
				t.Error("expected no auth params after stripping")
			}
		})
	}
}

func TestPageLocation(t *testing.T) {
	loc, err := NewPageLocation("http://127.0.0.1:3000/callback?logged_in=true")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u := loc.URL()
	u.Path = "/mutated"
	if loc.URL().Path != "/callback" {
		t.Error("expected URL to return a copy")
	}

	loc.Replace(mustParse(t, "http://127.0.0.1:3000/callback"))
	if loc.Replaced() != 1 {
		t.Errorf("expected 1 replacement, got %d", loc.Replaced())
	}
	if loc.String() != "http://127.0.0.1:3000/callback" {
		t.Errorf("unexpected location %s", loc)
	}

	if _, err := NewPageLocation("http://[::1"); err == nil {
		t.Error("expected error for invalid url")
	}
}
