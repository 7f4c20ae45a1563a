package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FreshnessWindow bounds how long a cached snapshot may stand in for the remote service.
const FreshnessWindow = 24 * time.Hour

// TimestampLayout is the ISO-8601 layout used for [CachedAuth.Timestamp].
const TimestampLayout = time.RFC3339Nano

const (
	PlaceholderEmail = "user@example.com"
	PlaceholderName  = "User"
	DefaultRole      = "user"
)

// User is the identity reported by the remote service.
type User struct {
	Email            string `json:"email"`
	DisplayName      string `json:"full_name"`
	Role             string `json:"role"`
	UserType         string `json:"user_type,omitempty"`
	ProfessionalType string `json:"professional_type,omitempty"`
}

// Label returns the name shown in the user dropdown, falling back to the email.
func (u *User) Label() string {
	if u == nil {
		return ""
	}
	if strings.TrimSpace(u.DisplayName) != "" {
		return u.DisplayName
	}
	return u.Email
}

// AuthState is the authoritative authentication value at a given moment.
type AuthState struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user"`
}

// LoggedOut returns the fail-closed state.
func LoggedOut() AuthState {
	return AuthState{}
}

// NewAuthState returns an authenticated state for user, or [LoggedOut] when user is nil.
func NewAuthState(user *User) AuthState {
	if user == nil {
		return LoggedOut()
	}
	u := *user
	return AuthState{Authenticated: true, User: &u}
}

// Normalize enforces the User/Authenticated invariant, collapsing any mismatch to logged out.
func (s AuthState) Normalize() AuthState {
	if !s.Authenticated || s.User == nil {
		return LoggedOut()
	}
	return NewAuthState(s.User)
}

// Clone returns a copy that shares no memory with s.
func (s AuthState) Clone() AuthState {
	if s.User == nil {
		return AuthState{Authenticated: s.Authenticated}
	}
	u := *s.User
	return AuthState{Authenticated: s.Authenticated, User: &u}
}

// Equal reports whether both states carry the same flag and identical user fields.
func (s AuthState) Equal(other AuthState) bool {
	if s.Authenticated != other.Authenticated {
		return false
	}
	if s.User == nil || other.User == nil {
		return s.User == nil && other.User == nil
	}
	return *s.User == *other.User
}

func (s AuthState) String() string {
	if !s.Authenticated || s.User == nil {
		return "logged out"
	}
	return fmt.Sprintf("logged in as %s <%s>", s.User.Label(), s.User.Email)
}

// CachedAuth is the persisted snapshot stored under the edjs_auth_status key.
type CachedAuth struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	User            *User  `json:"user"`
	Timestamp       string `json:"timestamp"`
}

// NewCachedAuth captures state at now.
func NewCachedAuth(state AuthState, now time.Time) CachedAuth {
	state = state.Normalize()
	return CachedAuth{
		IsAuthenticated: state.Authenticated,
		User:            state.User,
		Timestamp:       now.UTC().Format(TimestampLayout),
	}
}

// CapturedAt parses the snapshot timestamp.
func (c CachedAuth) CapturedAt() (time.Time, error) {
	t, err := time.Parse(TimestampLayout, c.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", c.Timestamp, err)
	}
	return t, nil
}

// Age returns how long ago the snapshot was captured.
func (c CachedAuth) Age(now time.Time) (time.Duration, error) {
	captured, err := c.CapturedAt()
	if err != nil {
		return 0, err
	}
	return now.Sub(captured), nil
}

// Fresh reports whether now - timestamp < [FreshnessWindow]. Unparseable timestamps are never fresh.
func (c CachedAuth) Fresh(now time.Time) bool {
	age, err := c.Age(now)
	if err != nil {
		return false
	}
	return age < FreshnessWindow
}

// State returns the snapshot as a normalized [AuthState].
func (c CachedAuth) State() AuthState {
	return AuthState{Authenticated: c.IsAuthenticated, User: c.User}.Normalize()
}

// StatusResponse is the body of GET {base}/api/auth/status.
type StatusResponse struct {
	IsAuthenticated bool            `json:"isAuthenticated"`
	User            json.RawMessage `json:"user"`
}

// statusUser accepts the field spellings the auth service has used over time.
type statusUser struct {
	Email               string `json:"email"`
	FullName            string `json:"full_name"`
	DisplayName         string `json:"displayName"`
	Name                string `json:"name"`
	Role                string `json:"role"`
	UserType            string `json:"user_type"`
	UserTypeCamel       string `json:"userType"`
	ProfessionalType    string `json:"professional_type"`
	ProfessionalTypeAlt string `json:"professionalType"`
}

// State converts the response to an [AuthState].
//
// The visitor counts as authenticated only when isAuthenticated is true and a user object is present.
func (r StatusResponse) State() (AuthState, error) {
	raw := strings.TrimSpace(string(r.User))
	if !r.IsAuthenticated || raw == "" || raw == "null" {
		return LoggedOut(), nil
	}

	var su statusUser
	if err := json.Unmarshal(r.User, &su); err != nil {
		return LoggedOut(), fmt.Errorf("invalid user object: %w", err)
	}

	user := &User{
		Email:            su.Email,
		DisplayName:      firstNonEmpty(su.FullName, su.DisplayName, su.Name),
		Role:             firstNonEmpty(su.Role, DefaultRole),
		UserType:         firstNonEmpty(su.UserType, su.UserTypeCamel),
		ProfessionalType: firstNonEmpty(su.ProfessionalType, su.ProfessionalTypeAlt),
	}
	return NewAuthState(user), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Spectacle is a show that gets a reservation button.
type Spectacle struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// GeneralSpectacle is the id used when a page is not about a specific show.
const GeneralSpectacle = "general"

// DefaultSpectacles is the catalogue used when none is configured.
var DefaultSpectacles = []Spectacle{
	{ID: "le-petit-prince", Title: "Le Petit Prince"},
	{ID: "casse-noisette", Title: "Casse-Noisette"},
	{ID: "charlotte", Title: "Charlotte"},
	{ID: "antigone", Title: "Antigone"},
	{ID: "estevanico", Title: "Estevanico"},
	{ID: "alice-chez-les-merveilles", Title: "Alice chez les merveilles"},
	{ID: "leau-la", Title: "L'eau là"},
	{ID: "lenfant-de-larbre", Title: "L'enfant de l'arbre"},
	{ID: "simple-comme-bonjour", Title: "Simple comme bonjour"},
	{ID: "tara-sur-la-lune", Title: "Tara sur la lune"},
}

// pagePrefixes maps page slugs to spectacle ids where the two differ.
var pagePrefixes = []struct {
	slug string
	id   string
}{
	{"spectacle-le-petit-prince", "le-petit-prince"},
	{"spectacle-casse-noisette", "casse-noisette"},
	{"spectacle-charlotte", "charlotte"},
	{"spectacle-antigone", "antigone"},
	{"spectacle-estevanico", "estevanico"},
	{"spectacle-alice", "alice-chez-les-merveilles"},
	{"spectacle-leau-la", "leau-la"},
	{"spectacle-lenfant-de-larbre", "lenfant-de-larbre"},
	{"spectacle-simple-comme-bonjour", "simple-comme-bonjour"},
	{"spectacle-tara-sur-la-lune", "tara-sur-la-lune"},
}

// SpectacleFromPath returns the spectacle id for a page path such as /spectacle-antigone.html,
// or [GeneralSpectacle].
func SpectacleFromPath(path string) string {
	for _, p := range pagePrefixes {
		if strings.Contains(path, p.slug) {
			return p.id
		}
	}
	return GeneralSpectacle
}

// FindSpectacle looks up id in catalogue.
func FindSpectacle(catalogue []Spectacle, id string) (Spectacle, bool) {
	for _, s := range catalogue {
		if s.ID == id {
			return s, true
		}
	}
	return Spectacle{}, false
}
