package auth

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/desertthunder/edjs/internal/models"
	"github.com/desertthunder/edjs/internal/shared"
)

// Query parameters appended by the auth service when it sends the visitor back.
const (
	ParamLoggedIn         = "logged_in"
	ParamUserEmail        = "user_email"
	ParamUserName         = "user_name"
	ParamUserType         = "user_type"
	ParamProfessionalType = "professional_type"
)

var authParams = []string{ParamLoggedIn, ParamUserEmail, ParamUserName, ParamUserType, ParamProfessionalType}

// Location is the visible address of the page being reconciled.
//
// Replace swaps the visible address without navigating.
type Location interface {
	URL() *url.URL
	Replace(u *url.URL)
}

// PageLocation is an in-memory [Location].
type PageLocation struct {
	mu       sync.Mutex
	u        *url.URL
	replaced int
}

func NewPageLocation(raw string) (*PageLocation, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return &PageLocation{u: u}, nil
}

// NewPageLocationFromURL copies u.
func NewPageLocationFromURL(u *url.URL) *PageLocation {
	c := *u
	return &PageLocation{u: &c}
}

func (p *PageLocation) URL() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := *p.u
	return &c
}

func (p *PageLocation) Replace(u *url.URL) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := *u
	p.u = &c
	p.replaced++
}

// Replaced counts calls to Replace.
func (p *PageLocation) Replaced() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.replaced
}

func (p *PageLocation) String() string { return p.URL().String() }

// ParseReturn reads the login return parameters from u.
// It reports false unless logged_in is exactly "true".
func ParseReturn(u *url.URL) (models.AuthState, bool) {
	if u == nil {
		return models.LoggedOut(), false
	}
	q := u.Query()
	if q.Get(ParamLoggedIn) != "true" {
		return models.LoggedOut(), false
	}

	user := &models.User{
		Email:            valueOr(q.Get(ParamUserEmail), models.PlaceholderEmail),
		DisplayName:      valueOr(q.Get(ParamUserName), models.PlaceholderName),
		Role:             models.DefaultRole,
		UserType:         q.Get(ParamUserType),
		ProfessionalType: q.Get(ParamProfessionalType),
	}
	return models.NewAuthState(user), true
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// StripAuthParams returns a copy of u without the auth parameters. Other parameters are kept.
func StripAuthParams(u *url.URL) *url.URL {
	c := *u
	q := c.Query()
	for _, p := range authParams {
		q.Del(p)
	}
	c.RawQuery = q.Encode()
	c.ForceQuery = false
	return &c
}

// HasAuthParams reports whether any auth parameter is present in u.
func HasAuthParams(u *url.URL) bool {
	if u == nil {
		return false
	}
	q := u.Query()
	for _, p := range authParams {
		if q.Has(p) {
			return true
		}
	}
	return false
}
