package services

import (
	"net/url"
	"strings"
)

// Endpoints builds navigation targets on the remote auth service.
type Endpoints struct {
	base string
}

func NewEndpoints(baseURL string) Endpoints {
	return Endpoints{base: strings.TrimRight(baseURL, "/")}
}

func (e Endpoints) BaseURL() string { return e.base }

// StatusURL is the credentialed status endpoint.
func (e Endpoints) StatusURL() string { return e.base + "/api/auth/status" }

// CallbackStatusURL asks the status endpoint to wrap its body in a call to name.
func (e Endpoints) CallbackStatusURL(name string) string {
	return e.StatusURL() + "?callback=" + url.QueryEscape(name)
}

// LoginURL sends the visitor to the login form, returning to redirect afterwards.
func (e Endpoints) LoginURL(redirect string) string {
	return e.base + "/auth?mode=login&redirect=" + url.QueryEscape(redirect)
}

func (e Endpoints) RegisterURL() string { return e.base + "/auth?mode=register" }

func (e Endpoints) LogoutURL() string { return e.base + "/auth?mode=logout" }

func (e Endpoints) ReservationURL(spectacleID string) string {
	return e.base + "/reservation/" + url.PathEscape(spectacleID)
}

// AuthReturnURL authenticates first, then returns to ret.
func (e Endpoints) AuthReturnURL(ret string) string {
	return e.base + "/auth?return_url=" + url.QueryEscape(ret)
}

func (e Endpoints) SpectaclesURL() string   { return e.base + "/spectacles" }
func (e Endpoints) ReservationsURL() string { return e.base + "/my-reservations" }
func (e Endpoints) ProfileURL() string      { return e.base + "/profile" }
func (e Endpoints) HelpURL() string         { return e.base + "/help" }
