package ui

import (
	"github.com/desertthunder/edjs/internal/models"
	"github.com/desertthunder/edjs/internal/services"
)

const (
	LabelLogin        = "Connexion"
	LabelRegister     = "Inscription"
	LabelReserveNow   = "Réserver maintenant"
	LabelReserve      = "Réserver"
	LabelSpectacles   = "Spectacles"
	LabelReservations = "Réservations"
	LabelProfile      = "Profil"
	LabelHelp         = "Aide et support"
	LabelLogout       = "Déconnexion"
)

// Link is a navigation target. Logout links are dispatched to the reconciler instead of opened.
type Link struct {
	Label  string `json:"label"`
	URL    string `json:"url"`
	NewTab bool   `json:"new_tab"`
	Logout bool   `json:"logout,omitempty"`
}

// ReserveButton is the reservation call to action for one spectacle.
type ReserveButton struct {
	SpectacleID string `json:"spectacle_id"`
	Title       string `json:"title"`
	Link
}

// Projection is everything the page shows for one [models.AuthState].
type Projection struct {
	Authenticated   bool            `json:"authenticated"`
	AuthButtons     bool            `json:"auth_buttons_visible"`
	Login           Link            `json:"login"`
	Register        Link            `json:"register"`
	DropdownVisible bool            `json:"dropdown_visible"`
	UserLabel       string          `json:"user_label,omitempty"`
	Dropdown        []Link          `json:"dropdown,omitempty"`
	Buttons         []ReserveButton `json:"buttons"`
}

// Project maps state to what the page shows. pageURL is where the visitor returns after login.
func Project(state models.AuthState, e services.Endpoints, spectacles []models.Spectacle, pageURL string) Projection {
	state = state.Normalize()
	p := Projection{
		Authenticated: state.Authenticated,
		Login:         Link{Label: LabelLogin, URL: e.LoginURL(pageURL), NewTab: true},
		Register:      Link{Label: LabelRegister, URL: e.RegisterURL(), NewTab: true},
	}

	if state.Authenticated {
		p.DropdownVisible = true
		p.UserLabel = state.User.Label()
		p.Dropdown = []Link{
			{Label: LabelSpectacles, URL: e.SpectaclesURL()},
			{Label: LabelReservations, URL: e.ReservationsURL()},
			{Label: LabelProfile, URL: e.ProfileURL()},
			{Label: LabelHelp, URL: e.HelpURL()},
			{Label: LabelLogout, URL: e.LogoutURL(), NewTab: true, Logout: true},
		}
	} else {
		p.AuthButtons = true
	}

	p.Buttons = make([]ReserveButton, 0, len(spectacles))
	for _, s := range spectacles {
		b := ReserveButton{SpectacleID: s.ID, Title: s.Title}
		if state.Authenticated {
			b.Link = Link{Label: LabelReserveNow, URL: e.ReservationURL(s.ID), NewTab: true}
		} else {
			b.Link = Link{Label: LabelReserve, URL: e.AuthReturnURL(pageURL)}
		}
		p.Buttons = append(p.Buttons, b)
	}
	return p
}

// Button returns the reservation button for spectacleID.
func (p Projection) Button(spectacleID string) (ReserveButton, bool) {
	for _, b := range p.Buttons {
		if b.SpectacleID == spectacleID {
			return b, true
		}
	}
	return ReserveButton{}, false
}
