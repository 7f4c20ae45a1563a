package ui

import (
	"fmt"
	"strings"
)

// Render prints a projection as plain text for command output.
func Render(p Projection) string {
	var b strings.Builder
	b.WriteString(RenderHeader(p))
	b.WriteString("\n")
	b.WriteString(RenderButtons(p))
	return b.String()
}

// RenderHeader prints the login buttons or the user dropdown.
func RenderHeader(p Projection) string {
	var b strings.Builder
	b.WriteString(styles.title.Render("EDJS"))
	b.WriteString("\n")

	if !p.DropdownVisible {
		fmt.Fprintf(&b, "%s %s\n", styles.warn.Render("○"), "Non connecté")
		fmt.Fprintf(&b, "  %s  %s\n", styles.ok.Render(p.Login.Label), styles.help.Render(p.Login.URL))
		fmt.Fprintf(&b, "  %s  %s\n", styles.ok.Render(p.Register.Label), styles.help.Render(p.Register.URL))
		return b.String()
	}

	fmt.Fprintf(&b, "%s %s\n", styles.ok.Render("●"), p.UserLabel)
	for _, l := range p.Dropdown {
		label := l.Label
		if l.Logout {
			label = styles.err.Render(label)
		}
		fmt.Fprintf(&b, "  %s  %s\n", label, styles.help.Render(l.URL))
	}
	return b.String()
}

// RenderButtons prints one line per reservation button.
func RenderButtons(p Projection) string {
	if len(p.Buttons) == 0 {
		return styles.help.Render("Aucun spectacle") + "\n"
	}

	width := 0
	for _, btn := range p.Buttons {
		width = max(width, len([]rune(btn.Title)))
	}

	var b strings.Builder
	for _, btn := range p.Buttons {
		pad := strings.Repeat(" ", width-len([]rune(btn.Title)))
		fmt.Fprintf(&b, "  %s%s  %s  %s\n", btn.Title, pad, styles.ok.Render(btn.Label), styles.help.Render(btn.URL))
	}
	return b.String()
}
