package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
)

var _ list.Item = buttonItem{}

// buttonItem wraps [ReserveButton] to implement [list.Item].
type buttonItem struct {
	button ReserveButton
}

func (i buttonItem) FilterValue() string { return i.button.Title }
func (i buttonItem) Title() string       { return i.button.Title }
func (i buttonItem) Description() string {
	target := "même onglet"
	if i.button.NewTab {
		target = "nouvel onglet"
	}
	return fmt.Sprintf("%s • %s", i.button.Label, target)
}

func buttonItems(buttons []ReserveButton) []list.Item {
	items := make([]list.Item, len(buttons))
	for i, b := range buttons {
		items[i] = buttonItem{button: b}
	}
	return items
}
