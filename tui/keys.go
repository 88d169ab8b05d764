package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/akinalp/shopchat/autocomplete"
)

// controllerKeys maps terminal keys onto the compose controller's keys.
var controllerKeys = map[tea.KeyType]autocomplete.Key{
	tea.KeyUp:        autocomplete.KeyUp,
	tea.KeyDown:      autocomplete.KeyDown,
	tea.KeyLeft:      autocomplete.KeyLeft,
	tea.KeyRight:     autocomplete.KeyRight,
	tea.KeyHome:      autocomplete.KeyHome,
	tea.KeyEnd:       autocomplete.KeyEnd,
	tea.KeyEnter:     autocomplete.KeyEnter,
	tea.KeyTab:       autocomplete.KeyTab,
	tea.KeyEsc:       autocomplete.KeyEscape,
	tea.KeyBackspace: autocomplete.KeyBackspace,
	tea.KeyDelete:    autocomplete.KeyDelete,
}

func controllerKey(msg tea.KeyMsg) (autocomplete.Key, bool) {
	k, ok := controllerKeys[msg.Type]
	return k, ok
}
