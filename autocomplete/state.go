package autocomplete

// Key is a non-character key the controller reacts to.
type Key int

const (
	KeyUp Key = iota + 1
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyEnter
	KeyTab
	KeyEscape
	KeyBackspace
	KeyDelete
)

var keyNames = map[Key]string{
	KeyUp:        "up",
	KeyDown:      "down",
	KeyLeft:      "left",
	KeyRight:     "right",
	KeyHome:      "home",
	KeyEnd:       "end",
	KeyEnter:     "enter",
	KeyTab:       "tab",
	KeyEscape:    "esc",
	KeyBackspace: "backspace",
	KeyDelete:    "delete",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "unknown"
}

// State is the AutocompleteState of one input.
//
// Showing=false is the Idle state; the other fields are then zero.
// TriggerOffset is the rune offset of the '@' that opened the dropdown and
// Query is the text between it and the cursor.
type State struct {
	Showing       bool   `json:"showing"`
	Query         string `json:"query"`
	TriggerOffset int    `json:"trigger_offset"`
	SelectedIndex int    `json:"selected_index"`
}

// Idle reports whether the dropdown is closed.
func (s State) Idle() bool {
	return !s.Showing
}

// Preview is the live result of running the mention parser over the
// current text: what would be sent if the message went out now.
type Preview struct {
	Content          string   `json:"content"`
	Tags             []string `json:"tags"`
	MentionedUserIDs []string `json:"mentioned_user_ids"`
	Unresolved       []string `json:"unresolved"`
}
