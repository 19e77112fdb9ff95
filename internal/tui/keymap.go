package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keybindings for the browser.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Switch   key.Binding

	Search key.Binding
	Back   key.Binding

	Topics key.Binding
	Tags   key.Binding
	Toggle key.Binding
	Close  key.Binding

	Mode       key.Binding
	Reset      key.Binding
	Regenerate key.Binding
	Open       key.Binding
	Edit       key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "page down"),
		),
		Switch: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear/back"),
		),
		Topics: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "topics"),
		),
		Tags: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "tags"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle"),
		),
		Close: key.NewBinding(
			key.WithKeys("enter", "esc"),
			key.WithHelp("enter", "done"),
		),
		Mode: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "and/or"),
		),
		Reset: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "reset filters"),
		),
		Regenerate: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "regenerate"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open link"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit source"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Topics, k.Tags, k.Mode, k.Reset, k.Regenerate, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Switch},
		{k.Search, k.Back, k.Topics, k.Tags, k.Toggle},
		{k.Mode, k.Reset, k.Regenerate},
		{k.Open, k.Edit, k.Help, k.Quit},
	}
}

// PickerHelp returns the bindings shown while a picker is open.
func (k *KeyMap) PickerHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Close}
}

type pickerKeys struct{ *KeyMap }

func (k pickerKeys) ShortHelp() []key.Binding  { return k.PickerHelp() }
func (k pickerKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.PickerHelp()} }
