// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Keyboard bindings for the chat workspace.
package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Home       key.Binding
	End        key.Binding
	Submit     key.Binding
	Cancel     key.Binding
	FocusSwap  key.Binding
	Bookmark   key.Binding
	NextMarker key.Binding
	PrevMarker key.Binding
	Regenerate key.Binding
	NewSession key.Binding
	Sessions   key.Binding
	Delete     key.Binding
	MultiAgent key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat interface.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp/C-u", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn/C-d", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("Home", "go to top"),
		),
		End: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("End", "go to bottom"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel stream"),
		),
		FocusSwap: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "swap focus"),
		),
		Bookmark: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "bookmark answer"),
		),
		NextMarker: key.NewBinding(
			key.WithKeys("ctrl+j"),
			key.WithHelp("C-j", "next checkpoint"),
		),
		PrevMarker: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("C-k", "previous checkpoint"),
		),
		Regenerate: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "regenerate answer"),
		),
		NewSession: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new session"),
		),
		Sessions: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "sessions"),
		),
		Delete: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "delete session"),
		),
		MultiAgent: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "multi-agent"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Bookmark, k.Sessions, k.Quit}
}

// FullHelp returns all bindings grouped for the help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End},
		{k.Submit, k.Cancel, k.FocusSwap, k.Bookmark, k.NextMarker, k.PrevMarker},
		{k.Regenerate, k.NewSession, k.Sessions, k.Delete, k.MultiAgent, k.Quit},
	}
}
