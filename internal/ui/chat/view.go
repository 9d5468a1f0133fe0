// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/loomchat/loom/internal/cadence"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat workspace.
func (m Model) View() string {
	if m.pickerVisible {
		return m.renderSessionPicker()
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	)

	if !m.showSidebar {
		return main
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
}

// =============================================================================
// SIDEBAR (CHECKPOINT RAIL)
// =============================================================================

// renderSidebar draws the checkpoint markers in document order: one row
// per assistant answer with its preview, the active one highlighted.
func (m Model) renderSidebar() string {
	var sb strings.Builder
	sb.WriteString(m.theme.SidebarTitle.Render("Checkpoints"))
	sb.WriteString("\n")

	for _, marker := range m.markers.Markers() {
		icon := "  "
		if marker.Bookmarked {
			icon = m.theme.MarkerBookmark.Render("* ")
		}

		// Truncate by display width so wide runes cannot push the row
		// past the rail.
		preview := runewidth.Truncate(marker.Preview, sidebarWidth-6, "…")

		var row string
		if marker.Active {
			row = m.theme.MarkerActive.Render(icon + preview)
		} else {
			row = m.theme.Marker.Render(icon + m.theme.MarkerPreview.Render(preview))
		}

		sb.WriteString(row)
		sb.WriteString("\n")
	}

	height := m.viewport.Height + 3
	return m.theme.Sidebar.Width(sidebarWidth - 2).Height(height).Render(sb.String())
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m Model) renderInput() string {
	return m.theme.InputContainer.Render(m.input.View())
}

// renderStatusBar draws provider, session, typing-cadence mode, and the
// short key help (or a transient status message when set).
func (m Model) renderStatusBar() string {
	parts := []string{
		m.theme.ProviderTag.Render(m.backend.Provider()),
		m.theme.SessionTag.Render(shortID(m.backend.CurrentSessionID())),
		m.renderCadence(),
	}
	if m.backend.MultiAgent() {
		parts = append(parts, m.theme.ShortcutKey.Render("multi"))
	}

	left := strings.Join(parts, " ")

	right := m.status
	if right == "" {
		var hints []string
		for _, b := range m.keys.ShortHelp() {
			h := b.Help()
			hints = append(hints,
				m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
		}
		right = strings.Join(hints, "  ")
	}

	return m.theme.StatusBar.Render(left + "  " + right)
}

// renderCadence maps the classifier mode to its status-bar treatment.
func (m Model) renderCadence() string {
	switch m.cadence.Mode() {
	case cadence.ModeSlow:
		return m.theme.CadenceSlow.Render("deliberate")
	case cadence.ModeFast:
		return m.theme.CadenceFast.Render("rapid")
	default:
		return m.theme.CadenceIdle.Render("steady")
	}
}

// =============================================================================
// SESSION PICKER
// =============================================================================

func (m Model) renderSessionPicker() string {
	var sb strings.Builder
	sb.WriteString(m.theme.SidebarTitle.Render("Sessions"))
	sb.WriteString("\n\n")

	for i, s := range m.sessions {
		title := s.Title
		if s.Current {
			title += " (current)"
		}
		row := title + "\n" + m.theme.SessionMeta.Render(s.CreatedAt.Format("Jan 2 15:04"))
		if i == m.pickerCursor {
			row = m.theme.SessionItemSelected.Render(row)
		} else {
			row = m.theme.SessionItem.Render(row)
		}
		sb.WriteString(row)
		sb.WriteString("\n")
	}

	if len(m.sessions) == 0 {
		sb.WriteString(m.theme.SessionMeta.Render("no stored sessions"))
	}

	return m.theme.SessionList.Render(sb.String())
}

// =============================================================================
// HELPERS
// =============================================================================

// shortID trims a session ID to a status-bar friendly tag.
func shortID(id string) string {
	const prefix = "sess_"
	trimmed := strings.TrimPrefix(id, prefix)
	if len(trimmed) > 8 {
		trimmed = trimmed[:8]
	}
	return trimmed
}
