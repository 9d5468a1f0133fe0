// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/loomchat/loom/internal/backend"
	"github.com/loomchat/loom/internal/model"
)

// =============================================================================
// UPDATE LOOP
// =============================================================================

// Update handles all incoming messages for the chat workspace.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.syncActiveMarker()
		return m, cmd

	case ChunkMsg:
		m.applyChunk(msg)
		return m, nil

	case StreamDoneMsg:
		m.finishStream(msg.Tone)
		return m, nil

	case StreamFailedMsg:
		m.failStream(msg.Message)
		return m, nil

	case HistoryLoadedMsg:
		if msg.Err != nil {
			m.status = msg.Err.Error()
			return m, nil
		}
		m.resetTranscript(msg.History)
		return m, nil

	case SessionListMsg:
		if msg.Err != nil {
			m.status = msg.Err.Error()
			return m, nil
		}
		m.sessions = msg.Sessions
		m.pickerVisible = true
		m.pickerCursor = 0
		return m, nil

	case SessionCreatedMsg:
		if msg.Err != nil {
			m.status = msg.Err.Error()
			return m, nil
		}
		m.resetTranscript(nil)
		m.status = "new session"
		return m, nil

	case SessionSwitchedMsg:
		if msg.Err != nil {
			m.status = msg.Err.Error()
			return m, nil
		}
		m.resetTranscript(msg.History)
		return m, nil

	case SessionDeletedMsg:
		if msg.Err != nil {
			m.status = msg.Err.Error()
			return m, nil
		}
		m.resetTranscript(msg.History)
		m.status = "session deleted"
		return m, nil

	case ConfigReloadedMsg:
		if msg.Config != nil {
			m.showSidebar = msg.Config.UI.ShowSidebar
			if m.width > 0 {
				m.resize(m.width, m.height)
			}
		}
		return m, nil

	case StatusMsg:
		m.status = msg.Text
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.streamingID != "" {
			m.rebuildViewport()
		}
		return m, cmd
	}

	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.backend.CancelStream()
		return m, tea.Quit
	}

	if m.pickerVisible {
		return m.handlePickerKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.streamingID != "" {
			m.backend.CancelStream()
			m.sealStreamingMessage()
			m.status = "stream cancelled"
		}
		return m, nil

	case key.Matches(msg, m.keys.FocusSwap):
		if m.focus == focusInput {
			m.focus = focusTranscript
			m.input.Blur()
			// Leaving the input invalidates the rhythm window.
			m.cadence.ResetWindow()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.Bookmark):
		if id := m.markers.ActiveID(); id != "" {
			if m.markers.Toggle(id) {
				m.status = "bookmarked"
			} else {
				m.status = "bookmark removed"
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.NextMarker):
		m.jumpToMarker(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevMarker):
		m.jumpToMarker(-1)
		return m, nil

	case key.Matches(msg, m.keys.Regenerate):
		return m.regenerate()

	case key.Matches(msg, m.keys.NewSession):
		return m, m.newSessionCmd()

	case key.Matches(msg, m.keys.Sessions):
		return m, m.listSessionsCmd()

	case key.Matches(msg, m.keys.MultiAgent):
		if m.backend.ToggleMultiAgent() {
			m.status = "multi-agent on"
		} else {
			m.status = "multi-agent off"
		}
		return m, nil
	}

	if m.focus == focusInput {
		return m.handleInputKey(msg)
	}
	return m.handleTranscriptKey(msg)
}

// handleInputKey feeds the prompt field and the cadence classifier.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) {
		return m.submit()
	}

	m.cadence.RecordKeystroke(time.Now().UnixMilli(), msg.String())

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleTranscriptKey scrolls the viewport and re-syncs the active
// checkpoint marker after every offset change.
func (m Model) handleTranscriptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
	default:
		return m, nil
	}

	m.syncActiveMarker()
	return m, nil
}

// handlePickerKey drives the session picker overlay.
func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Sessions):
		m.pickerVisible = false
	case key.Matches(msg, m.keys.Up):
		if m.pickerCursor > 0 {
			m.pickerCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.pickerCursor < len(m.sessions)-1 {
			m.pickerCursor++
		}
	case key.Matches(msg, m.keys.Delete):
		if m.pickerCursor < len(m.sessions) {
			id := m.sessions[m.pickerCursor].ID
			m.pickerVisible = false
			return m, m.deleteSessionCmd(id)
		}
	case key.Matches(msg, m.keys.Submit):
		if m.pickerCursor < len(m.sessions) {
			id := m.sessions[m.pickerCursor].ID
			m.pickerVisible = false
			if id == m.backend.CurrentSessionID() {
				return m, nil
			}
			return m, m.switchSessionCmd(id)
		}
	}
	return m, nil
}

// =============================================================================
// SUBMIT / STREAM STATE
// =============================================================================

// submit sends the prompt: append the user turn, create the assistant
// placeholder with its checkpoint marker, register the new stream, and
// hand the prompt to the backend. A still-running response is sealed
// first; the new stream is the sole target for unaddressed fragments.
func (m Model) submit() (tea.Model, tea.Cmd) {
	prompt := strings.TrimSpace(m.input.Value())
	if prompt == "" {
		return m, nil
	}

	if strings.HasPrefix(prompt, "/") {
		m.input.Reset()
		m.cadence.ResetWindow()
		return m.runCommand(prompt)
	}

	if m.streamingID != "" {
		m.backend.CancelStream()
		m.sealStreamingMessage()
	}

	m.input.Reset()
	m.cadence.ResetWindow()
	m.status = ""

	m.transcript.Append(model.NewUserMessage(prompt))

	assistant := model.NewAssistantMessage()
	m.transcript.Append(assistant)
	m.markers.CreateMarker(assistant.ID)
	m.buffers.Begin(assistant.ID)
	m.streamingID = assistant.ID

	m.rebuildViewport()
	m.viewport.GotoBottom()
	m.syncActiveMarker()

	return m, tea.Batch(m.spinner.Tick, m.startStreamCmd(prompt, ""))
}

// regenerate re-streams the most recent assistant answer into its
// existing bubble: the buffer is re-registered under the same ID and
// the backend addresses every fragment to it.
func (m Model) regenerate() (tea.Model, tea.Cmd) {
	if m.streamingID != "" {
		return m, nil
	}

	var target *model.Message
	for _, msg := range m.transcript.Messages() {
		if msg.Role == model.RoleAssistant {
			target = msg
		}
	}
	if target == nil {
		return m, nil
	}

	target.Streaming = true
	target.Rendered = ""
	m.buffers.Begin(target.ID)
	m.streamingID = target.ID
	m.status = "regenerating"

	m.rebuildViewport()
	m.viewport.GotoBottom()

	return m, tea.Batch(m.spinner.Tick, m.startStreamCmd("", target.ID))
}

// runCommand executes a slash command typed into the prompt field.
//
// Commands: /provider <name>, /model <id>, /key <provider> <key>,
// /attach <path>, /clearctx.
func (m Model) runCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	name := strings.TrimPrefix(fields[0], "/")
	args := fields[1:]

	switch name {
	case "provider":
		if len(args) != 1 {
			m.status = "usage: /provider <name>"
			return m, nil
		}
		if err := m.backend.SetProvider(args[0]); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.status = "provider set to " + args[0]

	case "model":
		if len(args) != 1 {
			m.status = "usage: /model <id>"
			return m, nil
		}
		m.backend.SetModel(args[0])
		m.status = "model set to " + args[0]

	case "key":
		if len(args) != 2 {
			m.status = "usage: /key <provider> <key>"
			return m, nil
		}
		if err := m.backend.SetAPIKey(args[0], args[1]); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.status = "API key stored for " + args[0]

	case "attach":
		if len(args) != 1 {
			m.status = "usage: /attach <path>"
			return m, nil
		}
		return m, m.attachFileCmd(args[0])

	case "clearctx":
		m.backend.ClearRAGContext()
		m.status = "attachment context cleared"

	default:
		m.status = "unknown command: /" + name
	}
	return m, nil
}

// applyChunk folds one fragment into its buffer and reprojects the
// target message. Fragments for unknown or cleared messages are dropped
// by the buffer store.
func (m *Model) applyChunk(msg ChunkMsg) {
	id := msg.TargetID
	if id == "" {
		id = m.buffers.ActiveID()
	}
	if id == "" {
		return
	}

	accumulated, ok := m.buffers.Append(msg.TargetID, msg.Text)
	if !ok {
		return
	}

	target := m.transcript.ByID(id)
	if target == nil {
		return
	}

	atBottom := m.viewport.AtBottom()
	target.Rendered = m.renderer.Render(accumulated)
	m.rebuildViewport()
	if atBottom {
		m.viewport.GotoBottom()
	}
	m.syncActiveMarker()
}

// finishStream seals the active buffer, finalizes the message, applies
// the tone tag, and refreshes the checkpoint preview exactly once.
func (m *Model) finishStream(tone string) {
	id := m.buffers.ActiveID()
	if id == "" {
		id = m.streamingID
	}
	if id == "" {
		return
	}

	final, ok := m.buffers.Complete(id)
	if !ok {
		return
	}

	if target := m.transcript.ByID(id); target != nil {
		target.Finalize(final)
		target.SetTone(model.ParseTone(tone))
		target.Rendered = m.renderer.Render(final)
		m.markers.RefreshPreview(id, target.Rendered)
	}

	if m.streamingID == id {
		m.streamingID = ""
	}

	m.rebuildViewport()
	m.viewport.GotoBottom()
	m.syncActiveMarker()
}

// failStream surfaces the error and stops the spinner. The buffer and
// the active-stream pointer are left untouched: a failed stream mutates
// no accumulation state, and the partial text stays visible as-is.
func (m *Model) failStream(message string) {
	id := m.streamingID
	if id == "" {
		id = m.buffers.ActiveID()
	}
	if target := m.transcript.ByID(id); target != nil {
		target.Streaming = false
	}
	m.streamingID = ""
	m.status = message
	m.rebuildViewport()
}

// jumpToMarker moves the active checkpoint by offset in document order
// and centers the viewport on its message. With no active marker the
// jump starts from the nearest edge.
func (m *Model) jumpToMarker(offset int) {
	if len(m.regions) == 0 {
		return
	}

	activeID := m.markers.ActiveID()
	idx := -1
	for i, r := range m.regions {
		if r.MessageID == activeID {
			idx = i
			break
		}
	}

	if idx < 0 {
		if offset > 0 {
			idx = 0
		} else {
			idx = len(m.regions) - 1
		}
	} else {
		idx += offset
	}
	if idx < 0 || idx >= len(m.regions) {
		return
	}

	region := m.regions[idx]
	target := region.Top + region.Height/2 - m.viewport.Height/2
	if target < 0 {
		target = 0
	}
	m.viewport.SetYOffset(target)
	m.markers.SetActive(region.MessageID)
}

// sealStreamingMessage finalizes the in-flight assistant message with
// whatever text has accumulated so far.
func (m *Model) sealStreamingMessage() {
	id := m.buffers.ActiveID()
	if id == "" {
		id = m.streamingID
	}
	if id == "" {
		return
	}

	final, _ := m.buffers.Complete(id)
	if target := m.transcript.ByID(id); target != nil {
		target.Finalize(final)
		target.Rendered = m.renderer.Render(final)
		m.markers.RefreshPreview(id, target.Rendered)
	}
	m.streamingID = ""
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) startStreamCmd(prompt, targetID string) tea.Cmd {
	return func() tea.Msg {
		if err := m.backend.StartChatStream(context.Background(), prompt, targetID); err != nil {
			return NewStreamFailedMsg(err.Error())
		}
		return nil
	}
}

func (m Model) attachFileCmd(path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return NewStatusMsg("attach failed: " + err.Error())
		}

		results := m.backend.UploadFiles([]backend.UploadItem{{
			Name: filepath.Base(path),
			Data: base64.StdEncoding.EncodeToString(data),
		}})
		for _, res := range results {
			if res.Err != nil {
				return NewStatusMsg("attach failed: " + res.Err.Error())
			}
		}
		return NewStatusMsg("attached " + filepath.Base(path))
	}
}

func (m Model) loadHistoryCmd() tea.Cmd {
	return func() tea.Msg {
		history, err := m.backend.LoadHistory(context.Background())
		return HistoryLoadedMsg{History: history, Err: err}
	}
}

func (m Model) listSessionsCmd() tea.Cmd {
	return func() tea.Msg {
		sessions, err := m.backend.ListSessions(context.Background())
		return SessionListMsg{Sessions: sessions, Err: err}
	}
}

func (m Model) newSessionCmd() tea.Cmd {
	return func() tea.Msg {
		info, err := m.backend.NewSession(context.Background())
		return SessionCreatedMsg{Info: info, Err: err}
	}
}

func (m Model) switchSessionCmd(id string) tea.Cmd {
	return func() tea.Msg {
		history, err := m.backend.SwitchSession(context.Background(), id)
		return SessionSwitchedMsg{ID: id, History: history, Err: err}
	}
}

func (m Model) deleteSessionCmd(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.backend.DeleteSession(context.Background(), id); err != nil {
			return SessionDeletedMsg{ID: id, Err: err}
		}
		history, err := m.backend.LoadHistory(context.Background())
		return SessionDeletedMsg{ID: id, History: history, Err: err}
	}
}
