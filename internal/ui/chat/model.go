// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/loomchat/loom/internal/backend"
	"github.com/loomchat/loom/internal/cadence"
	"github.com/loomchat/loom/internal/checkpoint"
	"github.com/loomchat/loom/internal/config"
	"github.com/loomchat/loom/internal/model"
	"github.com/loomchat/loom/internal/render"
	"github.com/loomchat/loom/internal/stream"
	"github.com/loomchat/loom/internal/ui/styles"
)

// =============================================================================
// BACKEND SURFACE
// =============================================================================

// Backend is the slice of the bridge the chat model drives. Narrowed to
// an interface so tests can substitute a fake.
type Backend interface {
	StartChatStream(ctx context.Context, prompt, targetID string) error
	CancelStream()
	NewSession(ctx context.Context) (backend.SessionInfo, error)
	SwitchSession(ctx context.Context, sessionID string) ([]backend.HistoryMessage, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context) ([]backend.SessionInfo, error)
	LoadHistory(ctx context.Context) ([]backend.HistoryMessage, error)
	CurrentSessionID() string
	Provider() string
	SetProvider(name string) error
	SetModel(model string)
	SetAPIKey(provider, key string) error
	UploadFiles(items []backend.UploadItem) []backend.UploadResult
	ClearRAGContext()
	MultiAgent() bool
	ToggleMultiAgent() bool
}

// =============================================================================
// CHAT STATE
// =============================================================================

// focusArea identifies which surface receives keystrokes.
type focusArea int

const (
	focusInput focusArea = iota
	focusTranscript
)

// sidebarWidth is the fixed width of the checkpoint rail.
const sidebarWidth = 26

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat workspace.
type Model struct {
	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int

	// Engines. Pointers: they carry mutexes and must not be copied
	// during Bubble Tea updates.
	transcript *model.Transcript
	buffers    *stream.BufferStore
	renderer   *render.Renderer
	markers    *checkpoint.Index
	cadence    *cadence.Classifier
	backend    Backend

	// Streaming state
	streamingID string

	// Viewport line spans for assistant messages, document order.
	regions []checkpoint.Region

	// Widgets
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keys     KeyMap

	// Focus and overlays
	focus         focusArea
	pickerVisible bool
	pickerCursor  int
	sessions      []backend.SessionInfo

	// Status line
	status      string
	showSidebar bool
}

// New creates the chat model over an attached backend.
func New(b Backend, theme *styles.Theme, cfg *config.Config) Model {
	transcript := model.NewTranscript()

	ti := textinput.New()
	ti.Placeholder = "Ask anything..."
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	width := render.DefaultWrapWidth
	if cfg != nil && cfg.UI.WrapWidth > 0 {
		width = cfg.UI.WrapWidth
	}

	m := Model{
		theme:       theme,
		transcript:  transcript,
		renderer:    render.New(width),
		markers:     checkpoint.NewIndex(),
		cadence:     cadence.New(nil),
		backend:     b,
		viewport:    vp,
		input:       ti,
		spinner:     sp,
		keys:        DefaultKeyMap(),
		showSidebar: cfg == nil || cfg.UI.ShowSidebar,
	}
	// Fragments addressed to messages the transcript no longer tracks
	// are dropped instead of resurrecting cleared buffers.
	m.buffers = stream.NewBufferStore(transcript.Has)
	return m
}

// Init starts the spinner and loads the current session's history.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.loadHistoryCmd())
}

// =============================================================================
// TRANSCRIPT ASSEMBLY
// =============================================================================

// resetTranscript atomically clears every per-session surface and then
// replays stored history. The clear completes before the first replayed
// message is appended, so a late fragment can never land in the fresh
// transcript.
func (m *Model) resetTranscript(history []backend.HistoryMessage) {
	m.buffers.ClearAll()
	m.markers.ClearAll()
	m.transcript.Clear()
	m.regions = nil
	m.streamingID = ""
	m.status = ""

	for _, h := range history {
		switch h.Role {
		case "assistant":
			msg := model.NewAssistantMessage()
			msg.Finalize(h.Content)
			msg.Rendered = m.renderer.Render(h.Content)
			m.transcript.Append(msg)
			m.markers.CreateMarker(msg.ID)
			m.markers.RefreshPreview(msg.ID, msg.Rendered)
		default:
			m.transcript.Append(model.NewUserMessage(h.Content))
		}
	}

	m.rebuildViewport()
	m.viewport.GotoBottom()
	m.syncActiveMarker()
}

// rebuildViewport reprojects the whole transcript into the viewport and
// recomputes the assistant line spans used for scroll-marker sync.
func (m *Model) rebuildViewport() {
	var sb strings.Builder
	var regions []checkpoint.Region
	line := 0

	for i, msg := range m.transcript.Messages() {
		block := m.renderMessageBlock(msg)
		h := lipgloss.Height(block)

		if msg.Role == model.RoleAssistant {
			regions = append(regions, checkpoint.Region{
				MessageID: msg.ID,
				Top:       line,
				Height:    h,
			})
		}

		if i > 0 {
			sb.WriteString("\n")
			line++
		}
		sb.WriteString(block)
		sb.WriteString("\n")
		line += h
	}

	m.regions = regions
	m.viewport.SetContent(sb.String())
}

// renderMessageBlock produces the display block for one message: a role
// label followed by the styled body.
func (m *Model) renderMessageBlock(msg *model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		label := m.theme.UserLabel.Render(msg.Role.DisplayName())
		body := m.theme.UserBubble.Render(msg.Content)
		return label + "\n" + body
	default:
		label := m.theme.AssistantLabel.Render(msg.Role.DisplayName())
		text := msg.Rendered
		if msg.Streaming {
			if text == "" {
				text = m.spinner.View()
			} else {
				text += m.theme.StreamCursor.Render("▌")
			}
			label += " " + m.theme.MarkerPreview.Render("streaming")
		}
		body := m.theme.ToneStyle(string(msg.Tone())).Render(text)
		return label + "\n" + body
	}
}

// syncActiveMarker recomputes which checkpoint marker tracks the
// viewport center.
func (m *Model) syncActiveMarker() {
	checkpoint.Sync(m.markers, m.regions, m.viewport.YOffset, m.viewport.Height)
}

// =============================================================================
// SIZING
// =============================================================================

// resize applies a terminal size change to every surface.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	contentWidth := width
	if m.showSidebar {
		contentWidth -= sidebarWidth
	}
	if contentWidth < 20 {
		contentWidth = 20
	}

	// Status bar and input consume the bottom rows.
	vpHeight := height - 4
	if vpHeight < 3 {
		vpHeight = 3
	}

	m.viewport.Width = contentWidth
	m.viewport.Height = vpHeight
	m.input.Width = contentWidth - 4

	m.renderer.SetWidth(contentWidth - 2)
	m.reprojectAll()
	m.rebuildViewport()
	m.syncActiveMarker()
}

// reprojectAll re-renders every message at the current wrap width.
func (m *Model) reprojectAll() {
	for _, msg := range m.transcript.Messages() {
		if msg.Role != model.RoleAssistant {
			continue
		}
		source := msg.Content
		if msg.Streaming {
			if acc, ok := m.buffers.Get(msg.ID); ok {
				source = acc
			}
		}
		msg.Rendered = m.renderer.Render(source)
	}
}
