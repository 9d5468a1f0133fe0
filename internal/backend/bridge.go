// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/loomchat/loom/internal/config"
	"github.com/loomchat/loom/internal/observability"
	"github.com/loomchat/loom/internal/storage"
)

// =============================================================================
// BRIDGE
// =============================================================================

// ErrNoPusher is returned when a stream is requested before the UI has
// attached its push surface.
var ErrNoPusher = errors.New("no pusher attached")

// multiAgentPrompt frames the request for the multi-agent pipeline.
const multiAgentPrompt = "You are the coordinator of a multi-agent team. " +
	"Plan the answer, delegate sub-problems to specialist agents (research, " +
	"reasoning, writing), then merge their output into a single coherent reply. " +
	"Present only the merged result."

// Bridge connects the chat UI to session storage and the upstream
// provider. All exported methods are safe for concurrent use; streaming
// happens on a background goroutine and reports through the Pusher.
type Bridge struct {
	store    *storage.Store
	client   *Client
	registry *Registry

	mu        sync.Mutex
	pusher    Pusher
	cfg       *config.Config
	provider  string
	model     string
	multi     bool
	sessionID string
	ragFiles  []string

	limiter *rate.Limiter

	streamMu     sync.Mutex
	cancelStream context.CancelFunc
}

// NewBridge creates a bridge over the given store and client. The
// current session is the most recent stored session, or a fresh one
// when the store is empty.
func NewBridge(ctx context.Context, store *storage.Store, client *Client, registry *Registry, cfg *config.Config) (*Bridge, error) {
	b := &Bridge{
		store:    store,
		client:   client,
		registry: registry,
		cfg:      cfg,
		provider: strings.ToLower(cfg.Provider.Default),
		model:    cfg.Provider.Model,
		multi:    cfg.Chat.MultiAgent,
	}

	if rpm := cfg.Provider.RequestsPerMinute; rpm > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	if len(sessions) > 0 {
		b.sessionID = sessions[0].ID
	} else {
		meta, err := store.CreateSession(ctx)
		if err != nil {
			return nil, err
		}
		b.sessionID = meta.ID
	}

	return b, nil
}

// SetPusher attaches the UI push surface. Must be called before the
// first StartChatStream.
func (b *Bridge) SetPusher(p Pusher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pusher = p
}

// UpdateConfig applies a reloaded configuration to the bridge. The
// provider, model, and rate limit take effect on the next stream.
func (b *Bridge) UpdateConfig(cfg *config.Config) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = cfg
	b.provider = strings.ToLower(cfg.Provider.Default)
	b.model = cfg.Provider.Model
	if rpm := cfg.Provider.RequestsPerMinute; rpm > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
	} else {
		b.limiter = nil
	}
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// CurrentSessionID returns the active session's ID.
func (b *Bridge) CurrentSessionID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionID
}

// ListSessions returns stored sessions, most recent first, with the
// current one flagged.
func (b *Bridge) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	metas, err := b.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	current := b.CurrentSessionID()
	infos := make([]SessionInfo, 0, len(metas))
	for _, m := range metas {
		infos = append(infos, SessionInfo{
			ID:        m.ID,
			Title:     m.Title,
			CreatedAt: m.CreatedAt,
			Current:   m.ID == current,
		})
	}
	return infos, nil
}

// NewSession creates a fresh session and makes it current. Any active
// stream is cancelled first so its fragments cannot land in the new
// session.
func (b *Bridge) NewSession(ctx context.Context) (SessionInfo, error) {
	b.cancelActiveStream()

	meta, err := b.store.CreateSession(ctx)
	if err != nil {
		return SessionInfo{}, err
	}

	b.mu.Lock()
	b.sessionID = meta.ID
	b.mu.Unlock()

	observability.Infof("session created: %s", meta.ID)
	return SessionInfo{ID: meta.ID, Title: meta.Title, CreatedAt: meta.CreatedAt, Current: true}, nil
}

// SwitchSession makes sessionID current and returns its history for
// replay. The active stream, if any, is cancelled first.
func (b *Bridge) SwitchSession(ctx context.Context, sessionID string) ([]HistoryMessage, error) {
	if _, err := b.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	b.cancelActiveStream()

	b.mu.Lock()
	b.sessionID = sessionID
	b.mu.Unlock()

	return b.LoadHistory(ctx)
}

// DeleteSession removes a stored session. Deleting the current session
// switches to the most recent remaining one, creating a fresh session
// when none remain.
func (b *Bridge) DeleteSession(ctx context.Context, sessionID string) error {
	if err := b.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}

	if b.CurrentSessionID() != sessionID {
		return nil
	}

	b.cancelActiveStream()

	sessions, err := b.store.ListSessions(ctx)
	if err != nil {
		return err
	}
	var next string
	if len(sessions) > 0 {
		next = sessions[0].ID
	} else {
		meta, err := b.store.CreateSession(ctx)
		if err != nil {
			return err
		}
		next = meta.ID
	}

	b.mu.Lock()
	b.sessionID = next
	b.mu.Unlock()
	return nil
}

// LoadHistory returns the current session's messages in order,
// truncated to the configured history limit.
func (b *Bridge) LoadHistory(ctx context.Context) ([]HistoryMessage, error) {
	b.mu.Lock()
	sessionID := b.sessionID
	limit := b.cfg.Chat.HistoryLimit
	b.mu.Unlock()

	stored, err := b.store.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(stored) > limit {
		stored = stored[len(stored)-limit:]
	}

	msgs := make([]HistoryMessage, 0, len(stored))
	for _, m := range stored {
		msgs = append(msgs, HistoryMessage{Role: m.Role, Content: m.Content})
	}
	return msgs, nil
}

// =============================================================================
// STREAMING
// =============================================================================

// StartChatStream persists the prompt and begins streaming the response
// on a background goroutine. Fragments, completion, and failures are
// reported through the Pusher; the returned error covers only what can
// be detected synchronously (missing key, storage failure).
//
// An empty targetID streams a fresh answer: the prompt is persisted as
// a new user turn and fragments are pushed unaddressed. A non-empty
// targetID regenerates an existing bubble: the prompt comes from the
// stored history, the stored answer is dropped so the model re-answers
// the last user turn, and every fragment is addressed to that bubble.
func (b *Bridge) StartChatStream(ctx context.Context, prompt, targetID string) error {
	b.mu.Lock()
	pusher := b.pusher
	providerName := b.provider
	model := b.model
	multi := b.multi
	sessionID := b.sessionID
	limiter := b.limiter
	ragFiles := append([]string(nil), b.ragFiles...)
	b.mu.Unlock()

	if pusher == nil {
		return ErrNoPusher
	}

	provider, ok := b.registry.Get(providerName)
	if !ok {
		return &ClientError{Type: ErrTypeUnknown, Message: "unknown provider: " + providerName}
	}
	apiKey := b.registry.Key(provider.Name)
	if apiKey == "" {
		return &ClientError{
			Type:    ErrTypeMissingKey,
			Message: "Please set your " + provider.DisplayName + " API Key first.",
		}
	}

	if targetID == "" {
		if err := b.store.SaveMessage(ctx, storage.StoredMessage{
			SessionID: sessionID,
			Role:      "user",
			Content:   prompt,
		}); err != nil {
			return err
		}
	} else if err := b.dropLastAssistantTurn(ctx, sessionID); err != nil {
		return err
	}

	messages, err := b.buildMessages(ctx, multi, ragFiles)
	if err != nil {
		return err
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	b.streamMu.Lock()
	if b.cancelStream != nil {
		b.cancelStream()
	}
	b.cancelStream = cancel
	b.streamMu.Unlock()

	go b.runStream(streamCtx, pusher, provider, apiKey, model, messages, sessionID, targetID, limiter)
	return nil
}

// runStream executes one streaming request end to end.
func (b *Bridge) runStream(ctx context.Context, pusher Pusher, provider Provider, apiKey, model string, messages []ChatMessage, sessionID, targetID string, limiter *rate.Limiter) {
	defer func() {
		b.streamMu.Lock()
		b.cancelStream = nil
		b.streamMu.Unlock()
	}()

	log := observability.WithFields(logrus.Fields{
		"provider": provider.Name,
		"session":  sessionID,
	})

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
	}

	reader := &streamState{}
	err := b.client.ChatStream(ctx, provider, apiKey, model, messages, func(chunk StreamChunk) {
		if chunk.Content != "" {
			reader.full.WriteString(chunk.Content)
			pusher.ReceiveChunk(chunk.Content, targetID)
		}
	})

	if ctx.Err() == context.Canceled {
		// Superseded by a newer stream or a session boundary; the
		// buffers were already handled on the UI side.
		return
	}
	if err != nil {
		if log != nil {
			log.WithError(err).Error("stream failed")
		}
		pusher.ReceiveError(userFacingError(err, provider))
		return
	}

	full := reader.full.String()
	tone := ClassifyTone(full)
	pusher.StreamComplete(tone)

	if err := b.store.SaveMessage(context.Background(), storage.StoredMessage{
		SessionID: sessionID,
		Role:      "assistant",
		Content:   full,
	}); err != nil && log != nil {
		log.WithError(err).Error("failed to persist assistant message")
	}
}

type streamState struct {
	full strings.Builder
}

// dropLastAssistantTurn removes the stored answer being regenerated so
// the replacement does not accumulate next to it. A stream that failed
// before persisting leaves no row; then there is nothing to drop.
func (b *Bridge) dropLastAssistantTurn(ctx context.Context, sessionID string) error {
	stored, err := b.store.History(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(stored) == 0 || stored[len(stored)-1].Role != "assistant" {
		return nil
	}
	return b.store.DeleteLastAssistantMessage(ctx, sessionID)
}

// buildMessages assembles the upstream message list: optional pipeline
// system prompt, attachment context, then the stored conversation.
func (b *Bridge) buildMessages(ctx context.Context, multi bool, ragFiles []string) ([]ChatMessage, error) {
	history, err := b.LoadHistory(ctx)
	if err != nil {
		return nil, err
	}

	var messages []ChatMessage
	if multi {
		messages = append(messages, ChatMessage{Role: "system", Content: multiAgentPrompt})
	}
	if len(ragFiles) > 0 {
		messages = append(messages, ChatMessage{Role: "system", Content: ragContext(ragFiles)})
	}
	for _, m := range history {
		messages = append(messages, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return messages, nil
}

// ragContext folds uploaded file contents into one system message.
func ragContext(paths []string) string {
	var sb strings.Builder
	sb.WriteString("The user has attached the following files. Use them as context.\n")
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		sb.WriteString("\n--- ")
		sb.WriteString(filepath.Base(path))
		sb.WriteString(" ---\n")
		sb.Write(data)
		sb.WriteString("\n")
	}
	return sb.String()
}

// userFacingError maps client errors to messages fit for the chat surface.
func userFacingError(err error, provider Provider) string {
	var ce *ClientError
	if errors.As(err, &ce) {
		switch ce.Type {
		case ErrTypeTimeout:
			return provider.DisplayName + " took too long to respond. Please try again."
		case ErrTypeUnauthorized:
			return "Your " + provider.DisplayName + " API key was rejected. Please set a valid key."
		case ErrTypeRateLimited:
			return provider.DisplayName + " is rate limiting requests. Please wait a moment."
		case ErrTypeConnection:
			return "Could not reach " + provider.DisplayName + ". Check your connection."
		default:
			return ce.Message
		}
	}
	return err.Error()
}

// CancelStream aborts the active stream, if any.
func (b *Bridge) CancelStream() {
	b.cancelActiveStream()
}

func (b *Bridge) cancelActiveStream() {
	b.streamMu.Lock()
	defer b.streamMu.Unlock()
	if b.cancelStream != nil {
		b.cancelStream()
		b.cancelStream = nil
	}
}

// =============================================================================
// UPLOADS / RAG CONTEXT
// =============================================================================

// UploadFiles decodes attachments into the upload directory and
// registers them as conversation context. Each item carries a filename
// and a data URI (or raw base64) payload.
func (b *Bridge) UploadFiles(items []UploadItem) []UploadResult {
	dir := b.uploadDir()
	results := make([]UploadResult, 0, len(items))

	for _, item := range items {
		res := UploadResult{Name: item.Name}

		data, err := decodePayload(item.Data)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}

		if err := os.MkdirAll(dir, 0755); err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}

		// filepath.Base strips any directory traversal in the name
		path := filepath.Join(dir, filepath.Base(item.Name))
		if err := os.WriteFile(path, data, 0600); err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}

		res.Path = path
		results = append(results, res)

		b.mu.Lock()
		b.ragFiles = append(b.ragFiles, path)
		b.mu.Unlock()
	}

	return results
}

// ClearRAGContext forgets all uploaded attachments. Files on disk are
// kept; only the conversation context is cleared.
func (b *Bridge) ClearRAGContext() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ragFiles = nil
}

// RAGFiles returns the paths of currently attached files.
func (b *Bridge) RAGFiles() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.ragFiles...)
}

func (b *Bridge) uploadDir() string {
	b.mu.Lock()
	dir := b.cfg.Chat.UploadDir
	b.mu.Unlock()
	if dir != "" {
		return dir
	}
	appDir, err := config.AppDir()
	if err != nil {
		return "uploads"
	}
	return filepath.Join(appDir, "uploads")
}

// decodePayload decodes a data URI or raw base64 string.
func decodePayload(payload string) ([]byte, error) {
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 {
			return nil, errors.New("malformed data URI")
		}
		payload = payload[idx+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}

// =============================================================================
// SETTINGS
// =============================================================================

// Provider returns the active provider name.
func (b *Bridge) Provider() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.provider
}

// SetProvider switches the upstream provider.
func (b *Bridge) SetProvider(name string) error {
	p, ok := b.registry.Get(name)
	if !ok {
		return &ClientError{Type: ErrTypeUnknown, Message: "unknown provider: " + name}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.provider = p.Name
	// Model identifiers are provider-specific; reset to the new
	// provider's default.
	b.model = ""
	return nil
}

// Model returns the active model ("" = provider default).
func (b *Bridge) Model() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.model
}

// SetModel overrides the model sent upstream.
func (b *Bridge) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// SetAPIKey stores an API key for a provider at runtime.
func (b *Bridge) SetAPIKey(provider, key string) error {
	if !b.registry.SetKey(provider, key) {
		return &ClientError{Type: ErrTypeUnknown, Message: "unknown provider: " + provider}
	}
	return nil
}

// MultiAgent reports whether the multi-agent pipeline is enabled.
func (b *Bridge) MultiAgent() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.multi
}

// ToggleMultiAgent flips the multi-agent pipeline and returns the new
// state.
func (b *Bridge) ToggleMultiAgent() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.multi = !b.multi
	return b.multi
}
