// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomchat/loom/internal/config"
	"github.com/loomchat/loom/internal/storage"
)

// fakePusher records pushed events and signals completion.
type fakePusher struct {
	chunks   []string
	targets  []string
	tone     string
	errMsg   string
	finished chan struct{}
}

func newFakePusher() *fakePusher {
	return &fakePusher{finished: make(chan struct{}, 1)}
}

func (p *fakePusher) ReceiveChunk(text, targetID string) {
	p.chunks = append(p.chunks, text)
	p.targets = append(p.targets, targetID)
}

func (p *fakePusher) StreamComplete(tone string) {
	p.tone = tone
	p.finished <- struct{}{}
}

func (p *fakePusher) ReceiveError(message string) {
	p.errMsg = message
	p.finished <- struct{}{}
}

func (p *fakePusher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-p.finished:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not finish in time")
	}
}

// sseHandler emits the given fragments as an SSE stream.
func sseHandler(fragments ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range fragments {
			w.Write([]byte(chunkEvent(f)))
		}
		w.Write([]byte("data: [DONE]\n\n"))
	}
}

func newTestBridge(t *testing.T, handler http.HandlerFunc) (*Bridge, *Registry) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := storage.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := NewRegistry()
	registry.Register(Provider{
		Name:         "openai",
		DisplayName:  "OpenAI",
		Endpoint:     srv.URL,
		DefaultModel: "test-model",
		EnvKey:       "OPENAI_API_KEY",
	})
	registry.SetKey("openai", "test-key")

	cfg := config.Default()
	cfg.Chat.UploadDir = filepath.Join(t.TempDir(), "uploads")

	bridge, err := NewBridge(context.Background(), store, NewClient(), registry, cfg)
	require.NoError(t, err)
	return bridge, registry
}

func TestStartChatStreamDeliversChunks(t *testing.T) {
	bridge, _ := newTestBridge(t, sseHandler("Hello", " there"))

	pusher := newFakePusher()
	bridge.SetPusher(pusher)

	require.NoError(t, bridge.StartChatStream(context.Background(), "hi", ""))
	pusher.wait(t)

	assert.Equal(t, []string{"Hello", " there"}, pusher.chunks)
	assert.Empty(t, pusher.errMsg)

	// Both turns are persisted once the stream completes.
	assert.Eventually(t, func() bool {
		history, err := bridge.LoadHistory(context.Background())
		return err == nil && len(history) == 2 &&
			history[0].Role == "user" && history[1].Content == "Hello there"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestStartChatStreamMissingKey(t *testing.T) {
	bridge, registry := newTestBridge(t, sseHandler("x"))
	registry.SetKey("openai", "")
	bridge.SetPusher(newFakePusher())

	err := bridge.StartChatStream(context.Background(), "hi", "")
	require.Error(t, err)
	assert.Equal(t, "Please set your OpenAI API Key first.", err.Error())
}

func TestStartChatStreamRequiresPusher(t *testing.T) {
	bridge, _ := newTestBridge(t, sseHandler("x"))
	err := bridge.StartChatStream(context.Background(), "hi", "")
	assert.ErrorIs(t, err, ErrNoPusher)
}

func TestStartChatStreamUpstreamError(t *testing.T) {
	bridge, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	pusher := newFakePusher()
	bridge.SetPusher(pusher)

	require.NoError(t, bridge.StartChatStream(context.Background(), "hi", ""))
	pusher.wait(t)

	assert.Contains(t, pusher.errMsg, "API key was rejected")
	assert.Empty(t, pusher.chunks)
}

func TestUpdateConfigSwitchesProviderAndModel(t *testing.T) {
	bridge, registry := newTestBridge(t, sseHandler("old provider"))

	groq := httptest.NewServer(sseHandler("new provider"))
	t.Cleanup(groq.Close)
	registry.Register(Provider{
		Name:         "groq",
		DisplayName:  "Groq",
		Endpoint:     groq.URL,
		DefaultModel: "llama-3.3-70b",
		EnvKey:       "GROQ_API_KEY",
	})
	registry.SetKey("groq", "groq-key")

	cfg := config.Default()
	cfg.Provider.Default = "Groq"
	cfg.Provider.Model = "llama-3.3-70b-versatile"
	bridge.UpdateConfig(cfg)

	assert.Equal(t, "groq", bridge.Provider())
	assert.Equal(t, "llama-3.3-70b-versatile", bridge.Model())

	// The next stream goes to the reloaded provider's endpoint.
	pusher := newFakePusher()
	bridge.SetPusher(pusher)
	require.NoError(t, bridge.StartChatStream(context.Background(), "hi", ""))
	pusher.wait(t)
	assert.Equal(t, []string{"new provider"}, pusher.chunks)
}

func TestRegenerateReplacesStoredAnswer(t *testing.T) {
	var (
		bodyMu   sync.Mutex
		lastBody []byte
	)
	handler := func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodyMu.Lock()
		lastBody = body
		bodyMu.Unlock()
		sseHandler("answer")(w, r)
	}
	bridge, _ := newTestBridge(t, handler)

	pusher := newFakePusher()
	bridge.SetPusher(pusher)

	require.NoError(t, bridge.StartChatStream(context.Background(), "question", ""))
	pusher.wait(t)
	assert.Eventually(t, func() bool {
		h, err := bridge.LoadHistory(context.Background())
		return err == nil && len(h) == 2
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, bridge.StartChatStream(context.Background(), "", "msg_bubble"))
	pusher.wait(t)

	// Fragments of the second stream are addressed to the bubble being
	// regenerated; the first stream's were unaddressed.
	assert.Equal(t, []string{"", "msg_bubble"}, pusher.targets)

	// The upstream request re-answers the user turn: the dropped answer
	// is not in it.
	bodyMu.Lock()
	body := string(lastBody)
	bodyMu.Unlock()
	assert.Contains(t, body, "question")
	assert.NotContains(t, body, `"assistant"`)

	// No new user turn and no duplicate answer row.
	assert.Eventually(t, func() bool {
		h, err := bridge.LoadHistory(context.Background())
		return err == nil && len(h) == 2 &&
			h[0].Role == "user" && h[1].Role == "assistant"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNewSessionBecomesCurrent(t *testing.T) {
	bridge, _ := newTestBridge(t, sseHandler())

	before := bridge.CurrentSessionID()
	info, err := bridge.NewSession(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, before, info.ID)
	assert.Equal(t, info.ID, bridge.CurrentSessionID())

	sessions, err := bridge.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, s := range sessions {
		assert.Equal(t, s.ID == info.ID, s.Current)
	}
}

func TestSwitchSessionReplaysHistory(t *testing.T) {
	bridge, _ := newTestBridge(t, sseHandler("answer"))

	pusher := newFakePusher()
	bridge.SetPusher(pusher)
	first := bridge.CurrentSessionID()

	require.NoError(t, bridge.StartChatStream(context.Background(), "question", ""))
	pusher.wait(t)

	// Wait for the assistant turn to persist before switching away.
	assert.Eventually(t, func() bool {
		h, err := bridge.LoadHistory(context.Background())
		return err == nil && len(h) == 2
	}, 2*time.Second, 20*time.Millisecond)

	_, err := bridge.NewSession(context.Background())
	require.NoError(t, err)

	history, err := bridge.SwitchSession(context.Background(), first)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "question", history[0].Content)
	assert.Equal(t, "answer", history[1].Content)
	assert.Equal(t, first, bridge.CurrentSessionID())
}

func TestSwitchSessionUnknownID(t *testing.T) {
	bridge, _ := newTestBridge(t, sseHandler())
	_, err := bridge.SwitchSession(context.Background(), "sess_ghost")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestUploadFilesDecodesDataURI(t *testing.T) {
	bridge, _ := newTestBridge(t, sseHandler())

	payload := base64.StdEncoding.EncodeToString([]byte("file body"))
	results := bridge.UploadFiles([]UploadItem{
		{Name: "notes.txt", Data: "data:text/plain;base64," + payload},
		{Name: "bad.bin", Data: "data:application/octet-stream;base64,!!!not-base64"},
	})

	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)

	data, err := os.ReadFile(results[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "file body", string(data))

	assert.Len(t, bridge.RAGFiles(), 1)

	bridge.ClearRAGContext()
	assert.Empty(t, bridge.RAGFiles())
	// The file itself stays on disk.
	_, err = os.Stat(results[0].Path)
	assert.NoError(t, err)
}

func TestProviderAndModelSettings(t *testing.T) {
	bridge, _ := newTestBridge(t, sseHandler())

	bridge.SetModel("custom-model")
	assert.Equal(t, "custom-model", bridge.Model())

	require.NoError(t, bridge.SetProvider("Groq"))
	assert.Equal(t, "groq", bridge.Provider())
	// Switching providers resets the model override.
	assert.Equal(t, "", bridge.Model())

	assert.Error(t, bridge.SetProvider("skynet"))
	assert.Error(t, bridge.SetAPIKey("skynet", "k"))
	assert.NoError(t, bridge.SetAPIKey("groq", "k"))
}

func TestToggleMultiAgent(t *testing.T) {
	bridge, _ := newTestBridge(t, sseHandler())

	assert.False(t, bridge.MultiAgent())
	assert.True(t, bridge.ToggleMultiAgent())
	assert.False(t, bridge.ToggleMultiAgent())
}

func TestDeleteCurrentSessionSwitches(t *testing.T) {
	bridge, _ := newTestBridge(t, sseHandler())

	current := bridge.CurrentSessionID()
	require.NoError(t, bridge.DeleteSession(context.Background(), current))

	// A fresh session replaces the deleted one.
	next := bridge.CurrentSessionID()
	assert.NotEqual(t, current, next)
	assert.NotEmpty(t, next)
}
