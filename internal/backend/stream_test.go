// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkEvent(content string) string {
	return `data: {"choices":[{"delta":{"content":` + quote(content) + `},"finish_reason":null}]}` + "\n\n"
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func TestStreamReaderParsesChunks(t *testing.T) {
	body := chunkEvent("Hello") +
		chunkEvent(", ") +
		chunkEvent("world") +
		"data: [DONE]\n\n"

	reader := NewStreamReader(strings.NewReader(body))

	var got []string
	var done bool
	err := reader.Process(context.Background(), func(c StreamChunk) {
		if c.Content != "" {
			got = append(got, c.Content)
		}
		if c.Done {
			done = true
		}
	})

	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{"Hello", ", ", "world"}, got)
	assert.Equal(t, "Hello, world", reader.Accumulated())
	assert.Equal(t, 3, reader.ChunkCount())
}

func TestStreamReaderSkipsMalformedLines(t *testing.T) {
	body := chunkEvent("ok") +
		"data: {not json}\n\n" +
		": keep-alive comment\n" +
		"event: ping\n" +
		"data: [DONE]\n\n"

	reader := NewStreamReader(strings.NewReader(body))

	err := reader.Process(context.Background(), func(StreamChunk) {})
	require.NoError(t, err)
	assert.Equal(t, "ok", reader.Accumulated())
}

func TestStreamReaderFinishReasonEndsStream(t *testing.T) {
	body := chunkEvent("done soon") +
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}` + "\n\n" +
		chunkEvent("never seen")

	reader := NewStreamReader(strings.NewReader(body))

	var done bool
	err := reader.Process(context.Background(), func(c StreamChunk) {
		if c.Done {
			done = true
		}
	})
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "done soon", reader.Accumulated())
}

func TestStreamReaderEOFWithoutDoneCompletes(t *testing.T) {
	reader := NewStreamReader(strings.NewReader(chunkEvent("partial")))

	var done bool
	err := reader.Process(context.Background(), func(c StreamChunk) {
		if c.Done {
			done = true
		}
	})
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "partial", reader.Accumulated())
}

func TestStreamReaderContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := NewStreamReader(strings.NewReader(chunkEvent("x")))
	err := reader.Process(ctx, func(StreamChunk) {})
	assert.ErrorIs(t, err, context.Canceled)
}
