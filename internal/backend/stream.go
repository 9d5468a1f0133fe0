// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// =============================================================================
// SSE STREAM READER
// =============================================================================

// doneSentinel terminates an OpenAI-compatible SSE stream.
var doneSentinel = []byte("[DONE]")

// StreamReader parses Server-Sent Events from an OpenAI-compatible
// streaming response body.
type StreamReader struct {
	reader *bufio.Reader
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	chunkCount  int
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
	}
}

// StreamCallback is called for each chunk received during streaming.
type StreamCallback func(chunk StreamChunk)

// Process reads the stream and calls the callback for each chunk.
// Blocks until the stream is complete or the context is cancelled.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			chunk, err := s.readChunk()
			if err != nil {
				if err == io.EOF {
					callback(StreamChunk{Done: true})
					return nil
				}
				return err
			}

			if chunk != nil {
				callback(*chunk)
				if chunk.Done {
					return nil
				}
			}
		}
	}
}

// readChunk reads and parses a single SSE line from the stream.
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(bytes.TrimSpace(line)) == 0 {
			return nil, io.EOF
		}
		if len(line) == 0 {
			return nil, err
		}
	}

	line = bytes.TrimSpace(line)

	// Skip blank separators and SSE comments
	if len(line) == 0 || line[0] == ':' {
		return nil, nil
	}

	// Only data fields carry payload
	if !bytes.HasPrefix(line, []byte("data:")) {
		return nil, nil
	}
	payload := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))

	if bytes.Equal(payload, doneSentinel) {
		return &StreamChunk{Done: true}, nil
	}

	var event struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		// Skip malformed lines
		return nil, nil
	}

	if len(event.Choices) == 0 {
		return nil, nil
	}

	content := event.Choices[0].Delta.Content
	if content != "" {
		s.accumulator.WriteString(content)
		s.chunkCount++
	}

	chunk := &StreamChunk{Content: content}
	if event.Choices[0].FinishReason != nil && *event.Choices[0].FinishReason != "" {
		chunk.Done = true
	}
	return chunk, nil
}

// Accumulated returns all content received so far.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}

// ChunkCount returns the number of contentful chunks received.
func (s *StreamReader) ChunkCount() int {
	return s.chunkCount
}
