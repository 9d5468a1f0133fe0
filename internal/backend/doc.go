// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend connects the chat UI to upstream LLM providers and
// session storage.
//
// The Bridge is the single entry point the UI talks to: it owns the
// current session, the provider selection, and the streaming pipeline.
// Responses stream back through the Pusher interface so the UI loop
// never blocks on network calls; fragments arrive as they are read from
// the provider's SSE stream.
//
// Providers are OpenAI-compatible (OpenAI, Groq, OpenRouter,
// Perplexity); API keys are seeded from the environment at startup and
// can be replaced at runtime.
package backend
