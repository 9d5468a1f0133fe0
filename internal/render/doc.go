// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render projects accumulated message source into display text.
//
// Rendering is a pure function of (source, width): every call fully
// replaces the previous display state for a message, so re-rendering on
// each fragment never duplicates content. Markdown conversion is
// delegated to glamour; when a terminal renderer cannot be constructed
// (no TTY, tests) the projection falls back to returning the source
// unchanged, which keeps the idempotence contract intact.
package render
