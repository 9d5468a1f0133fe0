// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides chat history persistence for loom.
//
// Sessions and their messages live in a single SQLite database at
// ~/.loom/chat_history.db (modernc.org/sqlite, no cgo). Each session
// groups an ordered message list; the session title is derived from the
// first user message and frozen afterward.
//
// Key behaviors:
//   - CreateSession always starts empty with the title "New chat"
//   - SaveMessage promotes the first user message into the title
//   - History returns messages in insertion order
//   - ClearSession wipes messages but keeps the session row
//
// All operations are safe for concurrent use; SQLite serializes writers
// and the store keeps a single *sql.DB pool.
package storage
