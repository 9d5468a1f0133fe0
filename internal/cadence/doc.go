// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cadence classifies real-time typing rhythm into a coarse UI mode.
//
// The classifier keeps a bounded sliding window of inter-keystroke
// intervals. Once the window holds enough samples, the arithmetic mean is
// mapped onto one of three modes:
//
//   - mean > 400ms  -> ModeSlow
//   - mean < 150ms  -> ModeFast
//   - otherwise     -> ModeNeutral
//
// The signal is purely advisory: it drives theme accents and never blocks
// or filters input. The window must be reset on input blur and after each
// submitted prompt so that timing never leaks across logically distinct
// typing sessions.
package cadence
