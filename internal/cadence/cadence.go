// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cadence classifies real-time typing rhythm into a coarse UI mode.
package cadence

import (
	"sync"
)

// =============================================================================
// MODE TYPE
// =============================================================================

// Mode is the discrete typing-speed classification.
type Mode int

const (
	ModeNeutral Mode = iota
	ModeSlow
	ModeFast
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSlow:
		return "slow"
	case ModeFast:
		return "fast"
	default:
		return "neutral"
	}
}

// =============================================================================
// CLASSIFIER CONFIGURATION
// =============================================================================

const (
	// SampleSize is the maximum number of intervals kept in the window.
	SampleSize = 10

	// MinSamples is the minimum number of intervals before classifying.
	MinSamples = 5

	// SlowThresholdMs: mean intervals above this are "slow" typing.
	SlowThresholdMs = 400

	// FastThresholdMs: mean intervals below this are "fast" typing.
	FastThresholdMs = 150
)

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classifier consumes raw key-press timing and produces a typing Mode.
//
// Thread-safety: all operations are mutex-protected. The classifier is
// normally driven from the UI update loop, but the mode may be read from
// the view path concurrently.
type Classifier struct {
	mu           sync.Mutex
	intervals    []int64 // Inter-keystroke intervals in ms, oldest first
	lastKeyMs    int64   // Timestamp of the last accepted keystroke (0 = none)
	mode         Mode
	onModeChange func(Mode)
}

// New creates a classifier. onModeChange, if non-nil, is invoked whenever
// the classification changes (including back to ModeNeutral, which clears
// any prior mode rather than applying one).
func New(onModeChange func(Mode)) *Classifier {
	return &Classifier{
		intervals:    make([]int64, 0, SampleSize),
		onModeChange: onModeChange,
	}
}

// RecordKeystroke feeds one key press into the window. timestampMs is the
// event time in milliseconds; key is the key identifier as reported by the
// input layer (single-rune identifiers are contentful, "backspace" counts
// as contentful for timing, everything else is ignored).
func (c *Classifier) RecordKeystroke(timestampMs int64, key string) {
	if !contentfulKey(key) {
		return
	}

	c.mu.Lock()
	changed := false
	if c.lastKeyMs > 0 {
		interval := timestampMs - c.lastKeyMs
		c.intervals = append(c.intervals, interval)
		if len(c.intervals) > SampleSize {
			c.intervals = c.intervals[1:]
		}
		if len(c.intervals) >= MinSamples {
			changed = c.classifyLocked()
		}
	}
	c.lastKeyMs = timestampMs
	mode := c.mode
	c.mu.Unlock()

	// Notify outside the lock so the callback may read classifier state.
	if changed && c.onModeChange != nil {
		c.onModeChange(mode)
	}
}

// ResetWindow empties the window. Must be called on input blur and
// immediately after a prompt is submitted. The current mode is left in
// place until enough fresh samples arrive to reclassify.
func (c *Classifier) ResetWindow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intervals = c.intervals[:0]
	c.lastKeyMs = 0
}

// Mode returns the current classification.
func (c *Classifier) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Window returns a copy of the stored intervals, oldest first.
func (c *Classifier) Window() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, len(c.intervals))
	copy(out, c.intervals)
	return out
}

// classifyLocked recomputes the mode from the window mean and reports
// whether it changed. Caller must hold the lock.
func (c *Classifier) classifyLocked() bool {
	var sum int64
	for _, iv := range c.intervals {
		sum += iv
	}
	mean := float64(sum) / float64(len(c.intervals))

	next := ModeNeutral
	switch {
	case mean > SlowThresholdMs:
		next = ModeSlow
	case mean < FastThresholdMs:
		next = ModeFast
	}

	if next == c.mode {
		return false
	}
	c.mode = next
	return true
}

// contentfulKey reports whether a key identifier counts for cadence
// timing: any single-rune key, plus backspace.
func contentfulKey(key string) bool {
	if key == "backspace" {
		return true
	}
	return len([]rune(key)) == 1
}
