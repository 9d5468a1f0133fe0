// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cadence

import (
	"testing"
)

// typeAtInterval feeds n keystrokes spaced intervalMs apart, starting at
// startTs, and returns the timestamp after the last keystroke.
func typeAtInterval(c *Classifier, startTs int64, n int, intervalMs int64) int64 {
	ts := startTs
	for i := 0; i < n; i++ {
		c.RecordKeystroke(ts, "a")
		ts += intervalMs
	}
	return ts
}

func TestWindowNeverExceedsSampleSize(t *testing.T) {
	c := New(nil)

	// 30 keystrokes produce 29 intervals; only the last 10 survive.
	typeAtInterval(c, 1000, 30, 200)

	if got := len(c.Window()); got != SampleSize {
		t.Errorf("Expected window of %d intervals, got %d", SampleSize, got)
	}
}

func TestWindowHoldsMostRecentIntervals(t *testing.T) {
	c := New(nil)

	// 15 keystrokes at 600ms, then 11 more at 100ms. The 10 surviving
	// intervals must all come from the fast tail.
	ts := int64(1000)
	for i := 0; i < 15; i++ {
		c.RecordKeystroke(ts, "a")
		ts += 600
	}
	for i := 0; i < 11; i++ {
		c.RecordKeystroke(ts, "a")
		ts += 100
	}

	for i, iv := range c.Window() {
		if iv != 100 {
			t.Errorf("Window[%d] = %d, want 100 (stale interval survived)", i, iv)
		}
	}
}

func TestClassificationThresholds(t *testing.T) {
	tests := []struct {
		name       string
		intervalMs int64
		want       Mode
	}{
		{"mean 500ms is slow", 500, ModeSlow},
		{"mean 100ms is fast", 100, ModeFast},
		{"mean 250ms is neutral", 250, ModeNeutral},
		{"mean exactly 400ms is neutral", 400, ModeNeutral},
		{"mean exactly 150ms is neutral", 150, ModeNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(nil)
			typeAtInterval(c, 1000, 11, tt.intervalMs)
			if got := c.Mode(); got != tt.want {
				t.Errorf("Mode = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNoClassificationBelowMinSamples(t *testing.T) {
	var fired []Mode
	c := New(func(m Mode) { fired = append(fired, m) })

	// 5 keystrokes = 4 intervals, one short of MinSamples.
	typeAtInterval(c, 1000, 5, 600)

	if len(fired) != 0 {
		t.Errorf("Expected no mode change below %d samples, got %v", MinSamples, fired)
	}
	if c.Mode() != ModeNeutral {
		t.Errorf("Mode should remain neutral, got %s", c.Mode())
	}
}

func TestModeChangeCallback(t *testing.T) {
	var fired []Mode
	c := New(func(m Mode) { fired = append(fired, m) })

	// Slow typing, then fast typing: slow -> fast, two notifications.
	ts := int64(1000)
	for i := 0; i < 6; i++ {
		c.RecordKeystroke(ts, "a")
		ts += 600
	}
	for i := 0; i < 20; i++ {
		c.RecordKeystroke(ts, "a")
		ts += 50
	}

	// The window slides through mixed samples, so an intermediate neutral
	// is fine; the endpoints are what matter.
	if len(fired) < 2 {
		t.Fatalf("Expected at least 2 mode changes, got %d (%v)", len(fired), fired)
	}
	if fired[0] != ModeSlow {
		t.Errorf("First change should be slow, got %v", fired)
	}
	if fired[len(fired)-1] != ModeFast {
		t.Errorf("Last change should be fast, got %v", fired)
	}
}

func TestNeutralClearsPriorMode(t *testing.T) {
	var fired []Mode
	c := New(func(m Mode) { fired = append(fired, m) })

	ts := typeAtInterval(c, 1000, 11, 600) // slow
	typeAtInterval(c, ts, 20, 250)         // back to neutral

	if c.Mode() != ModeNeutral {
		t.Errorf("Expected neutral after medium typing, got %s", c.Mode())
	}
	if len(fired) == 0 || fired[len(fired)-1] != ModeNeutral {
		t.Errorf("Neutral transition should be emitted to clear the prior mode, got %v", fired)
	}
}

func TestResetWindow(t *testing.T) {
	c := New(nil)
	typeAtInterval(c, 1000, 11, 500)

	c.ResetWindow()

	if len(c.Window()) != 0 {
		t.Error("Window should be empty after reset")
	}

	// The first keystroke after a reset must not form an interval against
	// pre-reset timing.
	c.RecordKeystroke(100000, "a")
	if len(c.Window()) != 0 {
		t.Error("First keystroke after reset should produce no interval")
	}
}

func TestIgnoresControlKeys(t *testing.T) {
	c := New(nil)

	ts := int64(1000)
	keys := []string{"enter", "tab", "up", "down", "ctrl+c", "esc", "shift+tab"}
	for _, k := range keys {
		c.RecordKeystroke(ts, k)
		ts += 100
	}

	if len(c.Window()) != 0 {
		t.Errorf("Control keys should be ignored, window has %d intervals", len(c.Window()))
	}
}

func TestBackspaceIsContentful(t *testing.T) {
	c := New(nil)

	ts := int64(1000)
	for i := 0; i < 6; i++ {
		c.RecordKeystroke(ts, "backspace")
		ts += 100
	}

	if len(c.Window()) != 5 {
		t.Errorf("Backspace should count for timing, got %d intervals", len(c.Window()))
	}
	if c.Mode() != ModeFast {
		t.Errorf("Expected fast mode from rapid backspacing, got %s", c.Mode())
	}
}
