// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package checkpoint

import "testing"

func syncFixture(ids ...string) *Index {
	idx := NewIndex()
	for _, id := range ids {
		idx.CreateMarker(id)
	}
	return idx
}

func TestSyncNearestCenter(t *testing.T) {
	idx := syncFixture("msg_a", "msg_b", "msg_c")
	regions := []Region{
		{MessageID: "msg_a", Top: 0, Height: 10},  // center 5
		{MessageID: "msg_b", Top: 10, Height: 10}, // center 15
		{MessageID: "msg_c", Top: 20, Height: 10}, // center 25
	}

	// Viewport [8,28): center 18, nearest is msg_b (|15-18|=3 vs |25-18|=7).
	Sync(idx, regions, 8, 20)
	if idx.ActiveID() != "msg_b" {
		t.Errorf("active = %q, want msg_b", idx.ActiveID())
	}

	// Scroll down: center 30, nearest is msg_c.
	Sync(idx, regions, 20, 20)
	if idx.ActiveID() != "msg_c" {
		t.Errorf("active = %q, want msg_c", idx.ActiveID())
	}
}

func TestSyncTieKeepsFirstInDocumentOrder(t *testing.T) {
	idx := syncFixture("msg_a", "msg_b")
	regions := []Region{
		{MessageID: "msg_a", Top: 0, Height: 10},  // center 5
		{MessageID: "msg_b", Top: 10, Height: 10}, // center 15
	}

	// Viewport center 10 is equidistant from both message centers.
	Sync(idx, regions, 0, 20)
	if idx.ActiveID() != "msg_a" {
		t.Errorf("tie must resolve to first region, got %q", idx.ActiveID())
	}
}

func TestSyncNoRegionsClearsActive(t *testing.T) {
	idx := syncFixture("msg_a")
	idx.SetActive("msg_a")

	Sync(idx, nil, 0, 20)
	if idx.ActiveID() != "" {
		t.Error("expected no active marker when nothing is visible")
	}
}

func TestSyncSingleRegionAlwaysActive(t *testing.T) {
	idx := syncFixture("msg_a")
	regions := []Region{{MessageID: "msg_a", Top: 100, Height: 4}}

	// Even far off-screen, the sole message wins.
	Sync(idx, regions, 0, 20)
	if idx.ActiveID() != "msg_a" {
		t.Errorf("active = %q, want msg_a", idx.ActiveID())
	}
}

func TestSyncIsExclusive(t *testing.T) {
	idx := syncFixture("msg_a", "msg_b")
	regions := []Region{
		{MessageID: "msg_a", Top: 0, Height: 10},
		{MessageID: "msg_b", Top: 10, Height: 10},
	}

	Sync(idx, regions, 0, 10)  // center 5 → msg_a
	Sync(idx, regions, 10, 10) // center 15 → msg_b

	active := 0
	for _, m := range idx.Markers() {
		if m.Active {
			active++
		}
	}
	if active != 1 {
		t.Errorf("expected exactly one active marker, got %d", active)
	}
}
