// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package checkpoint

// =============================================================================
// SCROLL SYNCHRONIZATION
// =============================================================================

// Region is the rendered extent of one assistant message inside the
// transcript surface, in content-line coordinates.
type Region struct {
	MessageID string
	Top       int
	Height    int
}

// Sync recomputes the active marker from the current scroll position:
// the marker whose message region center is nearest the viewport center
// becomes active. Ties keep the first region in document order (strict
// less-than on distance). With no regions the active flag is cleared.
//
// regions must be in document order, as produced during view assembly.
func Sync(idx *Index, regions []Region, viewportTop, viewportHeight int) {
	if len(regions) == 0 {
		idx.ClearActive()
		return
	}

	center := viewportTop + viewportHeight/2

	bestID := regions[0].MessageID
	bestDist := centerDistance(regions[0], center)
	for _, r := range regions[1:] {
		if d := centerDistance(r, center); d < bestDist {
			bestID = r.MessageID
			bestDist = d
		}
	}

	idx.SetActive(bestID)
}

func centerDistance(r Region, viewportCenter int) int {
	d := r.Top + r.Height/2 - viewportCenter
	if d < 0 {
		return -d
	}
	return d
}
