package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-replay/internal/domain"
)

func TestPolygonMode(t *testing.T) {
	// Four daily fire perimeters.
	perimeters := []domain.Event{
		polygonEvent("day-1", 39.0, -121.0, 0.05, t0),
		polygonEvent("day-2", 39.0, -121.0, 0.10, t0.Add(24*time.Hour)),
		polygonEvent("day-3", 39.0, -121.0, 0.18, t0.Add(48*time.Hour)),
		polygonEvent("day-4", 39.0, -121.0, 0.25, t0.Add(72*time.Hour)),
	}

	t.Run("each frame shows its bucket verbatim", func(t *testing.T) {
		h := newModeHarness(t, SessionConfig{ID: "fire", Mode: ModePolygon, Events: perimeters})

		state := h.at(t0.Add(24 * time.Hour))

		require.Equal(t, 1, state.Len())
		f := state.Features.Features[0]
		assert.Equal(t, "day-2", f.Properties["event_id"])
		assert.Equal(t, RoleEvent, f.Properties["role"])
		assert.NotNil(t, f.Geometry.Polygon, "the snapshot geometry passes through untouched")
	})

	t.Run("frames between snapshots are empty", func(t *testing.T) {
		h := newModeHarness(t, SessionConfig{ID: "fire", Mode: ModePolygon, Events: perimeters})

		// Halfway between day-1 and day-2, far from either bucket.
		// 150 frames over 72h is a step of ~29min, so 12h off any
		// snapshot lands in an unoccupied frame.
		state := h.at(t0.Add(12 * time.Hour))

		assert.Equal(t, 0, state.Len(), "no interpolation between snapshots")
	})

	t.Run("boundary snapshots appear on boundary frames", func(t *testing.T) {
		h := newModeHarness(t, SessionConfig{ID: "fire", Mode: ModePolygon, Events: perimeters})

		first := h.at(h.tl.Start())
		require.Equal(t, 1, first.Len())
		assert.Equal(t, "day-1", first.Features.Features[0].Properties["event_id"])

		last := h.at(h.tl.End())
		require.Equal(t, 1, last.Len())
		assert.Equal(t, "day-4", last.Features.Features[0].Properties["event_id"])
	})

	t.Run("all snapshots are reachable across the timeline", func(t *testing.T) {
		h := newModeHarness(t, SessionConfig{ID: "fire", Mode: ModePolygon, Events: perimeters})

		seen := map[string]bool{}
		for _, frameTS := range h.tl.Frames {
			for _, f := range h.at(frameTS).Features.Features {
				seen[f.Properties["event_id"].(string)] = true
			}
		}
		assert.Len(t, seen, len(perimeters))
	})
}
