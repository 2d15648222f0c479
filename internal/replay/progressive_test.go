package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-replay/internal/domain"
)

func stormTrack(n int) []domain.Event {
	events := make([]domain.Event, n)
	for i := range events {
		events[i] = pointEvent(
			trackID(i), "storm",
			25+float64(i)*0.5, -80+float64(i)*0.8,
			t0.Add(time.Duration(i)*6*time.Hour), nil)
	}
	return events
}

func trackID(i int) string {
	return string(rune('a'+i)) + "-fix"
}

func TestProgressiveMode(t *testing.T) {
	t.Run("distinct current position with trailing history", func(t *testing.T) {
		h := newModeHarness(t, SessionConfig{
			ID:     "track",
			Mode:   ModeProgressive,
			Events: stormTrack(6),
			Window: 72 * time.Hour,
		})

		// Midway: fixes 0..3 have occurred.
		state := h.at(t0.Add(18 * time.Hour))

		roles := featuresByRole(state)
		require.Len(t, roles[RoleCurrent], 1, "exactly one current position")
		assert.Equal(t, trackID(3), roles[RoleCurrent][0].Properties["event_id"])
		assert.Len(t, roles[RoleTrail], 3)

		require.Len(t, roles[RoleTrack], 1)
		line := roles[RoleTrack][0].Geometry.LineString
		assert.Len(t, line, 4, "track line threads every visited fix")
	})

	t.Run("visited set only grows as time advances", func(t *testing.T) {
		h := newModeHarness(t, SessionConfig{
			ID:     "track",
			Mode:   ModeProgressive,
			Events: stormTrack(6),
			Window: 72 * time.Hour,
		})

		earlier := h.at(t0.Add(12 * time.Hour))
		later := h.at(t0.Add(24 * time.Hour))

		earlierIDs := map[string]bool{}
		for _, f := range earlier.Features.Features {
			if id, ok := f.Properties["event_id"].(string); ok {
				earlierIDs[id] = true
			}
		}
		laterIDs := map[string]bool{}
		for _, f := range later.Features.Features {
			if id, ok := f.Properties["event_id"].(string); ok {
				laterIDs[id] = true
			}
		}
		for id := range earlierIDs {
			assert.True(t, laterIDs[id], "event %s disappeared as time advanced", id)
		}
	})

	t.Run("first frame shows only the first fix", func(t *testing.T) {
		h := newModeHarness(t, SessionConfig{ID: "track", Mode: ModeProgressive, Events: stormTrack(4)})

		state := h.at(h.tl.Start())

		roles := featuresByRole(state)
		require.Len(t, roles[RoleCurrent], 1)
		assert.Equal(t, trackID(0), roles[RoleCurrent][0].Properties["event_id"])
		assert.Empty(t, roles[RoleTrail])
		assert.Empty(t, roles[RoleTrack], "no line until a second fix is visited")
	})

	t.Run("track line unwraps across the antimeridian", func(t *testing.T) {
		events := []domain.Event{
			pointEvent("west", "storm", 20, 179.5, t0, nil),
			pointEvent("east", "storm", 20.5, -179.5, t0.Add(6*time.Hour), nil),
		}
		h := newModeHarness(t, SessionConfig{ID: "cross", Mode: ModeProgressive, Events: events})

		state := h.at(h.tl.End())

		roles := featuresByRole(state)
		require.Len(t, roles[RoleTrack], 1)
		line := roles[RoleTrack][0].Geometry.LineString
		require.Len(t, line, 2)
		assert.InDelta(t, 180.5, line[1][0], 1e-9,
			"eastern fix must unwrap to stay within a degree of the western one")
	})
}
