package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-replay/internal/domain"
)

func TestAnchor(t *testing.T) {
	wall := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	sim := t0.Add(3 * time.Hour)

	t.Run("paused anchor holds its position", func(t *testing.T) {
		a := newAnchor(wall, sim, time.Minute, 3, 250*time.Millisecond, false)

		assert.True(t, a.simAt(wall).Equal(sim))
		assert.True(t, a.simAt(wall.Add(time.Hour)).Equal(sim), "no drift while paused")
	})

	t.Run("playing anchor advances at the widget rate", func(t *testing.T) {
		// 3 one-minute frames per 250ms tick: 12 simulated minutes per
		// wall second.
		a := newAnchor(wall, sim, time.Minute, 3, 250*time.Millisecond, true)

		assert.True(t, a.simAt(wall).Equal(sim))
		got := a.simAt(wall.Add(time.Second))
		assert.WithinDuration(t, sim.Add(12*time.Minute), got, time.Millisecond)
	})

	t.Run("degenerate widget parameters fall back to holding", func(t *testing.T) {
		for _, a := range []anchor{
			newAnchor(wall, sim, 0, 3, 250*time.Millisecond, true),
			newAnchor(wall, sim, time.Minute, 0, 250*time.Millisecond, true),
			newAnchor(wall, sim, time.Minute, 3, 0, true),
		} {
			assert.True(t, a.simAt(wall.Add(time.Minute)).Equal(sim))
		}
	})
}

func TestOnFrameTick(t *testing.T) {
	radialCfg := SessionConfig{
		ID:     "tsunami",
		Mode:   ModeRadial,
		Events: tsunamiEvents(),
		Window: 24 * time.Hour,
	}

	t.Run("paused session still refreshes the pulse phase", func(t *testing.T) {
		h := newEngineHarness(t)
		require.True(t, h.engine.Start(radialCfg))
		before := h.renderer.stateCount()

		now := h.clock.Now().Add(pulsePeriod / 3)
		h.scheduler.tick(now)
		assert.Equal(t, before+1, h.renderer.stateCount(), "phase change alone warrants a push")

		// The logical position must not move while paused.
		assert.InDelta(t, 0, h.renderer.lastState(t).WaveRadiusKm, 1e-9)

		h.scheduler.tick(now)
		assert.Equal(t, before+1, h.renderer.stateCount(), "identical tick is skipped")
	})

	t.Run("playing session expands the wave between scrub ticks", func(t *testing.T) {
		h := newEngineHarness(t)
		require.True(t, h.engine.Start(radialCfg))
		h.widget.Play()

		// First tick re-anchors at the current position; later ticks
		// advance simulated time from wall-clock elapsed.
		start := h.clock.Now()
		h.scheduler.tick(start)
		h.scheduler.tick(start.Add(500 * time.Millisecond))

		state := h.renderer.lastState(t)
		assert.Greater(t, state.WaveRadiusKm, 0.0,
			"the wave front keeps expanding while the logical frame holds")
	})

	t.Run("pausing re-anchors instead of snapping back", func(t *testing.T) {
		h := newEngineHarness(t)
		require.True(t, h.engine.Start(radialCfg))
		h.widget.Play()

		start := h.clock.Now()
		h.scheduler.tick(start)
		h.scheduler.tick(start.Add(time.Second))
		advanced := h.renderer.lastState(t).WaveRadiusKm
		require.Greater(t, advanced, 0.0)

		h.widget.Pause()
		h.scheduler.tick(start.Add(1100 * time.Millisecond))
		h.scheduler.tick(start.Add(10 * time.Second))

		held := h.renderer.lastState(t).WaveRadiusKm
		assert.InDelta(t, advanced, held, advanced*0.2,
			"the smoothed position holds near where playback paused")
	})

	t.Run("cosmetic ticks never change visibility", func(t *testing.T) {
		// Frame spacing of 200s puts 1920s nearest to the 2000s frame,
		// past the near gauge's 1930s arrival. The tick must recompute at
		// the scrubbed instant, not the snapped frame.
		src := pointEvent("quake", "earthquake", 38.2, 38.0, t0,
			map[string]interface{}{"mainshock": true})
		near := pointEvent("gauge-near", "tsunami", 39.0, 39.5, t0.Add(30*time.Minute),
			map[string]interface{}{"distance_km": 1930.0})
		far := pointEvent("gauge-far", "tsunami", 42.0, 41.0, t0.Add(33*time.Minute),
			map[string]interface{}{"distance_km": 2000.0})

		h := newEngineHarness(t, WithFrameCount(12))
		require.True(t, h.engine.Start(SessionConfig{
			ID:                  "wavefront",
			Mode:                ModeRadial,
			Events:              []domain.Event{src, near, far},
			PropagationSpeedKmH: 3600,
		}))

		h.engine.SetTime(t0.Add(1920 * time.Second))
		require.NotContains(t, featuresByRole(h.renderer.lastState(t)), RoleSecondary)

		h.scheduler.tick(h.clock.Now().Add(pulsePeriod / 3))

		state := h.renderer.lastState(t)
		assert.NotContains(t, featuresByRole(state), RoleSecondary,
			"sub-frame updates are cosmetic and must not reveal arrivals early")
		assert.Greater(t, state.WaveRadiusKm, 0.0, "the wave front itself still renders")
	})

	t.Run("ticks after stop are inert", func(t *testing.T) {
		h := newEngineHarness(t)
		require.True(t, h.engine.Start(radialCfg))
		h.engine.Stop()
		before := h.renderer.stateCount()

		h.scheduler.tick(h.clock.Now())

		assert.Equal(t, before, h.renderer.stateCount())
	})
}
