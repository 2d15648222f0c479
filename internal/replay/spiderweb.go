package replay

import (
	"fmt"
	"time"

	"github.com/couchcryptid/hazard-replay/internal/domain"
)

// growthFrames fixes how long a secondary event takes to grow from scale
// 0 to 1 once its timestamp is reached, expressed in timeline steps so the
// ease reads the same for minute-scale and month-scale sequences.
const growthFrames = 8

// Default framing radii (km) when the primary event does not declare its
// own impact/extent radii.
const (
	defaultImpactRadiusKm = 50
	defaultExtentRadiusKm = 400
)

// spiderwebMode animates a clustered point sequence around one primary
// event: the primary is always at full scale, every other event grows in
// with an ease-out once its timestamp passes, and connecting lines draw
// progressively from the primary toward each event, arriving exactly when
// the event occurs. A pulsing ring around the primary is refreshed by the
// sub-frame loop, independent of timeline ticks. Mainshock/aftershock
// sequences are the canonical use.
type spiderwebMode struct {
	frameCount int

	primary   int
	primaryPt domain.Geo
	startTime time.Time
	growthDur time.Duration
}

func (m *spiderwebMode) buildTimeline(seq *sequence, cfg *SessionConfig) (*Timeline, error) {
	m.primary = findPrimary(seq, cfg)
	if m.primary < 0 {
		return nil, fmt.Errorf("spiderweb mode requires a primary event")
	}
	pt, ok := seq.events[m.primary].Point()
	if !ok {
		return nil, fmt.Errorf("spiderweb primary event has no coordinates")
	}
	m.primaryPt = pt

	frames := evenFrames(seq.minTime(), seq.maxTime(), m.frameCount)
	m.startTime = frames[0]
	step := frames[1].Sub(frames[0])
	m.growthDur = growthFrames * step
	return &Timeline{Frames: frames}, nil
}

// framingBounds derives the initial (tight, impact radius) and final
// (wide, full extent) viewport regions from the primary event's declared
// radii, falling back to defaults and to the spread of the whole sequence.
func (m *spiderwebMode) framingBounds(seq *sequence) (initial, final domain.Bounds) {
	impact := float64(defaultImpactRadiusKm)
	if r, ok := seq.events[m.primary].Float("impact_radius_km"); ok && r > 0 {
		impact = r
	}
	extent := float64(defaultExtentRadiusKm)
	if r, ok := seq.events[m.primary].Float("extent_radius_km"); ok && r > 0 {
		extent = r
	}

	initial = domain.BoundsFromCenterRadius(m.primaryPt, impact)
	final = domain.BoundsFromCenterRadius(m.primaryPt, extent)
	for i, e := range seq.events {
		if i == m.primary {
			continue
		}
		if pt, ok := e.Point(); ok {
			final = final.Extend(pt)
		}
	}
	return initial, final
}

func (m *spiderwebMode) computeState(fc frameContext) VisualState {
	state := newVisualState(fc.ts, fc.rt.frame)

	primary := fc.seq.events[m.primary]
	state.add(eventFeature(primary, RolePrimary, map[string]interface{}{
		"scale": 1.0,
	}))

	// Pulsing ring: phase is maintained by the sub-frame loop; the ring
	// itself is part of every state so scrubbing never drops it.
	state.add(pointFeature(m.primaryPt, RolePulse, map[string]interface{}{
		"phase": fc.rt.pulsePhase,
	}))

	elapsed := fc.ts.Sub(m.startTime)
	for i := range fc.seq.events {
		if i == m.primary {
			continue
		}
		e := fc.seq.events[i]
		pt, ok := e.Point()
		if !ok {
			continue
		}

		timeToEvent := fc.seq.times[i].Sub(m.startTime)

		// Connecting line draws from the primary toward the event,
		// its endpoint arriving exactly at the event's timestamp.
		lineProgress := 1.0
		if timeToEvent > 0 {
			lineProgress = domain.Clamp01(float64(elapsed) / float64(timeToEvent))
		}
		if lineProgress > 0 {
			lon := domain.UnwrapLon(m.primaryPt.Lon, pt.Lon)
			tip := []float64{
				domain.Lerp(m.primaryPt.Lon, lon, lineProgress),
				domain.Lerp(m.primaryPt.Lat, pt.Lat, lineProgress),
			}
			state.add(lineFeature([][]float64{
				{m.primaryPt.Lon, m.primaryPt.Lat},
				tip,
			}, RoleConnection, map[string]interface{}{
				"event_id": e.ID,
				"progress": lineProgress,
			}))
		}

		// The event itself grows in with an ease-out once reached,
		// rather than snapping to full size.
		if fc.seq.times[i].After(fc.ts) {
			continue
		}
		sinceReached := fc.ts.Sub(fc.seq.times[i])
		scale := domain.EaseOutQuad(domain.Clamp01(float64(sinceReached) / float64(m.growthDur)))
		state.add(eventFeature(e, RoleSecondary, map[string]interface{}{
			"scale": scale,
		}))
	}
	return state
}
