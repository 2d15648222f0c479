package replay

import (
	"fmt"
	"time"

	"github.com/couchcryptid/hazard-replay/internal/domain"
)

// arrivalBuffer pads the radial timeline past the last wave arrival so the
// final reveal is not pinned to the final frame.
const arrivalBuffer = 1.1

// minRadialDuration floors the radial timeline so a tight cluster of
// nearby events still animates rather than flashing.
const minRadialDuration = 10 * time.Minute

// radialMode propagates a circular wave front outward from a single
// source event at a constant speed. Secondary events become visible when
// the front reaches them; each gets a connecting line back to the source.
// The timeline is derived from propagation physics, not event clustering:
// it spans source time to the last arrival plus a buffer.
type radialMode struct {
	frameCount int

	source     int
	sourcePt   domain.Geo
	sourceTime time.Time
	speedKmH   float64
	distKm     []float64   // per event index; 0 for the source itself
	arrivals   []time.Time // per event index; source arrival == sourceTime
}

func (m *radialMode) buildTimeline(seq *sequence, cfg *SessionConfig) (*Timeline, error) {
	m.source = findPrimary(seq, cfg)
	if m.source < 0 {
		return nil, fmt.Errorf("radial mode requires a source event")
	}
	pt, ok := seq.events[m.source].Point()
	if !ok {
		return nil, fmt.Errorf("radial source event has no coordinates")
	}
	m.sourcePt = pt
	m.sourceTime = seq.times[m.source]
	m.speedKmH = cfg.PropagationSpeedKmH

	m.distKm = make([]float64, seq.len())
	m.arrivals = make([]time.Time, seq.len())
	var maxArrival time.Duration
	for i := range seq.events {
		if i == m.source {
			m.arrivals[i] = m.sourceTime
			continue
		}
		d, ok := m.distanceFromSource(seq.events[i])
		if !ok {
			// No coordinates: unreachable by the wave, never shown.
			m.arrivals[i] = time.Time{}
			continue
		}
		m.distKm[i] = d
		travel := time.Duration(d / m.speedKmH * float64(time.Hour))
		m.arrivals[i] = m.sourceTime.Add(travel)
		if travel > maxArrival {
			maxArrival = travel
		}
	}

	duration := time.Duration(float64(maxArrival) * arrivalBuffer)
	if duration < minRadialDuration {
		duration = minRadialDuration
	}
	return &Timeline{Frames: evenFrames(m.sourceTime, m.sourceTime.Add(duration), m.frameCount)}, nil
}

// distanceFromSource prefers a declared distance property over computing
// one, since some feeds carry surveyed distances along the wave path.
func (m *radialMode) distanceFromSource(e domain.Event) (float64, bool) {
	if d, ok := e.Float("distance_km"); ok && d > 0 {
		return d, true
	}
	pt, ok := e.Point()
	if !ok {
		return 0, false
	}
	return domain.HaversineKm(m.sourcePt, pt), true
}

func (m *radialMode) computeState(fc frameContext) VisualState {
	state := newVisualState(fc.ts, fc.rt.frame)
	if fc.ts.Before(m.sourceTime) {
		return state
	}

	src := fc.seq.events[m.source]
	state.add(eventFeature(src, RoleSource, map[string]interface{}{
		"recency": domain.RecencyPeak,
	}))

	for i := range fc.seq.events {
		if i == m.source || m.arrivals[i].IsZero() || m.arrivals[i].After(fc.ts) {
			continue
		}
		e := fc.seq.events[i]
		state.add(eventFeature(e, RoleSecondary, map[string]interface{}{
			"recency":     domain.Recency(m.arrivals[i], fc.ts, fc.cfg.Window),
			"distance_km": m.distKm[i],
			"arrival":     m.arrivals[i].Format(time.RFC3339),
		}))

		if pt, ok := e.Point(); ok {
			state.add(lineFeature([][]float64{
				{m.sourcePt.Lon, m.sourcePt.Lat},
				{domain.UnwrapLon(m.sourcePt.Lon, pt.Lon), pt.Lat},
			}, RoleConnection, map[string]interface{}{
				"event_id": e.ID,
			}))
		}
	}

	// The wave front uses the continuous sub-frame clock when the
	// smoothing loop is ahead of the discrete frame; visibility above
	// stays pinned to the discrete timestamp.
	waveTS := fc.ts
	if fc.rt.smoothTime.After(waveTS) {
		waveTS = fc.rt.smoothTime
	}
	center := m.sourcePt
	state.WaveCenter = &center
	state.WaveRadiusKm = waveTS.Sub(m.sourceTime).Hours() * m.speedKmH
	return state
}
