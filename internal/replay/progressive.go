package replay

import (
	"github.com/couchcryptid/hazard-replay/internal/domain"
)

// progressiveMode walks a time-sorted track: the latest event at or before
// the current timestamp is the distinct "current" position, everything
// earlier trails behind with recency fading, and a line threads the
// visited positions together. Storm tracks and similar moving-point data.
type progressiveMode struct {
	frameCount int
}

func (m *progressiveMode) buildTimeline(seq *sequence, _ *SessionConfig) (*Timeline, error) {
	return &Timeline{Frames: evenFrames(seq.minTime(), seq.maxTime(), m.frameCount)}, nil
}

func (m *progressiveMode) computeState(fc frameContext) VisualState {
	state := newVisualState(fc.ts, fc.rt.frame)

	cur := fc.seq.lastAt(fc.ts)
	if cur < 0 {
		return state
	}
	granStep := fc.cfg.Granularity.Step()

	var track [][]float64
	for i := 0; i <= cur; i++ {
		e := fc.seq.events[i]
		if p, ok := e.Point(); ok {
			lon := p.Lon
			if len(track) > 0 {
				lon = domain.UnwrapLon(track[len(track)-1][0], lon)
			}
			track = append(track, []float64{lon, p.Lat})
		}

		role := RoleTrail
		if i == cur {
			role = RoleCurrent
		}
		state.add(eventFeature(e, role, map[string]interface{}{
			"recency": domain.Recency(fc.seq.times[i], fc.ts, fc.cfg.Window),
			"ended":   domain.IsEventEnded(e.EventType, fc.seq.times[i], fc.ts, granStep),
		}))
	}

	if len(track) >= 2 {
		state.add(lineFeature(track, RoleTrack, nil))
	}
	return state
}
