package replay

import (
	"github.com/couchcryptid/hazard-replay/internal/domain"
)

// accumulateMode shows every event that has occurred by the current
// timestamp and is still inside the rolling window, annotated with recency
// and an ended flag. The simplest mode: tornado outbreaks, hail swaths,
// any "dots appearing on a map" replay.
type accumulateMode struct {
	frameCount int
}

func (m *accumulateMode) buildTimeline(seq *sequence, _ *SessionConfig) (*Timeline, error) {
	return &Timeline{Frames: evenFrames(seq.minTime(), seq.maxTime(), m.frameCount)}, nil
}

func (m *accumulateMode) computeState(fc frameContext) VisualState {
	state := newVisualState(fc.ts, fc.rt.frame)
	granStep := fc.cfg.Granularity.Step()

	last := fc.seq.lastAt(fc.ts)
	for i := 0; i <= last; i++ {
		rec := domain.Recency(fc.seq.times[i], fc.ts, fc.cfg.Window)
		if rec <= 0 {
			continue // aged out of the rolling window
		}
		e := fc.seq.events[i]
		ended := domain.IsEventEnded(e.EventType, fc.seq.times[i], fc.ts, granStep)
		state.add(eventFeature(e, RoleEvent, map[string]interface{}{
			"recency": rec,
			"ended":   ended,
		}))
	}
	return state
}
