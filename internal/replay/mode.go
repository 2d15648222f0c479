package replay

import (
	"fmt"
	"time"

	"github.com/couchcryptid/hazard-replay/internal/domain"
)

// computor is one animation mode's behavior. A fresh computor is created
// per session; buildTimeline may precompute per-session derived data
// (radial arrival times, the journey's segments) that computeState then
// reads. computeState must be pure with respect to its inputs apart from
// the runtime maps it is documented to maintain.
type computor interface {
	buildTimeline(seq *sequence, cfg *SessionConfig) (*Timeline, error)
	computeState(fc frameContext) VisualState
}

// newComputor dispatches over the closed mode enum.
func newComputor(mode Mode, frameCount int) (computor, error) {
	switch mode {
	case ModeAccumulate:
		return &accumulateMode{frameCount: frameCount}, nil
	case ModeProgressive:
		return &progressiveMode{frameCount: frameCount}, nil
	case ModePolygon:
		return &polygonMode{frameCount: frameCount}, nil
	case ModeRadial:
		return &radialMode{frameCount: frameCount}, nil
	case ModeSpiderweb:
		return &spiderwebMode{frameCount: frameCount}, nil
	case ModeJourney:
		return &journeyMode{frameCount: frameCount}, nil
	default:
		return nil, fmt.Errorf("unrecognized animation mode %q", mode)
	}
}

// frameContext bundles everything a computor may read for one timestamp.
type frameContext struct {
	ts  time.Time
	seq *sequence
	cfg *SessionConfig
	tl  *Timeline
	rt  *runtimeState
}

// runtimeState is the session's mutable runtime fields: the current frame,
// the cosmetic sub-frame clock, and viewport framing progress. Created at
// session start, discarded at stop.
type runtimeState struct {
	frame int

	// applied is the timestamp of the last logical scrub; the sub-frame
	// loop recomputes at this instant so cosmetic ticks never change what
	// is visible.
	applied time.Time

	// smoothTime is the continuous timestamp maintained by the sub-frame
	// loop between discrete scrub ticks; cosmetic only.
	smoothTime time.Time

	// pulsePhase cycles [0, 1) with wall time for the spiderweb primary's
	// pulsing ring.
	pulsePhase float64

	// anchor maps wall clock to simulation time; resynchronized on every
	// seek and play/pause transition.
	anchor anchor

	// framing state (spiderweb only).
	framingInitial domain.Bounds
	framingFinal   domain.Bounds
	framingApplied float64 // last applied interpolation progress, -1 before any
}

func newRuntimeState() *runtimeState {
	return &runtimeState{
		framingApplied: -1,
	}
}

// findPrimary locates the session's designated primary/source event: the
// configured mainshock when present (matched by ID, with its own identity
// as fallback), otherwise the event flagged with a truthy "mainshock"
// property. Returns -1 when no primary exists.
func findPrimary(seq *sequence, cfg *SessionConfig) int {
	if cfg.Mainshock != nil {
		if i := seq.indexByID(cfg.Mainshock.ID); i >= 0 {
			return i
		}
	}
	for i, e := range seq.events {
		if e.Bool("mainshock") {
			return i
		}
	}
	return -1
}
