package replay

import (
	"math"
	"time"
)

// pulsePeriod is the wall-clock cycle of the spiderweb primary's ring.
const pulsePeriod = 1500 * time.Millisecond

// anchor maps wall-clock time to simulation time between discrete scrub
// ticks. It is a pure value: the loop reads it, never mutates it, and the
// controller replaces it wholesale at every resynchronization point
// (play-start, pause, seek).
type anchor struct {
	wall time.Time
	sim  time.Time
	// rate is simulated duration per wall-clock second; zero while paused,
	// so simAt holds position instead of drifting.
	rate time.Duration
}

// newAnchor captures a resynchronization point. The playback rate is
// derived from the scrub widget's reported speed: stepsPerFrame frames of
// frameStep simulated time elapse per tickInterval of wall time.
func newAnchor(wall, sim time.Time, frameStep time.Duration, stepsPerFrame int,
	tickInterval time.Duration, playing bool) anchor {

	a := anchor{wall: wall, sim: sim}
	if !playing || frameStep <= 0 || tickInterval <= 0 || stepsPerFrame <= 0 {
		return a
	}
	perSecond := float64(frameStep) * float64(stepsPerFrame) / tickInterval.Seconds()
	a.rate = time.Duration(perSecond)
	return a
}

// simAt projects the simulation time at a wall-clock instant.
func (a anchor) simAt(wall time.Time) time.Time {
	if a.rate == 0 {
		return a.sim
	}
	elapsed := wall.Sub(a.wall).Seconds()
	return a.sim.Add(time.Duration(elapsed * float64(a.rate)))
}

// onFrameTick is the sub-frame smoothing loop body, scheduled per render
// frame for radial and spiderweb sessions. It derives a continuous
// position between discrete timeline ticks from wall-clock elapsed time
// and pushes a purely cosmetic update: the radial wave radius keeps
// expanding and the spiderweb ring keeps pulsing while the logical frame
// holds still.
func (e *Engine) onFrameTick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.active
	if s == nil {
		return
	}

	// Play/pause transitions are resynchronization points: re-anchor at
	// the current smoothed position so resuming never jumps.
	playing := e.scrubber.IsPlaying()
	if playing != (s.rt.anchor.rate != 0) {
		s.rt.anchor = newAnchor(now, s.rt.smoothTime, s.tl.frameStep(),
			e.scrubber.StepsPerFrame(), e.scrubber.TickInterval(), playing)
	}

	phase := float64(now.UnixNano()%int64(pulsePeriod)) / float64(pulsePeriod)
	smooth := s.tl.Clamp(s.rt.anchor.simAt(now))

	// Nothing moved and the ring phase is where it was: skip the push.
	if smooth.Equal(s.rt.smoothTime) && math.Abs(phase-s.rt.pulsePhase) < 1e-3 {
		return
	}
	s.rt.smoothTime = smooth
	s.rt.pulsePhase = phase

	// Recompute at the last applied timestamp; only the continuous values
	// riding inside the runtime state may differ from the previous push,
	// so visibility never moves on a cosmetic tick.
	state := s.comp.computeState(frameContext{
		ts:  s.rt.applied,
		seq: s.seq,
		cfg: &s.cfg,
		tl:  s.tl,
		rt:  s.rt,
	})
	e.pushState(state, s)
	e.metrics.SmoothingUpdates.Inc()
}
