package replay

import (
	"sort"
	"time"
)

// DefaultFrameCount is the fixed timeline length. Every session animates
// over the same number of frames whether its event span is minutes or
// decades; frame pacing comes from the scrub widget, not the data.
const DefaultFrameCount = 150

// minTimelineSpan widens degenerate spans (all events at nearly the same
// instant) so the timeline never collapses to a single repeated frame.
const minTimelineSpan = time.Minute

// Timeline is an ordered, fixed-length sequence of timestamps spanning the
// animation's effective duration. Bucket-based modes additionally carry a
// frame→events index.
type Timeline struct {
	Frames  []time.Time
	buckets [][]int // per-frame event indices; nil for non-bucket modes
}

// evenFrames generates exactly n evenly spaced timestamps across
// [minTime, maxTime], widening the span to the floor first. The first
// frame is exactly minTime and the last exactly maxTime.
func evenFrames(minTime, maxTime time.Time, n int) []time.Time {
	if n < 2 {
		n = 2
	}
	span := maxTime.Sub(minTime)
	if span < minTimelineSpan {
		span = minTimelineSpan
		maxTime = minTime.Add(span)
	}

	// Split the division so span*i never materializes: multi-decade spans
	// times 149 overflow int64. The remainder term redistributes the
	// truncated nanoseconds and its product is at most (n-2)*(n-1).
	step := span / time.Duration(n-1)
	rem := span % time.Duration(n-1)

	frames := make([]time.Time, n)
	for i := 0; i < n; i++ {
		offset := step*time.Duration(i) + rem*time.Duration(i)/time.Duration(n-1)
		frames[i] = minTime.Add(offset)
	}
	frames[n-1] = maxTime
	return frames
}

// withBuckets attaches a frame→events index mapping each event to its
// nearest frame. Rounding to nearest (ties to the earlier frame) means the
// first and last frames each absorb the half-step beyond their nominal
// position, so no event inside the span is ever dropped at the boundaries.
func (tl *Timeline) withBuckets(seq *sequence) *Timeline {
	tl.buckets = make([][]int, len(tl.Frames))
	for i := range seq.times {
		f := tl.Nearest(seq.times[i])
		tl.buckets[f] = append(tl.buckets[f], i)
	}
	return tl
}

// Empty reports a timeline with no frames; the session must fail to start.
func (tl *Timeline) Empty() bool {
	return tl == nil || len(tl.Frames) == 0
}

// Start and End return the timeline's bounds.
func (tl *Timeline) Start() time.Time { return tl.Frames[0] }
func (tl *Timeline) End() time.Time   { return tl.Frames[len(tl.Frames)-1] }

// Clamp forces ts into the timeline's range, so requests before the start
// resolve to the first frame's state and requests after the end to the
// fully resolved final state.
func (tl *Timeline) Clamp(ts time.Time) time.Time {
	if ts.Before(tl.Start()) {
		return tl.Start()
	}
	if ts.After(tl.End()) {
		return tl.End()
	}
	return ts
}

// Nearest returns the index of the frame closest to ts, ties going to the
// earlier frame.
func (tl *Timeline) Nearest(ts time.Time) int {
	frames := tl.Frames
	n := len(frames)
	// First frame at or after ts.
	i := sort.Search(n, func(i int) bool { return !frames[i].Before(ts) })
	if i == 0 {
		return 0
	}
	if i == n {
		return n - 1
	}
	before := ts.Sub(frames[i-1])
	after := frames[i].Sub(ts)
	if before <= after {
		return i - 1
	}
	return i
}

// frameStep is the even spacing between consecutive frames.
func (tl *Timeline) frameStep() time.Duration {
	if len(tl.Frames) < 2 {
		return 0
	}
	return tl.Frames[1].Sub(tl.Frames[0])
}

// Bucket returns the event indices mapped to a frame. Nil for non-bucket
// timelines or out-of-range frames.
func (tl *Timeline) Bucket(frame int) []int {
	if tl.buckets == nil || frame < 0 || frame >= len(tl.buckets) {
		return nil
	}
	return tl.buckets[frame]
}
