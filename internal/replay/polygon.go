package replay

// polygonMode replays discrete area snapshots: each event (a fire
// perimeter, a flood extent polygon) is bucketed to its nearest timeline
// frame at build time, and each frame shows its bucket verbatim. No
// fading, no interpolation between snapshots.
type polygonMode struct {
	frameCount int
}

func (m *polygonMode) buildTimeline(seq *sequence, _ *SessionConfig) (*Timeline, error) {
	tl := &Timeline{Frames: evenFrames(seq.minTime(), seq.maxTime(), m.frameCount)}
	return tl.withBuckets(seq), nil
}

func (m *polygonMode) computeState(fc frameContext) VisualState {
	state := newVisualState(fc.ts, fc.rt.frame)
	for _, i := range fc.tl.Bucket(fc.rt.frame) {
		state.add(eventFeature(fc.seq.events[i], RoleEvent, nil))
	}
	return state
}
