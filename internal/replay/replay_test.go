package replay

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/hazard-replay/internal/domain"
)

var t0 = time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pointEvent builds a point event at (lat, lon) occurring at ts.
func pointEvent(id string, eventType string, lat, lon float64, ts time.Time, extra map[string]interface{}) domain.Event {
	props := map[string]interface{}{
		"event_type": eventType,
		"time":       ts.Format(time.RFC3339),
	}
	for k, v := range extra {
		props[k] = v
	}
	return domain.Event{
		ID:         id,
		EventType:  eventType,
		Geometry:   geojson.NewPointGeometry([]float64{lon, lat}),
		Properties: props,
	}
}

// trackEvent builds a line event whose path is the given [lon, lat] coords.
func trackEvent(id string, coords [][]float64, ts time.Time, extra map[string]interface{}) domain.Event {
	props := map[string]interface{}{
		"event_type": "storm",
		"time":       ts.Format(time.RFC3339),
	}
	for k, v := range extra {
		props[k] = v
	}
	return domain.Event{
		ID:         id,
		EventType:  "storm",
		Geometry:   geojson.NewLineStringGeometry(coords),
		Properties: props,
	}
}

// polygonEvent builds a square polygon event centered near (lat, lon).
func polygonEvent(id string, lat, lon, halfDeg float64, ts time.Time) domain.Event {
	ring := [][][]float64{{
		{lon - halfDeg, lat - halfDeg},
		{lon + halfDeg, lat - halfDeg},
		{lon + halfDeg, lat + halfDeg},
		{lon - halfDeg, lat + halfDeg},
		{lon - halfDeg, lat - halfDeg},
	}}
	return domain.Event{
		ID:        id,
		EventType: "wildfire",
		Geometry:  geojson.NewPolygonGeometry(ring),
		Properties: map[string]interface{}{
			"event_type": "wildfire",
			"time":       ts.Format(time.RFC3339),
		},
	}
}

// spreadEvents builds n point events evenly spread over span.
func spreadEvents(n int, span time.Duration) []domain.Event {
	events := make([]domain.Event, n)
	for i := range events {
		ts := t0.Add(time.Duration(int64(span) * int64(i) / int64(n-1)))
		events[i] = pointEvent(fmt.Sprintf("evt-%d", i), "tornado", 35+float64(i)*0.1, -97-float64(i)*0.1, ts, nil)
	}
	return events
}

// featuresByRole indexes a state's features by their role property.
func featuresByRole(state VisualState) map[string][]*geojson.Feature {
	out := make(map[string][]*geojson.Feature)
	for _, f := range state.Features.Features {
		role, _ := f.Properties["role"].(string)
		out[role] = append(out[role], f)
	}
	return out
}

// modeHarness drives a single computor directly, bypassing the engine, so
// mode tests can probe exact timestamps without widget snapping.
type modeHarness struct {
	comp computor
	seq  *sequence
	cfg  SessionConfig
	tl   *Timeline
	rt   *runtimeState
}

func newModeHarness(t *testing.T, cfg SessionConfig) *modeHarness {
	t.Helper()
	cfg, err := cfg.normalized()
	if err != nil {
		t.Fatalf("config rejected: %v", err)
	}
	seq, _ := newSequence(cfg.Events, cfg.TimeField, testLogger())
	comp, err := newComputor(cfg.Mode, DefaultFrameCount)
	if err != nil {
		t.Fatalf("computor: %v", err)
	}
	tl, err := comp.buildTimeline(seq, &cfg)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	return &modeHarness{comp: comp, seq: seq, cfg: cfg, tl: tl, rt: newRuntimeState()}
}

// at computes the visual state for a raw timestamp, clamped the way the
// engine clamps.
func (h *modeHarness) at(ts time.Time) VisualState {
	ts = h.tl.Clamp(ts)
	h.rt.frame = h.tl.Nearest(ts)
	h.rt.smoothTime = ts
	return h.comp.computeState(frameContext{
		ts:  ts,
		seq: h.seq,
		cfg: &h.cfg,
		tl:  h.tl,
		rt:  h.rt,
	})
}

// fakeRenderer records collaborator calls. Optional hooks inject failures.
type fakeRenderer struct {
	mu      sync.Mutex
	states  []VisualState
	frames  []domain.Bounds
	cleared int

	failUpdate bool
	panicClear bool
}

func (r *fakeRenderer) UpdateVisualState(state VisualState, _ RenderOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate {
		return fmt.Errorf("surface gone")
	}
	r.states = append(r.states, state)
	return nil
}

func (r *fakeRenderer) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panicClear {
		panic("clear after teardown")
	}
	r.cleared++
	return nil
}

func (r *fakeRenderer) FrameToRegion(b domain.Bounds, _ FrameOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, b)
	return nil
}

func (r *fakeRenderer) lastState(t *testing.T) VisualState {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		t.Fatal("no visual state pushed")
	}
	return r.states[len(r.states)-1]
}

func (r *fakeRenderer) stateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *fakeRenderer) clearCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cleared
}

func (r *fakeRenderer) frameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// fakeScheduler hands frame ticks to the registered callback on demand.
type fakeScheduler struct {
	mu        sync.Mutex
	fn        func(now time.Time)
	cancelled int
}

func (s *fakeScheduler) Schedule(fn func(now time.Time)) (cancel func()) {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cancelled++
		s.fn = nil
	}
}

func (s *fakeScheduler) tick(now time.Time) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn(now)
	}
}

func (s *fakeScheduler) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn != nil
}
