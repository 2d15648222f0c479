// Package scrub implements the shared time-scrub widget: a registry of
// independent timelines ("scales") that multiple visualization consumers
// register with, one of which is active and scrubbable at a time. The
// widget owns playback (autoplay at a configurable speed preset) and
// fan-out of change notifications; consumers own what a timestamp means.
package scrub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// SourceWidget identifies notifications originating from the widget itself
// (user drag or autoplay) as opposed to programmatic seeds, whose source is
// the registering consumer's ID. Consumers filter on source to avoid
// feedback loops.
const SourceWidget = "scrub-widget"

// tickInterval is the autoplay cadence. Each tick advances the active
// scale by StepsPerFrame frames.
const tickInterval = 250 * time.Millisecond

// speedPresets maps preset names to frames advanced per autoplay tick.
var speedPresets = map[string]int{
	"slow":   1,
	"normal": 3,
	"fast":   10,
}

// Scale is one registered timeline the widget can display and scrub.
type Scale struct {
	ID     string
	Label  string
	Frames []time.Time
}

// Listener receives (timestamp, source) change notifications.
type Listener func(ts time.Time, source string)

type scaleState struct {
	Scale
	index int
}

// Widget is the concrete scrub widget. All methods are safe for concurrent
// use; listeners are invoked without the widget lock held.
type Widget struct {
	clock  clockwork.Clock
	logger *slog.Logger

	mu            sync.Mutex
	scales        map[string]*scaleState
	order         []string
	active        string
	listeners     map[int]Listener
	nextListener  int
	playing       bool
	stepsPerFrame int
}

// NewWidget creates a scrub widget with no registered scales.
func NewWidget(clock clockwork.Clock, logger *slog.Logger) *Widget {
	return &Widget{
		clock:         clock,
		logger:        logger,
		scales:        make(map[string]*scaleState),
		listeners:     make(map[int]Listener),
		stepsPerFrame: speedPresets["normal"],
	}
}

// AddScale registers a timeline and makes it the active scale. The
// previously active scale ID is returned so the caller can restore it when
// unregistering; empty means the widget was hidden before.
func (w *Widget) AddScale(s Scale) (prevActive string, err error) {
	if s.ID == "" {
		return "", fmt.Errorf("scale ID is required")
	}
	if len(s.Frames) == 0 {
		return "", fmt.Errorf("scale %q has no frames", s.ID)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.scales[s.ID]; exists {
		return "", fmt.Errorf("scale %q already registered", s.ID)
	}

	prev := w.active
	w.scales[s.ID] = &scaleState{Scale: s}
	w.order = append(w.order, s.ID)
	w.active = s.ID
	w.logger.Debug("scale added", "scale", s.ID, "frames", len(s.Frames), "prev_active", prev)
	return prev, nil
}

// RemoveScale unregisters a timeline. If it was active, restoreID becomes
// active instead; when restoreID is gone (or empty) the most recently
// added remaining scale takes over, and with no scales left the widget
// hides itself and pauses.
func (w *Widget) RemoveScale(id, restoreID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.scales[id]; !ok {
		return
	}
	delete(w.scales, id)
	for i, o := range w.order {
		if o == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}

	if w.active != id {
		return
	}
	switch {
	case restoreID != "" && w.scales[restoreID] != nil:
		w.active = restoreID
	case len(w.order) > 0:
		w.active = w.order[len(w.order)-1]
	default:
		w.active = ""
		w.playing = false
	}
	w.logger.Debug("scale removed", "scale", id, "active", w.active)
}

// SetActiveScale switches the displayed scale. Returns false for unknown IDs.
func (w *Widget) SetActiveScale(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.scales[id]; !ok {
		return false
	}
	w.active = id
	return true
}

// ActiveScaleID returns the active scale's ID, or empty when hidden.
func (w *Widget) ActiveScaleID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// AddChangeListener registers fn and returns a handle for removal.
func (w *Widget) AddChangeListener(fn Listener) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextListener
	w.nextListener++
	w.listeners[id] = fn
	return id
}

// RemoveChangeListener unregisters a listener handle. Unknown handles are
// a no-op.
func (w *Widget) RemoveChangeListener(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.listeners, id)
}

// SetTime moves the active scale to the frame nearest ts and notifies all
// listeners with the given source. Consumers seeding their own scale pass
// their session ID as source and ignore the echo.
func (w *Widget) SetTime(ts time.Time, source string) {
	w.mu.Lock()
	s := w.scales[w.active]
	if s == nil {
		w.mu.Unlock()
		return
	}
	s.index = nearestFrame(s.Frames, ts)
	snapped := s.Frames[s.index]
	fns := w.snapshotListeners()
	w.mu.Unlock()

	for _, fn := range fns {
		fn(snapped, source)
	}
}

// CurrentTime returns the active scale's current frame timestamp.
func (w *Widget) CurrentTime() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.scales[w.active]
	if s == nil {
		return time.Time{}, false
	}
	return s.Frames[s.index], true
}

// Play starts autoplay on the active scale.
func (w *Widget) Play() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active != "" {
		w.playing = true
	}
}

// Pause stops autoplay.
func (w *Widget) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.playing = false
}

// IsPlaying reports whether autoplay is advancing the active scale.
func (w *Widget) IsPlaying() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.playing
}

// StepsPerFrame returns how many frames each autoplay tick advances.
func (w *Widget) StepsPerFrame() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stepsPerFrame
}

// TickInterval returns the autoplay tick cadence. Together with
// StepsPerFrame it defines the wall-clock-to-frames playback rate.
func (w *Widget) TickInterval() time.Duration {
	return tickInterval
}

// SetSpeedPreset selects a named playback speed.
func (w *Widget) SetSpeedPreset(name string) error {
	steps, ok := speedPresets[name]
	if !ok {
		return fmt.Errorf("unknown speed preset %q", name)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stepsPerFrame = steps
	return nil
}

// Run drives autoplay until the context is cancelled. Each tick advances
// the active scale by StepsPerFrame frames and notifies listeners with
// SourceWidget; reaching the final frame pauses playback there.
func (w *Widget) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			w.advance()
		}
	}
}

func (w *Widget) advance() {
	w.mu.Lock()
	s := w.scales[w.active]
	if s == nil || !w.playing {
		w.mu.Unlock()
		return
	}

	s.index += w.stepsPerFrame
	if s.index >= len(s.Frames) {
		s.index = len(s.Frames) - 1
		w.playing = false
	}
	ts := s.Frames[s.index]
	fns := w.snapshotListeners()
	w.mu.Unlock()

	for _, fn := range fns {
		fn(ts, SourceWidget)
	}
}

// snapshotListeners copies the listener set for invocation outside the
// lock. Must be called with mu held.
func (w *Widget) snapshotListeners() []Listener {
	fns := make([]Listener, 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	return fns
}

// nearestFrame finds the index of the frame closest to ts, with ties going
// to the earlier frame. Frames are strictly increasing.
func nearestFrame(frames []time.Time, ts time.Time) int {
	if len(frames) == 0 {
		return 0
	}
	best := 0
	bestDelta := absDuration(ts.Sub(frames[0]))
	for i := 1; i < len(frames); i++ {
		d := absDuration(ts.Sub(frames[i]))
		if d < bestDelta {
			best = i
			bestDelta = d
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
