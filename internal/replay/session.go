package replay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-replay/internal/domain"
	"github.com/couchcryptid/hazard-replay/internal/observability"
	"github.com/couchcryptid/hazard-replay/internal/scrub"
)

// epochGuard filters very-early bootstrap ticks some scrub widget
// implementations emit while initializing; no hazard data predates it.
var epochGuard = time.Unix(86400, 0)

// framingThreshold is the minimum viewport interpolation progress delta
// between applied reframes; smaller deltas are suppressed to avoid jitter
// from redundant near-identical updates.
const framingThreshold = 0.02

// framingFlight is how long the initial fly-to takes.
const framingFlight = 1500 * time.Millisecond

// Engine owns replay sessions: at most one is active at a time, and
// starting a new one forces the previous session through its full stop
// sequence first. Collaborators are injected at construction; the engine
// holds no ambient global state.
type Engine struct {
	renderer  Renderer
	scrubber  Scrubber
	scheduler FrameScheduler
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	frameCount int

	mu     sync.Mutex
	active *session
}

// session is one active replay run's full runtime state.
type session struct {
	cfg  SessionConfig
	comp computor
	seq  *sequence
	tl   *Timeline
	rt   *runtimeState

	listenerID int
	prevScale  string
	cancelLoop func()
	exited     bool
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithFrameCount overrides the timeline length for all sessions.
func WithFrameCount(n int) Option {
	return func(e *Engine) {
		if n >= 2 {
			e.frameCount = n
		}
	}
}

// NewEngine wires the animation engine to its collaborators.
func NewEngine(renderer Renderer, scrubber Scrubber, scheduler FrameScheduler,
	clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics,
	opts ...Option) *Engine {

	e := &Engine{
		renderer:   renderer,
		scrubber:   scrubber,
		scheduler:  scheduler,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		frameCount: DefaultFrameCount,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins a replay session. It returns false, leaving no partial
// state behind, when the configuration is invalid, the event set yields
// no usable timeline, or a required mode-specific event (radial source,
// spiderweb primary) is missing. A session already active is fully stopped
// before the new one takes over.
func (e *Engine) Start(cfg SessionConfig) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := cfg.normalized()
	if err != nil {
		e.logger.Error("session rejected", "error", err)
		e.metrics.StartFailures.Inc()
		return false
	}

	// Everything below until registration is pure computation: a failure
	// here leaves the previously active session (if any) untouched.
	seq, skipped := newSequence(cfg.Events, cfg.TimeField, e.logger)
	if skipped > 0 {
		e.metrics.EventsSkipped.Add(float64(skipped))
	}
	if seq.len() == 0 {
		e.logger.Error("session rejected: no events with parseable times", "session", cfg.ID)
		e.metrics.StartFailures.Inc()
		return false
	}

	comp, err := newComputor(cfg.Mode, e.frameCount)
	if err != nil {
		e.logger.Error("session rejected", "session", cfg.ID, "error", err)
		e.metrics.StartFailures.Inc()
		return false
	}
	tl, err := comp.buildTimeline(seq, &cfg)
	if err != nil || tl.Empty() {
		e.logger.Error("session rejected: timeline build failed",
			"session", cfg.ID, "mode", cfg.Mode, "error", err)
		e.metrics.StartFailures.Inc()
		return false
	}

	e.stopLocked()

	s := &session{
		cfg:  cfg,
		comp: comp,
		seq:  seq,
		tl:   tl,
		rt:   newRuntimeState(),
	}

	prev, err := e.scrubber.AddScale(scrub.Scale{
		ID:     cfg.ID,
		Label:  cfg.Label,
		Frames: tl.Frames,
	})
	if err != nil {
		e.logger.Error("session rejected: scrub scale registration failed",
			"session", cfg.ID, "error", err)
		e.metrics.StartFailures.Inc()
		return false
	}
	s.prevScale = prev

	// Seed frame 0 on the widget before registering the listener, so the
	// seed's own change notification cannot re-enter the engine.
	e.scrubber.SetTime(tl.Start(), cfg.ID)
	s.listenerID = e.scrubber.AddChangeListener(e.onScrubChange)
	e.active = s

	// Mode setup must precede the first state push: the spiderweb fly-to
	// establishes the framing state the push's viewport update reads.
	e.setupModeLocked(s)

	e.applyTimeLocked(tl.Start())

	e.metrics.SessionsStarted.WithLabelValues(string(cfg.Mode)).Inc()
	e.metrics.ActiveSessions.Set(1)
	e.logger.Info("session started",
		"session", cfg.ID, "mode", cfg.Mode,
		"events", seq.len(), "frames", len(tl.Frames),
		"span_start", tl.Start(), "span_end", tl.End())
	return true
}

// setupModeLocked runs mode-specific post-start work: the spiderweb
// fly-to and its framing state, and the sub-frame loop for the modes that
// interpolate between scrub ticks.
func (e *Engine) setupModeLocked(s *session) {
	switch s.cfg.Mode {
	case ModeSpiderweb:
		web := s.comp.(*spiderwebMode)
		s.rt.framingInitial, s.rt.framingFinal = web.framingBounds(s.seq)
		e.safeCollaborator("frame to region", func() error {
			return e.renderer.FrameToRegion(s.rt.framingInitial, FrameOptions{
				Padding:  40,
				Duration: framingFlight,
			})
		})
		s.rt.framingApplied = 0
		s.cancelLoop = e.scheduler.Schedule(e.onFrameTick)
	case ModeRadial:
		s.cancelLoop = e.scheduler.Schedule(e.onFrameTick)
	}
}

// SetTime scrubs the session to a timestamp. Requests outside the
// timeline clamp to its first or last frame's state. Safe to call when no
// session is active.
func (e *Engine) SetTime(ts time.Time) {
	e.mu.Lock()
	if e.active == nil {
		e.mu.Unlock()
		return
	}
	id := e.active.cfg.ID
	e.applyTimeLocked(ts)
	e.mu.Unlock()

	// Keep the shared widget's position in step so resuming autoplay
	// continues from here. The widget notifies listeners synchronously,
	// so this happens outside the engine lock; onScrubChange drops the
	// echo by source.
	e.scrubber.SetTime(ts, id)
}

// applyTimeLocked recomputes and pushes the visual state for ts, then
// resynchronizes the sub-frame anchor and, for spiderweb sessions, the
// viewport framing.
func (e *Engine) applyTimeLocked(ts time.Time) {
	s := e.active
	ts = s.tl.Clamp(ts)
	s.rt.frame = s.tl.Nearest(ts)
	s.rt.applied = ts
	s.rt.smoothTime = ts
	s.rt.anchor = newAnchor(e.clock.Now(), ts, s.tl.frameStep(),
		e.scrubber.StepsPerFrame(), e.scrubber.TickInterval(), e.scrubber.IsPlaying())

	start := e.clock.Now()
	state := s.comp.computeState(frameContext{
		ts:  ts,
		seq: s.seq,
		cfg: &s.cfg,
		tl:  s.tl,
		rt:  s.rt,
	})
	e.metrics.ComputeDuration.Observe(e.clock.Since(start).Seconds())
	e.metrics.FramesComputed.Inc()

	e.pushState(state, s)
	e.applyFramingLocked(s, ts)
}

func (e *Engine) pushState(state VisualState, s *session) {
	e.safeCollaborator("update visual state", func() error {
		return e.renderer.UpdateVisualState(state, RenderOptions{
			Renderer: s.cfg.RendererName,
			Options:  s.cfg.RendererOptions,
			UseFade:  s.cfg.UseFade,
		})
	})
}

// applyFramingLocked interpolates the spiderweb viewport from the tight
// initial region out to the wide final one as overall time progress
// advances, suppressing updates whose progress delta is below the jitter
// threshold.
func (e *Engine) applyFramingLocked(s *session, ts time.Time) {
	if s.cfg.Mode != ModeSpiderweb {
		return
	}
	progress := domain.Progress(s.tl.Start(), s.tl.End(), ts)
	if abs(progress-s.rt.framingApplied) <= framingThreshold {
		return
	}
	bounds := domain.InterpolateBounds(s.rt.framingInitial, s.rt.framingFinal, progress)
	e.safeCollaborator("frame to region", func() error {
		return e.renderer.FrameToRegion(bounds, FrameOptions{Padding: 40})
	})
	s.rt.framingApplied = progress
}

// onScrubChange receives (timestamp, source) notifications from the scrub
// widget. Notifications echoing the engine's own seeds and very-early
// bootstrap ticks are ignored.
func (e *Engine) onScrubChange(ts time.Time, source string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.active
	if s == nil || source == s.cfg.ID || ts.Before(epochGuard) {
		return
	}
	e.applyTimeLocked(ts)
}

// Stop tears the active session down: the sub-frame loop is cancelled,
// rendered layers are cleared, the scrub scale is unregistered with the
// previous scale restored, and the exit callback runs exactly once.
// Calling Stop with no active session is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	s := e.active
	if s == nil {
		return
	}

	// Cancel the loop before touching render state so a stale tick can
	// never write to a torn-down surface.
	if s.cancelLoop != nil {
		s.cancelLoop()
		s.cancelLoop = nil
	}

	e.safeCollaborator("clear", e.renderer.Clear)
	e.scrubber.RemoveChangeListener(s.listenerID)
	e.scrubber.RemoveScale(s.cfg.ID, s.prevScale)

	e.active = nil
	e.metrics.ActiveSessions.Set(0)
	e.metrics.SessionsStopped.Inc()

	// The exit callback runs after internal cleanup; a panicking callback
	// must not leave the engine half-stopped.
	if s.cfg.OnExit != nil && !s.exited {
		s.exited = true
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("session exit callback panicked",
						"session", s.cfg.ID, "panic", r)
				}
			}()
			s.cfg.OnExit()
		}()
	}
	e.logger.Info("session stopped", "session", s.cfg.ID)
}

// IsActive reports whether a session is running.
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

// ActiveSessionID returns the running session's ID, or empty.
func (e *Engine) ActiveSessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return ""
	}
	return e.active.cfg.ID
}

// safeCollaborator isolates rendering collaborator calls: an error or
// panic there is logged and contained so it can never abort the engine's
// own sequencing.
func (e *Engine) safeCollaborator(op string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("renderer panicked", "op", op, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		e.logger.Warn("renderer call failed", "op", op, "error", err)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
