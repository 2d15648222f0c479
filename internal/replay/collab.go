package replay

import (
	"time"

	"github.com/couchcryptid/hazard-replay/internal/domain"
	"github.com/couchcryptid/hazard-replay/internal/scrub"
)

// Renderer is the rendering collaborator: it owns the actual drawing
// surface and must accept updates at least as fast as the per-frame
// scheduling interval. The engine only emits declarative geometry and
// attributes.
type Renderer interface {
	// UpdateVisualState pushes a new set of features to display,
	// replacing the previous session state.
	UpdateVisualState(state VisualState, opts RenderOptions) error

	// Clear removes all engine-managed layers and sources.
	Clear() error

	// FrameToRegion animates or snaps the viewport to a region.
	FrameToRegion(b domain.Bounds, opts FrameOptions) error
}

// FrameScheduler is the host's per-frame scheduling primitive: fn is
// invoked once per render frame with the current wall-clock time until the
// returned cancel function is called. Cancel must be safe to call more
// than once.
type FrameScheduler interface {
	Schedule(fn func(now time.Time)) (cancel func())
}

// Scrubber is the external time-scrub widget the engine shares with other
// visualization consumers. See the scrub package for the concrete widget.
type Scrubber interface {
	AddScale(s scrub.Scale) (prevActive string, err error)
	RemoveScale(id, restoreID string)
	SetTime(ts time.Time, source string)
	AddChangeListener(fn scrub.Listener) int
	RemoveChangeListener(id int)
	IsPlaying() bool
	StepsPerFrame() int
	TickInterval() time.Duration
}

// RenderOptions forwards the session's renderer selection to the
// collaborator alongside each state update.
type RenderOptions struct {
	Renderer string                 `json:"renderer,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
	UseFade  bool                   `json:"use_fade,omitempty"`
}

// FrameOptions controls a viewport move.
type FrameOptions struct {
	Padding  int           `json:"padding,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	MinZoom  float64       `json:"min_zoom,omitempty"`
	MaxZoom  float64       `json:"max_zoom,omitempty"`
}
