package replay

import (
	"fmt"
	"time"

	"github.com/couchcryptid/hazard-replay/internal/domain"
)

// Mode selects one of the six animation semantics. The set is closed:
// dispatch happens over this enum, not over open string keys.
type Mode string

const (
	// ModeAccumulate shows every event inside the rolling window,
	// recency-faded. Tornado outbreaks, hail swaths.
	ModeAccumulate Mode = "accumulate"
	// ModeProgressive walks a time-sorted track, trailing faded points
	// behind a distinct current position. Storm tracks.
	ModeProgressive Mode = "progressive"
	// ModePolygon replays discrete area snapshots bucketed to timeline
	// frames. Fire perimeters, flood extents.
	ModePolygon Mode = "polygon"
	// ModeRadial propagates a wave front outward from a source event,
	// revealing secondary events as it reaches them. Tsunamis.
	ModeRadial Mode = "radial"
	// ModeSpiderweb grows connections from a primary event out to its
	// related events. Mainshock and aftershocks.
	ModeSpiderweb Mode = "spiderweb"
	// ModeJourney draws an ordered chain of tracks and the connections
	// between them, with a single traveler marker at the drawing tip.
	ModeJourney Mode = "journey"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeAccumulate, ModeProgressive, ModePolygon, ModeRadial, ModeSpiderweb, ModeJourney:
		return m, nil
	default:
		return "", fmt.Errorf("unrecognized animation mode %q", s)
	}
}

// Granularity names a nominal step size. It sizes the rolling window and
// inactivity threshold only; frame timestamps are always derived from the
// event span, never from the granularity.
type Granularity string

const (
	Granularity5m     Granularity = "5m"
	Granularity30m    Granularity = "30m"
	GranularityHourly Granularity = "hourly"
	Granularity6h     Granularity = "6h"
	GranularityDaily  Granularity = "daily"
	GranularityWeekly Granularity = "weekly"
	GranularityYearly Granularity = "yearly"
)

var granularitySteps = map[Granularity]time.Duration{
	Granularity5m:     5 * time.Minute,
	Granularity30m:    30 * time.Minute,
	GranularityHourly: time.Hour,
	Granularity6h:     6 * time.Hour,
	GranularityDaily:  24 * time.Hour,
	GranularityWeekly: 7 * 24 * time.Hour,
	GranularityYearly: 365 * 24 * time.Hour,
}

// Step returns the nominal step duration, defaulting to daily for unknown
// granularities.
func (g Granularity) Step() time.Duration {
	if d, ok := granularitySteps[g]; ok {
		return d
	}
	return granularitySteps[GranularityDaily]
}

// windowSteps sizes the default rolling window as a multiple of the
// granularity step when the session does not declare a window.
const windowSteps = 8

// defaultPropagationSpeedKmH is the assumed radial travel speed when the
// session does not declare one. 700 km/h is a deep-water tsunami's typical
// speed.
const defaultPropagationSpeedKmH = 700

// SessionConfig describes one replay session. It is immutable for the
// session's lifetime; the engine copies it at Start.
type SessionConfig struct {
	ID              string
	Label           string
	Mode            Mode
	TimeField       string
	Granularity     Granularity
	RendererName    string
	RendererOptions map[string]interface{}
	Window          time.Duration
	EventType       string
	UseFade         bool

	// Optional initial view.
	Center *domain.Geo
	Zoom   float64

	// Mainshock designates the radial source / spiderweb primary. When
	// nil, the event flagged with a "mainshock" property is used.
	Mainshock *domain.Event

	// Events is the full event set the caller supplies. The engine never
	// decides sequence membership.
	Events []domain.Event

	// PropagationSpeedKmH overrides the radial wave speed.
	PropagationSpeedKmH float64

	// OnExit is invoked exactly once per session, after teardown.
	OnExit func()
}

// normalized fills defaults and validates the statically checkable parts
// of a configuration. Event-dependent validation (parseable times, radial
// source presence) happens during timeline building.
func (c SessionConfig) normalized() (SessionConfig, error) {
	if c.ID == "" {
		return c, fmt.Errorf("session ID is required")
	}
	if len(c.Events) == 0 {
		return c, fmt.Errorf("session %q has no events", c.ID)
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return c, err
	}
	if c.TimeField == "" {
		c.TimeField = "time"
	}
	if c.Granularity == "" {
		c.Granularity = GranularityDaily
	}
	if c.Window <= 0 {
		c.Window = windowSteps * c.Granularity.Step()
	}
	if c.PropagationSpeedKmH <= 0 {
		c.PropagationSpeedKmH = defaultPropagationSpeedKmH
	}
	return c, nil
}
