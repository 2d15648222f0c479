// Package replay is the temporal event animation engine: it turns an
// unordered set of timestamped geospatial hazard events into a
// deterministic, scrubbable sequence of per-frame visual states.
//
// # Shape
//
// A session is one run of the engine over one event sequence in one of
// six animation modes (accumulate, progressive, polygon, radial,
// spiderweb, journey). Starting a session builds a fixed-length timeline
// of 150 evenly spaced frames across the events' effective span and
// registers it as a scale on the shared time-scrub widget. As the widget
// advances, by user drag or autoplay, the engine recomputes the mode's
// visual state for the new timestamp and pushes it to the rendering
// collaborator. The engine emits geometry and attributes only; it never
// fetches data, never decides sequence membership, and never draws.
//
// # Two clocks
//
// Discrete scrub ticks drive what is logically visible. A second,
// continuously running per-frame loop drives purely cosmetic
// interpolation between ticks: the radial wave front keeps expanding and
// the spiderweb ring keeps pulsing while the logical frame holds still.
// The mapping from wall clock to simulation time is the pure [anchor]
// value, replaced wholesale at every resynchronization point (seek,
// play-start, pause) rather than accumulated in loop variables.
//
// # Determinism
//
// Mode state computation is pure with respect to the requested timestamp:
// scrubbing to the same instant twice yields the same state, scrubbing
// backwards works, and stop/start with the same configuration reproduces
// the same initial frame. Timestamps outside the timeline clamp to its
// first or last frame's state.
package replay
