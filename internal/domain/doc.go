// Package domain models geospatial hazard events and the pure math the
// replay engine is built on.
//
// # Events
//
// A hazard event is a GeoJSON feature: a point (earthquake epicenter, hail
// report), a line (storm track, chase route), or a polygon (fire perimeter,
// flood extent), plus an open property bag. Sequences of events arrive from
// the upstream collector already parsed; this package only resolves the
// fields the engine cares about.
//
// Time encoding is deliberately loose because hazard feeds disagree:
//
//	RFC 3339 string:    "2024-04-26T15:10:00Z"
//	Unix milliseconds:  1714144200000 (numbers ≥ 1e12)
//	Unix seconds:       1714144200
//
// The property holding the timestamp is configurable per session (USGS uses
// "time", NOAA exports use "begin_time"). Events whose time field cannot be
// resolved are skipped individually; hazard datasets routinely contain
// partial records, and one bad row must not sink a replay.
//
// # Recency
//
// [Recency] maps an event's age within a rolling window to a weight in
// [0, 1.5]. The first 10% of the window is the "flash period": a brand-new
// event starts at 1.5 and decays to 1.0, modeling the perceptual salience
// of fresh activity. Across the remaining 90% the weight decays linearly to
// zero. Renderers use the weight directly as an opacity/emphasis factor.
//
// Continuous event types (storms, wildfires, floods) additionally carry an
// inactivity notion: no update within 4× the type's expected feed interval
// flags the event as ended, though it remains visible until it leaves the
// window. See [IsEventEnded].
//
// # Geometry
//
// The geo helpers are intentionally approximate: [BoundsFromCenterRadius]
// uses a fixed km-per-degree latitude conversion with a cos(latitude)
// longitude correction, which is accurate to well under a percent at the
// radii framing cares about. [PartialPath] interpolates along cumulative
// great-circle arc length so an animated tip moves at uniform ground speed
// over unevenly sampled tracks. [UnwrapLon] shifts longitudes by ±360° so
// connecting lines take the short way across the antimeridian.
package domain
