package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	geojson "github.com/paulmach/go.geojson"
)

// Continuous event types report repeatedly over their lifetime, unlike
// point-instant observations (a tornado touchdown, a hail report) that
// never "end" and simply age out of the rolling window.
var continuousTypes = map[string]bool{
	"storm":    true,
	"wildfire": true,
	"flood":    true,
}

// updateIntervals holds the expected interval between data updates for
// continuous types where the feed cadence is known. Continuous types not
// listed here fall back to the session granularity.
var updateIntervals = map[string]time.Duration{
	"storm":    time.Hour,
	"wildfire": 12 * time.Hour,
}

// Event is one geospatial hazard observation: a geometry plus an open
// property bag. Events are caller-owned and treated as immutable for the
// duration of a replay session. The time field name is configurable per
// session, so timestamps are resolved lazily via Time.
type Event struct {
	ID         string                 `json:"id"`
	EventType  string                 `json:"type"`
	Geometry   *geojson.Geometry      `json:"geometry"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// FromFeature converts a GeoJSON feature into an Event. The feature must
// carry a geometry; the property bag is taken as-is. A missing ID is derived
// deterministically from the geometry and properties so that replayed
// payloads map to the same event identity.
func FromFeature(f *geojson.Feature) (Event, error) {
	if f == nil || f.Geometry == nil {
		return Event{}, fmt.Errorf("feature has no geometry")
	}

	eventType, _ := f.Properties["event_type"].(string)

	id := ""
	switch v := f.ID.(type) {
	case string:
		id = v
	case float64:
		id = fmt.Sprintf("%g", v)
	}
	if id == "" {
		id = deriveID(eventType, f)
	}

	return Event{
		ID:         id,
		EventType:  eventType,
		Geometry:   f.Geometry,
		Properties: f.Properties,
	}, nil
}

// deriveID produces a deterministic ID from the feature's key fields, so
// reprocessing the same payload yields the same event identity.
func deriveID(eventType string, f *geojson.Feature) string {
	lat, lon := 0.0, 0.0
	if pt, ok := representativePoint(f.Geometry); ok {
		lat, lon = pt.Lat, pt.Lon
	}
	ts, _ := f.Properties["time"]
	input := fmt.Sprintf("%s|%.4f|%.4f|%v", eventType, lat, lon, ts)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if eventType == "" {
		return short
	}
	return eventType + "-" + short
}

// Time resolves the event's timestamp from the named property. Accepted
// encodings: RFC 3339 string, Unix milliseconds (number), Unix seconds
// (number below the millisecond epoch range). Returns false when the field
// is absent or unparseable; callers skip such events rather than failing
// the whole session.
func (e Event) Time(field string) (time.Time, bool) {
	raw, ok := e.Properties[field]
	if !ok {
		return time.Time{}, false
	}

	switch v := raw.(type) {
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case float64:
		return numericTime(v)
	case int64:
		return numericTime(float64(v))
	case int:
		return numericTime(float64(v))
	case time.Time:
		return v, true
	default:
		return time.Time{}, false
	}
}

// numericTime interprets a numeric timestamp. Values at or above 1e12 are
// Unix milliseconds (any date past 2001 in ms); smaller positive values are
// Unix seconds.
func numericTime(v float64) (time.Time, bool) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, false
	}
	if v >= 1e12 {
		return time.UnixMilli(int64(v)).UTC(), true
	}
	return time.Unix(int64(v), 0).UTC(), true
}

// Float reads a numeric property, returning false when absent or non-numeric.
func (e Event) Float(field string) (float64, bool) {
	raw, ok := e.Properties[field]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Bool reads a boolean property, defaulting to false.
func (e Event) Bool(field string) bool {
	v, _ := e.Properties[field].(bool)
	return v
}

// Point returns the event's representative coordinate: the point itself,
// the first vertex of a line, or the centroid of a polygon's outer ring.
// Returns false for events with no usable coordinates.
func (e Event) Point() (Geo, bool) {
	return representativePoint(e.Geometry)
}

// Path returns the event's coordinate path as [lon, lat] pairs: the line
// itself for line geometries, or a single-element path for points.
func (e Event) Path() [][]float64 {
	if e.Geometry == nil {
		return nil
	}
	switch {
	case e.Geometry.IsLineString():
		return e.Geometry.LineString
	case e.Geometry.IsPoint():
		return [][]float64{e.Geometry.Point}
	default:
		return nil
	}
}

func representativePoint(g *geojson.Geometry) (Geo, bool) {
	if g == nil {
		return Geo{}, false
	}
	switch {
	case g.IsPoint():
		if len(g.Point) < 2 {
			return Geo{}, false
		}
		return Geo{Lat: g.Point[1], Lon: g.Point[0]}, true
	case g.IsLineString():
		if len(g.LineString) == 0 || len(g.LineString[0]) < 2 {
			return Geo{}, false
		}
		return Geo{Lat: g.LineString[0][1], Lon: g.LineString[0][0]}, true
	case g.IsPolygon():
		return ringCentroid(g.Polygon)
	case g.IsMultiPolygon():
		if len(g.MultiPolygon) == 0 {
			return Geo{}, false
		}
		return ringCentroid(g.MultiPolygon[0])
	default:
		return Geo{}, false
	}
}

// ringCentroid averages the outer ring's vertices. Good enough for framing
// and wave-distance math; exact area-weighted centroids are not needed here.
func ringCentroid(rings [][][]float64) (Geo, bool) {
	if len(rings) == 0 || len(rings[0]) == 0 {
		return Geo{}, false
	}
	outer := rings[0]
	var lat, lon float64
	n := 0
	for _, c := range outer {
		if len(c) < 2 {
			continue
		}
		lon += c[0]
		lat += c[1]
		n++
	}
	if n == 0 {
		return Geo{}, false
	}
	return Geo{Lat: lat / float64(n), Lon: lon / float64(n)}, true
}

// UpdateInterval returns the expected interval between data updates for a
// continuous event type, or false when no interval is known.
func UpdateInterval(eventType string) (time.Duration, bool) {
	d, ok := updateIntervals[eventType]
	return d, ok
}

// IsContinuousType reports whether an event type reports repeatedly over
// its lifetime (and can therefore go inactive) rather than being a single
// instant observation.
func IsContinuousType(eventType string) bool {
	return continuousTypes[eventType]
}
