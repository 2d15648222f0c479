package replay

import (
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/hazard-replay/internal/domain"
)

// Feature roles, carried in each emitted feature's "role" property so the
// renderer can style layers without knowing mode internals.
const (
	RoleEvent      = "event"
	RoleTrail      = "trail"
	RoleCurrent    = "current"
	RoleTrack      = "track"
	RoleSource     = "source"
	RoleSecondary  = "secondary"
	RoleConnection = "connection"
	RolePrimary    = "primary"
	RolePulse      = "pulse"
	RoleSegStart   = "segment-start"
	RoleSegEnd     = "segment-end"
	RoleTraveler   = "traveler"
)

// VisualState is the declarative per-frame output of a mode computor: the
// features visible at one timestamp plus mode-level scalars the renderer
// needs (currently only the radial wave front).
type VisualState struct {
	Timestamp    time.Time                  `json:"timestamp"`
	Frame        int                        `json:"frame"`
	Features     *geojson.FeatureCollection `json:"features"`
	WaveCenter   *domain.Geo                `json:"wave_center,omitempty"`
	WaveRadiusKm float64                    `json:"wave_radius_km,omitempty"`
}

func newVisualState(ts time.Time, frame int) VisualState {
	return VisualState{
		Timestamp: ts,
		Frame:     frame,
		Features:  geojson.NewFeatureCollection(),
	}
}

func (s *VisualState) add(f *geojson.Feature) {
	s.Features.AddFeature(f)
}

// Len returns the number of emitted features.
func (s VisualState) Len() int {
	if s.Features == nil {
		return 0
	}
	return len(s.Features.Features)
}

// eventFeature wraps an event's geometry in a fresh feature carrying the
// event's own properties plus the engine annotations. The event's property
// bag is never mutated; annotations go into a copy.
func eventFeature(e domain.Event, role string, annotations map[string]interface{}) *geojson.Feature {
	f := geojson.NewFeature(e.Geometry)
	f.ID = e.ID
	f.Properties = make(map[string]interface{}, len(e.Properties)+len(annotations)+2)
	for k, v := range e.Properties {
		f.Properties[k] = v
	}
	f.Properties["role"] = role
	f.Properties["event_id"] = e.ID
	for k, v := range annotations {
		f.Properties[k] = v
	}
	return f
}

// lineFeature builds a synthetic connecting line with the given
// [lon, lat] coordinates.
func lineFeature(coords [][]float64, role string, props map[string]interface{}) *geojson.Feature {
	f := geojson.NewLineStringFeature(coords)
	f.Properties = make(map[string]interface{}, len(props)+1)
	f.Properties["role"] = role
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}

// pointFeature builds a synthetic marker at p.
func pointFeature(p domain.Geo, role string, props map[string]interface{}) *geojson.Feature {
	f := geojson.NewPointFeature([]float64{p.Lon, p.Lat})
	f.Properties = make(map[string]interface{}, len(props)+1)
	f.Properties["role"] = role
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}
