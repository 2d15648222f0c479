package domain

import (
	"testing"
	"time"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFeature(t *testing.T) {
	t.Run("point feature", func(t *testing.T) {
		f := geojson.NewPointFeature([]float64{-97.52, 35.47})
		f.Properties["event_type"] = "earthquake"
		f.Properties["time"] = "2024-04-26T15:10:00Z"
		f.Properties["magnitude"] = 5.1

		e, err := FromFeature(f)
		require.NoError(t, err)
		assert.Equal(t, "earthquake", e.EventType)
		assert.NotEmpty(t, e.ID)

		ts, ok := e.Time("time")
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC), ts)

		mag, ok := e.Float("magnitude")
		require.True(t, ok)
		assert.Equal(t, 5.1, mag)
	})

	t.Run("feature ID is preserved", func(t *testing.T) {
		f := geojson.NewPointFeature([]float64{0, 0})
		f.ID = "us7000abcd"
		f.Properties["time"] = "2024-04-26T15:10:00Z"

		e, err := FromFeature(f)
		require.NoError(t, err)
		assert.Equal(t, "us7000abcd", e.ID)
	})

	t.Run("derived ID is deterministic", func(t *testing.T) {
		mk := func() *geojson.Feature {
			f := geojson.NewPointFeature([]float64{-97.52, 35.47})
			f.Properties["event_type"] = "tornado"
			f.Properties["time"] = "2024-04-26T15:10:00Z"
			return f
		}
		e1, err := FromFeature(mk())
		require.NoError(t, err)
		e2, err := FromFeature(mk())
		require.NoError(t, err)
		assert.Equal(t, e1.ID, e2.ID)
		assert.Contains(t, e1.ID, "tornado-")
	})

	t.Run("missing geometry fails", func(t *testing.T) {
		_, err := FromFeature(&geojson.Feature{})
		require.Error(t, err)
	})
}

func TestEventTime(t *testing.T) {
	mk := func(value interface{}) Event {
		return Event{Properties: map[string]interface{}{"time": value}}
	}

	tests := []struct {
		name  string
		value interface{}
		want  time.Time
		ok    bool
	}{
		{"RFC3339 string", "2024-04-26T15:10:00Z", time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC), true},
		{"unix milliseconds", 1714144200000.0, time.UnixMilli(1714144200000).UTC(), true},
		{"unix seconds", 1714144200.0, time.Unix(1714144200, 0).UTC(), true},
		{"garbage string", "yesterday-ish", time.Time{}, false},
		{"negative number", -5.0, time.Time{}, false},
		{"wrong type", []string{"2024"}, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mk(tt.value).Time("time")
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}

	t.Run("configurable field name", func(t *testing.T) {
		e := Event{Properties: map[string]interface{}{"begin_time": "2024-04-26T15:10:00Z"}}
		_, ok := e.Time("time")
		assert.False(t, ok)
		ts, ok := e.Time("begin_time")
		require.True(t, ok)
		assert.Equal(t, 2024, ts.Year())
	})
}

func TestEventPoint(t *testing.T) {
	t.Run("point geometry", func(t *testing.T) {
		e := Event{Geometry: geojson.NewPointGeometry([]float64{-97.5, 35.4})}
		p, ok := e.Point()
		require.True(t, ok)
		assert.Equal(t, Geo{Lat: 35.4, Lon: -97.5}, p)
	})

	t.Run("line geometry uses first vertex", func(t *testing.T) {
		e := Event{Geometry: geojson.NewLineStringGeometry([][]float64{{-97.5, 35.4}, {-96.0, 36.0}})}
		p, ok := e.Point()
		require.True(t, ok)
		assert.Equal(t, Geo{Lat: 35.4, Lon: -97.5}, p)
	})

	t.Run("polygon geometry uses outer ring centroid", func(t *testing.T) {
		ring := [][][]float64{{{0, 0}, {2, 0}, {2, 2}, {0, 2}}}
		e := Event{Geometry: geojson.NewPolygonGeometry(ring)}
		p, ok := e.Point()
		require.True(t, ok)
		assert.InDelta(t, 1.0, p.Lat, 1e-9)
		assert.InDelta(t, 1.0, p.Lon, 1e-9)
	})

	t.Run("no geometry", func(t *testing.T) {
		_, ok := Event{}.Point()
		assert.False(t, ok)
	})
}

func TestEventPath(t *testing.T) {
	line := [][]float64{{-97.5, 35.4}, {-96.0, 36.0}}
	e := Event{Geometry: geojson.NewLineStringGeometry(line)}
	assert.Equal(t, line, e.Path())

	pt := Event{Geometry: geojson.NewPointGeometry([]float64{-97.5, 35.4})}
	assert.Equal(t, [][]float64{{-97.5, 35.4}}, pt.Path())

	assert.Nil(t, Event{}.Path())
}
