package domain

import (
	"math"
	"time"
)

// kmPerDegreeLat is the approximate ground distance of one degree of
// latitude. Longitude degrees shrink with cos(latitude) and are corrected
// at the point of use.
const kmPerDegreeLat = 111.32

const earthRadiusKm = 6371.0

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds describes the rectangle (MinLat,MinLon)–(MaxLat,MaxLon).
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Center returns the midpoint of the bounds.
func (b Bounds) Center() Geo {
	return Geo{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: (b.MinLon + b.MaxLon) / 2,
	}
}

// Extend grows the bounds to include p.
func (b Bounds) Extend(p Geo) Bounds {
	return Bounds{
		MinLat: math.Min(b.MinLat, p.Lat),
		MinLon: math.Min(b.MinLon, p.Lon),
		MaxLat: math.Max(b.MaxLat, p.Lat),
		MaxLon: math.Max(b.MaxLon, p.Lon),
	}
}

// BoundsAround returns the degenerate bounds containing only p, useful as a
// seed for Extend.
func BoundsAround(p Geo) Bounds {
	return Bounds{MinLat: p.Lat, MinLon: p.Lon, MaxLat: p.Lat, MaxLon: p.Lon}
}

// HaversineKm returns the great-circle distance between two coordinates.
func HaversineKm(a, b Geo) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// BoundsFromCenterRadius converts a real-world radius into an approximate
// bounding rectangle. Latitude uses a fixed degrees-per-kilometer
// conversion; longitude is corrected by cos(latitude) so the box keeps its
// aspect away from the equator. The cosine is floored to avoid exploding
// widths near the poles.
func BoundsFromCenterRadius(center Geo, radiusKm float64) Bounds {
	latDelta := radiusKm / kmPerDegreeLat
	cosLat := math.Cos(center.Lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lonDelta := radiusKm / (kmPerDegreeLat * cosLat)

	return Bounds{
		MinLat: center.Lat - latDelta,
		MinLon: center.Lon - lonDelta,
		MaxLat: center.Lat + latDelta,
		MaxLon: center.Lon + lonDelta,
	}
}

// InterpolateBounds blends two bounding regions along progress in [0, 1].
// Progress is eased with an ease-out curve so viewport motion launches
// quickly and settles gently, then the four corner values are lerped
// independently.
func InterpolateBounds(start, end Bounds, progress float64) Bounds {
	t := EaseOutQuad(Clamp01(progress))
	return Bounds{
		MinLat: Lerp(start.MinLat, end.MinLat, t),
		MinLon: Lerp(start.MinLon, end.MinLon, t),
		MaxLat: Lerp(start.MaxLat, end.MaxLat, t),
		MaxLon: Lerp(start.MaxLon, end.MaxLon, t),
	}
}

// UnwrapLon shifts lon by ±360° when it sits more than 180° from ref, so a
// line between the two points takes the short way across the antimeridian.
func UnwrapLon(ref, lon float64) float64 {
	switch {
	case lon-ref > 180:
		return lon - 360
	case ref-lon > 180:
		return lon + 360
	default:
		return lon
	}
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Clamp01 clamps v into [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// EaseOutQuad is the ease-out curve 1-(1-t)².
func EaseOutQuad(t float64) float64 {
	inv := 1 - t
	return 1 - inv*inv
}

// Smoothstep is the classic 3t²-2t³ hermite easing over [0, 1].
func Smoothstep(t float64) float64 {
	t = Clamp01(t)
	return t * t * (3 - 2*t)
}

// Progress returns where ts falls within [start, end] as a value in [0, 1],
// clamped at both ends. A degenerate range (end ≤ start) reports 1 once ts
// reaches start.
func Progress(start, end, ts time.Time) float64 {
	if !end.After(start) {
		if ts.Before(start) {
			return 0
		}
		return 1
	}
	return Clamp01(float64(ts.Sub(start)) / float64(end.Sub(start)))
}

// PathLengthKm sums the great-circle lengths of a [lon, lat] coordinate path.
func PathLengthKm(path [][]float64) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		if len(path[i-1]) < 2 || len(path[i]) < 2 {
			continue
		}
		total += HaversineKm(
			Geo{Lat: path[i-1][1], Lon: path[i-1][0]},
			Geo{Lat: path[i][1], Lon: path[i][0]},
		)
	}
	return total
}

// PartialPath returns the prefix of a [lon, lat] path covering the given
// fraction of its cumulative arc length, with the final point interpolated
// along the containing leg. Interpolating by arc length (not vertex count)
// keeps tip motion speed uniform on unevenly sampled tracks.
func PartialPath(path [][]float64, progress float64) [][]float64 {
	progress = Clamp01(progress)
	if len(path) == 0 {
		return nil
	}
	if len(path) == 1 || progress == 0 {
		return [][]float64{path[0]}
	}
	if progress == 1 {
		return path
	}

	total := PathLengthKm(path)
	if total == 0 {
		return [][]float64{path[0]}
	}
	target := total * progress

	out := [][]float64{path[0]}
	walked := 0.0
	for i := 1; i < len(path); i++ {
		leg := HaversineKm(
			Geo{Lat: path[i-1][1], Lon: path[i-1][0]},
			Geo{Lat: path[i][1], Lon: path[i][0]},
		)
		if walked+leg >= target && leg > 0 {
			t := (target - walked) / leg
			out = append(out, []float64{
				Lerp(path[i-1][0], path[i][0], t),
				Lerp(path[i-1][1], path[i][1], t),
			})
			return out
		}
		walked += leg
		out = append(out, path[i])
	}
	return out
}
