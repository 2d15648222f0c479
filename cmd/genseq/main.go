// Command genseq generates deterministic hazard sequence fixtures as
// GeoJSON feature collections, one per scenario. The fixtures exercise
// every animation mode: an aftershock cluster (spiderweb), a hurricane
// track (progressive/journey), wildfire perimeters (polygon), a tsunami
// propagation set (radial), a chase itinerary (journey), and a tornado
// outbreak (accumulate).
//
// Usage:
//
//	go run ./cmd/genseq -out data/sequences
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	geojson "github.com/paulmach/go.geojson"
)

var baseDate = time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)

type scenario struct {
	name string
	file string
	gen  func(r *rand.Rand) *geojson.FeatureCollection
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "", "output directory for sequence fixtures")
	seed := flag.Int64("seed", 1, "random seed (fixed for reproducible fixtures)")
	only := flag.String("scenario", "", "generate a single scenario by name")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	scenarios := []scenario{
		{name: "aftershocks", file: "aftershocks.geojson", gen: genAftershocks},
		{name: "hurricane-track", file: "hurricane_track.geojson", gen: genHurricaneTrack},
		{name: "wildfire-perimeters", file: "wildfire_perimeters.geojson", gen: genWildfirePerimeters},
		{name: "tsunami", file: "tsunami.geojson", gen: genTsunami},
		{name: "chase-journey", file: "chase_journey.geojson", gen: genChaseJourney},
		{name: "tornado-outbreak", file: "tornado_outbreak.geojson", gen: genTornadoOutbreak},
	}

	matched := false
	for _, s := range scenarios {
		if *only != "" && s.name != *only {
			continue
		}
		matched = true

		// Each scenario gets its own generator so adding or reordering
		// scenarios does not shift the others' output.
		fc := s.gen(rand.New(rand.NewSource(*seed)))

		path := filepath.Join(*outDir, s.file)
		if err := writeJSON(path, fc); err != nil {
			return fmt.Errorf("writing %s: %w", s.name, err)
		}
		log.Printf("%s: %d events -> %s", s.name, len(fc.Features), path)
	}
	if !matched {
		return fmt.Errorf("unknown scenario: %s", *only)
	}
	return nil
}

// genAftershocks produces a M7.1 mainshock and a decaying aftershock
// cluster around it. Aftershock rate falls off roughly hyperbolically
// with time since the mainshock.
func genAftershocks(r *rand.Rand) *geojson.FeatureCollection {
	const (
		mainLat = 38.2
		mainLon = 38.0
		count   = 40
	)
	span := 72 * time.Hour

	fc := geojson.NewFeatureCollection()

	main := geojson.NewPointFeature([]float64{mainLon, mainLat})
	main.ID = "eq-mainshock"
	main.SetProperty("event_type", "earthquake")
	main.SetProperty("time", baseDate.Format(time.RFC3339))
	main.SetProperty("magnitude", 7.1)
	main.SetProperty("depth_km", 10.0)
	main.SetProperty("mainshock", true)
	main.SetProperty("impact_radius_km", 80.0)
	main.SetProperty("extent_radius_km", 300.0)
	fc.AddFeature(main)

	for i := 0; i < count; i++ {
		// Quadratic ramp clusters most aftershocks near the mainshock time.
		frac := r.Float64()
		offset := time.Duration(frac * frac * float64(span))

		lat := mainLat + r.NormFloat64()*0.4
		lon := mainLon + r.NormFloat64()*0.5
		mag := 3.0 + r.Float64()*2.5

		f := geojson.NewPointFeature([]float64{round4(lon), round4(lat)})
		f.ID = fmt.Sprintf("eq-after-%03d", i+1)
		f.SetProperty("event_type", "earthquake")
		f.SetProperty("time", baseDate.Add(offset).Format(time.RFC3339))
		f.SetProperty("magnitude", round1(mag))
		f.SetProperty("depth_km", round1(5+r.Float64()*20))
		fc.AddFeature(f)
	}
	return fc
}

// genHurricaneTrack produces hourly storm fixes moving northwest across
// the Gulf, intensifying then weakening. One event per fix, so the
// progressive mode can reveal the track point by point.
func genHurricaneTrack(r *rand.Rand) *geojson.FeatureCollection {
	const fixes = 36

	fc := geojson.NewFeatureCollection()

	lat, lon := 24.5, -86.0
	wind := 65.0
	for i := 0; i < fixes; i++ {
		f := geojson.NewPointFeature([]float64{round4(lon), round4(lat)})
		f.ID = fmt.Sprintf("storm-ida-%03d", i+1)
		f.SetProperty("event_type", "storm")
		f.SetProperty("time", baseDate.Add(time.Duration(i)*time.Hour).Format(time.RFC3339))
		f.SetProperty("wind_kt", round1(wind))
		f.SetProperty("pressure_mb", round1(1010-wind*0.6))
		fc.AddFeature(f)

		lat += 0.22 + r.Float64()*0.08
		lon += 0.12 + r.Float64()*0.06
		if i < fixes*2/3 {
			wind += 2 + r.Float64()*4
		} else {
			wind -= 3 + r.Float64()*3
		}
	}
	return fc
}

// genWildfirePerimeters produces perimeter polygon snapshots every 12
// hours for a fire spreading east with the prevailing wind.
func genWildfirePerimeters(r *rand.Rand) *geojson.FeatureCollection {
	const (
		centerLat = 39.7
		centerLon = -121.2
		snapshots = 10
		vertices  = 16
	)

	fc := geojson.NewFeatureCollection()

	for s := 0; s < snapshots; s++ {
		// Radius in degrees grows each snapshot; the centroid drifts east.
		radius := 0.03 + 0.025*float64(s)
		cLat := centerLat
		cLon := centerLon + 0.02*float64(s)

		ring := make([][]float64, 0, vertices+1)
		for v := 0; v < vertices; v++ {
			angle := 2 * math.Pi * float64(v) / vertices
			jitter := 0.8 + r.Float64()*0.4
			ring = append(ring, []float64{
				round4(cLon + radius*jitter*math.Cos(angle)),
				round4(cLat + radius*jitter*0.8*math.Sin(angle)),
			})
		}
		ring = append(ring, ring[0])

		f := geojson.NewPolygonFeature([][][]float64{ring})
		f.ID = fmt.Sprintf("fire-perimeter-%02d", s+1)
		f.SetProperty("event_type", "wildfire")
		f.SetProperty("time", baseDate.Add(time.Duration(s)*12*time.Hour).Format(time.RFC3339))
		f.SetProperty("area_ha", round1(800*math.Pow(1.6, float64(s))))
		f.SetProperty("containment_pct", float64(min(s*8, 60)))
		fc.AddFeature(f)
	}
	return fc
}

// genTsunami produces a source earthquake plus coastal gauge readings at
// increasing distances. Each gauge declares its great-circle distance
// from the source so wave arrival needs no coordinate math downstream.
func genTsunami(r *rand.Rand) *geojson.FeatureCollection {
	const (
		srcLat = 38.3
		srcLon = 142.4
	)
	gauges := []struct {
		id       string
		lat, lon float64
		distKm   float64
	}{
		{"gauge-ofunato", 39.07, 141.72, 95},
		{"gauge-hokkaido", 42.0, 143.2, 420},
		{"gauge-midway", 28.2, -177.4, 3900},
		{"gauge-hawaii", 21.3, -157.9, 6100},
		{"gauge-crescent-city", 41.74, -124.18, 7800},
		{"gauge-chile", -33.0, -71.6, 16700},
	}

	fc := geojson.NewFeatureCollection()

	src := geojson.NewPointFeature([]float64{srcLon, srcLat})
	src.ID = "eq-tohoku"
	src.SetProperty("event_type", "earthquake")
	src.SetProperty("time", baseDate.Format(time.RFC3339))
	src.SetProperty("magnitude", 9.0)
	src.SetProperty("mainshock", true)
	fc.AddFeature(src)

	for _, g := range gauges {
		// Observed arrival runs slightly behind the nominal front.
		travel := time.Duration(g.distKm / 700 * float64(time.Hour))
		observed := baseDate.Add(travel + time.Duration(r.Float64()*10)*time.Minute)

		f := geojson.NewPointFeature([]float64{g.lon, g.lat})
		f.ID = g.id
		f.SetProperty("event_type", "tsunami")
		f.SetProperty("time", observed.Format(time.RFC3339))
		f.SetProperty("distance_km", g.distKm)
		f.SetProperty("amplitude_m", round1(8*math.Exp(-g.distKm/4000)+0.2))
		fc.AddFeature(f)
	}
	return fc
}

// genChaseJourney produces a storm-chase itinerary: point stops with
// per-stop styling, connected in time order by the journey mode.
func genChaseJourney(_ *rand.Rand) *geojson.FeatureCollection {
	stops := []struct {
		id       string
		lat, lon float64
		offset   time.Duration
		color    string
		radius   float64
		note     string
	}{
		{"stop-norman", 35.22, -97.44, 0, "#2b8a3e", 5, "departure"},
		{"stop-chickasha", 35.05, -97.94, 90 * time.Minute, "#e8590c", 7, "first wall cloud"},
		{"stop-anadarko", 35.07, -98.24, 3 * time.Hour, "#e03131", 10, "tornado on the ground"},
		{"stop-carnegie", 35.10, -98.60, 4*time.Hour + 30*time.Minute, "#e03131", 9, "second touchdown"},
		{"stop-weatherford", 35.53, -98.70, 7 * time.Hour, "#2b8a3e", 5, "storm outran us"},
	}

	fc := geojson.NewFeatureCollection()
	for _, s := range stops {
		f := geojson.NewPointFeature([]float64{s.lon, s.lat})
		f.ID = s.id
		f.SetProperty("event_type", "tornado")
		f.SetProperty("time", baseDate.Add(s.offset).Format(time.RFC3339))
		f.SetProperty("color", s.color)
		f.SetProperty("radius", s.radius)
		f.SetProperty("note", s.note)
		fc.AddFeature(f)
	}
	return fc
}

// genTornadoOutbreak produces a scattered 24-hour outbreak of tornado,
// hail, and wind reports across the southern plains.
func genTornadoOutbreak(r *rand.Rand) *geojson.FeatureCollection {
	const count = 60
	types := []string{"tornado", "tornado", "hail", "hail", "hail", "wind"}

	fc := geojson.NewFeatureCollection()
	for i := 0; i < count; i++ {
		eventType := types[r.Intn(len(types))]
		lat := 33.5 + r.Float64()*4.5
		lon := -99.5 + r.Float64()*4.0
		offset := time.Duration(r.Float64() * 24 * float64(time.Hour))

		f := geojson.NewPointFeature([]float64{round4(lon), round4(lat)})
		f.ID = fmt.Sprintf("%s-%03d", eventType, i+1)
		f.SetProperty("event_type", eventType)
		f.SetProperty("time", baseDate.Add(offset).Format(time.RFC3339))
		switch eventType {
		case "tornado":
			f.SetProperty("f_scale", float64(r.Intn(4)))
		case "hail":
			f.SetProperty("size_in", round1(0.75+r.Float64()*2.5))
		case "wind":
			f.SetProperty("speed_kt", round1(50+r.Float64()*40))
		}
		fc.AddFeature(f)
	}
	return fc
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
