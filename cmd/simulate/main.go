// Command simulate replays a sequence fixture headlessly, frame by
// frame, printing per-frame feature stats and running integrity checks
// over the produced states: determinism, clamping, frame coverage, and
// mode-specific monotonicity.
//
// Usage:
//
//	go run ./cmd/simulate -seq data/sequences/aftershocks.geojson -mode spiderweb
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/hazard-replay/internal/domain"
	"github.com/couchcryptid/hazard-replay/internal/observability"
	"github.com/couchcryptid/hazard-replay/internal/replay"
	"github.com/couchcryptid/hazard-replay/internal/scrub"
)

// phase tracks pass/fail for one integrity check.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// simRenderer records every state the engine pushes.
type simRenderer struct {
	states  []replay.VisualState
	framed  int
	cleared int
}

func (r *simRenderer) UpdateVisualState(state replay.VisualState, _ replay.RenderOptions) error {
	r.states = append(r.states, state)
	return nil
}

func (r *simRenderer) Clear() error {
	r.cleared++
	return nil
}

func (r *simRenderer) FrameToRegion(domain.Bounds, replay.FrameOptions) error {
	r.framed++
	return nil
}

func (r *simRenderer) last() replay.VisualState {
	return r.states[len(r.states)-1]
}

// simScheduler never fires: simulation steps the timeline explicitly, so
// the cosmetic sub-frame loop stays idle.
type simScheduler struct{}

func (simScheduler) Schedule(func(now time.Time)) (cancel func()) {
	return func() {}
}

// simScrubber captures the scale the engine registers, exposing the
// frame timestamps to drive the replay.
type simScrubber struct {
	scale scrub.Scale
}

func (s *simScrubber) AddScale(sc scrub.Scale) (string, error) {
	s.scale = sc
	return "", nil
}

func (s *simScrubber) RemoveScale(string, string)           {}
func (s *simScrubber) SetTime(time.Time, string)            {}
func (s *simScrubber) AddChangeListener(scrub.Listener) int { return 1 }
func (s *simScrubber) RemoveChangeListener(int)             {}
func (s *simScrubber) IsPlaying() bool                      { return false }
func (s *simScrubber) StepsPerFrame() int                   { return 1 }
func (s *simScrubber) TickInterval() time.Duration          { return 250 * time.Millisecond }

func main() {
	seqPath := flag.String("seq", "", "path to a GeoJSON feature collection fixture")
	mode := flag.String("mode", "accumulate", "animation mode")
	timeField := flag.String("time-field", "time", "property holding event timestamps")
	granularity := flag.String("granularity", "daily", "time granularity (hourly, daily, weekly, monthly)")
	mainshockID := flag.String("mainshock", "", "event ID to use as the radial/spiderweb primary")
	speed := flag.Float64("speed", 0, "propagation speed in km/h for radial mode")
	quiet := flag.Bool("quiet", false, "suppress the per-frame table")
	flag.Parse()

	if *seqPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	code := run(*seqPath, *mode, *timeField, *granularity, *mainshockID, *speed, *quiet)
	os.Exit(code)
}

func run(seqPath, mode, timeField, granularity, mainshockID string, speed float64, quiet bool) int {
	events, err := loadSequence(seqPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load sequence: %v\n", err)
		return 1
	}

	parsedMode, err := replay.ParseMode(mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer := &simRenderer{}
	scrubber := &simScrubber{}
	engine := replay.NewEngine(renderer, scrubber, simScheduler{},
		clockwork.NewFakeClockAt(time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)),
		logger, observability.NewMetricsForTesting())

	cfg := replay.SessionConfig{
		ID:                  "simulate",
		Mode:                parsedMode,
		Events:              events,
		TimeField:           timeField,
		Granularity:         replay.Granularity(granularity),
		PropagationSpeedKmH: speed,
	}
	if mainshockID != "" {
		found := false
		for _, e := range events {
			if e.ID == mainshockID {
				cfg.Mainshock = &e
				found = true
				break
			}
		}
		if !found {
			fmt.Fprintf(os.Stderr, "FATAL: mainshock %q not in sequence\n", mainshockID)
			return 1
		}
	}

	if !engine.Start(cfg) {
		fmt.Fprintf(os.Stderr, "FATAL: session rejected (mode %s, %d events)\n", mode, len(events))
		return 1
	}
	defer engine.Stop()

	frames := scrubber.scale.Frames
	fmt.Printf("=== Replay Simulation: %s, %s mode ===\n", seqPath, mode)
	fmt.Printf("%d events, %d frames, %s .. %s\n\n",
		len(events), len(frames),
		frames[0].Format(time.RFC3339), frames[len(frames)-1].Format(time.RFC3339))

	states := stepThrough(engine, renderer, frames, quiet)

	phases := []*phase{
		checkCoverage(states, frames),
		checkDeterminism(engine, renderer, frames),
		checkClamping(engine, renderer, frames),
		checkModeShape(parsedMode, states),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-32s %s\n", p.name, status)
		for _, e := range p.errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

func loadSequence(path string) ([]domain.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse feature collection: %w", err)
	}
	events := make([]domain.Event, 0, len(fc.Features))
	for i, f := range fc.Features {
		e, err := domain.FromFeature(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// stepThrough visits every frame in order and returns the state produced
// at each one.
func stepThrough(engine *replay.Engine, renderer *simRenderer, frames []time.Time, quiet bool) []replay.VisualState {
	states := make([]replay.VisualState, 0, len(frames))
	for i, ts := range frames {
		engine.SetTime(ts)
		state := renderer.last()
		states = append(states, state)

		if !quiet {
			fmt.Printf("  frame %3d  %s  %3d features  %s\n",
				i, ts.Format("2006-01-02 15:04"), state.Len(), roleSummary(state))
		}
	}
	return states
}

func roleSummary(state replay.VisualState) string {
	counts := map[string]int{}
	for _, f := range state.Features.Features {
		role, _ := f.Properties["role"].(string)
		counts[role]++
	}
	roles := make([]string, 0, len(counts))
	for r := range counts {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	out := ""
	for _, r := range roles {
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%s=%d", r, counts[r])
	}
	return out
}

// checkCoverage verifies every frame produced a state with its own frame
// index and timestamp.
func checkCoverage(states []replay.VisualState, frames []time.Time) *phase {
	p := &phase{name: "frame coverage"}
	if len(states) != len(frames) {
		p.errorf("expected %d states, got %d", len(frames), len(states))
		return p
	}
	for i, s := range states {
		if s.Frame != i {
			p.errorf("frame %d: state carries frame index %d", i, s.Frame)
		}
		if !s.Timestamp.Equal(frames[i]) {
			p.errorf("frame %d: state timestamp %s, frame timestamp %s",
				i, s.Timestamp.Format(time.RFC3339), frames[i].Format(time.RFC3339))
		}
		if s.Features == nil {
			p.errorf("frame %d: nil feature collection", i)
		}
	}
	return p
}

// checkDeterminism re-scrubs to a handful of frames and verifies the
// recomputed states match the first pass feature for feature.
func checkDeterminism(engine *replay.Engine, renderer *simRenderer, frames []time.Time) *phase {
	p := &phase{name: "scrub determinism"}
	probes := []int{0, len(frames) / 2, len(frames) - 1}
	firstPass := make([]replay.VisualState, len(probes))
	for i, idx := range probes {
		engine.SetTime(frames[idx])
		firstPass[i] = renderer.last()
	}
	// Scrub backwards through the same frames.
	for i := len(probes) - 1; i >= 0; i-- {
		engine.SetTime(frames[probes[i]])
		got := renderer.last()
		if got.Len() != firstPass[i].Len() {
			p.errorf("frame %d: %d features on revisit, %d on first pass",
				probes[i], got.Len(), firstPass[i].Len())
		}
		if got.WaveRadiusKm != firstPass[i].WaveRadiusKm {
			p.errorf("frame %d: wave radius changed on revisit", probes[i])
		}
	}
	return p
}

// checkClamping verifies timestamps outside the timeline clamp to the
// boundary frames.
func checkClamping(engine *replay.Engine, renderer *simRenderer, frames []time.Time) *phase {
	p := &phase{name: "out-of-range clamping"}

	engine.SetTime(frames[0].Add(-24 * time.Hour))
	if got := renderer.last(); got.Frame != 0 {
		p.errorf("before-start timestamp landed on frame %d", got.Frame)
	}

	engine.SetTime(frames[len(frames)-1].Add(24 * time.Hour))
	if got := renderer.last(); got.Frame != len(frames)-1 {
		p.errorf("past-end timestamp landed on frame %d", got.Frame)
	}
	return p
}

// checkModeShape runs the per-mode structural invariant over the full
// frame sequence.
func checkModeShape(mode replay.Mode, states []replay.VisualState) *phase {
	p := &phase{name: "mode invariants"}
	switch mode {
	case replay.ModeAccumulate:
		// Window expiry may shrink counts, so only the final frame is fixed:
		// it must show at least the last event.
		if states[len(states)-1].Len() == 0 {
			p.errorf("final frame is empty")
		}
	case replay.ModeProgressive:
		prev := -1
		for i, s := range states {
			visited := 0
			for _, f := range s.Features.Features {
				if role, _ := f.Properties["role"].(string); role == replay.RoleTrail || role == replay.RoleCurrent {
					visited++
				}
			}
			if visited < prev {
				p.errorf("frame %d: visited count shrank from %d to %d", i, prev, visited)
			}
			prev = visited
		}
	case replay.ModeRadial:
		prevRadius := -1.0
		for i, s := range states {
			if s.WaveRadiusKm < prevRadius {
				p.errorf("frame %d: wave radius shrank from %g to %g", i, prevRadius, s.WaveRadiusKm)
			}
			prevRadius = s.WaveRadiusKm
		}
	case replay.ModeSpiderweb:
		for i, s := range states {
			found := false
			for _, f := range s.Features.Features {
				if role, _ := f.Properties["role"].(string); role == replay.RolePrimary {
					found = true
					break
				}
			}
			if !found {
				p.errorf("frame %d: no primary feature", i)
			}
		}
	case replay.ModeJourney:
		for i, s := range states {
			found := false
			for _, f := range s.Features.Features {
				if role, _ := f.Properties["role"].(string); role == replay.RoleTraveler {
					found = true
					break
				}
			}
			if !found {
				p.errorf("frame %d: no traveler feature", i)
			}
		}
	case replay.ModePolygon:
		// Snapshot buckets may legitimately leave frames empty.
	}
	return p
}
