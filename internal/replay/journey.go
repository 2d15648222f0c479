package replay

import (
	"fmt"
	"time"

	"github.com/couchcryptid/hazard-replay/internal/domain"
)

// Traversal estimates for track segments: an assumed average ground speed
// plus a floor so point events still occupy visible time on the timeline.
const (
	assumedTrackSpeedKmH = 50
	minTraversal         = 10 * time.Minute
)

// connectionBlend is the trailing fraction of a connection segment over
// which the traveler's radius blends from the previous segment's radius to
// the next one's.
const connectionBlend = 0.25

// Default visual attributes for segments whose events declare none.
const (
	defaultSegmentColor  = "#e8590c"
	defaultSegmentWidth  = 3.0
	defaultSegmentRadius = 6.0
)

type segmentKind int

const (
	segTrack segmentKind = iota
	segConnection
)

// segment is one element of the precomputed journey: either a track (one
// event's traversal) or a connection (the gap to the next event). Segments
// are contiguous in time and ordered; built once, never mutated.
type segment struct {
	kind       segmentKind
	eventIdx   int // track: the event; connection: the destination event
	start, end time.Time
	path       [][]float64 // [lon, lat]; connections always have two points

	color  string
	width  float64
	radius float64

	// prevRadius is the preceding track's radius, blended toward this
	// connection's destination radius across the final quarter.
	prevRadius float64
}

func (s *segment) progress(ts time.Time) float64 {
	return domain.Progress(s.start, s.end, ts)
}

// tip returns the segment's drawing tip at the given progress.
func (s *segment) tip(progress float64) []float64 {
	partial := domain.PartialPath(s.path, progress)
	return partial[len(partial)-1]
}

// journeyMode drives the sequential-path animation from a precomputed
// journey: each segment draws over its own sub-range of the timeline, and
// a single traveler marker rides the tip of whichever segment is currently
// mid-draw. Multi-day storm chases, ordered multi-site surveys.
type journeyMode struct {
	frameCount int
	segments   []segment
}

func (m *journeyMode) buildTimeline(seq *sequence, _ *SessionConfig) (*Timeline, error) {
	if err := m.buildJourney(seq); err != nil {
		return nil, err
	}
	last := m.segments[len(m.segments)-1]
	return &Timeline{Frames: evenFrames(seq.minTime(), last.end, m.frameCount)}, nil
}

// buildJourney derives the ordered track/connection list from the sorted
// events. Track i spans its event time plus an estimated traversal
// duration (clamped to the next event so segments stay contiguous); the
// connection to event i+1 fills whatever gap remains.
func (m *journeyMode) buildJourney(seq *sequence) error {
	m.segments = m.segments[:0]

	var prevEnd []float64
	var prevRadius float64
	for i := range seq.events {
		e := seq.events[i]
		path := e.Path()
		if len(path) == 0 {
			if pt, ok := e.Point(); ok {
				path = [][]float64{{pt.Lon, pt.Lat}}
			} else {
				continue // no usable coordinates
			}
		}

		start := seq.times[i]
		end := start.Add(traversalDuration(path))
		if i+1 < len(seq.times) && end.After(seq.times[i+1]) {
			end = seq.times[i+1]
		}

		color, width, radius := segmentStyle(e)

		if prevEnd != nil {
			from := prevEnd
			to := []float64{domain.UnwrapLon(from[0], path[0][0]), path[0][1]}
			m.segments = append(m.segments, segment{
				kind:       segConnection,
				eventIdx:   i,
				start:      m.segments[len(m.segments)-1].end,
				end:        start,
				path:       [][]float64{from, to},
				color:      color,
				width:      width,
				radius:     radius,
				prevRadius: prevRadius,
			})
		}

		m.segments = append(m.segments, segment{
			kind:     segTrack,
			eventIdx: i,
			start:    start,
			end:      end,
			path:     path,
			color:    color,
			width:    width,
			radius:   radius,
		})
		prevEnd = path[len(path)-1]
		prevRadius = radius
	}

	if len(m.segments) == 0 {
		return fmt.Errorf("journey mode has no events with coordinates")
	}
	return nil
}

// traversalDuration estimates how long a track takes to traverse from its
// path length at an assumed average speed, floored so instantaneous
// events still read as segments.
func traversalDuration(path [][]float64) time.Duration {
	lengthKm := domain.PathLengthKm(path)
	d := time.Duration(lengthKm / assumedTrackSpeedKmH * float64(time.Hour))
	if d < minTraversal {
		d = minTraversal
	}
	return d
}

func segmentStyle(e domain.Event) (color string, width, radius float64) {
	color = defaultSegmentColor
	if c, ok := e.Properties["color"].(string); ok && c != "" {
		color = c
	}
	width = defaultSegmentWidth
	if w, ok := e.Float("width"); ok && w > 0 {
		width = w
	}
	radius = defaultSegmentRadius
	if r, ok := e.Float("radius"); ok && r > 0 {
		radius = r
	}
	return color, width, radius
}

func (m *journeyMode) computeState(fc frameContext) VisualState {
	state := newVisualState(fc.ts, fc.rt.frame)

	var traveler *segment
	var travelerProgress float64
	for i := range m.segments {
		s := &m.segments[i]
		p := s.progress(fc.ts)
		if p <= 0 && fc.ts.Before(s.start) {
			continue
		}

		props := map[string]interface{}{
			"color":    s.color,
			"width":    s.width,
			"progress": p,
			"event_id": fc.seq.events[s.eventIdx].ID,
		}

		switch s.kind {
		case segTrack:
			if len(s.path) >= 2 && p > 0 {
				state.add(lineFeature(domain.PartialPath(s.path, p), RoleTrack, props))
			}
			if p > 0 {
				state.add(pointFeature(geoAt(s.path[0]), RoleSegStart, map[string]interface{}{
					"color":    s.color,
					"event_id": fc.seq.events[s.eventIdx].ID,
				}))
			}
			if p >= 1 {
				state.add(pointFeature(geoAt(s.path[len(s.path)-1]), RoleSegEnd, map[string]interface{}{
					"color":    s.color,
					"event_id": fc.seq.events[s.eventIdx].ID,
				}))
			}
		case segConnection:
			if p > 0 {
				state.add(lineFeature(domain.PartialPath(s.path, p), RoleConnection, props))
			}
		}

		// The traveler rides the most recently started segment; once
		// everything is complete it rests at the final tip.
		traveler = s
		travelerProgress = p
	}

	if traveler != nil {
		tip := traveler.tip(travelerProgress)
		state.add(pointFeature(geoAt(tip), RoleTraveler, map[string]interface{}{
			"color":  traveler.color,
			"radius": travelerRadius(traveler, travelerProgress),
		}))
	}
	return state
}

// travelerRadius is the marker's size at the segment tip. On a connection
// it holds the previous track's radius for the first three quarters, then
// smoothsteps to the destination radius over the final quarter so the
// handoff reads as deliberate rather than a pop.
func travelerRadius(s *segment, progress float64) float64 {
	if s.kind != segConnection {
		return s.radius
	}
	if progress <= 1-connectionBlend {
		return s.prevRadius
	}
	t := (progress - (1 - connectionBlend)) / connectionBlend
	return domain.Lerp(s.prevRadius, s.radius, domain.Smoothstep(t))
}

func geoAt(coord []float64) domain.Geo {
	return domain.Geo{Lon: coord[0], Lat: coord[1]}
}
