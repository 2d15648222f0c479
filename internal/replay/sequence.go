package replay

import (
	"log/slog"
	"sort"
	"time"

	"github.com/couchcryptid/hazard-replay/internal/domain"
)

// sequence is a session's usable event set: events whose time field
// resolved, sorted ascending, with timestamps cached in a parallel slice.
// Built once at session start and read-only afterwards.
type sequence struct {
	events []domain.Event
	times  []time.Time
}

// newSequence filters and sorts the caller's events. Events with an
// unparseable time are skipped individually, since hazard datasets
// routinely contain partial records, and the skip count is returned for
// metrics.
func newSequence(events []domain.Event, timeField string, logger *slog.Logger) (*sequence, int) {
	type timed struct {
		e domain.Event
		t time.Time
	}
	kept := make([]timed, 0, len(events))
	skipped := 0
	for _, e := range events {
		t, ok := e.Time(timeField)
		if !ok {
			logger.Warn("skipping event with unparseable time",
				"event_id", e.ID, "time_field", timeField)
			skipped++
			continue
		}
		kept = append(kept, timed{e: e, t: t})
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].t.Before(kept[j].t) })

	s := &sequence{
		events: make([]domain.Event, len(kept)),
		times:  make([]time.Time, len(kept)),
	}
	for i, k := range kept {
		s.events[i] = k.e
		s.times[i] = k.t
	}
	return s, skipped
}

func (s *sequence) len() int { return len(s.events) }

func (s *sequence) minTime() time.Time { return s.times[0] }

func (s *sequence) maxTime() time.Time { return s.times[len(s.times)-1] }

// lastAt returns the index of the latest event with time ≤ ts, or -1 when
// every event is later.
func (s *sequence) lastAt(ts time.Time) int {
	// First index with time > ts, minus one.
	i := sort.Search(len(s.times), func(i int) bool { return s.times[i].After(ts) })
	return i - 1
}

// indexByID finds an event by identity, or -1.
func (s *sequence) indexByID(id string) int {
	for i, e := range s.events {
		if e.ID == id {
			return i
		}
	}
	return -1
}
