package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-replay/internal/domain"
)

func TestNewSequence(t *testing.T) {
	t.Run("sorts events ascending regardless of input order", func(t *testing.T) {
		events := []domain.Event{
			pointEvent("c", "tornado", 35, -97, t0.Add(2*time.Hour), nil),
			pointEvent("a", "tornado", 35, -97, t0, nil),
			pointEvent("b", "tornado", 35, -97, t0.Add(time.Hour), nil),
		}
		seq, skipped := newSequence(events, "time", testLogger())

		require.Equal(t, 0, skipped)
		require.Equal(t, 3, seq.len())
		assert.Equal(t, []string{"a", "b", "c"},
			[]string{seq.events[0].ID, seq.events[1].ID, seq.events[2].ID})
		assert.True(t, seq.minTime().Equal(t0))
		assert.True(t, seq.maxTime().Equal(t0.Add(2*time.Hour)))
	})

	t.Run("skips events with unparseable times individually", func(t *testing.T) {
		bad := pointEvent("bad", "tornado", 35, -97, t0, nil)
		bad.Properties["time"] = "not-a-time"
		events := []domain.Event{
			pointEvent("ok", "tornado", 35, -97, t0, nil),
			bad,
		}
		seq, skipped := newSequence(events, "time", testLogger())

		assert.Equal(t, 1, skipped)
		require.Equal(t, 1, seq.len())
		assert.Equal(t, "ok", seq.events[0].ID)
	})

	t.Run("ties keep input order", func(t *testing.T) {
		events := []domain.Event{
			pointEvent("first", "tornado", 35, -97, t0, nil),
			pointEvent("second", "tornado", 36, -98, t0, nil),
		}
		seq, _ := newSequence(events, "time", testLogger())

		assert.Equal(t, "first", seq.events[0].ID)
		assert.Equal(t, "second", seq.events[1].ID)
	})

	t.Run("honors an alternate time field", func(t *testing.T) {
		e := pointEvent("e", "flood", 30, -90, t0, map[string]interface{}{
			"observed_at": t0.Add(time.Hour).Format(time.RFC3339),
		})
		seq, skipped := newSequence([]domain.Event{e}, "observed_at", testLogger())

		require.Equal(t, 0, skipped)
		assert.True(t, seq.minTime().Equal(t0.Add(time.Hour)))
	})
}

func TestSequenceLastAt(t *testing.T) {
	seq, _ := newSequence(spreadEvents(5, 4*time.Hour), "time", testLogger())

	tests := []struct {
		name string
		ts   time.Time
		want int
	}{
		{"before all events", t0.Add(-time.Minute), -1},
		{"exactly the first event", t0, 0},
		{"between events", t0.Add(90 * time.Minute), 1},
		{"exactly a later event", t0.Add(2 * time.Hour), 2},
		{"after all events", t0.Add(24 * time.Hour), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, seq.lastAt(tt.ts))
		})
	}
}

func TestSequenceIndexByID(t *testing.T) {
	seq, _ := newSequence(spreadEvents(3, time.Hour), "time", testLogger())

	assert.Equal(t, 1, seq.indexByID("evt-1"))
	assert.Equal(t, -1, seq.indexByID("missing"))
}
