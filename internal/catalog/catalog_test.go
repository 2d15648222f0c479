package catalog

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-replay/internal/domain"
	"github.com/couchcryptid/hazard-replay/internal/observability"
)

func testCatalog(maxSequences int) *Catalog {
	return New(maxSequences,
		clockwork.NewFakeClock(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting())
}

func testEvent(id string) domain.Event {
	return domain.Event{
		ID:        id,
		EventType: "tornado",
		Geometry:  geojson.NewPointGeometry([]float64{-97.5, 35.4}),
		Properties: map[string]interface{}{
			"event_type": "tornado",
			"time":       time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		},
	}
}

func TestCatalog_AppendAndRead(t *testing.T) {
	c := testCatalog(10)

	require.NoError(t, c.Append("outbreak-2024", testEvent("a")))
	require.NoError(t, c.Append("outbreak-2024", testEvent("b")))

	events, ok := c.Events("outbreak-2024")
	require.True(t, ok)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "b", events[1].ID)
	assert.Equal(t, 1, c.Len())
}

func TestCatalog_DuplicateEventIDReplaces(t *testing.T) {
	c := testCatalog(10)

	first := testEvent("a")
	require.NoError(t, c.Append("seq", first))

	updated := testEvent("a")
	updated.Properties["magnitude"] = 7.8
	require.NoError(t, c.Append("seq", updated))

	events, ok := c.Events("seq")
	require.True(t, ok)
	require.Len(t, events, 1, "an updated record supersedes, not duplicates")
	assert.Equal(t, 7.8, events[0].Properties["magnitude"])
}

func TestCatalog_EventsReturnsACopy(t *testing.T) {
	c := testCatalog(10)
	require.NoError(t, c.Append("seq", testEvent("a")))

	events, ok := c.Events("seq")
	require.True(t, ok)
	events[0] = testEvent("mutated")

	again, _ := c.Events("seq")
	assert.Equal(t, "a", again[0].ID, "callers must not be able to corrupt stored state")
}

func TestCatalog_EvictsLeastRecentlyTouched(t *testing.T) {
	c := testCatalog(3)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Append(fmt.Sprintf("seq-%d", i), testEvent("e")))
	}

	// Touch seq-0 so seq-1 becomes the eviction candidate.
	_, ok := c.Events("seq-0")
	require.True(t, ok)

	require.NoError(t, c.Append("seq-3", testEvent("e")))

	assert.Equal(t, 3, c.Len())
	_, ok = c.Events("seq-1")
	assert.False(t, ok, "least recently touched sequence is evicted")
	_, ok = c.Events("seq-0")
	assert.True(t, ok)
	_, ok = c.Events("seq-3")
	assert.True(t, ok)
}

func TestCatalog_List(t *testing.T) {
	c := testCatalog(10)
	require.NoError(t, c.Append("older", testEvent("a")))
	require.NoError(t, c.Append("older", testEvent("b")))
	require.NoError(t, c.Append("newer", testEvent("c")))

	infos := c.List()

	require.Len(t, infos, 2)
	assert.Equal(t, "newer", infos[0].ID, "most recently touched first")
	assert.Equal(t, "older", infos[1].ID)
	assert.Equal(t, 2, infos[1].EventCount)
	assert.Equal(t, "tornado", infos[0].EventType)
}

func TestCatalog_Remove(t *testing.T) {
	c := testCatalog(10)
	require.NoError(t, c.Append("seq", testEvent("a")))

	c.Remove("seq")
	assert.Equal(t, 0, c.Len())
	_, ok := c.Events("seq")
	assert.False(t, ok)

	// Removing twice is harmless.
	c.Remove("seq")
	c.Remove("never-existed")
}

func TestCatalog_Validation(t *testing.T) {
	c := testCatalog(10)

	assert.Error(t, c.Append("", testEvent("a")))

	bare := testEvent("a")
	bare.ID = ""
	assert.Error(t, c.Append("seq", bare))
}
