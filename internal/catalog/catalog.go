// Package catalog is the bounded in-memory store of named hazard event
// sequences. Ingestion appends events to their sequence; the session API
// reads whole sequences out to start replays. When the catalog is full the
// least recently touched sequence is evicted.
package catalog

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-replay/internal/domain"
	"github.com/couchcryptid/hazard-replay/internal/observability"
)

// DefaultMaxSequences bounds the catalog when no size is configured.
const DefaultMaxSequences = 64

// Info summarizes one stored sequence for listings.
type Info struct {
	ID         string    `json:"id"`
	EventCount int       `json:"event_count"`
	EventType  string    `json:"event_type,omitempty"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
}

// Catalog is a thread-safe LRU store of event sequences.
type Catalog struct {
	maxSequences int
	clock        clockwork.Clock
	logger       *slog.Logger
	metrics      *observability.Metrics

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently touched
	tail    *entry // least recently touched
}

type entry struct {
	id   string
	seq  *storedSequence
	prev *entry
	next *entry
}

// storedSequence accumulates a sequence's events in arrival order,
// replacing on event-ID collisions so updated records supersede stale
// ones.
type storedSequence struct {
	events  []domain.Event
	byID    map[string]int
	created time.Time
	touched time.Time
}

// New creates a catalog bounded to maxSequences.
func New(maxSequences int, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Catalog {
	if maxSequences <= 0 {
		maxSequences = DefaultMaxSequences
	}
	return &Catalog{
		maxSequences: maxSequences,
		clock:        clock,
		logger:       logger,
		metrics:      metrics,
		entries:      make(map[string]*entry),
	}
}

// Append adds an event to the named sequence, creating the sequence if
// needed. An event whose ID is already present replaces the stored
// record.
func (c *Catalog) Append(sequenceID string, e domain.Event) error {
	if sequenceID == "" {
		return fmt.Errorf("sequence ID is required")
	}
	if e.ID == "" {
		return fmt.Errorf("event has no ID")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[sequenceID]
	if !ok {
		ent = &entry{
			id: sequenceID,
			seq: &storedSequence{
				byID:    make(map[string]int),
				created: c.clock.Now().UTC(),
			},
		}
		c.entries[sequenceID] = ent
		c.addToFront(ent)
		c.logger.Debug("sequence created", "sequence", sequenceID)

		if len(c.entries) > c.maxSequences {
			c.evictTail()
		}
	} else {
		c.moveToFront(ent)
	}

	s := ent.seq
	s.touched = c.clock.Now().UTC()
	if i, dup := s.byID[e.ID]; dup {
		s.events[i] = e
	} else {
		s.byID[e.ID] = len(s.events)
		s.events = append(s.events, e)
	}
	c.metrics.CatalogSequences.Set(float64(len(c.entries)))
	return nil
}

// Events returns a copy of the named sequence's events in arrival order.
// Reading a sequence counts as a touch for eviction purposes.
func (c *Catalog) Events(sequenceID string) ([]domain.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[sequenceID]
	if !ok {
		return nil, false
	}
	c.moveToFront(ent)

	out := make([]domain.Event, len(ent.seq.events))
	copy(out, ent.seq.events)
	return out, true
}

// List returns summaries of every stored sequence, most recently touched
// first.
func (c *Catalog) List() []Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Info, 0, len(c.entries))
	for ent := c.head; ent != nil; ent = ent.next {
		info := Info{
			ID:         ent.id,
			EventCount: len(ent.seq.events),
			FirstSeen:  ent.seq.created,
			LastSeen:   ent.seq.touched,
		}
		if len(ent.seq.events) > 0 {
			info.EventType = ent.seq.events[0].EventType
		}
		out = append(out, info)
	}
	return out
}

// Remove deletes a sequence. Removing an unknown ID is a no-op.
func (c *Catalog) Remove(sequenceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[sequenceID]
	if !ok {
		return
	}
	delete(c.entries, sequenceID)
	c.remove(ent)
	c.metrics.CatalogSequences.Set(float64(len(c.entries)))
}

// Len reports the number of stored sequences.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Catalog) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *Catalog) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Catalog) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *Catalog) evictTail() {
	if c.tail == nil {
		return
	}
	evicted := c.tail
	delete(c.entries, evicted.id)
	c.remove(evicted)
	c.logger.Info("sequence evicted",
		"sequence", evicted.id, "events", len(evicted.seq.events))
}
