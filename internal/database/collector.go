package database

import (
	"context"
	"sync"
)

// Stats is a point-in-time copy of the collector counters.
type Stats struct {
	Queries uint64 `json:"queries"`
	Selects uint64 `json:"selects"`
	Inserts uint64 `json:"inserts"`
	Updates uint64 `json:"updates"`
	Deletes uint64 `json:"deletes"`
	Writes  uint64 `json:"writes"`
	Reads   uint64 `json:"reads"`
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithQueryListLimit bounds the executed-query list to the n most recent entries.
// Zero means unbounded.
func WithQueryListLimit(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.limit = n
		}
	}
}

// Collector is the default observer. It counts notifications by category and
// keeps the list of executed query strings.
//
// Counters only increase; there is no reset. Safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	stats   Stats
	queries []string
	limit   int
}

// NewCollector creates an empty Collector.
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Observe applies the category to the counters.
//
// select and the verb categories also count as a read or write; query appends
// the event's query string. read and unknown categories are ignored.
func (c *Collector) Observe(_ context.Context, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Category {
	case CategorySelect:
		c.stats.Selects++
		c.stats.Reads++
	case CategoryInsert:
		c.stats.Inserts++
		c.stats.Writes++
	case CategoryUpdate:
		c.stats.Updates++
		c.stats.Writes++
	case CategoryDelete:
		c.stats.Deletes++
		c.stats.Writes++
	case CategoryWrite:
		c.stats.Writes++
	case CategoryQuery:
		c.stats.Queries++
		c.queries = append(c.queries, ev.Query)
		if c.limit > 0 && len(c.queries) > c.limit {
			// Copy down so the backing array does not grow without bound.
			n := copy(c.queries, c.queries[len(c.queries)-c.limit:])
			c.queries = c.queries[:n]
		}
	}
}

// Snapshot returns a copy of the counters.
func (c *Collector) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// QueryList returns a copy of the executed query strings, oldest first.
func (c *Collector) QueryList() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.queries))
	copy(out, c.queries)
	return out
}
