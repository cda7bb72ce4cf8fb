package database

import (
	"context"
	"reflect"
	"sync"
	"testing"
)

func TestCollectorClassification(t *testing.T) {
	ctx := context.Background()
	c := NewCollector()

	for _, cat := range []Category{
		CategorySelect, CategoryInsert, CategoryUpdate, CategoryDelete,
		CategoryWrite, CategoryRead, Category("bogus"),
	} {
		c.Observe(ctx, Event{Category: cat})
	}
	c.Observe(ctx, Event{Category: CategoryQuery, Query: "SELECT 1"})
	c.Observe(ctx, Event{Category: CategoryQuery, Query: "SELECT 2"})

	want := Stats{Queries: 2, Selects: 1, Inserts: 1, Updates: 1, Deletes: 1, Writes: 4, Reads: 1}
	if got := c.Snapshot(); got != want {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
	if got := c.QueryList(); !reflect.DeepEqual(got, []string{"SELECT 1", "SELECT 2"}) {
		t.Errorf("QueryList() = %v", got)
	}
}

func TestCollectorQueryListLimit(t *testing.T) {
	ctx := context.Background()
	c := NewCollector(WithQueryListLimit(2))

	for _, q := range []string{"a", "b", "c"} {
		c.Observe(ctx, Event{Category: CategoryQuery, Query: q})
	}

	if got := c.QueryList(); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("QueryList() = %v, want [b c]", got)
	}
	if got := c.Snapshot().Queries; got != 3 {
		t.Errorf("Queries = %d, want 3", got)
	}
}

func TestCollectorQueryListIsCopy(t *testing.T) {
	c := NewCollector()
	c.Observe(context.Background(), Event{Category: CategoryQuery, Query: "x"})

	list := c.QueryList()
	list[0] = "mutated"

	if c.QueryList()[0] != "x" {
		t.Error("QueryList() exposed internal state")
	}
}

func TestCollectorConcurrent(t *testing.T) {
	ctx := context.Background()
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Observe(ctx, Event{Category: CategorySelect})
			c.Observe(ctx, Event{Category: CategoryQuery, Query: "q"})
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.Selects != 50 || s.Reads != 50 || s.Queries != 50 {
		t.Errorf("Snapshot() = %+v, want 50 selects/reads/queries", s)
	}
	if n := len(c.QueryList()); n != 50 {
		t.Errorf("len(QueryList()) = %d, want 50", n)
	}
}
