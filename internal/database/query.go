package database

import (
	"cmp"
	"maps"
	"slices"
	"strconv"
)

// Params holds bound statement parameters.
//
// Keys that are decimal integers ("0", "1", ...) are positional and bound in
// ascending index order. Any other key is a named parameter; a leading ':' is
// optional. A single statement must not mix both styles.
type Params map[string]any

// positionalIndex returns the index of a positional key.
func positionalIndex(key string) (int, bool) {
	idx, err := strconv.Atoi(key)
	return idx, err == nil && idx >= 0
}

// QueryAddon is a composable SQL fragment with its parameters.
// It has no lifecycle of its own; it is merged into a Query with Attach.
type QueryAddon struct {
	String string
	Data   Params
}

// Query pairs a SQL template with its bound parameters for Session.Write.
type Query struct {
	String string
	Data   Params
}

// NewQuery creates a Query from a SQL string and optional parameters.
// data is copied.
func NewQuery(sql string, data Params) *Query {
	return &Query{String: sql, Data: maps.Clone(data)}
}

// Attach appends the addon's SQL (padded with a single space on each side)
// and merges its parameters into a new map.
//
// Named addon values win on key collision. Positional addon values are
// appended: they are renumbered, in order, after the highest positional index
// already present, so each fragment's placeholders keep their own values.
func (q *Query) Attach(addon QueryAddon) {
	q.String += " " + addon.String + " "
	if len(addon.Data) == 0 {
		return
	}

	merged := make(Params, len(q.Data)+len(addon.Data))
	next := 0
	for k, v := range q.Data {
		merged[k] = v
		if idx, ok := positionalIndex(k); ok && idx >= next {
			next = idx + 1
		}
	}

	type indexed struct {
		idx int
		v   any
	}
	var positional []indexed
	for k, v := range addon.Data {
		if idx, ok := positionalIndex(k); ok {
			positional = append(positional, indexed{idx, v})
			continue
		}
		merged[k] = v
	}
	slices.SortFunc(positional, func(a, b indexed) int { return cmp.Compare(a.idx, b.idx) })
	for i, p := range positional {
		merged[strconv.Itoa(next+i)] = p.v
	}
	q.Data = merged
}
