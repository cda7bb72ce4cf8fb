package database

import (
	"context"
	"time"
)

// Category classifies a statement notification.
type Category string

// Notification categories.
const (
	CategorySelect Category = "select"
	CategoryInsert Category = "insert"
	CategoryUpdate Category = "update"
	CategoryDelete Category = "delete"
	CategoryWrite  Category = "write"
	CategoryRead   Category = "read"
	CategoryQuery  Category = "query"
)

// AllCategories lists every category in declaration order.
var AllCategories = []Category{
	CategorySelect,
	CategoryInsert,
	CategoryUpdate,
	CategoryDelete,
	CategoryWrite,
	CategoryRead,
	CategoryQuery,
}

// Event is delivered to observers for every notification a session raises.
type Event struct {
	Category  Category  `json:"category"`
	SessionID string    `json:"session_id"`
	Driver    string    `json:"driver"`
	Query     string    `json:"query"`
	Params    Params    `json:"params,omitempty"`
	Time      time.Time `json:"time"`
}

// Observer receives session notifications.
//
// Observers are invoked synchronously, in attach order, on the goroutine
// executing the statement. Implementations that do I/O should hand off.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, ev Event)

// Observe calls f(ctx, ev).
func (f ObserverFunc) Observe(ctx context.Context, ev Event) {
	f(ctx, ev)
}
