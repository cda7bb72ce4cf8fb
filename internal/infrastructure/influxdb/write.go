package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/graydb/internal/database"
)

const measurementQueryStats = "query_stats"

// WriteQueryStats buffers one point of cumulative collector counters, tagged
// with scope (the registry, or a driver name). Use difference() in Flux to
// derive per-interval rates. Dropped silently after Close.
func (c *Client) WriteQueryStats(scope string, stats database.Stats, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(queryStatsPoint(scope, stats, at))
}

func queryStatsPoint(scope string, s database.Stats, at time.Time) *write.Point {
	fields := map[string]any{
		"queries": s.Queries,
		"selects": s.Selects,
		"inserts": s.Inserts,
		"updates": s.Updates,
		"deletes": s.Deletes,
		"writes":  s.Writes,
		"reads":   s.Reads,
	}
	return write.NewPoint(measurementQueryStats, map[string]string{"scope": scope}, fields, at)
}
