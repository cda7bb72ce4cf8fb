package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Row is one result row keyed by column name.
type Row map[string]any

// scanRows buffers every row of rs. []byte column values become strings.
func scanRows(rs *sqlx.Rows) ([]Row, error) {
	rows := make([]Row, 0)
	for rs.Next() {
		raw := make(map[string]any)
		if err := rs.MapScan(raw); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(Row, len(raw))
		for col, val := range raw {
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			row[col] = val
		}
		rows = append(rows, row)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return rows, nil
}
