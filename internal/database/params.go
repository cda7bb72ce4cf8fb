package database

import (
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

// bindParams turns a SQL template and its Params into a statement and argument
// list in the native driver's placeholder style.
//
// Positional parameters are bound in ascending index order and '?' placeholders
// are rebound for the driver. Named parameters (":name") are expanded with
// sqlx.Named and then rebound. Mixing the two styles fails with ErrMixedParams.
func bindParams(sqlDriverName, query string, params Params) (string, []any, error) {
	bindType := sqlx.BindType(sqlDriverName)
	if len(params) == 0 {
		return query, nil, nil
	}

	positional := make(map[int]any)
	named := make(map[string]any)
	for key, value := range params {
		if idx, ok := positionalIndex(key); ok {
			positional[idx] = value
			continue
		}
		named[strings.TrimPrefix(key, ":")] = value
	}

	if len(positional) > 0 && len(named) > 0 {
		return "", nil, ErrMixedParams
	}

	if len(named) > 0 {
		expanded, args, err := sqlx.Named(query, named)
		if err != nil {
			return "", nil, err
		}
		return sqlx.Rebind(bindType, expanded), args, nil
	}

	indexes := make([]int, 0, len(positional))
	for idx := range positional {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	args := make([]any, 0, len(indexes))
	for _, idx := range indexes {
		args = append(args, positional[idx])
	}
	return sqlx.Rebind(bindType, query), args, nil
}
