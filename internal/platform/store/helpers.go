package store

import "context"

// Scanner is any read seam, sql or clickhouse
type Scanner interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// Many maps every row through scan; an empty result is a nil slice
func Many[T any](ctx context.Context, q Scanner, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	rs, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []T
	for rs.Next() {
		v, err := scan(rs)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
