package repository

import (
	"log/slog"
)

// ActiveField filters webhooks by their active flag ("true" or "false").
const ActiveField QueryField = "active"

// QueryField names a column a list query can filter on.
type QueryField string

// Query describes one page of a filtered list.
type Query struct {
	Values    map[QueryField]string
	Limit     int
	Paginator *Paginator
}

func NewQuery() *Query {
	return &Query{Values: make(map[QueryField]string)}
}

// With adds an equality filter and returns q for chaining.
func (q *Query) With(field QueryField, val string) *Query {
	q.Values[field] = val
	return q
}

// ApplyPagination clamps limit to (0, 100], defaulting to DefaultPaginationLimit,
// and decodes token when one is given.
func (q *Query) ApplyPagination(limit int32, token string) error {
	switch {
	case limit <= 0:
		q.Limit = DefaultPaginationLimit
	case limit > maxPaginationLimit:
		q.Limit = maxPaginationLimit
	default:
		q.Limit = int(limit)
	}

	if token == "" {
		return nil
	}
	paginator, err := DecodePageToken(token)
	if err != nil {
		slog.Warn("rejected page token", slog.String("token", token), slog.Any("err", err))
		return err
	}
	q.Paginator = paginator
	return nil
}
