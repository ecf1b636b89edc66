package repository

import (
	"errors"
	"log/slog"
)

// Query describes a page of a listing.
type Query struct {
	Limit int

	Paginator *Paginator
}

func NewQuery() *Query {
	return &Query{}
}

// ApplyPagination sets the page size (clamped to the maximum) and decodes the page token.
func (q *Query) ApplyPagination(limit int32, token string) error {
	queryLimit := DefaultPaginationLimit
	if limit > 0 {
		queryLimit = min(maxPaginationLimit, int(limit))
	}
	q.Limit = queryLimit

	if token == "" {
		return nil
	}

	paginator, err := DecodePageToken(token)
	if err != nil {
		slog.Error("failed to decode page token", slog.Any("err", err), slog.String("token", token))
		return errors.New("invalid page token")
	}
	q.Paginator = paginator
	return nil
}
