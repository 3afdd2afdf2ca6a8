package core

import (
	"context"
	"strings"
)

// Transactor runs fn inside a database transaction.
// Repositories called with the ctx passed to fn take part in that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderingClause joins orderings into an ORDER BY expression, falling back to def.
func OrderingClause(ordering []DBOrdering, def string) string {
	if len(ordering) == 0 {
		return def
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return strings.Join(parts, ", ")
}

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Page selects a window of a result set. A zero Page means "everything".
type Page struct {
	Number int
	Size   int
}

func (p Page) IsZero() bool { return p.Number == 0 && p.Size == 0 }

func (p Page) Limit() int { return p.Size }

func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Window returns the [start, end) bounds of the page within a slice of length n.
func (p Page) Window(n int) (int, int) {
	if p.IsZero() {
		return 0, n
	}
	start := p.Offset()
	if start > n {
		start = n
	}
	end := start + p.Size
	if end > n {
		end = n
	}
	return start, end
}
