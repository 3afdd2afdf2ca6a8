package echoapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/tracking"
)

const (
	orderingParam = "ordering"
	pageParam     = "page"
	pageSizeParam = "page_size"
	fromParam     = "from"
	toParam       = "to"

	dateLayout = "2006-01-02"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Pagination binds ?page=&page_size= to a core.Page.
type Pagination struct {
	core.Page
}

func (p *Pagination) Bind(ctx echo.Context) error {
	p.Number = 1
	p.Size = core.DefaultPageSize

	if val := ctx.QueryParam(pageParam); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			return core.NewValidationError(nil, core.FieldError{Field: pageParam, Error: "must be a positive integer"})
		}
		p.Number = n
	}
	if val := ctx.QueryParam(pageSizeParam); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			return core.NewValidationError(nil, core.FieldError{Field: pageSizeParam, Error: "must be a positive integer"})
		}
		if n > core.MaxPageSize {
			return core.NewValidationError(nil, core.FieldError{
				Field: pageSizeParam,
				Error: fmt.Sprintf("must be less than or equal to %d", core.MaxPageSize),
			})
		}
		p.Size = n
	}
	return nil
}

// ListResponse is the envelope of paginated lists.
type ListResponse struct {
	Count   int         `json:"count"`
	Results interface{} `json:"results"`
}

// bindTimeRange reads ?from=&to= given as RFC3339 timestamps or YYYY-MM-DD dates.
// A date-only `to` covers the whole day.
func bindTimeRange(ctx echo.Context) (tracking.TimeRange, error) {
	var tr tracking.TimeRange
	var err error
	if tr.From, err = parseTimeParam(ctx, fromParam, false); err != nil {
		return tr, err
	}
	if tr.To, err = parseTimeParam(ctx, toParam, true); err != nil {
		return tr, err
	}
	if !tr.From.IsZero() && !tr.To.IsZero() && tr.To.Before(tr.From) {
		return tr, core.NewValidationError(nil, core.FieldError{Field: toParam, Error: "must not be before " + fromParam})
	}
	return tr, nil
}

func parseTimeParam(ctx echo.Context, name string, endOfDay bool) (time.Time, error) {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, val)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{
			Field: name,
			Error: "must be an RFC3339 timestamp or a YYYY-MM-DD date",
		})
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// queryBool returns nil when the param is absent or not a boolean.
func queryBool(ctx echo.Context, name string) *bool {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &b
}

func queryDate(ctx echo.Context, name string, def time.Time) (time.Time, error) {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return core.DateOf(def), nil
	}
	t, err := time.Parse(dateLayout, val)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a YYYY-MM-DD date"})
	}
	return t, nil
}

// bindListParams binds the ordering and pagination shared by admin lists.
func bindListParams(ctx echo.Context) ([]core.DBOrdering, core.Page, error) {
	ordering := new(Ordering)
	ordering.Bind(ctx)
	var page Pagination
	if err := page.Bind(ctx); err != nil {
		return nil, core.Page{}, err
	}
	return ordering.Orderings, page.Page, nil
}
