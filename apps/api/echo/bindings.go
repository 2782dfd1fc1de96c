package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/week"
)

// RangeParams binds the `from` and `to` query params (RFC 3339).
type RangeParams struct {
	From string `query:"from"`
	To   string `query:"to"`
}

// Bind falls back to the week around now in loc when neither bound is set.
func (rp *RangeParams) Bind(ctx echo.Context, now time.Time, loc *time.Location) (week.Range, error) {
	if err := ctx.Bind(rp); err != nil {
		return week.Range{}, core.NewValidationError(err)
	}
	if rp.From == "" && rp.To == "" {
		return week.WeekRange(now, loc), nil
	}

	from, err := parseInstant("from", rp.From)
	if err != nil {
		return week.Range{}, err
	}
	to, err := parseInstant("to", rp.To)
	if err != nil {
		return week.Range{}, err
	}
	return week.NewRange(from, to)
}

// parseInstant accepts RFC 3339 or unix milliseconds.
func parseInstant(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: field, Error: "this field is required"})
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: field, Error: "must be an RFC 3339 timestamp"})
	}
	return t.UTC(), nil
}
