// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/domain"
)

// --- Pagination ---

// PaginationRequest contains pagination parameters.
type PaginationRequest struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts to the domain pagination filter.
func (p PaginationRequest) ToFilter() domain.ListFilter {
	return domain.ListFilter{Limit: p.Limit, Offset: p.Offset}.Normalize()
}

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// FromListResult maps a domain page through conv.
func FromListResult[E, T any](r domain.ListResult[E], conv func(E) T) ListResponse[T] {
	items := make([]T, len(r.Items))
	for i, e := range r.Items {
		items[i] = conv(e)
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: r.TotalCount,
		Limit:      r.Limit,
		Offset:     r.Offset,
	}
}

// --- Dates ---

// Date is a calendar day. It accepts "2006-01-02" or RFC 3339 and
// always encodes as "2006-01-02".
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(time.DateOnly))
}

// ParseDate parses a day or a timestamp and truncates it to the UTC day.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return domain.DateOnly(t), nil
}

// ParseTime parses an RFC 3339 timestamp or a bare day (midnight UTC).
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

// DatePtr unwraps an optional date.
func DatePtr(d *Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// --- Time range ---

// RangeQuery is a half-open [from, to) window. Missing bounds stay zero.
type RangeQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// Parse returns the parsed bounds.
func (q RangeQuery) Parse() (from, to time.Time, err error) {
	if q.From != "" {
		if from, err = ParseTime(q.From); err != nil {
			return from, to, apperror.NewValidation(err.Error()).WithDetail("field", "from")
		}
	}
	if q.To != "" {
		if to, err = ParseTime(q.To); err != nil {
			return from, to, apperror.NewValidation(err.Error()).WithDetail("field", "to")
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, apperror.NewValidation("from must not be after to")
	}
	return from, to, nil
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
