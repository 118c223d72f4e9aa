// Package report filters, orders, and summarizes cost records. It works on
// in-memory slices already loaded from the store and never writes anything
// back.
package report

import (
	"slices"
	"strings"
	"time"

	"github.com/xraph/costledger/record"
)

// Window is an inclusive range of calendar days. Bounds compare on the
// date component only, so a due date at 23:59 still falls inside the day
// it names.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	d := dateOf(t)
	return !d.Before(dateOf(w.From)) && !d.After(dateOf(w.To))
}

// Today is the single-day window containing now.
func Today(now time.Time) Window {
	d := dateOf(now)
	return Window{From: d, To: d}
}

// Yesterday is the single-day window before now.
func Yesterday(now time.Time) Window {
	d := dateOf(now).AddDate(0, 0, -1)
	return Window{From: d, To: d}
}

// ThisWeek is the Monday-through-Sunday week containing now.
func ThisWeek(now time.Time) Window {
	from := startOfWeek(now)
	return Window{From: from, To: from.AddDate(0, 0, 6)}
}

// LastWeek is the Monday-through-Sunday week before the one containing now.
func LastWeek(now time.Time) Window {
	from := startOfWeek(now).AddDate(0, 0, -7)
	return Window{From: from, To: from.AddDate(0, 0, 6)}
}

// ThisMonth is the calendar month containing now.
func ThisMonth(now time.Time) Window {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Window{From: from, To: from.AddDate(0, 1, -1)}
}

// IsDueToday reports whether the record's due date is the current day.
func IsDueToday(r *record.Record, now time.Time) bool {
	return r.DueDate != nil && dateOf(*r.DueDate).Equal(dateOf(now))
}

// IsOverdue reports whether the record's due date has passed. A record due
// today is not overdue until the next day.
func IsOverdue(r *record.Record, now time.Time) bool {
	return r.DueDate != nil && dateOf(*r.DueDate).Before(dateOf(now))
}

// Filter selects a subset of records. Zero-valued fields match everything.
type Filter struct {
	// Query matches case-insensitively against reason, category, and
	// description.
	Query    string
	Category record.Category
	Type     record.Type
	// Window, when set, keeps only records whose due date falls inside it.
	// Records without a due date never match a window.
	Window *Window
}

func (f Filter) matches(r *record.Record) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(r.Reason), q) &&
			!strings.Contains(strings.ToLower(string(r.Category)), q) &&
			!strings.Contains(strings.ToLower(r.Description), q) {
			return false
		}
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Window != nil {
		if r.DueDate == nil || !f.Window.Contains(*r.DueDate) {
			return false
		}
	}
	return true
}

// Apply returns the records matching the filter, preserving input order.
func Apply(records []*record.Record, f Filter) []*record.Record {
	out := make([]*record.Record, 0, len(records))
	for _, r := range records {
		if f.matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// SortField names a record column to order by.
type SortField string

const (
	SortByDueDate     SortField = "due_date"
	SortByTotalAmount SortField = "total_amount"
	SortByReceived    SortField = "received"
	SortByRemaining   SortField = "remaining"
	SortByReason      SortField = "reason"
)

// SortBy stably orders records in place. Records without a due date sort
// after dated ones regardless of direction.
func SortBy(records []*record.Record, field SortField, ascending bool) {
	slices.SortStableFunc(records, func(a, b *record.Record) int {
		c := compareField(a, b, field)
		if !ascending {
			c = -c
		}
		return c
	})
}

func compareField(a, b *record.Record, field SortField) int {
	switch field {
	case SortByDueDate:
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		}
		return dateOf(*a.DueDate).Compare(dateOf(*b.DueDate))
	case SortByTotalAmount:
		return compareInt64(a.TotalAmount.Amount, b.TotalAmount.Amount)
	case SortByReceived:
		return compareInt64(a.TotalReceived.Amount, b.TotalReceived.Amount)
	case SortByRemaining:
		return compareInt64(a.AmountRemaining().Amount, b.AmountRemaining().Amount)
	case SortByReason:
		return strings.Compare(strings.ToLower(a.Reason), strings.ToLower(b.Reason))
	}
	return 0
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// startOfWeek returns the Monday beginning the week containing t.
func startOfWeek(t time.Time) time.Time {
	d := dateOf(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
