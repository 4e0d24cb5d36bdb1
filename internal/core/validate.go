package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// maxAmount is the largest integer a float64 represents exactly.
	maxAmount = float64(1<<53 - 1)

	maxNameLength = 100

	minYear = 2000
	maxYear = 2100
)

// ValidateAmount checks a monetary amount: numeric, non-negative, finite and
// within the exactly-representable integer range.
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) {
		return &FieldError{Field: "amount", Reason: "must be a valid number"}
	}
	if math.IsInf(amount, 0) || amount > maxAmount {
		return &FieldError{Field: "amount", Reason: "is too large"}
	}
	if amount < 0 {
		return &FieldError{Field: "amount", Reason: "cannot be negative"}
	}
	return nil
}

// ValidateName checks a source/item name: non-empty after trimming and at
// most 100 characters. The field name is reported as given so messages read
// "source cannot be empty", "item name is too long", etc.
func ValidateName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &FieldError{Field: field, Reason: "cannot be empty"}
	}
	if len(value) > maxNameLength {
		return &FieldError{Field: field, Reason: fmt.Sprintf("is too long (max %d characters)", maxNameLength)}
	}
	return nil
}

// ValidateFullDate checks a YYYY-MM-DD date: canonical form, a real calendar
// day, year within [2000,2100], and not in the future.
func ValidateFullDate(field, date string) error {
	t, err := time.Parse(DateLayout, date)
	if err != nil || t.Format(DateLayout) != date {
		return &FieldError{Field: field, Reason: "must be a valid date in YYYY-MM-DD format"}
	}
	if t.Year() < minYear || t.Year() > maxYear {
		return &FieldError{Field: field, Reason: fmt.Sprintf("year must be between %d and %d", minYear, maxYear)}
	}
	if t.After(time.Now()) {
		return &FieldError{Field: field, Reason: "cannot be in the future"}
	}
	return nil
}

// ValidateRecurringDay checks a day-of-month string for recurring rows:
// "1".."31", optionally zero-padded. The empty string is valid (no recurrence
// day set). Day 31 is accepted even though some months are shorter; those
// months simply materialize nothing.
func ValidateRecurringDay(day string) error {
	if day == "" {
		return nil
	}
	if len(day) > 2 {
		return &FieldError{Field: "recurring date", Reason: "must be a valid day of the month (1-31)"}
	}
	for _, r := range day {
		if r < '0' || r > '9' {
			return &FieldError{Field: "recurring date", Reason: "must be a valid day of the month (1-31)"}
		}
	}
	n, err := strconv.Atoi(day)
	if err != nil || n < 1 || n > 31 {
		return &FieldError{Field: "recurring date", Reason: "must be between 1 and 31"}
	}
	return nil
}

// Today formats t's calendar date in storage form.
func Today(t time.Time) string {
	return t.Format(DateLayout)
}

// Period formats t's calendar month in period-marker form.
func Period(t time.Time) string {
	return t.Format(PeriodLayout)
}
