package catalog

import (
	"errors"
	"time"
)

const (
	// RenewalWeeksAhead bounds how far into the future a loan may be renewed.
	RenewalWeeksAhead = 4
	// DefaultRenewalWeeks is the form's suggested extension.
	DefaultRenewalWeeks = 3
)

var (
	ErrRenewalInPast      = errors.New("invalid date - renewal in past")
	ErrRenewalTooFarAhead = errors.New("invalid date - renewal more than 4 weeks ahead")
)

// InvalidDateReason names the rule a rejected renewal date broke.
type InvalidDateReason string

const (
	ReasonPastDate    InvalidDateReason = "pastDate"
	ReasonTooFarAhead InvalidDateReason = "tooFarAhead"
)

// InvalidDateError is returned for renewal dates outside the policy window.
type InvalidDateError struct {
	Reason InvalidDateReason
	Date   time.Time
}

func (e *InvalidDateError) Error() string {
	return e.Unwrap().Error()
}

func (e *InvalidDateError) Unwrap() error {
	if e.Reason == ReasonPastDate {
		return ErrRenewalInPast
	}
	return ErrRenewalTooFarAhead
}

// LatestRenewalDate is the last calendar day a renewal may run to.
func LatestRenewalDate(today time.Time) time.Time {
	return AddDays(today, RenewalWeeksAhead*7)
}

// DefaultRenewalDate is the date pre-filled on the renewal form.
func DefaultRenewalDate(today time.Time) time.Time {
	return AddDays(today, DefaultRenewalWeeks*7)
}

// ValidateRenewalDate accepts dates from today up to and including four weeks
// ahead and returns the proposed date without its time-of-day.
func ValidateRenewalDate(proposed, today time.Time) (time.Time, error) {
	date := DateOf(proposed)
	today = DateOf(today)

	if date.Before(today) {
		return time.Time{}, &InvalidDateError{Reason: ReasonPastDate, Date: date}
	}
	if date.After(LatestRenewalDate(today)) {
		return time.Time{}, &InvalidDateError{Reason: ReasonTooFarAhead, Date: date}
	}
	return date, nil
}
