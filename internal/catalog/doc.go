// Package catalog holds the lending rules of the library: which renewal
// dates a librarian may set and how a copy's loan status may change.
//
// Everything here is pure; callers pass "today" explicitly so the rules can
// be evaluated against any calendar day.
//
// # Renewals
//
//	due, err := catalog.ValidateRenewalDate(proposed, catalog.Today(time.Now()))
//	if errors.Is(err, catalog.ErrRenewalTooFarAhead) {
//		// show the form again
//	}
package catalog
