package catalog

import (
	"errors"
	"fmt"

	"github.com/mrlokans/library/internal/entities"
)

var (
	ErrUnknownStatus     = errors.New("unknown loan status")
	ErrInvalidTransition = errors.New("loan status transition not allowed")
)

// transitions is the strict table. A copy may always be written with its
// current status.
var transitions = map[entities.LoanStatus][]entities.LoanStatus{
	entities.LoanStatusMaintenance: {entities.LoanStatusAvailable, entities.LoanStatusReserved},
	entities.LoanStatusAvailable:   {entities.LoanStatusOnLoan, entities.LoanStatusReserved, entities.LoanStatusMaintenance},
	entities.LoanStatusOnLoan:      {entities.LoanStatusAvailable, entities.LoanStatusMaintenance},
	entities.LoanStatusReserved:    {entities.LoanStatusOnLoan, entities.LoanStatusAvailable, entities.LoanStatusMaintenance},
}

// ParseLoanStatus accepts a status code ("m") or label ("Maintenance").
// An empty string yields the default, Maintenance.
func ParseLoanStatus(s string) (entities.LoanStatus, error) {
	if s == "" {
		return entities.LoanStatusMaintenance, nil
	}
	status := entities.LoanStatus(s)
	if status.IsValid() {
		return status, nil
	}
	for _, candidate := range entities.AllLoanStatuses {
		if candidate.Label() == s {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// AllowedTransitions returns the statuses reachable from from under the
// strict table.
func AllowedTransitions(from entities.LoanStatus) []entities.LoanStatus {
	return transitions[from]
}

// ValidateTransition checks a status change. With strict unset any valid
// status may follow any other.
func ValidateTransition(from, to entities.LoanStatus, strict bool) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, string(to))
	}
	if !strict || from == to {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from.Label(), to.Label())
}
