package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/entities"
)

func TestParseLoanStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected entities.LoanStatus
	}{
		{"", entities.LoanStatusMaintenance},
		{"m", entities.LoanStatusMaintenance},
		{"o", entities.LoanStatusOnLoan},
		{"a", entities.LoanStatusAvailable},
		{"r", entities.LoanStatusReserved},
		{"On loan", entities.LoanStatusOnLoan},
		{"Reserved", entities.LoanStatusReserved},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLoanStatus(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseLoanStatus_Unknown(t *testing.T) {
	_, err := ParseLoanStatus("x")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = ParseLoanStatus("lost")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestValidateTransition_Lenient(t *testing.T) {
	for _, from := range entities.AllLoanStatuses {
		for _, to := range entities.AllLoanStatuses {
			assert.NoError(t, ValidateTransition(from, to, false), "%s -> %s", from, to)
		}
	}
}

func TestValidateTransition_RejectsUnknownStatus(t *testing.T) {
	err := ValidateTransition(entities.LoanStatusAvailable, entities.LoanStatus("z"), false)
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestValidateTransition_Strict(t *testing.T) {
	tests := []struct {
		from, to entities.LoanStatus
		allowed  bool
	}{
		{entities.LoanStatusMaintenance, entities.LoanStatusAvailable, true},
		{entities.LoanStatusMaintenance, entities.LoanStatusReserved, true},
		{entities.LoanStatusMaintenance, entities.LoanStatusOnLoan, false},
		{entities.LoanStatusAvailable, entities.LoanStatusOnLoan, true},
		{entities.LoanStatusAvailable, entities.LoanStatusMaintenance, true},
		{entities.LoanStatusOnLoan, entities.LoanStatusAvailable, true},
		{entities.LoanStatusOnLoan, entities.LoanStatusReserved, false},
		{entities.LoanStatusReserved, entities.LoanStatusOnLoan, true},
		{entities.LoanStatusOnLoan, entities.LoanStatusOnLoan, true},
	}

	for _, tt := range tests {
		t.Run(tt.from.Label()+"->"+tt.to.Label(), func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to, true)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestStrictTable_EveryStateCanReturnToMaintenance(t *testing.T) {
	for _, from := range entities.AllLoanStatuses {
		if from == entities.LoanStatusMaintenance {
			continue
		}
		assert.Contains(t, AllowedTransitions(from), entities.LoanStatusMaintenance)
	}
}
