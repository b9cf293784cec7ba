package core_test

import (
	"testing"

	"budget-service/internal/core"

	"github.com/shopspring/decimal"
)

func line(code string, dir core.LineDirection, amount string) core.EntryLineInput {
	return core.EntryLineInput{
		AccountCode: code,
		Direction:   dir,
		Amount:      decimal.RequireFromString(amount),
	}
}

func TestEntryInput_Validate(t *testing.T) {
	tests := []struct {
		name      string
		entry     core.EntryInput
		expectErr bool
	}{
		{
			name: "balanced two-line entry",
			entry: core.EntryInput{
				ReferenceType: "BUDGET_TRANSFER",
				ReferenceID:   "1->2",
				Narration:     "Q3 reallocation",
				EntryDate:     "2024-07-01",
				Lines: []core.EntryLineInput{
					line("5100", core.Debit, "1500.00"),
					line("5000", core.Credit, "1500.00"),
				},
			},
			expectErr: false,
		},
		{
			name: "unbalanced entry",
			entry: core.EntryInput{
				ReferenceType: "BUDGET_TRANSFER",
				ReferenceID:   "1->2",
				Narration:     "broken",
				EntryDate:     "2024-07-01",
				Lines: []core.EntryLineInput{
					line("5100", core.Debit, "1500.00"),
					line("5000", core.Credit, "1400.00"),
				},
			},
			expectErr: true,
		},
		{
			name: "single line",
			entry: core.EntryInput{
				ReferenceType: "BUDGET_ADJUSTMENT",
				ReferenceID:   "7",
				Narration:     "one-sided",
				EntryDate:     "2024-07-01",
				Lines: []core.EntryLineInput{
					line("5100", core.Debit, "100.00"),
				},
			},
			expectErr: true,
		},
		{
			name: "all debits, no credit side",
			entry: core.EntryInput{
				ReferenceType: "BUDGET_ADJUSTMENT",
				ReferenceID:   "7",
				Narration:     "debit only",
				EntryDate:     "2024-07-01",
				Lines: []core.EntryLineInput{
					line("5100", core.Debit, "100.00"),
					line("5000", core.Debit, "100.00"),
				},
			},
			expectErr: true,
		},
		{
			name: "zero amount line",
			entry: core.EntryInput{
				ReferenceType: "BUDGET_TRANSFER",
				ReferenceID:   "1->2",
				Narration:     "zero line",
				EntryDate:     "2024-07-01",
				Lines: []core.EntryLineInput{
					line("5100", core.Debit, "0.00"),
					line("5000", core.Credit, "0.00"),
				},
			},
			expectErr: true,
		},
		{
			name: "negative amount line",
			entry: core.EntryInput{
				ReferenceType: "BUDGET_TRANSFER",
				ReferenceID:   "1->2",
				Narration:     "negative line",
				EntryDate:     "2024-07-01",
				Lines: []core.EntryLineInput{
					line("5100", core.Debit, "-50.00"),
					line("5000", core.Credit, "-50.00"),
				},
			},
			expectErr: true,
		},
		{
			name: "missing reference",
			entry: core.EntryInput{
				Narration: "no ref",
				EntryDate: "2024-07-01",
				Lines: []core.EntryLineInput{
					line("5100", core.Debit, "100.00"),
					line("5000", core.Credit, "100.00"),
				},
			},
			expectErr: true,
		},
		{
			name: "bad entry date",
			entry: core.EntryInput{
				ReferenceType: "BUDGET_TRANSFER",
				ReferenceID:   "1->2",
				Narration:     "bad date",
				EntryDate:     "07/01/2024",
				Lines: []core.EntryLineInput{
					line("5100", core.Debit, "100.00"),
					line("5000", core.Credit, "100.00"),
				},
			},
			expectErr: true,
		},
		{
			name: "invalid direction",
			entry: core.EntryInput{
				ReferenceType: "BUDGET_TRANSFER",
				ReferenceID:   "1->2",
				Narration:     "bad direction",
				EntryDate:     "2024-07-01",
				Lines: []core.EntryLineInput{
					line("5100", "SIDEWAYS", "100.00"),
					line("5000", core.Credit, "100.00"),
				},
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.expectErr && err == nil {
				t.Errorf("expected validation error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
