package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "12.50", want: "12.5"},
		{name: "comma separator", input: "12,50", want: "12.5"},
		{name: "integer", input: "7", want: "7"},
		{name: "high precision survives", input: "0.001", want: "0.001"},
		{name: "whitespace trimmed", input: "  3.14  ", want: "3.14"},
		{name: "empty", input: "", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-5", wantErr: true},
		{name: "explicit plus", input: "+5", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) expected error, got %s", tt.input, got)
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("ParseAmount(%q) error = %v, want ErrValidation", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestSignedAmount(t *testing.T) {
	amount := decimal.RequireFromString("10.25")

	if got := SignedAmount(Expense, amount); !got.Equal(amount.Neg()) {
		t.Errorf("expense contribution = %s, want %s", got, amount.Neg())
	}
	if got := SignedAmount(Income, amount); !got.Equal(amount) {
		t.Errorf("income contribution = %s, want %s", got, amount)
	}
}
