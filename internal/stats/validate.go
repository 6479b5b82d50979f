package stats

import (
	"fmt"
	"math"

	"github.com/saadjs/niclog/internal/model"
)

const (
	MsgAddInvalid    = "Fill all fields with valid numbers to add an entry."
	MsgUpdateInvalid = "Use valid numbers for nicotine, amount, and price."
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Field)
}

// ValidateEntryInput enforces the rules applied before an entry is created:
// a known product type, positive nicotine and amount, and a non-negative price.
func ValidateEntryInput(in EntryInput) error {
	return validateFactors(in, MsgAddInvalid)
}

// ValidateEntryEdit applies the same rules with the message shown when
// editing an existing entry.
func ValidateEntryEdit(in EntryInput) error {
	return validateFactors(in, MsgUpdateInvalid)
}

func validateFactors(in EntryInput, msg string) error {
	if !in.ProductType.Valid() {
		return &ValidationError{Field: "product", Message: msg}
	}
	if !finite(in.NicotinePerUnitMg) || in.NicotinePerUnitMg <= 0 {
		return &ValidationError{Field: "nicotine", Message: msg}
	}
	if !finite(in.Amount) || in.Amount <= 0 {
		return &ValidationError{Field: "amount", Message: msg}
	}
	if in.PricePerUnit.IsNegative() {
		return &ValidationError{Field: "price", Message: msg}
	}
	return nil
}

func EntryInputOf(e model.Entry) EntryInput {
	return EntryInput{
		ProductType:       e.ProductType,
		NicotinePerUnitMg: e.NicotinePerUnitMg,
		Amount:            e.Amount,
		PricePerUnit:      e.PricePerUnit,
		Currency:          e.Currency,
		Timestamp:         e.Timestamp,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
