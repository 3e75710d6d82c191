// Package finance derives the monetary fields of a contract from its net
// amount and assigned company. Every derived field goes through Compute;
// nothing else in the codebase sets one of them individually.
package finance

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	vatRate              = decimal.RequireFromString("0.12")
	withholdingStandard  = decimal.RequireFromString("0.05")
	withholdingPreferred = decimal.RequireFromString("0.02")
)

// preferredClientMark is matched against the uppercased company name to pick
// the reduced withholding bracket.
const preferredClientMark = "FUTURENET"

// Breakdown holds the four derived fields plus the inputs they came from.
// Fields are always internally consistent:
// ContractAmount = NetAmount + VATAmount, FinalAmount = ContractAmount - WithholdingAmount.
type Breakdown struct {
	NetAmount         decimal.Decimal
	VATAmount         decimal.Decimal
	ContractAmount    decimal.Decimal
	WithholdingRate   decimal.Decimal
	WithholdingAmount decimal.Decimal
	FinalAmount       decimal.Decimal
}

func IsPreferredClient(companyName string) bool {
	return strings.Contains(strings.ToUpper(companyName), preferredClientMark)
}

// Compute derives VAT, contract amount, withholding and final amount.
// VAT is the only step that rounds (2 decimal places); everything downstream
// keeps full precision until display formatting.
func Compute(net decimal.Decimal, companyName string) Breakdown {
	vat := net.Mul(vatRate).Round(2)
	contract := net.Add(vat)

	rate := withholdingStandard
	if IsPreferredClient(companyName) {
		rate = withholdingPreferred
	}
	withholding := net.Mul(rate)

	return Breakdown{
		NetAmount:         net,
		VATAmount:         vat,
		ContractAmount:    contract,
		WithholdingRate:   rate,
		WithholdingAmount: withholding,
		FinalAmount:       contract.Sub(withholding),
	}
}

// ParseAmount coerces free-form amount input to a decimal. Malformed input
// becomes zero, never an error; thousands separators are tolerated.
func ParseAmount(raw string) decimal.Decimal {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
