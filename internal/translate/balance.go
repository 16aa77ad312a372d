package translate

import (
	"fmt"
	"math"

	"github.com/pride-innovation/atm-gateway/internal/iso"
)

// currencyForBalance derives the 3-digit currency for field 54 segments:
// the ESB's currency/currencyCode if numeric-3, else the request's field 49,
// else "800" — spec.md §4.5.
func currencyForBalance(esb Document, request *iso.Message) string {
	for _, key := range []string{"currency", "currencyCode"} {
		if v, ok := strVal(esb, key); ok && isDigits(v) && len(v) == 3 {
			return v
		}
	}
	if request != nil {
		if v, ok := request.Get(49); ok && v.Text != "" {
			return padLeftZero(onlyDigits(v.Text), 3)
		}
	}
	return "800"
}

// balanceSegment renders one 20-char "AA TT CCC S NNNNNNNNNNNN" segment.
func balanceSegment(amountType string, currency string, major float64) string {
	sign := byte('C')
	if major < 0 {
		sign = 'D'
	}
	minor := int64(math.Round(math.Abs(major) * 100))
	return fmt.Sprintf("00%s%s%c%012d", amountType, padLeftZero(currency, 3), sign, minor)
}

// buildField54 constructs the 40-byte Additional Amounts field: a ledger
// segment (TT=01) followed by an available segment (TT=02). If only one of
// the two balances is present, it is mirrored into the missing segment.
func buildField54(ledger float64, hasLedger bool, available float64, hasAvailable bool, currency string) string {
	if !hasLedger && hasAvailable {
		ledger = available
	}
	if !hasAvailable && hasLedger {
		available = ledger
	}
	return balanceSegment("01", currency, ledger) + balanceSegment("02", currency, available)
}
