package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pride-innovation/atm-gateway/internal/iso"
)

func validRequest() *iso.Message {
	msg := iso.NewMessage("0200")
	msg.Set(2, iso.LLVar, 13, "4123456789012")
	msg.Set(3, iso.Numeric, 6, "010000")
	msg.Set(4, iso.Amount, 12, "000000050000")
	msg.Set(7, iso.Date10, 10, "0101120000")
	msg.Set(11, iso.Numeric, 6, "000001")
	msg.Set(41, iso.Alpha, 8, "ATM00001")
	msg.Set(49, iso.Numeric, 3, "800")
	return msg
}

func TestValidateFinancialHappyPath(t *testing.T) {
	r := ValidateFinancial(validRequest())
	assert.True(t, r.Ok())
}

func TestValidateFinancialMissingField(t *testing.T) {
	msg := validRequest()
	msg.Remove(2)
	r := ValidateFinancial(msg)
	assert.False(t, r.Ok())
}

func TestValidateFinancialPanExactly13DigitsPasses(t *testing.T) {
	msg := validRequest()
	msg.Set(2, iso.LLVar, 13, "1234567890123")
	r := ValidateFinancial(msg)
	assert.True(t, r.Ok(), "13-digit PAN is the documented boundary and must pass")
}

func TestValidateFinancialPanShorterThan13Fails(t *testing.T) {
	msg := validRequest()
	msg.Set(2, iso.LLVar, 12, "123456789012")
	r := ValidateFinancial(msg)
	assert.False(t, r.Ok())
}

func TestValidateFinancialNonDigitAmountFails(t *testing.T) {
	msg := validRequest()
	msg.Set(4, iso.Amount, 12, "00000005000X")
	r := ValidateFinancial(msg)
	assert.False(t, r.Ok())
}

func TestValidateFinancialField49MissingFails(t *testing.T) {
	msg := validRequest()
	msg.Remove(49)
	r := ValidateFinancial(msg)
	assert.False(t, r.Ok())
}

func TestValidateFinancialField49EmptyFails(t *testing.T) {
	msg := validRequest()
	msg.Set(49, iso.Numeric, 3, "")
	r := ValidateFinancial(msg)
	assert.False(t, r.Ok())
}

func TestValidateFinancialBadDate7Fails(t *testing.T) {
	msg := validRequest()
	msg.Set(7, iso.Date10, 10, "1301120000") // month 13 invalid
	r := ValidateFinancial(msg)
	assert.False(t, r.Ok())
}

func TestResultSummaryTruncatable(t *testing.T) {
	msg := validRequest()
	msg.Remove(2)
	msg.Remove(3)
	r := ValidateFinancial(msg)
	assert.NotEmpty(t, r.Summary())
}
