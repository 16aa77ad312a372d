package charge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testEngine() *Engine {
	return NewEngine(DefaultParams(), Accounts{
		InterSwitchSettlement:      "999000",
		TaxAccount:                 "999001",
		PrideChargeAccount:         "999002",
		InterSwitchChargeAccount:   "999003",
		InterSwitchCommissionsAcct: "999004",
		PrideCommissionsSettlement: "999005",
	})
}

func TestComputeWithinBandCharge(t *testing.T) {
	e := testEngine()
	r := e.Compute("WITHDRAWAL", 50_000*100, "700100200300") // 50,000 major units, well within the 500,000 band
	assert.False(t, r.LimitExceeded)
	assert.NotEmpty(t, r.Charges)
	var total float64
	for _, c := range r.Charges {
		total += c.AmountMajor
	}
	assert.InDelta(t, 2500, total, 1)
}

func TestComputeAboveBandIncreasesCharge(t *testing.T) {
	e := testEngine()
	within := e.Compute("WITHDRAWAL", 400_000*100, "700100200300")
	above := e.Compute("WITHDRAWAL", 900_000*100, "700100200300")

	var withinTotal, aboveTotal float64
	for _, c := range within.Charges {
		withinTotal += c.AmountMajor
	}
	for _, c := range above.Charges {
		aboveTotal += c.AmountMajor
	}
	assert.Greater(t, aboveTotal, withinTotal)
}

func TestComputeLimitExceeded(t *testing.T) {
	e := testEngine()
	r := e.Compute("WITHDRAWAL", 500_000_000+1, "700100200300")
	assert.True(t, r.LimitExceeded)
	assert.Empty(t, r.Charges)
}

func TestComputeDepositHasFlatCommission(t *testing.T) {
	params := DefaultParams()
	params.InterSwitchCommission = 50
	e := NewEngine(params, Accounts{
		InterSwitchSettlement:      "999000",
		InterSwitchCommissionsAcct: "999004",
		PrideCommissionsSettlement: "999005",
	})
	r := e.Compute("DEPOSIT", 100_000*100, "700100200300")
	if assert.NotNil(t, r.Commission) {
		assert.Equal(t, 50.0, r.Commission.AmountMajor)
		assert.Equal(t, "999005", r.Commission.FromAccount)
		assert.Equal(t, "999004", r.Commission.ToAccount)
	}
}

func TestComputeNonChargeableTypeSkipsFees(t *testing.T) {
	e := testEngine()
	r := e.Compute("BALANCE_INQUIRY", 0, "700100200300")
	assert.Empty(t, r.Charges)
	assert.Nil(t, r.Commission)
	assert.False(t, r.LimitExceeded)
}

func TestRoutingDepositVsWithdrawal(t *testing.T) {
	e := testEngine()
	dep := e.Compute("DEPOSIT", 1000*100, "700100200300")
	wd := e.Compute("WITHDRAWAL", 1000*100, "700100200300")
	assert.Equal(t, "999000", dep.Routing.FromAccount)
	assert.Equal(t, "700100200300", dep.Routing.ToAccount)
	assert.Equal(t, "700100200300", wd.Routing.FromAccount)
	assert.Equal(t, "999000", wd.Routing.ToAccount)
}
