// Package charge implements C6 ChargeEngine: fee/commission decomposition
// for DEPOSIT, WITHDRAWAL, and PURCHASE transactions. Stateless — every
// method takes its configuration as an argument rather than reading a
// process-wide singleton (spec.md §9).
package charge

import "math"

// Accounts names the settlement/collection accounts a charge or commission
// record is routed to or from. All come from configuration (spec.md §6).
type Accounts struct {
	InterSwitchSettlement      string
	TaxAccount                 string
	PrideChargeAccount         string
	InterSwitchChargeAccount   string
	InterSwitchCommissionsAcct string
	PrideCommissionsSettlement string
}

// Params are the fee parameters from esb.charges.* configuration keys.
type Params struct {
	BaseInitial           float64 // default 2,500
	BandSize              float64 // default 500,000
	BandIncrement         float64 // default 1,000
	ExciseDutyRate        float64 // default 0.015
	PrideSharePercent     float64 // default 0.20
	InterSwitchCommission float64
}

// DefaultParams returns the defaults named in spec.md §4.6.
func DefaultParams() Params {
	return Params{
		BaseInitial:       2500,
		BandSize:          500000,
		BandIncrement:     1000,
		ExciseDutyRate:    0.015,
		PrideSharePercent: 0.20,
	}
}

const transactionLimitMinor = 500_000_000

// Charge is one positive-amount ledger entry produced by the engine.
type Charge struct {
	AmountMajor float64
	Description string
	ToAccount   string
}

// Commission is generated only for DEPOSIT.
type Commission struct {
	AmountMajor float64
	Description string
	FromAccount string
	ToAccount   string
}

// Routing carries the source/destination account pair for the transaction
// itself (not its fees): the non-customer side is always the inter-switch
// settlement account; the customer side comes from the request's own
// fromAccount/toAccount (field 102/103) or, failing that, the PAN-derived
// account number.
type Routing struct {
	FromAccount string
	ToAccount   string
}

// Result is the engine's output for one transaction.
type Result struct {
	Charges       []Charge
	Commission    *Commission
	Routing       Routing
	LimitExceeded bool
}

// Engine is C6, constructed once with its fee parameters and account
// configuration and shared across requests — it holds no mutable state.
type Engine struct {
	params   Params
	accounts Accounts
}

func NewEngine(params Params, accounts Accounts) *Engine {
	return &Engine{params: params, accounts: accounts}
}

// chargeableTypes lists the transaction types the engine applies fees to;
// everything else (BALANCE_INQUIRY, MINI_STATEMENT, TRANSFER) yields no
// charges and no limit check (spec.md §4.6: "Applies only to DEPOSIT,
// WITHDRAWAL, PURCHASE").
var chargeableTypes = map[string]bool{
	"DEPOSIT":    true,
	"WITHDRAWAL": true,
	"PURCHASE":   true,
}

// Compute applies the fee/commission decomposition and transaction-limit
// gate for one transaction. amountMinor is the request's field 4 value as
// an integer number of minor currency units. customerAccount is the
// request's own account for the customer side of the transfer — field 103
// (toAccount) on a DEPOSIT, field 102 (fromAccount) on a WITHDRAWAL or
// PURCHASE, falling back to the PAN-derived account number.
func (e *Engine) Compute(transactionType string, amountMinor int64, customerAccount string) Result {
	if !chargeableTypes[transactionType] {
		return Result{Routing: e.routingFor(transactionType, customerAccount)}
	}

	if amountMinor > transactionLimitMinor {
		return Result{LimitExceeded: true, Routing: e.routingFor(transactionType, customerAccount)}
	}

	amountMajor := float64(amountMinor) / 100.0
	base := e.baseCharge(amountMajor)

	prideFee := math.Round(base * e.params.PrideSharePercent)
	interSwitchFee := base - prideFee
	exciseDuty := math.Round(base * e.params.ExciseDutyRate)

	var charges []Charge
	if prideFee > 0 {
		charges = append(charges, Charge{AmountMajor: prideFee, Description: "Pride charge", ToAccount: e.accounts.PrideChargeAccount})
	}
	if interSwitchFee > 0 {
		charges = append(charges, Charge{AmountMajor: interSwitchFee, Description: "Inter-switch charge", ToAccount: e.accounts.InterSwitchChargeAccount})
	}
	if exciseDuty > 0 {
		charges = append(charges, Charge{AmountMajor: exciseDuty, Description: "Excise duty", ToAccount: e.accounts.TaxAccount})
	}

	// The inter-switch commission is a flat configured amount, not a share
	// of the base charge, and is funded from the Pride commissions
	// settlement account rather than the transaction's own accounts.
	var commission *Commission
	if transactionType == "DEPOSIT" && e.params.InterSwitchCommission > 0 {
		commission = &Commission{
			AmountMajor: e.params.InterSwitchCommission,
			Description: "Inter-switch commission",
			FromAccount: e.accounts.PrideCommissionsSettlement,
			ToAccount:   e.accounts.InterSwitchCommissionsAcct,
		}
	}

	return Result{
		Charges:    charges,
		Commission: commission,
		Routing:    e.routingFor(transactionType, customerAccount),
	}
}

// baseCharge implements the band-based base charge from spec.md §4.6.
func (e *Engine) baseCharge(amountMajor float64) float64 {
	if amountMajor <= e.params.BandSize {
		return e.params.BaseInitial
	}
	bands := math.Ceil((amountMajor - e.params.BandSize) / e.params.BandSize)
	return e.params.BaseInitial + e.params.BandIncrement*bands
}

// routingFor derives the transaction's own from/to accounts: DEPOSIT moves
// funds from the settlement account to customerAccount; WITHDRAWAL and
// PURCHASE move funds from customerAccount to the settlement account
// (EsbGatewayService.determineSourceAndDestinationAccounts).
func (e *Engine) routingFor(transactionType, customerAccount string) Routing {
	switch transactionType {
	case "DEPOSIT":
		return Routing{FromAccount: e.accounts.InterSwitchSettlement, ToAccount: customerAccount}
	case "WITHDRAWAL", "PURCHASE":
		return Routing{FromAccount: customerAccount, ToAccount: e.accounts.InterSwitchSettlement}
	default:
		return Routing{}
	}
}
