// Package processor implements C8 Processor: the MTI-dispatched
// orchestrator that ties the Validator, IsoToJson, ChargeEngine, EsbClient,
// JsonToIso, and ResponseAssembler together into one request/response cycle.
package processor

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pride-innovation/atm-gateway/internal/assembler"
	"github.com/pride-innovation/atm-gateway/internal/charge"
	"github.com/pride-innovation/atm-gateway/internal/gwerrors"
	"github.com/pride-innovation/atm-gateway/internal/iso"
	"github.com/pride-innovation/atm-gateway/internal/metrics"
	"github.com/pride-innovation/atm-gateway/internal/translate"
	"github.com/pride-innovation/atm-gateway/internal/validator"
)

// EsbCaller is the subset of esb.Client the Processor depends on — narrowed
// to an interface so tests can substitute a stub ESB.
type EsbCaller interface {
	Call(ctx context.Context, transactionType string, body translate.Document) translate.Document
}

// Processor is C8. Stateless — constructed once with its collaborators and
// shared across every connection's worker (spec.md §3, §5).
type Processor struct {
	dict    *iso.Dictionary
	esb     EsbCaller
	charges *charge.Engine
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(dict *iso.Dictionary, esbClient EsbCaller, charges *charge.Engine, logger *zap.Logger, m *metrics.Metrics) *Processor {
	return &Processor{dict: dict, esb: esbClient, charges: charges, logger: logger, metrics: m}
}

// Process dispatches on the request MTI per spec.md §4.8's state machine
// and always returns a response message — every recoverable failure mode is
// translated to an ISO response rather than propagated as a Go error
// (spec.md §7).
func (p *Processor) Process(ctx context.Context, request *iso.Message) *iso.Message {
	start := time.Now()

	var response *iso.Message
	switch request.MTI {
	case "0800":
		response = p.echo(request)
	case "0420", "0430":
		response = p.reversal(ctx, request)
	case "0200":
		response = p.financial(ctx, request)
	default:
		if p.logger != nil {
			p.logger.Warn("unrecognized MTI, handling on generic financial path", zap.String("mti", request.MTI))
		}
		response = p.financial(ctx, request)
	}

	p.recordMetrics(request, response, time.Since(start))
	return response
}

// recordMetrics is a no-op when metrics weren't wired (e.g. unit tests).
func (p *Processor) recordMetrics(request, response *iso.Message, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}
	txType := translate.TransactionType(request.GetString(3))
	responseCode := response.GetString(39)
	p.metrics.RequestCount.WithLabelValues(request.MTI, txType, responseCode).Inc()
	p.metrics.ResponseLatency.WithLabelValues(request.MTI, txType).Observe(elapsed.Seconds())
}

// echo handles 0800 network management: construct 0810, populate exactly
// the request's own field set, no ESB call.
func (p *Processor) echo(request *iso.Message) *iso.Message {
	allowed := assembler.AllowedFields(request, true, false)
	return assembler.Assemble("0810", allowed, request, nil, p.dict)
}

// reversal handles 0420/0430: skip validation, call the ESB with the
// converted request (no charge decomposition and no limit gate, unlike the
// 0200 path), assemble with exactly the request's field set.
func (p *Processor) reversal(ctx context.Context, request *iso.Message) *iso.Message {
	responseMTI, err := translate.ResponseMTI(request.MTI)
	if err != nil {
		return genericFailureResponse(request.MTI)
	}

	doc := translate.IsoToJson(request)
	txType, _ := doc["transactionType"].(string)

	esbReply := p.esb.Call(ctx, txType, doc)
	resp, err := translate.JsonToIso(esbReply, request, p.dict)
	if err != nil {
		p.logError(gwerrors.Wrap(gwerrors.IOError, request.GetString(11), "reversal: convert ESB reply: %v", err))
		return errorResponse(responseMTI, "internal error")
	}
	if resp.ShortCircuit {
		// A reversal whose own ESB call fails must still emit 96, not the
		// request's exact field set — confirmed in SPEC_FULL.md §11 against
		// AtmTransactionProcessorTest.java.
		p.logError(gwerrors.New(gwerrors.EsbUnavailable, request.GetString(11), errors.New(resp.Message.GetString(44))))
		return resp.Message
	}

	allowed := assembler.AllowedFields(request, true, false)
	return assembler.Assemble(responseMTI, allowed, request, resp.Message, p.dict)
}

// financial handles 0200: validate, convert, gate on the charge engine's
// transaction limit, call the ESB, convert the reply, and assemble.
func (p *Processor) financial(ctx context.Context, request *iso.Message) *iso.Message {
	result := validator.ValidateFinancial(request)
	if !result.Ok() {
		p.logError(gwerrors.New(gwerrors.ValidationError, request.GetString(11), errors.New(result.Summary())))
		return validationFailureResponse(result)
	}

	doc := translate.IsoToJson(request)
	txType, _ := doc["transactionType"].(string)
	amountMinor := parseAmountMinor(doc)
	customerAccount := customerAccountFor(txType, doc)

	chargeResult := p.charges.Compute(txType, amountMinor, customerAccount)
	if chargeResult.LimitExceeded {
		responseMTI, err := translate.ResponseMTI(request.MTI)
		if err != nil {
			return genericFailureResponse(request.MTI)
		}
		p.logError(gwerrors.New(gwerrors.LimitExceeded, request.GetString(11), nil))
		return limitExceededResponse(responseMTI)
	}
	attachCharges(doc, chargeResult)

	responseMTI, err := translate.ResponseMTI(request.MTI)
	if err != nil {
		return genericFailureResponse(request.MTI)
	}

	esbReply := p.esb.Call(ctx, txType, doc)
	resp, err := translate.JsonToIso(esbReply, request, p.dict)
	if err != nil {
		if p.metrics != nil {
			p.metrics.EsbErrorCount.WithLabelValues(txType).Inc()
		}
		p.logError(gwerrors.Wrap(gwerrors.IOError, request.GetString(11), "financial: convert ESB reply: %v", err))
		return errorResponse(responseMTI, "internal error")
	}
	if resp.ShortCircuit {
		if p.metrics != nil {
			p.metrics.EsbErrorCount.WithLabelValues(txType).Inc()
		}
		p.logError(gwerrors.New(gwerrors.EsbError, request.GetString(11), errors.New(resp.Message.GetString(44))))
		return resp.Message
	}

	isMini := txType == "MINI_STATEMENT"
	allowed := assembler.AllowedFields(request, false, isMini)
	out := assembler.Assemble(responseMTI, allowed, request, resp.Message, p.dict)
	return out
}

// logError records a classified gateway error against the §7 taxonomy;
// a no-op when no logger was wired (e.g. unit tests).
func (p *Processor) logError(err *gwerrors.Error) {
	if p.logger == nil || err == nil {
		return
	}
	p.logger.Warn("gateway error", zap.String("kind", gwerrors.KindOf(err).String()), zap.String("stan", err.STAN), zap.Error(err))
}

// parseAmountMinor extracts field 4's value as an integer number of minor
// currency units; a malformed amount (already rejected by the Validator for
// 0200) yields zero rather than panicking.
func parseAmountMinor(doc translate.Document) int64 {
	s, _ := doc["amountMinor"].(string)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// customerAccountFor picks the request's own account for the customer side
// of the transaction: field 103 (toAccount) on a DEPOSIT, field 102
// (fromAccount) on a WITHDRAWAL or PURCHASE, falling back to the PAN-derived
// account number when the structured field is absent.
func customerAccountFor(txType string, doc translate.Document) string {
	key := "fromAccount"
	if txType == "DEPOSIT" {
		key = "toAccount"
	}
	if v, ok := doc[key].(string); ok && v != "" {
		return v
	}
	v, _ := doc["accountNumber"].(string)
	return v
}

// attachCharges augments the outbound ESB request document with the
// computed charges/commission, per spec.md §4.7 ("Request body fields:
// ... charges[], commission{}").
func attachCharges(doc translate.Document, result charge.Result) {
	var charges []map[string]any
	for _, c := range result.Charges {
		charges = append(charges, map[string]any{
			"amount":      c.AmountMajor,
			"description": c.Description,
			"toAccount":   c.ToAccount,
		})
	}
	doc["charges"] = charges
	if result.Commission != nil {
		doc["commission"] = map[string]any{
			"amount":      result.Commission.AmountMajor,
			"description": result.Commission.Description,
			"fromAccount": result.Commission.FromAccount,
			"toAccount":   result.Commission.ToAccount,
		}
	}
	if result.Routing.FromAccount != "" {
		doc["fromAccount"] = result.Routing.FromAccount
	}
	if result.Routing.ToAccount != "" {
		doc["toAccount"] = result.Routing.ToAccount
	}
}

// validationFailureResponse implements the 0200 validation-failure path:
// MTI=0231, field 39="30", field 44=truncated summary.
func validationFailureResponse(result validator.Result) *iso.Message {
	msg := iso.NewMessage("0231")
	msg.Set(39, iso.Alpha, 2, "30")
	summary := truncate25(result.Summary())
	msg.Set(44, iso.LLVar, len(summary), summary)
	return msg
}

// limitExceededResponse implements the pre-ESB transaction-limit gate:
// responseMTI (already derived via translate.ResponseMTI), field 39="61",
// field 44 the fixed limit message.
func limitExceededResponse(responseMTI string) *iso.Message {
	msg := iso.NewMessage(responseMTI)
	msg.Set(39, iso.Alpha, 2, "61")
	text := truncate25("Transaction amount exceeds allowed limit")
	msg.Set(44, iso.LLVar, len(text), text)
	return msg
}

// errorResponse implements the generic "96" recovery path for internal and
// EsbUnavailable/EsbError conditions (spec.md §7).
func errorResponse(responseMTI, reason string) *iso.Message {
	msg := iso.NewMessage(responseMTI)
	msg.Set(39, iso.Alpha, 2, "96")
	reason = truncate25(reason)
	msg.Set(44, iso.LLVar, len(reason), reason)
	return msg
}

// genericFailureResponse covers the unrecoverable case where the request
// MTI itself can't be turned into a response MTI (not 4 numeric digits) —
// defends against a malformed frame that nonetheless passed bitmap parsing.
// It still keeps the response within the request's own message class (0800
// network-management traffic gets a 0810, everything else a 0210) rather
// than always answering with a financial-response MTI.
func genericFailureResponse(requestMTI string) *iso.Message {
	mti := "0210"
	if strings.HasPrefix(requestMTI, "08") {
		mti = "0810"
	}
	msg := iso.NewMessage(mti)
	msg.Set(39, iso.Alpha, 2, "96")
	msg.Set(44, iso.LLVar, 11, "bad request")
	return msg
}

func truncate25(s string) string {
	if len(s) > 25 {
		return s[:25]
	}
	return s
}
