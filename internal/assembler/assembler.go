// Package assembler implements C10 ResponseAssembler: builds a response
// message containing exactly the allowed field set, sourced from the
// request, the ESB-converted reply, or the dictionary template, in that
// precedence order.
package assembler

import (
	"github.com/pride-innovation/atm-gateway/internal/iso"
)

// mandatoryFinancialFields are added to the request's own field set for
// every non-reversal financial response (spec.md §4.8).
var mandatoryFinancialFields = []int{38, 39, 54}

// numericSanitizedFields get digits-only reduction, capped to declared max
// length, before wire encoding. 35 (Track-2) and 70 are explicitly excluded.
var numericSanitizedFields = map[int]bool{
	2: true, 32: true, 33: true, 99: true, 100: true, 101: true, 102: true, 103: true, 104: true,
}

// AllowedFields computes the exact field set an outgoing response may
// contain, per spec.md §4.8's allowed-field policy.
func AllowedFields(request *iso.Message, isReversalOrEcho bool, isMiniStatement bool) map[int]bool {
	allowed := map[int]bool{}
	for _, n := range request.PresentFields() {
		allowed[n] = true
	}
	if isReversalOrEcho {
		return allowed
	}
	for _, n := range mandatoryFinancialFields {
		allowed[n] = true
	}
	if isMiniStatement {
		allowed[48] = true
	}
	return allowed
}

// Assemble builds a fresh response message for responseMTI containing
// exactly the fields named in allowed, sourced request-first, then
// esbResponse, then the dictionary template (spec.md §4.8/§4.10).
func Assemble(responseMTI string, allowed map[int]bool, request *iso.Message, esbResponse *iso.Message, dict *iso.Dictionary) *iso.Message {
	out := iso.NewMessage(responseMTI)

	for n := range allowed {
		if fv, ok := sourceValue(n, request, esbResponse, dict); ok {
			out.Fields[n] = fv
		}
	}

	sanitizeNumericFields(out, dict)
	out.RemoveForbidden127Subfields()
	return out
}

// templateExcludedFields are mandatory fields whose dictionary template
// must NOT stand in for an absent value: field 54 only ever carries real
// balance data (spec.md §8, "field 54 length ∈ {40} when present"), so an
// empty LLLVAR placeholder is omitted rather than emitted.
var templateExcludedFields = map[int]bool{54: true}

// sourceValue implements the source precedence: request, then esbResponse,
// then the dictionary template. The dictionary template only applies to
// fields with a real template entry, excluding templateExcludedFields; if
// none of the three sources can supply a field, it is simply absent from
// the response (spec.md §4.8: "never emit fields absent from all three
// sources").
func sourceValue(field int, request *iso.Message, esbResponse *iso.Message, dict *iso.Dictionary) (iso.FieldValue, bool) {
	if request != nil {
		if fv, ok := request.Get(field); ok {
			return fv.Clone(), true
		}
	}
	if esbResponse != nil {
		if fv, ok := esbResponse.Get(field); ok {
			return fv.Clone(), true
		}
	}
	if dict != nil && !templateExcludedFields[field] {
		if fv, ok := dict.ZeroValue(field); ok {
			return fv, true
		}
	}
	return iso.FieldValue{}, false
}

// sanitizeNumericFields caps each numeric field to its dictionary-declared
// max length (spec.md §4.10), falling back to the field's own IsoType when
// the dictionary carries no template for it.
func sanitizeNumericFields(msg *iso.Message, dict *iso.Dictionary) {
	for n := range numericSanitizedFields {
		fv, ok := msg.Get(n)
		if !ok || fv.Type.IsBinary() {
			continue
		}
		digits := onlyDigits(fv.Text)
		max := 0
		if dict != nil {
			if t, ok := dict.FieldTemplate(n); ok {
				max = t.MaxLength
			}
		}
		if max == 0 {
			max = fv.Type.MaxVarLength()
		}
		if max == 0 {
			max = fv.Length
		}
		if max > 0 && len(digits) > max {
			digits = digits[:max]
		}
		fv.Text = digits
		fv.Length = len(digits)
		msg.Fields[n] = fv
	}
}

func onlyDigits(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
