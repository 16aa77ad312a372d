package translate

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pride-innovation/atm-gateway/internal/iso"
)

// Response is the result of JsonToIso: the converted message, and whether
// the ESB reply demands the short error form (spec.md §4.5) that bypasses
// the normal response-assembly precedence entirely.
type Response struct {
	Message      *iso.Message
	ShortCircuit bool
}

// NormalizeResponseCode implements the §4.5 response-code normalization
// table: a verbatim 2-digit code passes through; otherwise a known textual
// code maps to its ISO equivalent; anything unrecognized maps to "96".
func NormalizeResponseCode(code string) string {
	if len(code) == 2 && isDigits(code) {
		return code
	}
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "OK", "SUCCESS", "APPROVED", "APPROVAL":
		return "00"
	case "INSUFFICIENT_FUNDS", "INSUFFICIENT FUNDS", "NOT_ENOUGH_FUNDS":
		return "51"
	case "INVALID_ACCOUNT", "ACCOUNT_NOT_FOUND", "NO_ACCOUNT":
		return "14"
	case "EXCEEDS_LIMIT", "LIMIT_EXCEEDED":
		return "61"
	case "AUTH_FAILED", "DECLINED":
		return "05"
	case "DUPLICATE":
		return "94"
	case "TIMEOUT", "UNAVAILABLE", "SERVICE_UNAVAILABLE":
		return "96"
	default:
		return "96"
	}
}

// ResponseMTI derives the response MTI by incrementing the request's
// message-function digit (the third digit) from 0/2/... to 1/3/...,
// i.e. requestMTI+10 as a 4-digit decimal string (e.g. 0200 -> 0210,
// 0420 -> 0430).
func ResponseMTI(requestMTI string) (string, error) {
	n, err := strconv.Atoi(requestMTI)
	if err != nil {
		return "", fmt.Errorf("translate: MTI %q is not numeric: %w", requestMTI, err)
	}
	return fmt.Sprintf("%04d", n+10), nil
}

// JsonToIso is C5: builds an ISO response from an ESB JSON reply and the
// original request message (spec.md §4.5).
func JsonToIso(esb Document, request *iso.Message, dict *iso.Dictionary) (*Response, error) {
	responseMTI, err := ResponseMTI(request.MTI)
	if err != nil {
		return nil, err
	}

	rawCode, _ := strVal(esb, "responseCode")
	normalized := NormalizeResponseCode(rawCode)

	if strings.EqualFold(rawCode, "SYSTEM_ERROR") || normalized == "96" {
		msg := iso.NewMessage(responseMTI)
		msg.Set(39, iso.Alpha, 2, "96")
		reason, _ := strVal(esb, "message")
		if reason == "" {
			reason = "ESB error"
		}
		reason = truncate(reason, 25)
		msg.Set(44, iso.LLVar, len(reason), reason)
		return &Response{Message: msg, ShortCircuit: true}, nil
	}

	msg := iso.NewMessage(responseMTI)
	msg.Set(39, iso.Alpha, 2, normalized)

	if v, ok := strVal(esb, "transactionId"); ok {
		rrn := truncateLeft12(v)
		msg.Set(37, iso.Alpha, 12, rrn)
	}
	if v, ok := strVal(esb, "stan"); ok {
		msg.Set(11, iso.Numeric, 6, last6(onlyDigits(v)))
	}
	if amt, ok := numericAmount(esb); ok {
		msg.Set(4, iso.Amount, 12, amt)
	}
	if v, ok := strVal(esb, "currency"); ok {
		if isDigits(v) {
			msg.Set(49, iso.Numeric, 3, padLeftZero(v, 3))
		} else {
			msg.Set(49, iso.Alpha, 3, truncateMax(v, 3))
		}
	}

	avail, hasAvail := floatVal(esb, "availableBalance")
	ledger, hasLedger := floatVal(esb, "ledgerBalance")
	if hasAvail || hasLedger {
		currency := currencyForBalance(esb, request)
		f54 := buildField54(ledger, hasLedger, avail, hasAvail, currency)
		msg.Set(54, iso.LLLVar, len(f54), f54)
	}

	if text, ok := strVal(esb, "miniStatementText"); ok {
		setMiniStatement(msg, request, text)
	} else if list, ok := esb["miniStatement"].([]any); ok && len(list) > 0 {
		setMiniStatement(msg, request, renderMiniStatementRecords(list))
	}

	if v, ok := strVal(esb, "message"); ok {
		v = truncate(v, 25)
		msg.Set(44, iso.LLVar, len(v), v)
	}

	if v, ok := strVal(esb, "authorizationCode"); ok {
		setAuthCode(msg, v)
	} else if v, ok := strVal(esb, "approvalCode"); ok {
		setAuthCode(msg, v)
	}

	if v, ok := strVal(esb, "macBase64"); ok {
		raw, err := base64.StdEncoding.DecodeString(v)
		if err == nil {
			raw = fit8(raw)
			msg.SetRaw(64, iso.Binary, 8, raw)
		}
	}

	if v, ok := strVal(esb, "fromAccount"); ok {
		v = truncateMax(v, 28)
		msg.Set(102, iso.LLVar, len(v), v)
	}
	if v, ok := strVal(esb, "toAccount"); ok {
		v = truncateMax(v, 28)
		msg.Set(103, iso.LLVar, len(v), v)
	}

	if rf, ok := esb["rawFields"].(map[string]any); ok {
		applyRawFields(msg, rf, dict)
	}

	return &Response{Message: msg, ShortCircuit: false}, nil
}

// setAuthCode fills field 38, ALPHA6, left-truncating or space-padding.
func setAuthCode(msg *iso.Message, v string) {
	if len(v) > 6 {
		v = v[:6]
	}
	msg.Set(38, iso.Alpha, 6, v)
}

// applyRawFields maps the ESB's rawFields map back onto arbitrary fields:
// direct numeric keys set the named field, dotted keys "N.M" group into a
// JSON object written into field N — only when the response doesn't already
// carry field N (spec.md §4.5).
func applyRawFields(msg *iso.Message, raw map[string]any, dict *iso.Dictionary) {
	grouped := map[string]map[string]any{}
	direct := map[string]string{}

	for k, v := range raw {
		if idx := strings.Index(k, "."); idx >= 0 {
			n := k[:idx]
			if grouped[n] == nil {
				grouped[n] = map[string]any{}
			}
			grouped[n][k[idx+1:]] = v
			continue
		}
		direct[k] = fmt.Sprintf("%v", v)
	}

	for k, v := range direct {
		n, err := strconv.Atoi(k)
		if err != nil || msg.Has(n) {
			continue
		}
		setFieldFromDictionary(msg, dict, n, v)
	}
	for k, sub := range grouped {
		n, err := strconv.Atoi(k)
		if err != nil || msg.Has(n) {
			continue
		}
		b, err := json.Marshal(sub)
		if err != nil {
			continue
		}
		setFieldFromDictionary(msg, dict, n, string(b))
	}
}

func setFieldFromDictionary(msg *iso.Message, dict *iso.Dictionary, n int, text string) {
	t := dict.FallbackType(n)
	maxLen := t.MaxVarLength()
	if tmpl, ok := dict.FieldTemplate(n); ok {
		t = tmpl.Type
		maxLen = tmpl.MaxLength
	}
	if t.IsFixed() {
		if len(text) > maxLen {
			text = text[:maxLen]
		}
		msg.Set(n, t, maxLen, text)
		return
	}
	if maxLen > 0 && len(text) > maxLen {
		text = text[:maxLen]
	}
	msg.Set(n, t, len(text), text)
}
