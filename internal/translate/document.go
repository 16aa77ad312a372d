// Package translate implements C4 IsoToJson and C5 JsonToIso: the
// bidirectional field translation between a parsed ISO-8583 message and the
// canonical JSON document exchanged with the ESB.
package translate

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pride-innovation/atm-gateway/internal/iso"
)

// Document is the canonical JSON shape: a loosely-typed map mirroring the
// ESB contract in spec.md §6, since the core depends only on the JSON shape
// and not on any object model (spec.md §3).
type Document map[string]any

// TransactionType derives the transactionType JSON field from the first two
// digits of field 3 (processing code), per spec.md §4.4's table.
func TransactionType(processingCode string) string {
	if len(processingCode) < 2 {
		return "OTHER"
	}
	switch processingCode[:2] {
	case "00":
		return "PURCHASE"
	case "01":
		return "WITHDRAWAL"
	case "02", "21":
		return "DEPOSIT"
	case "03":
		return "TRANSFER"
	case "31":
		return "BALANCE_INQUIRY"
	case "32", "38":
		return "MINI_STATEMENT"
	default:
		return "OTHER"
	}
}

// maskPAN renders first 6 + "******" + last 4, per spec.md §4.4.
func maskPAN(pan string) string {
	if len(pan) < 10 {
		return pan
	}
	return pan[:6] + "******" + pan[len(pan)-4:]
}

// expandTransmissionDateTime expands a 10-digit MMddHHmmss field 7 value
// into "YYYY-MM-DDTHH:mm:ss" using the current year, per spec.md §4.4.
func expandTransmissionDateTime(raw string) (string, bool) {
	if len(raw) != 10 {
		return "", false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	month, _ := strconv.Atoi(raw[0:2])
	day, _ := strconv.Atoi(raw[2:4])
	hour, _ := strconv.Atoi(raw[4:6])
	minute, _ := strconv.Atoi(raw[6:8])
	second, _ := strconv.Atoi(raw[8:10])
	year := time.Now().UTC().Year()
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	return t.Format("2006-01-02T15:04:05"), true
}

// scaleMinorToMajor renders a 12-digit minor-unit amount string scaled by
// 10^-2, e.g. "000000050000" -> "500.00".
func scaleMinorToMajor(minor string) string {
	n, err := strconv.ParseInt(strings.TrimLeft(minor, "0"), 10, 64)
	if err != nil {
		if minor == "" || strings.Trim(minor, "0") == "" {
			return "0.00"
		}
		return "0.00"
	}
	return fmt.Sprintf("%d.%02d", n/100, n%100)
}

// fieldToRaw renders a field's value as the string form used in rawFields
// (binary fields base64-encoded, everything else verbatim text).
func fieldToRaw(fv iso.FieldValue) string {
	if fv.Type.IsBinary() {
		return base64.StdEncoding.EncodeToString(fv.Raw)
	}
	return fv.Text
}
