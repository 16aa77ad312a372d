package translate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pride-innovation/atm-gateway/internal/iso"
)

const miniStatementMaxRecords = 10
const miniStatementMaxBytes = 999

// miniStatementField returns 48 when the request's processing code (field 3)
// is in the mini-statement family (prefix 32 or 38), else 62 — spec.md §4.5.
func miniStatementField(request *iso.Message) int {
	if request != nil {
		if pc, ok := request.Get(3); ok && len(pc.Text) >= 2 {
			switch pc.Text[:2] {
			case "32", "38":
				return 48
			}
		}
	}
	return 62
}

func setMiniStatement(msg *iso.Message, request *iso.Message, text string) {
	if len(text) > miniStatementMaxBytes {
		text = text[:miniStatementMaxBytes]
	}
	field := miniStatementField(request)
	msg.Set(field, iso.LLLVar, len(text), text)
}

// renderMiniStatementRecords renders a structured record list into the
// plain-text block format of spec.md §4.5: up to 10 lines, one record each,
// the whole block terminated with "~".
func renderMiniStatementRecords(records []any) string {
	var lines []string
	for i, r := range records {
		if i >= miniStatementMaxRecords {
			break
		}
		rec, ok := r.(map[string]any)
		if !ok {
			continue
		}
		lines = append(lines, renderMiniStatementLine(rec))
	}
	return strings.Join(lines, "\n") + "~"
}

func renderMiniStatementLine(rec map[string]any) string {
	date := miniStatementDate(rec)
	amount := miniStatementAmount(rec)
	currency, _ := strVal(Document(rec), "currency")
	if currency == "" {
		currency = "800"
	}
	txType, _ := strVal(Document(rec), "type")
	if txType == "" {
		txType = "CSH"
	}
	drCr, _ := strVal(Document(rec), "drCr")
	if drCr == "" {
		drCr = "D"
	}
	return fmt.Sprintf("%s|%s|%s %s %s|%s", date, amount, currency, txType, drCr, currency)
}

func miniStatementAmount(rec map[string]any) string {
	doc := Document(rec)
	if v, ok := strVal(doc, "amountMinor"); ok {
		return padLeftZero(onlyDigits(v), 12)
	}
	if f, ok := floatVal(doc, "amount"); ok {
		return padLeftZero(strconv.FormatInt(int64(f*100), 10), 12)
	}
	return padLeftZero("0", 12)
}

// miniStatementDate parses a record's date in dd/MM/yyyy, ISO-8601, or a
// compact digit string, and renders it as YYYYMMDDHHmmss.
func miniStatementDate(rec map[string]any) string {
	raw, ok := strVal(Document(rec), "date")
	if !ok {
		return strings.Repeat("0", 14)
	}
	layouts := []string{"02/01/2006 15:04:05", "02/01/2006", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "20060102150405", "20060102"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("20060102150405")
		}
	}
	digits := onlyDigits(raw)
	if len(digits) >= 14 {
		return digits[:14]
	}
	return digits + strings.Repeat("0", 14-len(digits))
}
