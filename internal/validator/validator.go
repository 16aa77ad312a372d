// Package validator implements C3: structural validation of 0200 financial
// requests before any ESB call is attempted.
package validator

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pride-innovation/atm-gateway/internal/iso"
)

// Result is the outcome of ValidateFinancial: either Ok (len(Errors)==0) or
// Failed with a list of human-readable errors, each suitable for truncation
// into field 44 of an error response.
type Result struct {
	Errors []string
}

func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r Result) Summary() string {
	if r.Ok() {
		return ""
	}
	s := r.Errors[0]
	for _, e := range r.Errors[1:] {
		s += "; " + e
	}
	return s
}

var requiredFields = []int{2, 3, 4, 7, 11, 41, 49}

// ValidateFinancial checks a parsed 0200 message per spec.md §4.3. The
// Processor runs it for MTI 0200 and for any MTI it does not recognise —
// reversals (0420/0430) and network management (0800) skip this entirely.
func ValidateFinancial(msg *iso.Message) Result {
	var errs []string

	for _, f := range requiredFields {
		v, ok := msg.Get(f)
		if !ok {
			errs = append(errs, fmt.Sprintf("field %d missing", f))
			continue
		}
		if fieldEmpty(v) {
			errs = append(errs, fmt.Sprintf("field %d empty", f))
		}
	}

	if v, ok := msg.Get(4); ok && !fieldEmpty(v) {
		if len(v.Text) != 12 || !isAllDigits(v.Text) {
			errs = append(errs, "field 4 is not 12 ASCII digits")
		}
	}

	if v, ok := msg.Get(7); ok && !fieldEmpty(v) {
		if _, err := parseDate10(v.Text); err != nil {
			errs = append(errs, "field 7 is not a valid DATE10 value")
		}
	}

	if v, ok := msg.Get(49); ok && !fieldEmpty(v) {
		if len(v.Text) != 3 || !isAllDigits(v.Text) {
			errs = append(errs, "field 49 is not exactly 3 digits")
		}
	}

	if v, ok := msg.Get(2); ok && !fieldEmpty(v) {
		if len(v.Text) < 13 {
			errs = append(errs, "PAN shorter than 13 digits")
		}
	}

	return Result{Errors: errs}
}

func fieldEmpty(v iso.FieldValue) bool {
	if v.Type.IsBinary() {
		return len(v.Raw) == 0
	}
	return v.Text == ""
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseDate10 interprets a 10-digit MMDDhhmmss value against the current
// year, the same expansion C4 IsoToJson uses for transmissionDateTime.
func parseDate10(s string) (time.Time, error) {
	if len(s) != 10 || !isAllDigits(s) {
		return time.Time{}, fmt.Errorf("not 10 digits")
	}
	month, _ := strconv.Atoi(s[0:2])
	day, _ := strconv.Atoi(s[2:4])
	hour, _ := strconv.Atoi(s[4:6])
	minute, _ := strconv.Atoi(s[6:8])
	second, _ := strconv.Atoi(s[8:10])
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, fmt.Errorf("out of range MMDDhhmmss")
	}
	year := time.Now().UTC().Year()
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), nil
}
