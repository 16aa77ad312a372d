// Package iso implements the ISO-8583 wire codec and message dictionary: the
// bitmap/length-prefix framing, the per-field type discipline, and the
// composite field 127 sub-message. It has no knowledge of JSON, the ESB, or
// TCP transport.
package iso

import "fmt"

// IsoType is the wire discipline for a single field value.
type IsoType int

const (
	Alpha   IsoType = iota // fixed width, space-right-padded
	Numeric                // fixed width, zero-left-padded
	Amount                 // fixed width numeric, always 12 digits on the wire
	Date10                 // fixed width 10-digit MMDDhhmmss
	Date4                  // fixed width 4-digit MMDD
	Time                   // fixed width 6-digit hhmmss
	LLVar                  // 2-digit ASCII length prefix, 0..99
	LLLVar                 // 3-digit ASCII length prefix, 0..999
	LLLLVar                // 4-digit ASCII length prefix, 0..9999
	Binary                 // fixed width raw octets
	LLBin                  // 2-digit ASCII length prefix, raw octets
	LLLBin                 // 3-digit ASCII length prefix, raw octets
)

func (t IsoType) String() string {
	switch t {
	case Alpha:
		return "ALPHA"
	case Numeric:
		return "NUMERIC"
	case Amount:
		return "AMOUNT"
	case Date10:
		return "DATE10"
	case Date4:
		return "DATE4"
	case Time:
		return "TIME"
	case LLVar:
		return "LLVAR"
	case LLLVar:
		return "LLLVAR"
	case LLLLVar:
		return "LLLLVAR"
	case Binary:
		return "BINARY"
	case LLBin:
		return "LLBIN"
	case LLLBin:
		return "LLLBIN"
	default:
		return "UNKNOWN"
	}
}

// IsFixed reports whether the wire form has no length prefix.
func (t IsoType) IsFixed() bool {
	switch t {
	case Alpha, Numeric, Amount, Date10, Date4, Time, Binary:
		return true
	default:
		return false
	}
}

// IsBinary reports whether the field's value is raw octets rather than text.
func (t IsoType) IsBinary() bool {
	switch t {
	case Binary, LLBin, LLLBin:
		return true
	default:
		return false
	}
}

// MaxVarLength returns the maximum length a variable-length discipline allows.
func (t IsoType) MaxVarLength() int {
	switch t {
	case LLVar, LLBin:
		return 99
	case LLLVar, LLLBin:
		return 999
	case LLLLVar:
		return 9999
	default:
		return 0
	}
}

// FieldValue is one populated data element. Exactly one of Text, Raw, or
// Nested is meaningful, determined by Type: binary disciplines use Raw
// (never base64 — spec invariant), composite field 127 uses Nested, every
// other discipline uses Text.
type FieldValue struct {
	Type   IsoType
	Length int // declared length: exact for fixed types, actual encoded length for variable types
	Text   string
	Raw    []byte
	Nested *Message
}

// Clone returns a deep copy so callers can mutate a FieldValue (e.g. the
// ResponseAssembler stripping subfields from a mirrored 127) without
// aliasing the source message.
func (fv FieldValue) Clone() FieldValue {
	out := fv
	if fv.Raw != nil {
		out.Raw = append([]byte(nil), fv.Raw...)
	}
	if fv.Nested != nil {
		out.Nested = fv.Nested.Clone()
	}
	return out
}

// Message is a parsed or to-be-packed ISO-8583 message: an MTI plus a sparse
// map of field number (1..128) to FieldValue. Field 0 (the MTI) is never a
// map entry — invariant (i) of the data model.
type Message struct {
	MTI    string
	Fields map[int]FieldValue
}

// NewMessage returns an empty message with the given MTI.
func NewMessage(mti string) *Message {
	return &Message{MTI: mti, Fields: make(map[int]FieldValue)}
}

// Get returns the field value and whether it was present.
func (m *Message) Get(field int) (FieldValue, bool) {
	fv, ok := m.Fields[field]
	return fv, ok
}

// GetString returns a text field's value, or "" if absent or binary/composite.
func (m *Message) GetString(field int) string {
	fv, ok := m.Fields[field]
	if !ok || fv.Type.IsBinary() || fv.Nested != nil {
		return ""
	}
	return fv.Text
}

// Has reports whether the field is present.
func (m *Message) Has(field int) bool {
	_, ok := m.Fields[field]
	return ok
}

// Set stores a text field value.
func (m *Message) Set(field int, t IsoType, length int, text string) {
	m.Fields[field] = FieldValue{Type: t, Length: length, Text: text}
}

// SetRaw stores a binary field value.
func (m *Message) SetRaw(field int, t IsoType, length int, raw []byte) {
	m.Fields[field] = FieldValue{Type: t, Length: length, Raw: raw}
}

// SetNested stores the composite field 127 value.
func (m *Message) SetNested(field int, length int, nested *Message) {
	m.Fields[field] = FieldValue{Type: LLLVar, Length: length, Nested: nested}
}

// Remove deletes a field if present; safe to call when absent (idempotent,
// per the removeForbidden127Subfields requirement in spec.md §9).
func (m *Message) Remove(field int) {
	delete(m.Fields, field)
}

// PresentFields returns the populated field numbers in ascending order.
func (m *Message) PresentFields() []int {
	out := make([]int, 0, len(m.Fields))
	for n := range m.Fields {
		out = append(out, n)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Clone deep-copies the message, including any nested composite field.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := NewMessage(m.MTI)
	for n, fv := range m.Fields {
		out.Fields[n] = fv.Clone()
	}
	return out
}

// RemoveForbidden127Subfields strips subfields 22 and 25 from a nested field
// 127, if present. Idempotent: safe to call on a message without field 127,
// or one already stripped.
func (m *Message) RemoveForbidden127Subfields() {
	fv, ok := m.Fields[127]
	if !ok || fv.Nested == nil {
		return
	}
	fv.Nested.Remove(22)
	fv.Nested.Remove(25)
	m.Fields[127] = fv
}

// ForbiddenCompositeSubfields lists the subfields that must never appear in
// an outbound nested field 127 payload.
var ForbiddenCompositeSubfields = []int{22, 25}

func (t IsoType) validateLength(length int) error {
	switch t {
	case LLVar, LLBin:
		if length < 0 || length > 99 {
			return fmt.Errorf("length %d out of range for %s (0..99)", length, t)
		}
	case LLLVar, LLLBin:
		if length < 0 || length > 999 {
			return fmt.Errorf("length %d out of range for %s (0..999)", length, t)
		}
	case LLLLVar:
		if length < 0 || length > 9999 {
			return fmt.Errorf("length %d out of range for %s (0..9999)", length, t)
		}
	}
	return nil
}
