package iso

import "fmt"

// FieldTemplate describes the wire discipline for one field number, shared
// across every MTI template per spec.md §4.2 (the field set is the same
// table whether a field appears on a 0200 or a 0810).
type FieldTemplate struct {
	Number    int
	Name      string
	Type      IsoType
	MaxLength int // declared length for fixed types; max length for variable types
}

// Dictionary is the MessageDictionary (C2): an immutable, shared field table
// plus the field-127 composite sub-dictionary. Safe for concurrent use once
// built — spec.md §5 "immutable after initialization; freely shared".
type Dictionary struct {
	fields    map[int]FieldTemplate
	subfields map[int]FieldTemplate // field 127's nested sub-dictionary
}

// NewDictionary builds the standard field table from spec.md §4.2. Subfields
// of the composite field 127 are not individually named by the spec beyond
// forbidding 22 and 25; every subfield 1..128 defaults to LLLVAR, max 999.
func NewDictionary() *Dictionary {
	d := &Dictionary{
		fields:    make(map[int]FieldTemplate),
		subfields: make(map[int]FieldTemplate),
	}
	for _, t := range standardFields {
		d.fields[t.Number] = t
	}
	for i := 1; i <= 128; i++ {
		d.subfields[i] = FieldTemplate{Number: i, Name: fmt.Sprintf("sub%d", i), Type: LLLVar, MaxLength: 999}
	}
	return d
}

// standardFields is the field table enumerated in spec.md §4.2, shared by
// every MTI template (0200, 0210, 0231, 0420, 0430, 0800, 0810).
var standardFields = []FieldTemplate{
	{Number: 2, Name: "PAN", Type: LLVar, MaxLength: 19},
	{Number: 3, Name: "ProcessingCode", Type: Numeric, MaxLength: 6},
	{Number: 4, Name: "Amount", Type: Amount, MaxLength: 12},
	{Number: 7, Name: "TransmissionDate", Type: Date10, MaxLength: 10},
	{Number: 11, Name: "STAN", Type: Numeric, MaxLength: 6},
	{Number: 12, Name: "LocalTime", Type: Numeric, MaxLength: 6},
	{Number: 13, Name: "LocalDate", Type: Date4, MaxLength: 4},
	{Number: 32, Name: "AcquiringInstitutionId", Type: LLVar, MaxLength: 11},
	{Number: 33, Name: "ForwardingInstitutionId", Type: LLVar, MaxLength: 11},
	{Number: 35, Name: "Track2", Type: LLVar, MaxLength: 37},
	{Number: 37, Name: "RRN", Type: Alpha, MaxLength: 12},
	{Number: 38, Name: "AuthCode", Type: Alpha, MaxLength: 6},
	{Number: 39, Name: "ResponseCode", Type: Alpha, MaxLength: 2},
	{Number: 41, Name: "TerminalId", Type: Alpha, MaxLength: 8},
	{Number: 42, Name: "MerchantId", Type: Alpha, MaxLength: 15},
	{Number: 43, Name: "MerchantInfo", Type: Alpha, MaxLength: 40},
	{Number: 44, Name: "AdditionalData", Type: LLVar, MaxLength: 25},
	{Number: 48, Name: "AdditionalDataPrivate", Type: LLLVar, MaxLength: 999},
	{Number: 49, Name: "Currency", Type: Numeric, MaxLength: 3},
	{Number: 54, Name: "AdditionalAmounts", Type: LLLVar, MaxLength: 120},
	{Number: 55, Name: "EmvData", Type: LLLBin, MaxLength: 999},
	{Number: 62, Name: "MiniStatement", Type: LLLVar, MaxLength: 999},
	{Number: 64, Name: "MAC", Type: Binary, MaxLength: 8},
	{Number: 70, Name: "NetworkManagementCode", Type: Numeric, MaxLength: 3},
	{Number: 99, Name: "AccountId1", Type: LLVar, MaxLength: 28},
	{Number: 100, Name: "ReceivingInstitutionId", Type: LLVar, MaxLength: 11},
	{Number: 101, Name: "FileName", Type: LLVar, MaxLength: 17},
	{Number: 102, Name: "FromAccount", Type: LLVar, MaxLength: 28},
	{Number: 103, Name: "ToAccount", Type: LLVar, MaxLength: 28},
	{Number: 123, Name: "PrivateData", Type: LLLVar, MaxLength: 999},
	{Number: 127, Name: "Composite", Type: LLLVar, MaxLength: 999},
}

// FieldTemplate returns the template for a top-level field, and whether one
// exists.
func (d *Dictionary) FieldTemplate(n int) (FieldTemplate, bool) {
	t, ok := d.fields[n]
	return t, ok
}

// SubfieldTemplate returns the template for a field-127 subfield.
func (d *Dictionary) SubfieldTemplate(n int) (FieldTemplate, bool) {
	t, ok := d.subfields[n]
	return t, ok
}

// FallbackType implements the C10 "fallback IsoType by field number" table
// used when a field's source doesn't carry type information (a plain string
// value synthesized from ESB JSON, for instance): 39/38/11/37 -> ALPHA,
// 54/48 -> LLLVAR, everything else -> LLVAR.
func (d *Dictionary) FallbackType(n int) IsoType {
	switch n {
	case 39, 38, 11, 37:
		return Alpha
	case 54, 48:
		return LLLVar
	default:
		return LLVar
	}
}

// ZeroValue returns the dictionary's declared-template value for a field —
// the last-resort "template" source in the ResponseAssembler's precedence
// order (request, then ESB-derived response, then dictionary template). An
// empty FieldValue of the field's declared type and length, carrying no
// data, or ok=false if the field has no template entry at all.
func (d *Dictionary) ZeroValue(n int) (FieldValue, bool) {
	t, ok := d.fields[n]
	if !ok {
		return FieldValue{}, false
	}
	length := t.MaxLength
	if t.Type.IsFixed() {
		length = t.MaxLength
	}
	if t.Type.IsBinary() {
		return FieldValue{Type: t.Type, Length: length}, true
	}
	return FieldValue{Type: t.Type, Length: length}, true
}
