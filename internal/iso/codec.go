package iso

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WireCodec is C1: frames a byte-oriented duplex stream with a 2-byte
// big-endian length prefix, and packs/parses ISO-8583 payloads against a
// Dictionary. Stateless with respect to a single request — safe to share
// across connections (spec.md §5).
type WireCodec struct {
	dict       *Dictionary
	useBinary  bool // bitmap encoding: binary bytes vs hex-ASCII
	ignoreTail bool // ignore_trailing_missing_field
}

// NewWireCodec builds a codec bound to dict. useBinaryBitmap selects the
// wire bitmap encoding; it must match across every peer this codec talks to.
func NewWireCodec(dict *Dictionary, useBinaryBitmap bool) *WireCodec {
	return &WireCodec{dict: dict, useBinary: useBinaryBitmap, ignoreTail: true}
}

func (c *WireCodec) bitmapEncoding() BitmapEncoding {
	if c.useBinary {
		return BitmapBinary
	}
	return BitmapHex
}

// ReadFrame reads one 2-byte-length-prefixed payload from r.
func (c *WireCodec) ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, ErrFrameIncomplete
		}
		return nil, fmt.Errorf("iso: read frame length: %w", err)
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, ErrFrameIncomplete
	}
	return payload, nil
}

// WriteFrame writes payload to w with a 2-byte big-endian length prefix.
func (c *WireCodec) WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > 0xFFFF {
		return fmt.Errorf("iso: payload too large for 2-byte length prefix: %d bytes", len(payload))
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("iso: write frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("iso: write frame payload: %w", err)
	}
	return nil
}

// Decode parses a framed payload (MTI + bitmaps + field data) into a Message.
func (c *WireCodec) Decode(payload []byte) (*Message, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: payload shorter than MTI", ErrFrameMalformed)
	}
	mti := string(payload[:4])
	rest := payload[4:]

	bm := newBitmap()
	consumed, err := bm.unpack(rest, c.bitmapEncoding())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameMalformed, err)
	}
	rest = rest[consumed:]

	msg := NewMessage(mti)
	present := bm.presentFields()
	for i, fieldNum := range present {
		tmpl, ok := c.dict.FieldTemplate(fieldNum)
		if !ok {
			return nil, fmt.Errorf("%w: %w: field %d", ErrFrameMalformed, ErrUnknownField, fieldNum)
		}
		isLast := i == len(present)-1
		if len(rest) == 0 {
			if c.ignoreTail && isLast {
				break
			}
			return nil, fmt.Errorf("%w: field %d missing at end of payload", ErrFrameMalformed, fieldNum)
		}
		fv, n, err := c.decodeField(tmpl, rest)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d: %v", ErrFrameMalformed, fieldNum, err)
		}
		if fieldNum == 127 {
			nested, err := c.decodeComposite(fv)
			if err != nil {
				return nil, fmt.Errorf("%w: field 127: %v", ErrFrameMalformed, err)
			}
			msg.SetNested(127, fv.Length, nested)
		} else {
			msg.Fields[fieldNum] = fv
		}
		rest = rest[n:]
	}
	return msg, nil
}

// Encode packs a Message into a frame payload (without the 2-byte length
// prefix — use WriteFrame for that).
func (c *WireCodec) Encode(msg *Message) ([]byte, error) {
	if len(msg.MTI) != 4 {
		return nil, fmt.Errorf("iso: MTI must be 4 digits, got %q", msg.MTI)
	}
	bm := newBitmap()
	present := msg.PresentFields()
	for _, n := range present {
		if err := bm.set(n); err != nil {
			return nil, fmt.Errorf("iso: %w", err)
		}
	}
	bmBytes, err := bm.pack(c.bitmapEncoding())
	if err != nil {
		return nil, err
	}

	var buf strings.Builder
	buf.WriteString(msg.MTI)
	buf.Write(bmBytes)

	for _, n := range present {
		fv := msg.Fields[n]
		var encoded []byte
		if n == 127 && fv.Nested != nil {
			nestedBytes, err := c.encodeComposite(fv.Nested)
			if err != nil {
				return nil, fmt.Errorf("iso: field 127: %w", err)
			}
			encoded, err = c.encodeLengthPrefixed(LLLVar, nestedBytes)
			if err != nil {
				return nil, err
			}
		} else {
			encoded, err = c.encodeField(fv)
			if err != nil {
				return nil, fmt.Errorf("iso: field %d: %w", n, err)
			}
		}
		buf.Write(encoded)
	}
	return []byte(buf.String()), nil
}

// decodeField reads one field's wire form from the front of data, returning
// the parsed value and the number of bytes consumed.
func (c *WireCodec) decodeField(tmpl FieldTemplate, data []byte) (FieldValue, int, error) {
	if tmpl.Type.IsFixed() {
		if len(data) < tmpl.MaxLength {
			return FieldValue{}, 0, fmt.Errorf("need %d bytes, have %d", tmpl.MaxLength, len(data))
		}
		raw := data[:tmpl.MaxLength]
		if tmpl.Type.IsBinary() {
			return FieldValue{Type: tmpl.Type, Length: tmpl.MaxLength, Raw: append([]byte(nil), raw...)}, tmpl.MaxLength, nil
		}
		return FieldValue{Type: tmpl.Type, Length: tmpl.MaxLength, Text: string(raw)}, tmpl.MaxLength, nil
	}

	prefixLen := lengthPrefixDigits(tmpl.Type)
	if len(data) < prefixLen {
		return FieldValue{}, 0, fmt.Errorf("need %d length-prefix bytes, have %d", prefixLen, len(data))
	}
	n, err := strconv.Atoi(string(data[:prefixLen]))
	if err != nil {
		return FieldValue{}, 0, fmt.Errorf("bad length prefix %q: %w", data[:prefixLen], err)
	}
	if n > tmpl.Type.MaxVarLength() || n > tmpl.MaxLength {
		return FieldValue{}, 0, fmt.Errorf("declared length %d exceeds max %d", n, tmpl.MaxLength)
	}
	start := prefixLen
	if len(data) < start+n {
		return FieldValue{}, 0, fmt.Errorf("need %d value bytes, have %d", n, len(data)-start)
	}
	raw := data[start : start+n]
	consumed := start + n
	if tmpl.Type.IsBinary() {
		return FieldValue{Type: tmpl.Type, Length: n, Raw: append([]byte(nil), raw...)}, consumed, nil
	}
	return FieldValue{Type: tmpl.Type, Length: n, Text: string(raw)}, consumed, nil
}

// encodeField packs a single field's wire form: length prefix (if
// applicable) then the padded/truncated value.
func (c *WireCodec) encodeField(fv FieldValue) ([]byte, error) {
	if fv.Type.IsFixed() {
		return c.encodeFixed(fv)
	}
	var body []byte
	if fv.Type.IsBinary() {
		body = fv.Raw
	} else {
		body = []byte(fv.Text)
	}
	return c.encodeLengthPrefixed(fv.Type, body)
}

func (c *WireCodec) encodeFixed(fv FieldValue) ([]byte, error) {
	if fv.Type.IsBinary() {
		out := make([]byte, fv.Length)
		copy(out, fv.Raw)
		return out, nil
	}
	switch fv.Type {
	case Numeric, Amount, Date10, Date4, Time:
		return []byte(padLeft(fv.Text, fv.Length, '0')), nil
	default: // Alpha
		return []byte(padRight(fv.Text, fv.Length, ' ')), nil
	}
}

func (c *WireCodec) encodeLengthPrefixed(t IsoType, body []byte) ([]byte, error) {
	if err := t.validateLength(len(body)); err != nil {
		return nil, err
	}
	prefixLen := lengthPrefixDigits(t)
	prefix := fmt.Sprintf("%0*d", prefixLen, len(body))
	out := make([]byte, 0, prefixLen+len(body))
	out = append(out, []byte(prefix)...)
	out = append(out, body...)
	return out, nil
}

func lengthPrefixDigits(t IsoType) int {
	switch t {
	case LLVar, LLBin:
		return 2
	case LLLVar, LLLBin:
		return 3
	case LLLLVar:
		return 4
	default:
		return 0
	}
}

// decodeComposite parses field 127's payload as a nested Message under the
// sub-dictionary, setting each subfield by its own bitmap presence.
func (c *WireCodec) decodeComposite(fv FieldValue) (*Message, error) {
	data := []byte(fv.Text)
	bm := newBitmap()
	consumed, err := bm.unpack(data, c.bitmapEncoding())
	if err != nil {
		return nil, err
	}
	data = data[consumed:]
	nested := NewMessage("")
	present := bm.presentFields()
	for i, subNum := range present {
		tmpl, ok := c.dict.SubfieldTemplate(subNum)
		if !ok {
			return nil, fmt.Errorf("%w: subfield %d", ErrUnknownField, subNum)
		}
		isLast := i == len(present)-1
		if len(data) == 0 {
			if c.ignoreTail && isLast {
				break
			}
			return nil, fmt.Errorf("subfield %d missing at end of composite", subNum)
		}
		sfv, n, err := c.decodeField(tmpl, data)
		if err != nil {
			return nil, fmt.Errorf("subfield %d: %w", subNum, err)
		}
		nested.Fields[subNum] = sfv
		data = data[n:]
	}
	return nested, nil
}

// encodeComposite packs a nested Message back into field 127's payload: its
// own sub-bitmap followed by each present subfield, after stripping 22/25.
// Operates on a clone so Encode never mutates the caller's Message as a
// side effect — callers that build and inspect a message after encoding
// (assembler.Assemble already strips these subfields itself, but a direct
// Encode call shouldn't silently edit its argument) see their field 127
// untouched.
func (c *WireCodec) encodeComposite(nested *Message) ([]byte, error) {
	nested = nested.Clone()
	nested.Remove(22)
	nested.Remove(25)

	bm := newBitmap()
	present := nested.PresentFields()
	for _, n := range present {
		if err := bm.set(n); err != nil {
			return nil, err
		}
	}
	bmBytes, err := bm.pack(c.bitmapEncoding())
	if err != nil {
		return nil, err
	}
	var buf strings.Builder
	buf.Write(bmBytes)
	for _, n := range present {
		encoded, err := c.encodeField(nested.Fields[n])
		if err != nil {
			return nil, fmt.Errorf("subfield %d: %w", n, err)
		}
		buf.Write(encoded)
	}
	return []byte(buf.String()), nil
}

func padLeft(s string, length int, pad byte) string {
	if len(s) >= length {
		return s[len(s)-length:]
	}
	return strings.Repeat(string(pad), length-len(s)) + s
}

func padRight(s string, length int, pad byte) string {
	if len(s) >= length {
		return s[:length]
	}
	return s + strings.Repeat(string(pad), length-len(s))
}
