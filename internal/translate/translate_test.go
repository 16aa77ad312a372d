package translate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pride-innovation/atm-gateway/internal/iso"
)

func withdrawalRequest() *iso.Message {
	msg := iso.NewMessage("0200")
	msg.Set(2, iso.LLVar, 13, "4123456789012")
	msg.Set(3, iso.Numeric, 6, "010000")
	msg.Set(4, iso.Amount, 12, "000000050000")
	msg.Set(7, iso.Date10, 10, "0101120000")
	msg.Set(11, iso.Numeric, 6, "000001")
	msg.Set(41, iso.Alpha, 8, "ATM00001")
	msg.Set(49, iso.Numeric, 3, "800")
	return msg
}

func TestIsoToJsonWithdrawal(t *testing.T) {
	doc := IsoToJson(withdrawalRequest())
	assert.Equal(t, "0200", doc["messageType"])
	assert.Equal(t, "412345******9012", doc["cardNumber"])
	assert.Equal(t, "4123456789012", doc["accountNumber"])
	assert.Equal(t, "WITHDRAWAL", doc["transactionType"])
	assert.Equal(t, "000000050000", doc["amountMinor"])
	assert.Equal(t, "500.00", doc["amount"])
	assert.Equal(t, "000001", doc["stan"])
	assert.Equal(t, "800", doc["currencyCode"])
}

func TestIsoToJsonRawFields(t *testing.T) {
	msg := withdrawalRequest()
	msg.Set(70, iso.Numeric, 3, "301")
	doc := IsoToJson(msg)
	raw, ok := doc["rawFields"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "301", raw["70"])
}

func TestIsoToJsonComposite127DottedKeys(t *testing.T) {
	msg := withdrawalRequest()
	nested := iso.NewMessage("")
	nested.Set(5, iso.Alpha, 4, "ABCD")
	msg.SetNested(127, 0, nested)
	doc := IsoToJson(msg)
	raw := doc["rawFields"].(map[string]string)
	assert.Equal(t, "ABCD", raw["127.5"])
}

func TestNormalizeResponseCode(t *testing.T) {
	assert.Equal(t, "00", NormalizeResponseCode("00"))
	assert.Equal(t, "00", NormalizeResponseCode("APPROVED"))
	assert.Equal(t, "51", NormalizeResponseCode("INSUFFICIENT_FUNDS"))
	assert.Equal(t, "61", NormalizeResponseCode("LIMIT_EXCEEDED"))
	assert.Equal(t, "96", NormalizeResponseCode("SOMETHING_UNKNOWN"))
}

func TestJsonToIsoWithdrawalHappyPath(t *testing.T) {
	dict := iso.NewDictionary()
	req := withdrawalRequest()
	esb := Document{
		"responseCode":      "00",
		"authorizationCode": "AUTH01",
		"availableBalance":  1234.56,
		"ledgerBalance":     1234.56,
		"transactionId":     "RRN000000001",
	}
	resp, err := JsonToIso(esb, req, dict)
	require.NoError(t, err)
	assert.False(t, resp.ShortCircuit)
	msg := resp.Message
	assert.Equal(t, "0210", msg.MTI)
	assert.Equal(t, "00", msg.GetString(39))
	assert.Equal(t, "AUTH01", msg.GetString(38))
	assert.Equal(t, "RRN000000001", msg.GetString(37))
	f54, ok := msg.Get(54)
	require.True(t, ok)
	assert.Len(t, f54.Text, 40)
	assert.Equal(t, "0001800C0000001234560002800C000000123456", f54.Text)
}

func TestJsonToIsoSystemErrorShortCircuit(t *testing.T) {
	dict := iso.NewDictionary()
	req := withdrawalRequest()
	esb := Document{"responseCode": "SYSTEM_ERROR", "message": "esb down"}
	resp, err := JsonToIso(esb, req, dict)
	require.NoError(t, err)
	assert.True(t, resp.ShortCircuit)
	assert.Equal(t, "96", resp.Message.GetString(39))
	assert.Equal(t, "0210", resp.Message.MTI)
}

func TestJsonToIsoMiniStatementRoutesTo48(t *testing.T) {
	dict := iso.NewDictionary()
	req := withdrawalRequest()
	req.Set(3, iso.Numeric, 6, "380000")
	esb := Document{
		"responseCode": "00",
		"miniStatement": []any{
			map[string]any{"date": "01/01/2026", "amountMinor": "100000", "currency": "001", "type": "CSH", "drCr": "D"},
			map[string]any{"date": "01/01/2026", "amountMinor": "200000", "currency": "001", "type": "CSH", "drCr": "D"},
			map[string]any{"date": "01/01/2026", "amountMinor": "300000", "currency": "001", "type": "CSH", "drCr": "D"},
		},
	}
	resp, err := JsonToIso(esb, req, dict)
	require.NoError(t, err)
	assert.True(t, resp.Message.Has(48))
	assert.False(t, resp.Message.Has(62))
	assert.True(t, strings.HasSuffix(resp.Message.GetString(48), "~"))
}
