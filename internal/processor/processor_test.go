package processor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pride-innovation/atm-gateway/internal/charge"
	"github.com/pride-innovation/atm-gateway/internal/iso"
	"github.com/pride-innovation/atm-gateway/internal/translate"
)

type stubEsb struct {
	reply translate.Document
	calls int
	lastTxType string
}

func (s *stubEsb) Call(ctx context.Context, transactionType string, body translate.Document) translate.Document {
	s.calls++
	s.lastTxType = transactionType
	return s.reply
}

func withdrawalRequest() *iso.Message {
	msg := iso.NewMessage("0200")
	msg.Set(2, iso.LLVar, 16, "4123456789012345")
	msg.Set(3, iso.Numeric, 6, "010000")
	msg.Set(4, iso.Amount, 12, "000000050000")
	msg.Set(7, iso.Date10, 10, "0101120000")
	msg.Set(11, iso.Numeric, 6, "000001")
	msg.Set(41, iso.Alpha, 8, "ATM00001")
	msg.Set(49, iso.Numeric, 3, "800")
	return msg
}

func newTestProcessor(esb EsbCaller) *Processor {
	dict := iso.NewDictionary()
	engine := charge.NewEngine(charge.DefaultParams(), charge.Accounts{})
	return New(dict, esb, engine, nil, nil)
}

func TestFinancialHappyPath(t *testing.T) {
	esb := &stubEsb{reply: translate.Document{
		"responseCode":      "00",
		"transactionId":     "TXN123456789",
		"stan":              "1",
		"availableBalance":  1234.56,
		"ledgerBalance":     1234.56,
		"authorizationCode": "AUTH01",
	}}
	p := newTestProcessor(esb)
	resp := p.Process(context.Background(), withdrawalRequest())

	require.NotNil(t, resp)
	assert.Equal(t, "0210", resp.MTI)
	assert.Equal(t, "00", resp.GetString(39))
	assert.Equal(t, "WITHDRAWAL", esb.lastTxType)
	assert.True(t, resp.Has(54))
	assert.Equal(t, "AUTH01", resp.GetString(38))
}

func TestFinancialValidationFailure(t *testing.T) {
	esb := &stubEsb{}
	p := newTestProcessor(esb)
	req := withdrawalRequest()
	req.Remove(4)

	resp := p.Process(context.Background(), req)
	assert.Equal(t, "0231", resp.MTI)
	assert.Equal(t, "30", resp.GetString(39))
	assert.Equal(t, 0, esb.calls, "esb must not be called on validation failure")
}

func TestFinancialLimitExceeded(t *testing.T) {
	esb := &stubEsb{}
	p := newTestProcessor(esb)
	req := withdrawalRequest()
	req.Set(4, iso.Amount, 12, "600000000000") // 6,000,000,000.00 > limit

	resp := p.Process(context.Background(), req)
	assert.Equal(t, "0210", resp.MTI)
	assert.Equal(t, "61", resp.GetString(39))
	assert.Equal(t, 0, esb.calls, "esb must not be called once the limit gate trips")
}

func TestFinancialEsbSystemError(t *testing.T) {
	esb := &stubEsb{reply: translate.Document{"responseCode": "SYSTEM_ERROR", "message": "downstream unreachable"}}
	p := newTestProcessor(esb)
	resp := p.Process(context.Background(), withdrawalRequest())

	assert.Equal(t, "0210", resp.MTI)
	assert.Equal(t, "96", resp.GetString(39))
}

func TestEchoRoundTrips0800(t *testing.T) {
	esb := &stubEsb{}
	p := newTestProcessor(esb)
	req := iso.NewMessage("0800")
	req.Set(11, iso.Numeric, 6, "000042")
	req.Set(70, iso.Numeric, 3, "001")

	resp := p.Process(context.Background(), req)
	assert.Equal(t, "0810", resp.MTI)
	assert.Equal(t, "000042", resp.GetString(11))
	assert.Equal(t, "001", resp.GetString(70))
	assert.Equal(t, 0, esb.calls)
	assert.False(t, resp.Has(39))
}

func TestReversalCallsEsbAndAssemblesRequestFieldsOnly(t *testing.T) {
	esb := &stubEsb{reply: translate.Document{"responseCode": "00", "transactionId": "TXN1"}}
	p := newTestProcessor(esb)
	req := iso.NewMessage("0420")
	req.Set(2, iso.LLVar, 16, "4123456789012345")
	req.Set(3, iso.Numeric, 6, "010000")
	req.Set(4, iso.Amount, 12, "000000050000")
	req.Set(7, iso.Date10, 10, "0101120000")
	req.Set(11, iso.Numeric, 6, "000002")
	req.Set(90, iso.Numeric, 42, "020000012300000000000000000000000000000000")

	resp := p.Process(context.Background(), req)
	assert.Equal(t, "0430", resp.MTI)
	assert.False(t, resp.Has(39), "reversal response carries exactly the request's own field set")
	assert.True(t, resp.Has(90))
	assert.Equal(t, 1, esb.calls)
}

func TestReversalEsbFailureStillEmits96(t *testing.T) {
	esb := &stubEsb{reply: translate.Document{"responseCode": "SYSTEM_ERROR", "message": "timeout"}}
	p := newTestProcessor(esb)
	req := iso.NewMessage("0420")
	req.Set(11, iso.Numeric, 6, "000003")

	resp := p.Process(context.Background(), req)
	assert.Equal(t, "0430", resp.MTI)
	assert.Equal(t, "96", resp.GetString(39))
}
