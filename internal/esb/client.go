// Package esb implements C7 EsbClient: typed JSON calls to the downstream
// core-banking Enterprise Service Bus, with basic-auth, per-transaction
// routing, and transient-failure retry.
package esb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/pride-innovation/atm-gateway/internal/translate"
)

// Config is the set of esb.* configuration keys from spec.md §6.
type Config struct {
	BaseURL        string
	Username       string
	Password       string
	Withdrawal     string
	Deposit        string
	Purchase       string
	BalanceInquiry string
	MiniStatement  string
	RequestTimeout time.Duration
	MaxRetries     uint64
}

// Client is C7, constructed once and shared across connections — it is
// stateless with respect to a single request (spec.md §5).
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	rngMu      sync.Mutex
	rng        *rand.Rand
	health     *healthRegistry
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		health:     newHealthRegistry(),
	}
}

func (c *Client) endpointFor(transactionType string) (string, bool) {
	switch transactionType {
	case "WITHDRAWAL":
		return c.cfg.Withdrawal, true
	case "DEPOSIT":
		return c.cfg.Deposit, true
	case "PURCHASE":
		return c.cfg.Purchase, true
	case "BALANCE_INQUIRY":
		return c.cfg.BalanceInquiry, true
	case "MINI_STATEMENT":
		return c.cfg.MiniStatement, true
	default:
		return "", false
	}
}

// Call issues the POST for transactionType and returns the normalized
// response document. It never returns a Go error: a missing route, an open
// circuit, or an I/O failure is surfaced as a responseCode:"SYSTEM_ERROR"
// document, and a non-2xx status as a fixed code (3xx "51", 4xx "14", other
// "96") per spec.md §4.7, leaving the Processor to translate that into the
// §7 error taxonomy.
func (c *Client) Call(ctx context.Context, transactionType string, body translate.Document) translate.Document {
	path, ok := c.endpointFor(transactionType)
	if !ok {
		// TRANSFER has no dedicated endpoint — open question resolved in
		// SPEC_FULL.md §12: surface an immediate EsbError, no HTTP call.
		return translate.Document{
			"responseCode": "SYSTEM_ERROR",
			"message":      fmt.Sprintf("no ESB route configured for transaction type %s", transactionType),
		}
	}

	endpointHealth := c.health.get(transactionType)
	if !endpointHealth.Allow() {
		if c.logger != nil {
			c.logger.Warn("esb endpoint circuit open, short-circuiting", zap.String("transactionType", transactionType))
		}
		return translate.Document{
			"responseCode": "SYSTEM_ERROR",
			"message":      fmt.Sprintf("%s endpoint circuit open", transactionType),
		}
	}

	body["externalRef"] = c.externalRef()
	if transactionType == "MINI_STATEMENT" {
		from, to := miniStatementRange()
		body["fromDate"] = from
		body["toDate"] = to
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return systemError(err)
	}

	var respDoc translate.Document
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err // transient: DNS/connect/timeout — retry
		}
		defer resp.Body.Close()
		respDoc, err = c.normalize(resp)
		return err
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.cfg.MaxRetries)
	notify := func(err error, wait time.Duration) {
		if c.logger != nil {
			c.logger.Warn("esb call retrying", zap.String("transactionType", transactionType), zap.Error(err), zap.Duration("wait", wait))
		}
	}
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		endpointHealth.RecordFailure()
		return systemError(err)
	}
	endpointHealth.RecordSuccess()
	return respDoc
}

// normalize implements the §4.7 response-normalization table: decode on
// 2xx-with-body, synthesize a success on 2xx-without-body, and map 3xx/4xx/
// other status classes to fixed response codes.
func (c *Client) normalize(resp *http.Response) (translate.Document, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if len(bytes.TrimSpace(raw)) == 0 {
			return translate.Document{"responseCode": "00", "message": resp.Status}, nil
		}
		var doc translate.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("esb: decode response: %w", err)
		}
		return doc, nil
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return translate.Document{"responseCode": "51", "message": resp.Status}, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return translate.Document{"responseCode": "14", "message": resp.Status}, nil
	default:
		return translate.Document{"responseCode": "96", "message": resp.Status}, nil
	}
}

func systemError(err error) translate.Document {
	return translate.Document{"responseCode": "SYSTEM_ERROR", "message": err.Error()}
}

const refLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// externalRef builds "Ref " + yyyyMMddHHmmssSSS + 5 uppercase letters + 5
// digits, per spec.md §4.7 (confirmed against ESBClient.java's reference
// format in SPEC_FULL.md §11). c.rng is shared across every connection's
// goroutine, so access is serialized under rngMu — *rand.Rand is not safe
// for concurrent use.
func (c *Client) externalRef() string {
	now := time.Now().UTC()
	ts := now.Format("20060102150405") + fmt.Sprintf("%03d", now.Nanosecond()/1_000_000)

	c.rngMu.Lock()
	var letters strings.Builder
	for i := 0; i < 5; i++ {
		letters.WriteByte(refLetters[c.rng.Intn(len(refLetters))])
	}
	var digits strings.Builder
	for i := 0; i < 5; i++ {
		digits.WriteByte(byte('0' + c.rng.Intn(10)))
	}
	c.rngMu.Unlock()

	return "Ref " + ts + letters.String() + digits.String()
}

// miniStatementRange returns [today-3months, today] as dd/MM/yyyy, per
// spec.md §4.7.
func miniStatementRange() (string, string) {
	now := time.Now().UTC()
	from := now.AddDate(0, -3, 0)
	const layout = "02/01/2006"
	return from.Format(layout), now.Format(layout)
}
