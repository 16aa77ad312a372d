package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pride-innovation/atm-gateway/internal/iso"
)

type echoProcessor struct{}

func (echoProcessor) Process(ctx context.Context, request *iso.Message) *iso.Message {
	resp := iso.NewMessage("0810")
	if fv, ok := request.Get(11); ok {
		resp.Fields[11] = fv
	}
	resp.Set(39, iso.Alpha, 2, "00")
	return resp
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestServerRoundTripsOneMessage(t *testing.T) {
	dict := iso.NewDictionary()
	codec := iso.NewWireCodec(dict, false)
	addr := freeAddr(t)

	srv := New(Config{Addr: addr, Workers: 2, IdleTimeout: 2 * time.Second}, codec, echoProcessor{}, nil, nil)
	go func() { _ = srv.ListenAndServe() }()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	conn := dialWithRetry(t, addr)
	defer conn.Close()

	req := iso.NewMessage("0800")
	req.Set(11, iso.Numeric, 6, "000099")
	payload, err := codec.Encode(req)
	require.NoError(t, err)
	require.NoError(t, codec.WriteFrame(conn, payload))

	respPayload, err := codec.ReadFrame(conn)
	require.NoError(t, err)
	resp, err := codec.Decode(respPayload)
	require.NoError(t, err)

	assert.Equal(t, "0810", resp.MTI)
	assert.Equal(t, "000099", resp.GetString(11))
	assert.Equal(t, "00", resp.GetString(39))
}

func TestServerRespondsToMalformedFrameWithoutClosingConnection(t *testing.T) {
	dict := iso.NewDictionary()
	codec := iso.NewWireCodec(dict, false)
	addr := freeAddr(t)

	srv := New(Config{Addr: addr, Workers: 2, IdleTimeout: 2 * time.Second}, codec, echoProcessor{}, nil, nil)
	go func() { _ = srv.ListenAndServe() }()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	conn := dialWithRetry(t, addr)
	defer conn.Close()

	garbage := []byte("not an iso message")
	require.NoError(t, codec.WriteFrame(conn, garbage))

	respPayload, err := codec.ReadFrame(conn)
	require.NoError(t, err)
	resp, err := codec.Decode(respPayload)
	require.NoError(t, err)
	assert.Equal(t, "30", resp.GetString(39))

	// Connection must still be usable for a subsequent well-formed message.
	req := iso.NewMessage("0800")
	req.Set(11, iso.Numeric, 6, "000001")
	payload, err := codec.Encode(req)
	require.NoError(t, err)
	require.NoError(t, codec.WriteFrame(conn, payload))

	respPayload, err = codec.ReadFrame(conn)
	require.NoError(t, err)
	resp, err = codec.Decode(respPayload)
	require.NoError(t, err)
	assert.Equal(t, "000001", resp.GetString(11))
}

func dialWithRetry(t *testing.T, addr string) net.Conn {
	t.Helper()
	var lastErr error
	for i := 0; i < 50; i++ {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			return conn
		}
		lastErr = err
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("could not dial %s: %v", addr, lastErr)
	return nil
}
