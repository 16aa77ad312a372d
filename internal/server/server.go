// Package server implements C9 TcpServer: the accept loop and bounded
// worker pool that turn a net.Listener into a stream of
// decode->process->encode cycles over the length-prefixed ISO-8583 wire
// format (spec.md §4.9/§5).
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pride-innovation/atm-gateway/internal/iso"
	"github.com/pride-innovation/atm-gateway/internal/metrics"
)

// RequestProcessor is the subset of processor.Processor the server depends
// on, narrowed to an interface so tests can substitute a stub.
type RequestProcessor interface {
	Process(ctx context.Context, request *iso.Message) *iso.Message
}

// Config holds the TcpServer's tunables, sourced from config.ServerConfig.
type Config struct {
	Addr        string
	Workers     int
	IdleTimeout time.Duration
}

// Server is C9: one goroutine per connection, serialized decode->process->
// encode within a connection, bounded overall concurrency via a worker
// semaphore (spec.md §4.9: "a bounded worker pool, default 20").
type Server struct {
	cfg       Config
	codec     *iso.WireCodec
	processor RequestProcessor
	logger    *zap.Logger
	metrics   *metrics.Metrics

	listener net.Listener
	sem      chan struct{}
	wg       sync.WaitGroup

	closeOnce sync.Once
	shutdown  chan struct{}
}

func New(cfg Config, codec *iso.WireCodec, proc RequestProcessor, logger *zap.Logger, m *metrics.Metrics) *Server {
	if cfg.Workers <= 0 {
		cfg.Workers = 20
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 300 * time.Second
	}
	return &Server{
		cfg:       cfg,
		codec:     codec,
		processor: proc,
		logger:    logger,
		metrics:   m,
		sem:       make(chan struct{}, cfg.Workers),
		shutdown:  make(chan struct{}),
	}
}

// ListenAndServe opens the listener and accepts connections until Shutdown
// is called, at which point Accept's error is expected and swallowed.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	if s.logger != nil {
		s.logger.Info("atm gateway listening", zap.String("addr", s.cfg.Addr), zap.Int("workers", s.cfg.Workers))
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
			}
			if s.logger != nil {
				s.logger.Warn("accept error", zap.Error(err))
			}
			continue
		}

		s.wg.Add(1)
		go s.serve(conn)
	}
}

// Shutdown closes the listener and waits (up to ctx's deadline) for every
// in-flight connection's worker goroutine to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.shutdown) })
	if s.listener != nil {
		_ = s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-s.shutdown:
		return
	}

	connID := uuid.New().String()
	logger := s.logger
	if logger != nil {
		logger = logger.With(zap.String("connectionId", connID), zap.String("remoteAddr", conn.RemoteAddr().String()))
		logger.Info("connection opened")
	}
	if s.metrics != nil {
		s.metrics.ConnectionGauge.Inc()
		s.metrics.WorkerPoolBusy.Inc()
		defer s.metrics.ConnectionGauge.Dec()
		defer s.metrics.WorkerPoolBusy.Dec()
	}
	defer func() {
		if logger != nil {
			logger.Info("connection closed")
		}
	}()

	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}

		payload, err := s.codec.ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, iso.ErrFrameIncomplete) && logger != nil {
				logger.Warn("frame read error", zap.Error(err))
			}
			return
		}

		msg, err := s.codec.Decode(payload)
		if err != nil {
			if logger != nil {
				logger.Warn("frame decode error, responding with generic decline", zap.Error(err))
			}
			if writeErr := s.writeParseError(conn); writeErr != nil {
				if logger != nil {
					logger.Warn("failed to write parse-error response", zap.Error(writeErr))
				}
				return
			}
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.IdleTimeout)
		response := s.processor.Process(ctx, msg)
		cancel()

		out, err := s.codec.Encode(response)
		if err != nil {
			if logger != nil {
				logger.Error("response encode error", zap.Error(err))
			}
			return
		}
		if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		if err := s.codec.WriteFrame(conn, out); err != nil {
			if logger != nil {
				logger.Warn("frame write error", zap.Error(err))
			}
			return
		}
	}
}

// writeParseError sends the minimal MTI 0210/field 39="30" response for a
// frame that failed to decode, per spec.md §4.9 — the connection stays
// open, since the failure is scoped to one malformed message.
func (s *Server) writeParseError(conn net.Conn) error {
	resp := iso.NewMessage("0210")
	resp.Set(39, iso.Alpha, 2, "30")
	out, err := s.codec.Encode(resp)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
		return err
	}
	return s.codec.WriteFrame(conn, out)
}
