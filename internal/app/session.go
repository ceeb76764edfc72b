package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cpro-iot/scaleship/internal/domain"
	"github.com/cpro-iot/scaleship/internal/ports"
	"github.com/cpro-iot/scaleship/pkg/frame"
)

// ErrPartialWrite is returned when the command could not be written in full.
var ErrPartialWrite = errors.New("partial write")

var errNotConnected = errors.New("not connected")

// SessionConfig configures the connection manager.
type SessionConfig struct {
	// Target is the scale address as host:port.
	Target string

	// IOTimeout bounds every dial, write, flush, read and drain.
	IOTimeout time.Duration

	// ReconnectBackoff is the constant delay between failed dial attempts.
	ReconnectBackoff time.Duration

	// MaxRetries bounds the redials after a failed first attempt, so at most
	// MaxRetries+1 dials are made. Zero retries forever.
	MaxRetries int
}

// Session owns the TCP connection to the scale. A faulted connection is
// closed and forgotten; the next EnsureConnected always dials a new one.
// A Session is not safe for concurrent use.
type Session struct {
	cfg     SessionConfig
	dialer  ports.Dialer
	logger  ports.Logger
	emitter ports.EventEmitter

	conn net.Conn
	w    *bufio.Writer

	// generation counts established connections.
	generation uint64
}

// NewSession creates a disconnected session.
func NewSession(cfg SessionConfig, dialer ports.Dialer, logger ports.Logger, emitter ports.EventEmitter) *Session {
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = DefaultIOTimeout
	}
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = DefaultReconnectBackoff
	}
	if emitter == nil {
		emitter = ports.NopEmitter{}
	}
	return &Session{
		cfg:     cfg,
		dialer:  dialer,
		logger:  logger,
		emitter: emitter,
	}
}

// Connected reports whether a live connection is held.
func (s *Session) Connected() bool {
	return s.conn != nil
}

// Generation returns the number of connections established so far.
func (s *Session) Generation() uint64 {
	return s.generation
}

// EnsureConnected returns immediately when a connection is held. Otherwise it
// dials until it succeeds, sleeping the reconnect backoff between attempts.
// It fails only when ctx is done or the retry ceiling is reached.
func (s *Session) EnsureConnected(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}

	b := newFixedBackoff(s.cfg.ReconnectBackoff, s.cfg.MaxRetries)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		attempt := b.Next()
		dialCtx, cancel := context.WithTimeout(ctx, s.cfg.IOTimeout)
		conn, err := s.dialer.DialContext(dialCtx, "tcp", s.cfg.Target)
		cancel()

		if err == nil {
			s.conn = conn
			s.w = bufio.NewWriter(conn)
			s.generation++
			s.logger.Info("connection established",
				ports.Int("attempts", attempt),
				ports.Int("session", int(s.generation)),
			)
			s.emitter.OnConnect(attempt)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.emitter.OnConnectError(err, attempt)
		if b.Exhausted() {
			s.logger.Error("connection failure, giving up",
				ports.Err(err),
				ports.Int("attempts", attempt),
			)
			return domain.NewFault(domain.ConnectFault, "dial",
				fmt.Errorf("%w after %d attempts: %v", domain.ErrRetriesExhausted, attempt, err))
		}
		s.logger.Error("connection failure, retry",
			ports.Err(err),
			ports.Int("attempt", attempt),
			ports.Duration("backoff", b.Delay()),
		)
		if err := b.Wait(ctx); err != nil {
			return err
		}
	}
}

// Exchange writes cmd, flushes it and reads exactly n response bytes.
//
// Failures before any response byte arrived are IoFaults. A read that fails
// after 0 < k < n bytes is a FramingFault carrying the k bytes received.
func (s *Session) Exchange(cmd []byte, n int) ([]byte, error) {
	if s.conn == nil {
		return nil, domain.NewFault(domain.IoFault, "write", errNotConnected)
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.IOTimeout)); err != nil {
		return nil, domain.NewFault(domain.IoFault, "write", err)
	}
	if _, err := s.w.Write(cmd); err != nil {
		return nil, domain.NewFault(domain.IoFault, "write", err)
	}
	// A short write by the conn surfaces here as io.ErrShortWrite.
	if err := s.w.Flush(); err != nil {
		if errors.Is(err, io.ErrShortWrite) {
			err = fmt.Errorf("%w: %w", ErrPartialWrite, err)
		}
		return nil, domain.NewFault(domain.IoFault, "flush", err)
	}

	if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.IOTimeout)); err != nil {
		return nil, domain.NewFault(domain.IoFault, "read", err)
	}
	buf := make([]byte, n)
	got, err := io.ReadFull(s.conn, buf)
	if err != nil {
		if got == 0 {
			return nil, domain.NewFault(domain.IoFault, "read", err)
		}
		return nil, &domain.Fault{
			Kind: domain.FramingFault,
			Op:   "read",
			Raw:  buf[:got],
			Err:  fmt.Errorf("%w: read %d/%d bytes: %v", frame.ErrShortFrame, got, n, err),
		}
	}
	s.logger.Debug("frame received", ports.Int("bytes", got))
	return buf, nil
}

// Drain consumes exactly n bytes that trail a frame so that the next request
// starts on a frame boundary.
func (s *Session) Drain(n int) error {
	if n <= 0 {
		return nil
	}
	if s.conn == nil {
		return domain.NewFault(domain.IoFault, "drain", errNotConnected)
	}
	if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.IOTimeout)); err != nil {
		return domain.NewFault(domain.IoFault, "drain", err)
	}
	buf := make([]byte, n)
	got, err := io.ReadFull(s.conn, buf)
	if err != nil {
		return &domain.Fault{
			Kind: domain.IoFault,
			Op:   "drain",
			Raw:  buf[:got],
			Err:  fmt.Errorf("drained %d/%d terminator bytes: %w", got, n, err),
		}
	}
	s.logger.Debug("terminator drained", ports.String("dump", frame.Dump(buf)))
	return nil
}

// Reset shuts the current connection down. The connection is never reused.
func (s *Session) Reset(reason string) {
	if s.conn == nil {
		return
	}
	s.logger.Info("shutdown stream", ports.String("reason", reason))
	if err := s.conn.Close(); err != nil {
		s.logger.Debug("close failed", ports.Err(err))
	}
	s.conn = nil
	s.w = nil
}

// Close releases the connection, if any.
func (s *Session) Close() {
	s.Reset("closing")
}
