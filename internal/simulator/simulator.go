// Package simulator implements a TCP scale terminal that answers poll
// commands with generated readings. It backs the scalesim command and the
// end-to-end tests of the poller.
package simulator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cpro-iot/scaleship/pkg/frame"
	"github.com/cpro-iot/scaleship/pkg/log"
)

// Config configures a simulated terminal.
type Config struct {
	// Addr is the listen address, e.g. ":1234" or "127.0.0.1:0".
	Addr string

	Protocol frame.Protocol

	// Reading produces the reading for the n-th request, starting at 1.
	// Defaults to DefaultReading.
	Reading func(n uint64) frame.Record

	// ShortEvery answers every n-th request with half a frame and closes
	// the connection. Zero disables it.
	ShortEvery uint64

	// SilentEvery leaves every n-th request unanswered. Zero disables it.
	SilentEvery uint64

	Logger log.Logger
}

// Server is a simulated scale terminal.
type Server struct {
	cfg  Config
	term []byte

	requests atomic.Uint64

	mu    sync.Mutex
	ln    net.Listener
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// New creates a server. Call Listen to start accepting connections.
func New(cfg Config) *Server {
	if cfg.Reading == nil {
		cfg.Reading = DefaultReading
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}
	return &Server{
		cfg:   cfg,
		term:  terminator(cfg.Protocol.TerminatorLen),
		conns: make(map[net.Conn]struct{}),
	}
}

// terminator returns n bytes of repeated CR LF.
func terminator(n int) []byte {
	return []byte(strings.Repeat("\r\n", (n+1)/2))[:n]
}

// Listen binds the listen address.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.cfg.Logger.Info("simulator listening",
		log.String("addr", ln.Addr().String()),
		log.String("protocol", s.cfg.Protocol.Name),
	)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Requests returns the number of commands received so far.
func (s *Server) Requests() uint64 {
	return s.requests.Load()
}

// Serve accepts connections until ctx is done, then closes the listener and
// every open connection and waits for the handlers to return.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("simulator: Serve called before Listen")
	}

	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.track(conn, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			s.handle(conn)
		}()
	}
}

// ListenAndServe binds the address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
		return
	}
	delete(s.conns, conn)
	conn.Close()
}

func (s *Server) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		s.ln.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
}

// handle answers commands on one connection until the peer goes away or
// sends something that is not the command.
func (s *Server) handle(conn net.Conn) {
	logger := s.cfg.Logger.With(log.String("peer", conn.RemoteAddr().String()))
	logger.Info("client connected")
	defer logger.Info("client disconnected")

	cmd := s.cfg.Protocol.Command
	buf := make([]byte, len(cmd))
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		if !bytes.Equal(buf, cmd) {
			logger.Warn("unknown command", log.String("dump", frame.Dump(buf)))
			return
		}

		n := s.requests.Add(1)
		switch {
		case s.cfg.SilentEvery > 0 && n%s.cfg.SilentEvery == 0:
			logger.Debug("request left unanswered", log.Int64("request", int64(n)))
			continue
		case s.cfg.ShortEvery > 0 && n%s.cfg.ShortEvery == 0:
			out, err := frame.Encode(s.cfg.Protocol, s.cfg.Reading(n))
			if err != nil {
				logger.Error("encode failed", log.Err(err))
				return
			}
			logger.Debug("sending short frame", log.Int64("request", int64(n)))
			conn.Write(out[:len(out)/2])
			return
		}

		out, err := frame.Encode(s.cfg.Protocol, s.cfg.Reading(n))
		if err != nil {
			logger.Error("encode failed", log.Err(err))
			return
		}
		if _, err := conn.Write(append(out, s.term...)); err != nil {
			logger.Debug("write failed", log.Err(err))
			return
		}
	}
}

// DefaultReading returns a settled reading whose gross weight grows by
// 0.5 kg per request.
func DefaultReading(n uint64) frame.Record {
	now := time.Now()
	gross := float64(n%20000) * 0.5
	tara := 12.5
	return frame.Record{
		ErrorCode:     "00",
		ScaleInMove:   "0",
		GrossNegative: "0",
		Date:          now.Format("02.01.06"),
		Time:          now.Format("15:04"),
		Ident:         fmt.Sprintf("%d", n%10000),
		ScaleNr:       "1",
		Gross:         fmt.Sprintf("%.1f", gross),
		Tara:          fmt.Sprintf("%.1f", tara),
		Net:           fmt.Sprintf("%.1f", gross-tara),
		Unit:          "kg",
		TaraCode:      "T",
		ScaleArea:     "1",
		Terminal:      "1",
		Check:         fmt.Sprintf("%d", n%1000000),
	}
}
