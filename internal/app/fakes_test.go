package app

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/cpro-iot/scaleship/internal/domain"
	"github.com/cpro-iot/scaleship/internal/ports"
	"github.com/cpro-iot/scaleship/pkg/frame"
)

const sampleFrame = "<000226.04.2112:32   71     0.0   154.0  -154.0kg T   1   64819>"

// testLogger records messages so tests can assert on what was logged.
type testLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	fields  []ports.Field
}

type logEntry struct {
	level  string
	msg    string
	fields []ports.Field
}

func newTestLogger() *testLogger {
	return &testLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l *testLogger) log(level, msg string, fields []ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	all := append(append([]ports.Field{}, l.fields...), fields...)
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, fields: all})
}

func (l *testLogger) Debug(msg string, fields ...ports.Field) { l.log("debug", msg, fields) }
func (l *testLogger) Info(msg string, fields ...ports.Field)  { l.log("info", msg, fields) }
func (l *testLogger) Warn(msg string, fields ...ports.Field)  { l.log("warn", msg, fields) }
func (l *testLogger) Error(msg string, fields ...ports.Field) { l.log("error", msg, fields) }

func (l *testLogger) With(fields ...ports.Field) ports.Logger {
	return &testLogger{
		mu:      l.mu,
		entries: l.entries,
		fields:  append(append([]ports.Field{}, l.fields...), fields...),
	}
}

// count returns how many entries were logged at level with msg.
func (l *testLogger) count(level, msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range *l.entries {
		if e.level == level && e.msg == msg {
			n++
		}
	}
	return n
}

var errTimeout = &net.OpError{Op: "read", Net: "tcp", Err: errors.New("i/o timeout")}

// fakeConn is a scripted scale. Every write queues the next response; reads
// past the queued bytes fail like an expired deadline.
type fakeConn struct {
	mu         sync.Mutex
	responses  [][]byte
	rbuf       bytes.Buffer
	written    bytes.Buffer
	shortWrite bool
	closed     bool
}

func newFakeConn(responses ...[]byte) *fakeConn {
	return &fakeConn{responses: responses}
}

func (c *fakeConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	if c.rbuf.Len() == 0 {
		return 0, errTimeout
	}
	return c.rbuf.Read(p)
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	if c.shortWrite {
		c.written.Write(p[:len(p)-1])
		return len(p) - 1, nil
	}
	c.written.Write(p)
	if len(c.responses) > 0 {
		c.rbuf.Write(c.responses[0])
		c.responses = c.responses[1:]
	}
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) writtenString() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.String()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) LocalAddr() net.Addr              { return &net.TCPAddr{} }
func (c *fakeConn) RemoteAddr() net.Addr             { return &net.TCPAddr{} }
func (c *fakeConn) SetDeadline(time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

// fakeDialer hands out scripted connections in order. A nil entry is a
// failed dial. Once the script is used up, every dial fails.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials int
}

var errRefused = errors.New("connection refused")

func (d *fakeDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.conns) == 0 {
		return nil, errRefused
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	if c == nil {
		return nil, errRefused
	}
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// recordingEmitter captures poll events.
type recordingEmitter struct {
	mu            sync.Mutex
	connects      []int
	connectErrors int
	readings      []frame.Record
	faults        []*domain.Fault
}

func (e *recordingEmitter) OnConnect(attempts int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connects = append(e.connects, attempts)
}

func (e *recordingEmitter) OnConnectError(error, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connectErrors++
}

func (e *recordingEmitter) OnReading(rec frame.Record, _ time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.readings = append(e.readings, rec)
}

func (e *recordingEmitter) OnFault(f *domain.Fault) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.faults = append(e.faults, f)
}

func (e *recordingEmitter) faultKinds() []domain.FaultKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	kinds := make([]domain.FaultKind, 0, len(e.faults))
	for _, f := range e.faults {
		kinds = append(kinds, f.Kind)
	}
	return kinds
}

func (e *recordingEmitter) readingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.readings)
}

// recordingPublisher captures published readings and optionally fails.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	recs   []frame.Record
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, rec frame.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.recs = append(p.recs, rec)
	return p.err
}
