package scaleship_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cpro-iot/scaleship/internal/simulator"
	"github.com/cpro-iot/scaleship/pkg/frame"
	"github.com/cpro-iot/scaleship/pkg/scaleship"
)

// recordingHandler collects agent events.
type recordingHandler struct {
	scaleship.BaseEventHandler

	mu            sync.Mutex
	states        []scaleship.State
	readings      []frame.Record
	faults        []scaleship.FaultKind
	connects      int
	publishErrors int
}

func (h *recordingHandler) OnStateChange(e scaleship.StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, e.Current)
}

func (h *recordingHandler) OnReading(e scaleship.ReadingEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readings = append(h.readings, e.Reading)
}

func (h *recordingHandler) OnConnect(scaleship.ConnectEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connects++
}

func (h *recordingHandler) OnFault(e scaleship.FaultEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.faults = append(h.faults, e.Kind)
}

func (h *recordingHandler) OnPublishError(scaleship.PublishErrorEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishErrors++
}

func (h *recordingHandler) readingCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.readings)
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ frame.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.topics)
}

// startSimulator runs a simulated terminal on a loopback port.
func startSimulator(t *testing.T, cfg simulator.Config) *net.TCPAddr {
	t.Helper()

	cfg.Addr = "127.0.0.1:0"
	s := simulator.New(cfg)
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen() = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s.Addr().(*net.TCPAddr)
}

func testConfig(addr *net.TCPAddr) scaleship.Config {
	cfg := scaleship.DefaultConfig()
	cfg.Host = addr.IP.String()
	cfg.Port = addr.Port
	cfg.Interval = 5 * time.Millisecond
	cfg.IOTimeout = 200 * time.Millisecond
	cfg.ReconnectBackoff = 5 * time.Millisecond
	return cfg
}

// gatheredValue returns the value of the single counter series name.
func gatheredValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) == 1 {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScaleship_PollsSimulator(t *testing.T) {
	for _, p := range []frame.Protocol{frame.V64, frame.V63} {
		t.Run(p.Name, func(t *testing.T) {
			addr := startSimulator(t, simulator.Config{Protocol: p})
			cfg := testConfig(addr)
			cfg.Protocol = p.Name
			cfg.Topic = "scales/line1"

			handler := &recordingHandler{}
			pub := &recordingPublisher{}
			reg := prometheus.NewRegistry()

			s, err := scaleship.New(cfg,
				scaleship.WithEventHandler(handler),
				scaleship.WithPublisher(pub),
				scaleship.WithMetrics(reg),
			)
			if err != nil {
				t.Fatalf("New() = %v", err)
			}
			if err := s.Start(context.Background()); err != nil {
				t.Fatalf("Start() = %v", err)
			}
			if err := s.Start(context.Background()); !errors.Is(err, scaleship.ErrAlreadyRunning) {
				t.Errorf("second Start() = %v, want ErrAlreadyRunning", err)
			}

			waitFor(t, "three readings", func() bool { return handler.readingCount() >= 3 })

			if err := s.Stop(); err != nil {
				t.Fatalf("Stop() = %v", err)
			}
			if s.Status() != scaleship.StateStopped {
				t.Errorf("Status() = %v, want Stopped", s.Status())
			}
			if err := s.Stop(); !errors.Is(err, scaleship.ErrNotRunning) {
				t.Errorf("second Stop() = %v, want ErrNotRunning", err)
			}
			select {
			case <-s.Done():
			default:
				t.Error("Done() not closed after Stop")
			}

			handler.mu.Lock()
			defer handler.mu.Unlock()
			if handler.readings[0].Unit != "kg" || handler.readings[0].ScaleNr != "1" {
				t.Errorf("first reading = %+v", handler.readings[0])
			}
			if handler.connects != 1 || len(handler.faults) != 0 {
				t.Errorf("connects = %d, faults = %v; want 1, none", handler.connects, handler.faults)
			}
			if pub.count() < 3 || pub.topics[0] != "scales/line1" {
				t.Errorf("published %d readings to %v", pub.count(), pub.topics)
			}
			if got := gatheredValue(t, reg, "scaleship_readings_total"); got < 3 {
				t.Errorf("scaleship_readings_total = %v, want at least 3", got)
			}

			want := []scaleship.State{scaleship.StateStarting, scaleship.StateRunning, scaleship.StateStopping, scaleship.StateStopped}
			if len(handler.states) != len(want) {
				t.Fatalf("states = %v, want %v", handler.states, want)
			}
			for i := range want {
				if handler.states[i] != want[i] {
					t.Errorf("states = %v, want %v", handler.states, want)
					break
				}
			}
		})
	}
}

func TestScaleship_PollsSimulatorWithoutTerminator(t *testing.T) {
	addr := startSimulator(t, simulator.Config{Protocol: frame.V64.WithTerminatorLen(0)})
	handler := &recordingHandler{}

	cfg := testConfig(addr)
	none := 0
	cfg.TerminatorBytes = &none

	s, err := scaleship.New(cfg, scaleship.WithEventHandler(handler))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "three readings", func() bool { return handler.readingCount() >= 3 })
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.faults) != 0 {
		t.Errorf("faults = %v, want none", handler.faults)
	}
	if handler.connects != 1 {
		t.Errorf("connects = %d, want 1", handler.connects)
	}
}

func TestScaleship_RecoversFromInjectedFaults(t *testing.T) {
	addr := startSimulator(t, simulator.Config{Protocol: frame.V64, ShortEvery: 3, SilentEvery: 5})
	handler := &recordingHandler{}
	pub := &recordingPublisher{err: errors.New("broker down")}

	s, err := scaleship.New(testConfig(addr),
		scaleship.WithEventHandler(handler),
		scaleship.WithPublisher(pub),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "readings after faults", func() bool { return handler.readingCount() >= 6 })
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	var framing, io int
	for _, k := range handler.faults {
		switch k {
		case scaleship.FramingFault:
			framing++
		case scaleship.IoFault:
			io++
		}
	}
	if framing == 0 || io == 0 {
		t.Errorf("faults = %v, want framing and io faults", handler.faults)
	}
	if handler.connects < 2 {
		t.Errorf("connects = %d, want reconnects after faults", handler.connects)
	}
	if handler.publishErrors != len(handler.readings) {
		t.Errorf("publish errors = %d, readings = %d; want equal", handler.publishErrors, len(handler.readings))
	}
}

func TestScaleship_CrashesWhenRetriesExhausted(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	cfg := testConfig(addr)
	cfg.MaxRetries = 2

	s, err := scaleship.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not give up")
	}
	if s.Status() != scaleship.StateCrashed {
		t.Errorf("Status() = %v, want Crashed", s.Status())
	}
	if !errors.Is(s.Err(), scaleship.ErrRetriesExhausted) {
		t.Errorf("Err() = %v, want ErrRetriesExhausted", s.Err())
	}
	if err := s.Stop(); !errors.Is(err, scaleship.ErrRetriesExhausted) {
		t.Errorf("Stop() = %v, want the crash error", err)
	}
}

// trackingPlugin records initialization and shutdown order.
type trackingPlugin struct {
	name    string
	order   *[]string
	initErr error
}

func (p *trackingPlugin) Name() string { return p.name }

func (p *trackingPlugin) Initialize(ctx context.Context, cfg scaleship.PluginConfig) error {
	if p.initErr != nil {
		return p.initErr
	}
	*p.order = append(*p.order, "init:"+p.name)
	return nil
}

func (p *trackingPlugin) Shutdown(ctx context.Context) error {
	*p.order = append(*p.order, "shutdown:"+p.name)
	return nil
}

func TestScaleship_PluginOrder(t *testing.T) {
	addr := startSimulator(t, simulator.Config{Protocol: frame.V64})
	var order []string

	s, err := scaleship.New(testConfig(addr),
		scaleship.WithPlugin(&trackingPlugin{name: "a", order: &order}),
		scaleship.WithPlugin(&trackingPlugin{name: "b", order: &order}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}

	want := []string{"init:a", "init:b", "shutdown:b", "shutdown:a"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestScaleship_PluginInitFailure(t *testing.T) {
	addr := startSimulator(t, simulator.Config{Protocol: frame.V64})
	var order []string
	initErr := errors.New("boom")

	s, err := scaleship.New(testConfig(addr),
		scaleship.WithPlugin(&trackingPlugin{name: "a", order: &order}),
		scaleship.WithPlugin(&trackingPlugin{name: "b", order: &order, initErr: initErr}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, initErr) {
		t.Fatalf("Start() = %v, want %v", err, initErr)
	}
	if s.Status() != scaleship.StateCrashed {
		t.Errorf("Status() = %v, want Crashed", s.Status())
	}
	if len(order) != 2 || order[1] != "shutdown:a" {
		t.Errorf("order = %v, want a initialized and shut down", order)
	}
}
