package app

import (
	"context"
	"errors"
	"time"

	"github.com/cpro-iot/scaleship/internal/domain"
	"github.com/cpro-iot/scaleship/internal/ports"
	"github.com/cpro-iot/scaleship/pkg/frame"
)

// DefaultInterval is the pause before every poll request.
const DefaultInterval = 10 * time.Second

// PollerConfig contains configuration for the poll loop.
type PollerConfig struct {
	// Target is the scale address, used for log context.
	Target string

	// Topic receives published readings. Defaults to Target.
	Topic string

	// Interval is slept before every request, including the first.
	Interval time.Duration

	// Protocol describes frame layout, terminator and command.
	Protocol frame.Protocol
}

// Poller drives the request/response cycle against one scale. It is the
// fault boundary of the agent: no single bad reading stops it.
type Poller struct {
	cfg       PollerConfig
	session   *Session
	publisher ports.Publisher
	logger    ports.Logger
	emitter   ports.EventEmitter
}

// NewPoller creates a poll loop. publisher may be nil to disable publishing.
func NewPoller(
	cfg PollerConfig,
	session *Session,
	publisher ports.Publisher,
	logger ports.Logger,
	emitter ports.EventEmitter,
) *Poller {
	if cfg.Topic == "" {
		cfg.Topic = cfg.Target
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if emitter == nil {
		emitter = ports.NopEmitter{}
	}
	return &Poller{
		cfg:       cfg,
		session:   session,
		publisher: publisher,
		logger:    logger,
		emitter:   emitter,
	}
}

// Run connects and polls until ctx is done. It also returns when a configured
// connect retry ceiling is exceeded; every other fault is absorbed.
func (p *Poller) Run(ctx context.Context) error {
	defer p.session.Close()

	if err := p.session.EnsureConnected(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(p.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := p.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if kind, ok := domain.KindOf(err); ok && kind == domain.ConnectFault {
				return err
			}
		}
		timer.Reset(p.cfg.Interval)
	}
}

// PollOnce performs one request/response cycle without the interval sleep.
// Returned errors are *domain.Fault values that have already been logged and
// acted upon, or the context error.
func (p *Poller) PollOnce(ctx context.Context) (frame.Record, error) {
	start := time.Now()
	proto := p.cfg.Protocol

	if err := p.session.EnsureConnected(ctx); err != nil {
		return frame.Record{}, err
	}

	p.logger.Debug("send command", ports.String("command", frame.Dump(proto.Command)))
	raw, err := p.session.Exchange(proto.Command, proto.FrameLength)
	if err != nil {
		return frame.Record{}, p.fail(err)
	}

	if err := frame.CheckEnvelope(proto, raw); err != nil {
		return frame.Record{}, p.fail(&domain.Fault{Kind: domain.FramingFault, Op: "envelope", Raw: raw, Err: err})
	}

	if err := p.session.Drain(proto.TerminatorLen); err != nil {
		return frame.Record{}, p.fail(err)
	}

	rec, err := frame.Decode(proto, raw)
	if err != nil {
		return frame.Record{}, p.fail(&domain.Fault{Kind: domain.DecodeFault, Op: "decode", Raw: raw, Err: err})
	}

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, p.cfg.Topic, rec); err != nil {
			f := domain.NewFault(domain.PublishFault, "publish", err)
			p.logger.Error("error sending message", ports.Err(err), ports.String("topic", p.cfg.Topic))
			p.emitter.OnFault(f)
		}
	}

	elapsed := time.Since(start)
	p.logger.Info("reading",
		ports.Strings("reading", rec.Map()),
		ports.Duration("elapsed", elapsed),
	)
	p.emitter.OnReading(rec, elapsed)
	return rec, nil
}

// fail logs a fault, resets the session when the fault requires it and
// reports it to the emitter.
func (p *Poller) fail(err error) error {
	var f *domain.Fault
	if !errors.As(err, &f) {
		f = domain.NewFault(domain.IoFault, "poll", err)
	}

	fields := []ports.Field{ports.String("op", f.Op), ports.Err(f.Err)}
	if f.Raw != nil {
		fields = append(fields,
			ports.Int("bytes", len(f.Raw)),
			ports.String("dump", frame.Dump(f.Raw)),
		)
	}

	switch f.Kind {
	case domain.FramingFault:
		p.logger.Warn("response is invalid, resynchronizing", fields...)
	case domain.DecodeFault:
		p.logger.Warn("could not decode response, dropping reading", fields...)
	default:
		p.logger.Error("session fault, reconnecting", fields...)
	}

	if f.Kind.ResetsSession() {
		p.session.Reset(f.Kind.String() + " fault")
	}
	p.emitter.OnFault(f)
	return f
}
