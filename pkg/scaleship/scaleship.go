package scaleship

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/cpro-iot/scaleship/internal/adapters/metrics"
	"github.com/cpro-iot/scaleship/internal/app"
	"github.com/cpro-iot/scaleship/internal/domain"
	"github.com/cpro-iot/scaleship/internal/ports"
	"github.com/cpro-iot/scaleship/pkg/frame"
	"github.com/cpro-iot/scaleship/pkg/log"
	"github.com/cpro-iot/scaleship/pkg/publish"
)

// Scaleship polls one scale terminal and forwards its readings.
// Use New() to create an instance, then Start() to begin polling.
type Scaleship struct {
	config    Config
	protocol  frame.Protocol
	lifecycle *app.Lifecycle
	poller    *app.Poller
	logger    log.Logger
	plugins   []Plugin

	mu   sync.Mutex
	done chan struct{}
	err  error
}

// New creates an agent in StateStopped. It returns a ConfigFault if the
// configuration is invalid.
func New(cfg Config, opts ...Option) (*Scaleship, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, domain.NewFault(domain.ConfigFault, "config", err)
	}
	if err := validateModuleVersions(); err != nil {
		return nil, domain.NewFault(domain.ConfigFault, "modules", err)
	}
	proto, err := cfg.FrameProtocol()
	if err != nil {
		return nil, domain.NewFault(domain.ConfigFault, "protocol", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	target := cfg.Target()
	logger := o.logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	logger = logger.With(log.String("target", target))

	dialer := o.dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	wrapper := &eventEmitterWrapper{target: target, topic: cfg.Topic, handler: o.eventHandler}
	var emitter ports.EventEmitter = wrapper
	if o.registerer != nil {
		emitter = ports.MultiEmitter{wrapper, metrics.NewCollector(o.registerer, target)}
	}

	session := app.NewSession(app.SessionConfig{
		Target:           target,
		IOTimeout:        cfg.IOTimeout,
		ReconnectBackoff: cfg.ReconnectBackoff,
		MaxRetries:       cfg.MaxRetries,
	}, dialer, logger, emitter)

	poller := app.NewPoller(app.PollerConfig{
		Target:   target,
		Topic:    cfg.Topic,
		Interval: cfg.Interval,
		Protocol: proto,
	}, session, o.publisher, logger, emitter)

	return &Scaleship{
		config:    cfg,
		protocol:  proto,
		lifecycle: app.NewLifecycle(logger, wrapper),
		poller:    poller,
		logger:    logger,
		plugins:   o.plugins,
	}, nil
}

// Config returns the effective configuration.
func (s *Scaleship) Config() Config {
	return s.config
}

// Start initializes plugins and starts polling in the background. It
// returns ErrAlreadyRunning unless the agent is stopped or crashed.
func (s *Scaleship) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.lifecycle.SetCancel(cancel)

	pluginCfg := PluginConfig{
		Target:   s.config.Target(),
		Topic:    s.config.Topic,
		Protocol: s.protocol.Name,
		Logger:   s.logger,
	}
	for i, p := range s.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed", log.String("plugin", p.Name()), log.Err(err))
			cancel()
			s.shutdownPlugins(s.plugins[:i])
			_ = s.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		s.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	done := make(chan struct{})
	s.done = done
	s.err = nil

	s.lifecycle.Go(func() {
		defer close(done)

		if err := s.lifecycle.TransitionTo(app.StateRunning, "poller starting"); err != nil {
			return
		}
		err := s.poller.Run(runCtx)
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}

		s.logger.Error("poller stopped", log.Err(err))
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		_ = s.lifecycle.TransitionTo(app.StateCrashed, err.Error())
	})
	return nil
}

// Stop cancels polling, waits up to 30 seconds for the poller to return and
// shuts plugins down in reverse order. Stopping a crashed agent releases its
// plugins and returns the error that crashed it.
func (s *Scaleship) Stop() error {
	s.mu.Lock()
	state := s.lifecycle.State()
	if state == app.StateCrashed && s.done != nil {
		crashErr := s.err
		s.done = nil
		s.mu.Unlock()
		s.lifecycle.Cancel()
		s.shutdownPlugins(s.plugins)
		return crashErr
	}
	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	s.lifecycle.Cancel()
	s.mu.Unlock()

	err := s.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
	s.shutdownPlugins(s.plugins)

	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
		return err
	}
	_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	return nil
}

func (s *Scaleship) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			s.logger.Error("plugin shutdown failed", log.String("plugin", p.Name()), log.Err(err))
			continue
		}
		s.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
	}
}

// Status returns the current lifecycle state.
func (s *Scaleship) Status() State {
	return State(s.lifecycle.State())
}

// Done returns a channel that is closed when the poller returns, either
// because the agent was stopped or because it crashed. It returns nil
// before the first Start.
func (s *Scaleship) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err returns the error that crashed the agent, if any.
func (s *Scaleship) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// validateModuleVersions checks that the sub-modules are compatible.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"frame":   {frame.Version, frame.MinCompatibleVersion},
		"log":     {log.Version, log.MinCompatibleVersion},
		"publish": {publish.Version, publish.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible reports whether version >= minVersion, both in
// "major.minor.patch" form.
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
