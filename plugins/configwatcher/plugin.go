// Package configwatcher reports changes to the scaleship configuration file.
// The target of a running agent is immutable, so the plugin only notifies;
// the caller decides whether to warn or to exit and let a supervisor restart.
package configwatcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cpro-iot/scaleship/pkg/log"
	"github.com/cpro-iot/scaleship/pkg/scaleship"
)

// DefaultDebounceDelay coalesces the burst of events editors produce on save.
const DefaultDebounceDelay = 250 * time.Millisecond

// Plugin watches one configuration file.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	onChange      func(path string)

	logger   log.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the file to watch. Required.
	Path string

	// DebounceDelay is the quiet period after the last event before OnChange
	// runs.
	// Default: 250 milliseconds
	DebounceDelay time.Duration

	// OnChange is called after the file was written, created or replaced.
	OnChange func(path string)
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}
	if cfg.OnChange == nil {
		cfg.OnChange = func(string) {}
	}
	return &Plugin{
		path:          filepath.Clean(cfg.Path),
		debounceDelay: cfg.DebounceDelay,
		onChange:      cfg.OnChange,
		logger:        log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the directory that holds the file. Watching the
// directory keeps working when editors replace the file on save.
func (p *Plugin) Initialize(ctx context.Context, cfg scaleship.PluginConfig) error {
	if cfg.Logger != nil {
		p.logger = cfg.Logger.With(log.String("plugin", p.Name()), log.String("path", p.path))
	}
	if p.path == "." || p.path == "" {
		return errors.New("configwatcher: path is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer watcher.Close()
		p.watch(ctx, watcher)
	}()

	p.logger.Info("watching config file")
	return nil
}

// Shutdown stops the watcher and drops a pending notification.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Plugin) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.schedule(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) schedule(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.logger.Info("config file changed")
		p.onChange(p.path)
	})
}

var _ scaleship.Plugin = (*Plugin)(nil)
