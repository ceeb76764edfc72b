package configwatcher

import "github.com/cpro-iot/scaleship/pkg/scaleship"

// WithConfigWatcher returns a scaleship Option that registers a config
// watcher plugin.
//
// Usage:
//
//	agent, err := scaleship.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:     "/etc/scaleship/config.toml",
//	        OnChange: func(string) { cancel() },
//	    }),
//	)
func WithConfigWatcher(cfg Config) scaleship.Option {
	return scaleship.WithPlugin(New(cfg))
}
