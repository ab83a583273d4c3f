// watch.go reloads the SSO system fallback table when the config file changes
// on disk, so fallback URLs and failure messages can be corrected without a
// restart. Only back_office.systems is hot-reloaded; everything else still
// requires a restart because it is wired into constructed objects.
package config

import (
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// WatchSSOSystems watches the given config file and invokes onChange with the
// freshly parsed back_office.systems list every time the file is rewritten.
// The returned stop function closes the watcher. Parse failures are logged and
// skipped; the previous table stays in effect.
func WatchSSOSystems(configPath string, onChange func([]SSOSystemConfig)) (stop func() error, err error) {
	if configPath == "" {
		return nil, fmt.Errorf("config path is required for SSO system watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config file %s: %w", configPath, err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// Editors and config reloaders rewrite via rename+create as
				// often as in-place writes.
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				systems, err := loadSSOSystems(configPath)
				if err != nil {
					slog.Warn("config reload skipped", "path", configPath, "error", err)
					continue
				}
				slog.Info("reloaded SSO system table", "systems", len(systems))
				onChange(systems)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "error", err)
			}
		}
	}()

	return watcher.Close, nil
}

// loadSSOSystems parses only the back_office.systems section of the config file.
func loadSSOSystems(configPath string) ([]SSOSystemConfig, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var systems []SSOSystemConfig
	if err := v.UnmarshalKey("back_office.systems", &systems); err != nil {
		return nil, fmt.Errorf("error unmarshaling back_office.systems: %w", err)
	}
	for i, sys := range systems {
		if sys.Name == "" {
			return nil, fmt.Errorf("back_office.systems[%d].name is required", i)
		}
	}
	return systems, nil
}
