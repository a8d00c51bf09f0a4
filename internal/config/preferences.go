package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/josephgoksu/PRDWing/internal/prd"
)

const preferencesKey = "preferences.techStack"

// LoadPreferences returns the saved default tech preferences.
func LoadPreferences() prd.TechPreferences {
	var p prd.TechPreferences
	_ = viper.UnmarshalKey(preferencesKey, &p)
	return p
}

// ViperPreferences reads preferences from Viper on every call.
type ViperPreferences struct{}

func (ViperPreferences) TechPreferences() prd.TechPreferences { return LoadPreferences() }

// SavePreferences writes the preferences into the config file in use, or
// into the global config file when none was loaded. Other settings in the
// file are preserved.
func SavePreferences(p prd.TechPreferences) error {
	path := viper.ConfigFileUsed()
	if path == "" {
		dir, err := GetGlobalConfigDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		path = filepath.Join(dir, configName+".yaml")
	}

	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("read %s: %w", path, err)
	}

	prefs, _ := doc["preferences"].(map[string]any)
	if prefs == nil {
		prefs = map[string]any{}
	}
	prefs["techStack"] = p
	doc["preferences"] = prefs

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	viper.Set(preferencesKey, map[string]any{
		"frontend":   p.Frontend,
		"backend":    p.Backend,
		"database":   p.Database,
		"hosting":    p.Hosting,
		"additional": p.Additional,
	})
	return nil
}

// PreferenceWatcher serves preferences that follow edits to the config file.
type PreferenceWatcher struct {
	current atomic.Pointer[prd.TechPreferences]
	logger  zerolog.Logger
}

// WatchPreferences starts watching the loaded config file. Without a config
// file it serves the current preferences unchanged.
func WatchPreferences(logger zerolog.Logger) *PreferenceWatcher {
	w := &PreferenceWatcher{logger: logger.With().Str("component", "config").Logger()}
	w.reload()

	if viper.ConfigFileUsed() == "" {
		return w
	}
	viper.OnConfigChange(w.onChange)
	viper.WatchConfig()
	return w
}

func (w *PreferenceWatcher) onChange(e fsnotify.Event) {
	if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	w.reload()
	w.logger.Info().Str("file", e.Name).Msg("preferences reloaded")
}

func (w *PreferenceWatcher) reload() {
	p := LoadPreferences()
	w.current.Store(&p)
}

// TechPreferences returns the latest preferences.
func (w *PreferenceWatcher) TechPreferences() prd.TechPreferences {
	return *w.current.Load()
}
