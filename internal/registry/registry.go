// Package registry persists named device connection profiles in a TOML file
// under the user's configuration directory. Older installs stored the table
// as JSON; that format is still readable and is upgraded in place on first
// load.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
)

var (
	// ErrNotFound means no device with that name is configured.
	ErrNotFound = errors.New("device not found")
	// ErrDuplicate means a device with that name already exists.
	ErrDuplicate = errors.New("device already exists")
)

const (
	fileName       = "devices.toml"
	legacyFileName = "devices.json"

	// DefaultTimeoutSeconds is applied when a profile does not set one.
	DefaultTimeoutSeconds = 10
)

// Device is one stored connection profile. The json tags match the legacy
// record format.
type Device struct {
	Address        string `toml:"address" json:"ip_address"`
	Channel        int    `toml:"channel" json:"camera_channel"`
	Username       string `toml:"username,omitempty" json:"username,omitempty"`
	Password       string `toml:"password,omitempty" json:"password,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds" json:"timeout"`
}

// Timeout returns the per-request timeout for this device.
func (d Device) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// Entry pairs a device with its registry name, for listings.
type Entry struct {
	Name string
	Device
}

// Registry is a device profile store rooted at a single directory.
type Registry struct {
	dir string
	log *slog.Logger
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config directory: %w", err)
	}
	return filepath.Join(base, "laview-dl"), nil
}

// Open returns a registry stored in dir. The directory is created lazily on
// first write.
func Open(dir string, log *slog.Logger) *Registry {
	return &Registry{dir: dir, log: log}
}

// Add stores a profile under name. Unless overwrite is set, an existing name
// is rejected with ErrDuplicate.
func (r *Registry) Add(name string, dev Device, overwrite bool) error {
	devices, err := r.load()
	if err != nil {
		return err
	}
	if _, exists := devices[name]; exists && !overwrite {
		return fmt.Errorf("%w: %q", ErrDuplicate, name)
	}
	if dev.Channel <= 0 {
		dev.Channel = 1
	}
	if dev.TimeoutSeconds <= 0 {
		dev.TimeoutSeconds = DefaultTimeoutSeconds
	}
	devices[name] = dev
	return r.save(devices)
}

// Get returns the profile stored under name.
func (r *Registry) Get(name string) (Device, error) {
	devices, err := r.load()
	if err != nil {
		return Device{}, err
	}
	dev, ok := devices[name]
	if !ok {
		return Device{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return dev, nil
}

// Remove deletes the profile stored under name and persists the table.
func (r *Registry) Remove(name string) error {
	devices, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := devices[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(devices, name)
	return r.save(devices)
}

// List returns all profiles sorted by name.
func (r *Registry) List() ([]Entry, error) {
	devices, err := r.load()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(devices))
	for name, dev := range devices {
		entries = append(entries, Entry{Name: name, Device: dev})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (r *Registry) load() (map[string]Device, error) {
	devices := map[string]Device{}

	path := filepath.Join(r.dir, fileName)
	if _, err := toml.DecodeFile(path, &devices); err == nil {
		return devices, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	// No TOML table yet; fall back to the legacy JSON format and upgrade it.
	legacy := filepath.Join(r.dir, legacyFileName)
	data, err := os.ReadFile(legacy)
	if os.IsNotExist(err) {
		return devices, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", legacy, err)
	}
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("parsing legacy registry %s: %w", legacy, err)
	}
	r.migrate(devices, legacy)
	return devices, nil
}

// migrate writes the legacy table back out as TOML and moves the JSON file
// aside. Failure is logged, not returned: the parsed table is already usable.
func (r *Registry) migrate(devices map[string]Device, legacy string) {
	if err := r.save(devices); err != nil {
		r.log.Warn("registry migration failed", "err", err)
		return
	}
	if err := os.Rename(legacy, legacy+".backup"); err != nil {
		r.log.Warn("could not back up legacy registry", "path", legacy, "err", err)
		return
	}
	r.log.Info("migrated device registry to TOML", "path", filepath.Join(r.dir, fileName))
}

func (r *Registry) save(devices map[string]Device) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", r.dir, err)
	}
	path := filepath.Join(r.dir, fileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(devices); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
