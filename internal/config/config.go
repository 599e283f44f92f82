// Package config loads the daemon's TOML configuration and applies the
// hardware defaults a bare device entry relies on.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/audacd/internal/device"
)

// Hardware defaults shared by every supported model.
const (
	DefaultPort            = 5001
	DefaultScanIntervalSec = 10
	MinScanIntervalSec     = 2
	MaxScanIntervalSec     = 300
	DefaultTimeoutSec      = 5

	matrixAddress = "X001"
	playerAddress = "D001"
)

// DefaultInputLabels is the matrix-mixer input line table used when a device
// entry does not override it.
var DefaultInputLabels = map[string]string{
	"0": "None",
	"1": "Mic 1",
	"2": "Mic 2",
	"3": "Line 3",
	"4": "Line 4",
	"5": "Line 5",
	"6": "Line 6",
	"7": "WLI/MWX65",
	"8": "WMI",
}

type Config struct {
	ListenAddr  string   `toml:"listen_addr"`
	CorsOrigins []string `toml:"cors_origins"`
	LogLevel    string   `toml:"log_level"`
	Devices     []Device `toml:"devices"`
}

type Device struct {
	ID       string `toml:"id"`
	Name     string `toml:"name"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Model    string `toml:"model"`
	SourceID string `toml:"source_id"`
	Address  string `toml:"address"`

	ScanIntervalSec int `toml:"scan_interval"`
	TimeoutSec      int `toml:"timeout"`

	// Matrix-mixer presentation extras.
	ZoneCount   int               `toml:"zone_count"`
	ZoneNames   []string          `toml:"zone_names"`
	InputLabels map[string]string `toml:"input_labels"`

	// Modular-player slot overrides, keyed by slot number ("1".."4").
	SlotModules map[string]string `toml:"slot_modules"`
}

func (d Device) ScanInterval() time.Duration {
	return time.Duration(d.ScanIntervalSec) * time.Second
}

func (d Device) Timeout() time.Duration {
	return time.Duration(d.TimeoutSec) * time.Second
}

// Modules resolves the slot_modules table into typed per-slot overrides.
func (d Device) Modules() map[int]device.Module {
	out := make(map[int]device.Module, len(d.SlotModules))
	for key, raw := range d.SlotModules {
		slot, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		out[slot] = device.NormalizeModule(raw)
	}
	return out
}

// Load reads path, fills defaults, and validates the result.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8090"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	for i := range cfg.Devices {
		applyDeviceDefaults(&cfg.Devices[i])
	}
}

// Normalize fills a single device entry's defaults, for callers assembling
// entries outside a config file (ad-hoc probes, CLI).
func (d *Device) Normalize() {
	applyDeviceDefaults(d)
}

func applyDeviceDefaults(d *Device) {
	if d.Port == 0 {
		d.Port = DefaultPort
	}
	if d.Address == "" {
		if device.Model(d.Model) == device.ModelXMP44 {
			d.Address = playerAddress
		} else {
			d.Address = matrixAddress
		}
	}
	if d.ScanIntervalSec == 0 {
		d.ScanIntervalSec = DefaultScanIntervalSec
	}
	if d.ScanIntervalSec < MinScanIntervalSec {
		d.ScanIntervalSec = MinScanIntervalSec
	}
	if d.ScanIntervalSec > MaxScanIntervalSec {
		d.ScanIntervalSec = MaxScanIntervalSec
	}
	if d.TimeoutSec <= 0 {
		d.TimeoutSec = DefaultTimeoutSec
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	if device.Model(d.Model).Zones() > 0 && len(d.InputLabels) == 0 {
		d.InputLabels = DefaultInputLabels
	}
}

// Validate checks the loaded configuration; errors name the offending
// device entry.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("config missing listen_addr")
	}
	seen := make(map[string]struct{}, len(cfg.Devices))
	for i, d := range cfg.Devices {
		if err := validateDevice(d); err != nil {
			return fmt.Errorf("device[%d] invalid: %w", i, err)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("device[%d] invalid: duplicate id %q", i, d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}

func validateDevice(d Device) error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(d.Host) == "" {
		return fmt.Errorf("host is required")
	}
	if !device.Model(d.Model).Known() {
		return fmt.Errorf("unknown model %q", d.Model)
	}
	for key, raw := range d.SlotModules {
		slot, err := strconv.Atoi(key)
		if err != nil || slot < 1 || slot > device.SlotCount {
			return fmt.Errorf("slot_modules key %q is not a slot number", key)
		}
		if !device.KnownModule(raw) {
			return fmt.Errorf("slot %d: unknown module %q", slot, raw)
		}
	}
	return nil
}
