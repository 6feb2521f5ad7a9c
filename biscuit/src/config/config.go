// Package config loads the kernel's boot configuration from a TOML
// manifest, the way dh-cli's internal/config package loads its own
// config.toml: a typed struct, Unmarshal via go-toml/v2, and a
// not-exist-is-not-an-error default path.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// BootConfig is the kernel's top-level boot manifest, generated by
// cmd/mkimg and embedded alongside the kernel image in the CPIO
// ramdisk as /boot.toml.
type BootConfig struct {
	Rootfs  Rootfs  `toml:"rootfs"`
	Init    Init    `toml:"init"`
	Logging Logging `toml:"logging"`
}

// Rootfs names the root block device's partition and filesystem, which
// boot probes as a diagnostic; the filesystem mounted at "/" is always
// the ramdisk-populated tmpfs.
type Rootfs struct {
	Device     string `toml:"device"`      // e.g. "mmcblk0p1"
	Filesystem string `toml:"filesystem"`  // "fat32" or "tmpfs"
	Partition  int    `toml:"partition"`   // 1-indexed MBR partition number
}

// Init names the first user task the scheduler runs.
type Init struct {
	Path string   `toml:"path"`
	Argv []string `toml:"argv"`
}

// Logging controls the early-boot console logger.
type Logging struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// Default returns the configuration used when no manifest is supplied
// (an empty Load input, or an empty or missing LoadFile path), mirroring the original kernel's hardcoded rootfs
// partition and /bin/init path.
func Default() *BootConfig {
	return &BootConfig{
		Rootfs:  Rootfs{Device: "mmcblk0", Filesystem: "fat32", Partition: 1},
		Init:    Init{Path: "/bin/init", Argv: []string{"/bin/init"}},
		Logging: Logging{Level: "info"},
	}
}

// Load parses raw as a TOML boot manifest. An empty raw is not an
// error; it yields Default().
func Load(raw []byte) (*BootConfig, error) {
	if len(raw) == 0 {
		return Default(), nil
	}
	cfg := Default()
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing boot manifest: %w", err)
	}
	return cfg, nil
}

// LoadFile reads path off the host filesystem and parses it, used by
// cmd/mkimg to validate a manifest before baking it into an image.
func LoadFile(path string) (*BootConfig, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Load(data)
}

// Marshal serializes cfg back to TOML, used by cmd/mkimg to write a
// generated manifest.
func Marshal(cfg *BootConfig) ([]byte, error) {
	return toml.Marshal(cfg)
}
