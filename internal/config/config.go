// Package config defines the daemon's Config struct and its
// environment-variable overlay. CLI flag parsing itself stays on the
// standard library's flag package in cmd/redroidhostd, matching the
// teacher and per spec §1's explicit "thin collaborator" scoping; this
// package covers the ambient configuration concern (defaults +
// environment), not argument parsing.
package config

import "github.com/kelseyhightower/envconfig"

// Config holds everything the daemon's components are constructed from.
type Config struct {
	RootFS string `envconfig:"REDROID_ROOTFS"`
	Loader string `envconfig:"TYLOADER"`

	Width  int `envconfig:"REDROID_WIDTH" default:"720"`
	Height int `envconfig:"REDROID_HEIGHT" default:"1280"`
	DPI    int `envconfig:"REDROID_DPI" default:"160"`

	ControlAddr string `envconfig:"REDROID_CONTROL_ADDR" default:":6000"`
	ADBAddr     string `envconfig:"REDROID_ADB_ADDR" default:":5555"`
	ADBEnabled  bool   `envconfig:"REDROID_ADB_ENABLED" default:"true"`

	GrallocEnabled bool   `envconfig:"TWOYI_GRALLOC_ENABLED" default:"true"`
	GrallocSocket  string `envconfig:"TWOYI_GRALLOC_SOCKET"`

	FBDevicePath string `envconfig:"REDROID_FB_DEVICE" default:"/dev/fb0"`

	PreviewEnabled bool `envconfig:"REDROID_PREVIEW_ENABLED" default:"false"`

	MetricsAddr string `envconfig:"REDROID_METRICS_ADDR"`

	Verbose bool `envconfig:"REDROID_VERBOSE" default:"false"`
}

// Default returns a Config populated with defaults, before any
// environment or CLI overlay is applied.
func Default() Config {
	var c Config
	// envconfig.Process with an empty prefix still honors each field's
	// own envconfig tag name and default, so calling it once here seeds
	// the struct with defaults even if no environment variables are set.
	_ = envconfig.Process("", &c)
	return c
}

// ApplyEnv overlays environment variables named by each field's
// envconfig tag onto c, overwriting fields that have a corresponding
// variable set. A field whose variable is unset but which carries a
// default tag is reset to that default; only fields with neither keep
// their current value.
func ApplyEnv(c *Config) error {
	return envconfig.Process("", c)
}

// TouchSocketPath returns the fixed guest-visible path for the touch
// device (§6).
func (c Config) TouchSocketPath() string {
	return c.RootFS + "/dev/input/touch"
}

// KeySocketPath returns the fixed guest-visible path for the key device
// (§6).
func (c Config) KeySocketPath() string {
	return c.RootFS + "/dev/input/key0"
}

// ResolvedGrallocSocket returns the configured gralloc socket path,
// defaulting to "<rootfs>/dev/gralloc" per §4.2 when unset.
func (c Config) ResolvedGrallocSocket() string {
	if c.GrallocSocket != "" {
		return c.GrallocSocket
	}
	return c.RootFS + "/dev/gralloc"
}

// ADBSocketPath returns the guest adbd domain socket path (§4.5/§6).
func (c Config) ADBSocketPath() string {
	return c.RootFS + "/dev/socket/adbd"
}
