// Package config loads and saves the toolchain's CLI configuration,
// grounded on the teacher's config.go (BurntSushi/toml, platform-specific
// config/log paths), repurposed from emulator runtime settings to the
// generate/validate/info driver's settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// CLIConfig holds the settings the `isadsl` driver reads for its
// generate/validate/info subcommands.
type CLIConfig struct {
	// Generate settings: where C9/C10/C11 artifacts land.
	Generate struct {
		OutputDir    string `toml:"output_dir"`
		EmitBinary   bool   `toml:"emit_binary"`
		EmitDocs     bool   `toml:"emit_docs"`
		DocsTemplate string `toml:"docs_template"`
	} `toml:"generate"`

	// Assemble settings for C9.
	Assemble struct {
		MaxAddress uint64 `toml:"max_address"`
	} `toml:"assemble"`

	// Simulate settings for C10.
	Simulate struct {
		StepCap     int    `toml:"step_cap"`
		EntryLabel  string `toml:"entry_label"`
		TraceOutput string `toml:"trace_output"`
		EnableTrace bool   `toml:"enable_trace"`
	} `toml:"simulate"`

	// Display settings shared by validate/info rendering.
	Display struct {
		ColorOutput  bool   `toml:"color_output"`
		NumberFormat string `toml:"number_format"` // hex, dec, both
	} `toml:"display"`
}

// DefaultConfig returns the settings used when no config file is present.
func DefaultConfig() *CLIConfig {
	cfg := &CLIConfig{}

	cfg.Generate.OutputDir = "build"
	cfg.Generate.EmitBinary = true
	cfg.Generate.EmitDocs = true
	cfg.Generate.DocsTemplate = ""

	cfg.Assemble.MaxAddress = 1 << 32

	cfg.Simulate.StepCap = 1000000
	cfg.Simulate.EntryLabel = "_start"
	cfg.Simulate.TraceOutput = ""
	cfg.Simulate.EnableTrace = false

	cfg.Display.ColorOutput = true
	cfg.Display.NumberFormat = "hex"

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "isadsl")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "isadsl")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}
	return filepath.Join(configDir, "config.toml")
}

// GetLogPath returns the platform-specific log directory path.
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "isadsl", "logs")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "isadsl", "logs")

	default:
		return "logs"
	}

	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}
	return logDir
}

// Load loads configuration from the default config file.
func Load() (*CLIConfig, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file, returning defaults
// if the file does not exist.
func LoadFrom(path string) (*CLIConfig, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *CLIConfig) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *CLIConfig) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
