package runner

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by LoadConfig and DefaultConfig.
const (
	DefaultQEMU        = "qemu-system-x86_64"
	DefaultTimeout     = 300 * time.Second
	DefaultExitPort    = 0xf4
	DefaultSuccessCode = 0x10
	DefaultFailureCode = 0x11
)

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config describes how to boot a kernel image under QEMU.
type Config struct {
	// QEMU is the emulator binary.
	QEMU string `yaml:"qemu"`

	// Image is the bootable ISO containing the kernel.
	Image string `yaml:"image"`

	// Test selects test mode: the exit device is attached and the serial
	// output is parsed for harness markers.
	Test bool `yaml:"test"`

	// Timeout bounds the whole run.
	Timeout Duration `yaml:"timeout"`

	// ExitPort is the I/O base of the isa-debug-exit device.
	ExitPort uint16 `yaml:"exit_port"`

	// SuccessCode and FailureCode are the values the kernel writes to the
	// exit port.
	SuccessCode uint32 `yaml:"success_code"`
	FailureCode uint32 `yaml:"failure_code"`

	// Args are passed to QEMU after the generated arguments.
	Args []string `yaml:"args"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.QEMU == "" {
		c.QEMU = DefaultQEMU
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(DefaultTimeout)
	}
	if c.ExitPort == 0 {
		c.ExitPort = DefaultExitPort
	}
	if c.SuccessCode == 0 {
		c.SuccessCode = DefaultSuccessCode
	}
	if c.FailureCode == 0 {
		c.FailureCode = DefaultFailureCode
	}
}

// LoadConfig loads a run configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Validate reports configuration errors.
func (c *Config) Validate() error {
	switch {
	case c.Image == "":
		return errors.New("no kernel image specified")
	case c.QEMU == "":
		return errors.New("no qemu binary specified")
	case c.SuccessCode == c.FailureCode:
		return fmt.Errorf("success and failure codes must differ (both 0x%x)", c.SuccessCode)
	}

	return nil
}

// SuccessStatus returns the QEMU process exit status that signals a passing
// test run. QEMU exits with (code << 1) | 1 when the exit device is written.
func (c *Config) SuccessStatus() int {
	return int(c.SuccessCode)<<1 | 1
}

// FailureStatus returns the QEMU process exit status that signals a failed
// test run.
func (c *Config) FailureStatus() int {
	return int(c.FailureCode)<<1 | 1
}

// QEMUArgs returns the emulator command line.
func (c *Config) QEMUArgs() []string {
	args := []string{
		"-cdrom", c.Image,
		"-serial", "stdio",
		"-no-reboot",
	}

	// Test runs are headless; the results travel over the serial port and
	// the exit device.
	if c.Test {
		args = append(args,
			"-device", fmt.Sprintf("isa-debug-exit,iobase=0x%x,iosize=0x04", c.ExitPort),
			"-display", "none",
		)
	}

	return append(args, c.Args...)
}
