package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mount types accepted in mount.type.
const (
	MountTypeEQ = "eq"
	MountTypeAZ = "az"
)

// AxisConfig holds the driver wiring and mechanical geometry of one mount axis.
type AxisConfig struct {
	StepPin       int     `yaml:"step_pin"`
	DirPin        int     `yaml:"dir_pin"`
	EnablePin     int     `yaml:"enable_pin"` // A4988 ENABLE pin (BCM). 0 = not used. Active LOW.
	InvertDir     bool    `yaml:"invert_dir"`
	MotorSteps    int     `yaml:"motor_steps"` // full steps per motor revolution
	Microstepping int     `yaml:"microstepping"`
	GearRatio     float64 `yaml:"gear_ratio"`      // motor turns per axis turn
	LowerLimitDeg float64 `yaml:"lower_limit_deg"` // soft limit, inclusive
	UpperLimitDeg float64 `yaml:"upper_limit_deg"` // soft limit, inclusive
	HomeDeg       float64 `yaml:"home_deg"`        // axis angle at power-on
}

// StepsPerRev returns the number of microsteps for one full turn of the axis.
func (a AxisConfig) StepsPerRev() float64 {
	return float64(a.MotorSteps*a.Microstepping) * a.GearRatio
}

// MountConfig describes the mount geometry and motion parameters.
type MountConfig struct {
	Type            string  `yaml:"type"`             // "eq" or "az"
	MaxSpeed        float64 `yaml:"max_speed"`        // steps/s
	MaxAcceleration float64 `yaml:"max_acceleration"` // steps/s^2
	GotoSpeed       float64 `yaml:"goto_speed"`       // steps/s cap used for catalog gotos
	TickIntervalUs  int     `yaml:"tick_interval_us"` // motor control cadence
	TrackIntervalMs int     `yaml:"track_interval_ms"`
}

// WebConfig configures the HTTP control surface.
type WebConfig struct {
	Port int `yaml:"port"` // 0 = disabled unless -web is given
}

// DefaultsConfig contains generic runtime parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	XAxis    AxisConfig     `yaml:"x_axis"`
	YAxis    AxisConfig     `yaml:"y_axis"`
	Mount    MountConfig    `yaml:"mount"`
	Web      WebConfig      `yaml:"web"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Default returns the configuration of the reference build:
// 200-step motors, 1/16 microstepping and an 8:1 reduction on both axes.
func Default() *Config {
	return &Config{
		XAxis: AxisConfig{
			StepPin: 17, DirPin: 27, EnablePin: 22,
			MotorSteps: 200, Microstepping: 16, GearRatio: 8,
			LowerLimitDeg: -205, UpperLimitDeg: 25, HomeDeg: 0,
		},
		YAxis: AxisConfig{
			StepPin: 23, DirPin: 24, EnablePin: 25,
			MotorSteps: 200, Microstepping: 16, GearRatio: 8,
			LowerLimitDeg: -90, UpperLimitDeg: 270, HomeDeg: 90,
		},
		Mount: MountConfig{
			Type:            MountTypeEQ,
			MaxSpeed:        400,
			MaxAcceleration: 800,
			GotoSpeed:       400,
			TickIntervalUs:  250,
			TrackIntervalMs: 200,
		},
		Defaults: DefaultsConfig{
			DebugLevel: 1,
			MockGPIO:   true,
		},
	}
}

// Load reads a YAML file on top of Default and returns the validated configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Mount.Type = strings.ToLower(strings.TrimSpace(c.Mount.Type))
	if c.Mount.Type == "" {
		c.Mount.Type = MountTypeEQ
	}
	if c.Mount.MaxSpeed <= 0 {
		c.Mount.MaxSpeed = 400 // steps/s
	}
	if c.Mount.MaxAcceleration <= 0 {
		c.Mount.MaxAcceleration = 800
	}
	if c.Mount.GotoSpeed <= 0 {
		c.Mount.GotoSpeed = c.Mount.MaxSpeed
	}
	if c.Mount.TickIntervalUs <= 0 {
		c.Mount.TickIntervalUs = 250
	}
	if c.Mount.TrackIntervalMs <= 0 {
		c.Mount.TrackIntervalMs = 200
	}
	for _, a := range []*AxisConfig{&c.XAxis, &c.YAxis} {
		if a.Microstepping <= 0 {
			a.Microstepping = 1
		}
		if a.GearRatio <= 0 {
			a.GearRatio = 1
		}
	}
}

// Validate checks the configuration for values the mount cannot work with.
func (c *Config) Validate() error {
	if c.Mount.Type != MountTypeEQ && c.Mount.Type != MountTypeAZ {
		return fmt.Errorf("mount.type must be %q or %q, got %q", MountTypeEQ, MountTypeAZ, c.Mount.Type)
	}
	if c.Mount.GotoSpeed > c.Mount.MaxSpeed {
		return fmt.Errorf("mount.goto_speed (%.1f) must not exceed mount.max_speed (%.1f)", c.Mount.GotoSpeed, c.Mount.MaxSpeed)
	}
	if err := c.XAxis.validate("x_axis"); err != nil {
		return err
	}
	if err := c.YAxis.validate("y_axis"); err != nil {
		return err
	}
	// The first axis must span half a revolution so that a meridian flip
	// always lands inside its window.
	if span := c.XAxis.UpperLimitDeg - c.XAxis.LowerLimitDeg; span < 180 {
		return fmt.Errorf("x_axis travel window must be at least 180 degrees, got %.2f", span)
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port must be 0-65535, got %d", c.Web.Port)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

func (a AxisConfig) validate(name string) error {
	if a.MotorSteps <= 0 {
		return fmt.Errorf("%s.motor_steps must be > 0", name)
	}
	if math.IsNaN(a.GearRatio) || math.IsInf(a.GearRatio, 0) {
		return fmt.Errorf("%s.gear_ratio must be finite", name)
	}
	if a.LowerLimitDeg >= a.UpperLimitDeg {
		return fmt.Errorf("%s.lower_limit_deg (%.2f) must be below upper_limit_deg (%.2f)", name, a.LowerLimitDeg, a.UpperLimitDeg)
	}
	if a.UpperLimitDeg-a.LowerLimitDeg > 360 {
		return fmt.Errorf("%s travel window must not exceed 360 degrees", name)
	}
	if a.HomeDeg < a.LowerLimitDeg || a.HomeDeg > a.UpperLimitDeg {
		return fmt.Errorf("%s.home_deg (%.2f) must lie within the soft limits", name, a.HomeDeg)
	}
	return nil
}

// ValidateConfigPath accepts only .yaml files located directly in a configs/ directory.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if strings.Contains(filepath.ToSlash(path), "..") {
		return fmt.Errorf("config path %q must not contain '..'", path)
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// IsAltAzimuth reports whether the configured mount is altazimuth.
func (c *Config) IsAltAzimuth() bool {
	return c.Mount.Type == MountTypeAZ
}

// TickInterval returns the motor control cadence.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Mount.TickIntervalUs) * time.Microsecond
}

// TrackInterval returns the auto-track recompute cadence.
func (c *Config) TrackInterval() time.Duration {
	return time.Duration(c.Mount.TrackIntervalMs) * time.Millisecond
}
