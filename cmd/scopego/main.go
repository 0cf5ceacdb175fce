package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/cjeanneret/ScopeGo/internal/clock"
	"github.com/cjeanneret/ScopeGo/internal/config"
	"github.com/cjeanneret/ScopeGo/internal/debug"
	"github.com/cjeanneret/ScopeGo/internal/hw/gpio"
	"github.com/cjeanneret/ScopeGo/internal/hw/stepper"
	"github.com/cjeanneret/ScopeGo/internal/logic/alignment"
	"github.com/cjeanneret/ScopeGo/internal/logic/catalog"
	"github.com/cjeanneret/ScopeGo/internal/logic/control"
	"github.com/cjeanneret/ScopeGo/internal/logic/geometry"
	"github.com/cjeanneret/ScopeGo/internal/logic/mount"
	"github.com/cjeanneret/ScopeGo/internal/metrics"
	"github.com/cjeanneret/ScopeGo/internal/web"
)

// cliOverrides holds the command line values that replace config entries.
// Zero values (and -1 for DebugLevel) mean "use config".
type cliOverrides struct {
	MountType  string
	DebugLevel int
	MaxSpeed   float64
	WebPort    int
}

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	mountType := flag.String("mount", "", "override mount type (eq or az)")
	debugLevel := flag.Int("debug", -1, "override debug level (0-4)")
	maxSpeed := flag.Float64("max_speed", 0, "override max axis speed in steps/s")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	overrides := cliOverrides{
		MountType:  *mountType,
		DebugLevel: *debugLevel,
		MaxSpeed:   *maxSpeed,
		WebPort:    webPort.port(),
	}
	if err := validateCLIOverrides(overrides); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}
	applyOverrides(cfg, overrides)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config after overrides: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Mount type", cfg.Mount.Type)

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("scopego: %v", err)
	}
}

// run brings up the hardware and drives the mount until ctx is done.
func run(ctx context.Context, cfg *config.Config) error {
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return fmt.Errorf("init GPIO: %w", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	debug.Step(2, "Initializing stepper motors")
	xMotor := stepper.NewStepper(gpioDriver, stepperConfig(cfg.XAxis))
	debug.PrintStruct("X axis config", cfg.XAxis)
	yMotor := stepper.NewStepper(gpioDriver, stepperConfig(cfg.YAxis))
	debug.PrintStruct("Y axis config", cfg.YAxis)

	debug.Step(3, "Loading catalog")
	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	debug.Value("Stars", len(cat.Stars()))
	debug.Value("Messier objects", len(cat.Messier()))

	debug.Step(4, "Creating mount")
	collector, err := metrics.NewCollector(nil)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	opts := mount.OptionsFromConfig(cfg)
	opts.Recorder = collector
	m := mount.New(xMotor, yMotor, geometry.NewAxes(cfg), clock.Wall{}, opts)
	if err := m.EnableMotors(); err != nil {
		return fmt.Errorf("enable motors: %w", err)
	}
	defer func() {
		if err := m.DisableMotors(); err != nil {
			log.Printf("disabling motors failed: %v", err)
		}
	}()

	sinks := control.Sinks{collector}
	var broadcaster *web.StatusBroadcaster
	if cfg.Web.Port > 0 {
		broadcaster = web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
		sinks = append(sinks, broadcaster)
	}

	debug.Step(5, "Starting control loop")
	loop := control.NewLoop(m, cfg.TickInterval(), cfg.TrackInterval(), sinks)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()

	if cfg.Web.Port <= 0 {
		debug.Info("Web server disabled, running headless")
		return <-loopDone
	}

	srv, err := web.NewServer(fmt.Sprintf(":%d", cfg.Web.Port), loop, cat, broadcaster, collector.Handler())
	if err == nil {
		err = srv.Run(ctx)
	}
	// The motors must be stopped before they are disabled.
	cancel()
	if loopErr := <-loopDone; err == nil && !errors.Is(loopErr, context.Canceled) {
		err = loopErr
	}
	if err != nil {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func stepperConfig(a config.AxisConfig) stepper.Config {
	return stepper.Config{
		StepPin:   a.StepPin,
		DirPin:    a.DirPin,
		EnablePin: a.EnablePin,
		InvertDir: a.InvertDir,
	}
}

// validateCLIOverrides checks the overrides that were actually given.
func validateCLIOverrides(o cliOverrides) error {
	if o.MountType != "" {
		if _, err := alignment.ParseKind(o.MountType); err != nil {
			return fmt.Errorf("mount: %w", err)
		}
	}
	if o.DebugLevel != -1 && (o.DebugLevel < debug.LevelOff || o.DebugLevel > debug.LevelTrace) {
		return fmt.Errorf("debug must be between %d and %d, got %d", debug.LevelOff, debug.LevelTrace, o.DebugLevel)
	}
	if o.MaxSpeed != 0 {
		if math.IsNaN(o.MaxSpeed) || math.IsInf(o.MaxSpeed, 0) || o.MaxSpeed <= 0 || o.MaxSpeed > 10000 {
			return fmt.Errorf("max_speed must be between 1 and 10000 steps/s, got %g", o.MaxSpeed)
		}
	}
	return nil
}

// applyOverrides mutates cfg with the overrides that were given. A lower
// max speed also caps the goto speed.
func applyOverrides(cfg *config.Config, o cliOverrides) {
	if o.MountType != "" {
		kind, err := alignment.ParseKind(o.MountType)
		if err == nil {
			cfg.Mount.Type = kind.String()
		}
	}
	if o.DebugLevel >= 0 {
		cfg.Defaults.DebugLevel = o.DebugLevel
	}
	if o.MaxSpeed > 0 {
		cfg.Mount.MaxSpeed = o.MaxSpeed
		if cfg.Mount.GotoSpeed > o.MaxSpeed {
			cfg.Mount.GotoSpeed = o.MaxSpeed
		}
	}
	if o.WebPort > 0 {
		cfg.Web.Port = o.WebPort
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
