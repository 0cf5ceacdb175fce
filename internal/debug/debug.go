package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (alignment, gotos, mode changes)
	LevelLive    = 2 // Live info (axis targets, tracking recomputes)
	LevelVerbose = 3 // Verbose (transform chain, normalization details)
	LevelTrace   = 4 // Trace (GPIO, very low level)
)

var (
	mu     sync.RWMutex
	level  int
	out    io.Writer = os.Stdout
	logger           = zerolog.Nop()
)

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (alignment, gotos, mode changes)
// 2 = live info (axis targets, tracking recomputes)
// 3 = verbose (transform chain, normalization)
// 4 = trace (GPIO, very low level)
func Init(debugLevel int) {
	mu.Lock()
	defer mu.Unlock()
	level = debugLevel
	rebuild()
}

// SetOutput redirects debug output, e.g. to fan it out to the web status stream.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	rebuild()
}

func rebuild() {
	if level <= LevelOff {
		logger = zerolog.Nop()
		return
	}
	console := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05.000000",
		NoColor:    out != os.Stdout,
	}
	logger = zerolog.New(console).
		Level(zerolog.TraceLevel).
		With().
		Timestamp().
		Str("app", "ScopeGo").
		Logger()
}

func enabled(min int) (zerolog.Logger, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return logger, level >= min
}

// Level returns the current debug level.
func Level() int {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	_, ok := enabled(minLevel)
	return ok
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	if l, ok := enabled(LevelInfo); ok {
		l.Info().Msgf(format, args...)
	}
}

// Summary prints an important banner (level 1).
func Summary(title string) {
	if l, ok := enabled(LevelInfo); ok {
		l.Info().Msg("═══════════════════════════════════════")
		l.Info().Msgf("  %s", title)
		l.Info().Msg("═══════════════════════════════════════")
	}
}

// Goto prints a goto request with its final step target (level 1).
func Goto(kind string, x, y int64) {
	if l, ok := enabled(LevelInfo); ok {
		l.Info().Str("kind", kind).Int64("x", x).Int64("y", y).Msg("goto")
	}
}

// Alignment prints an alignment stage change (level 1).
func Alignment(stage string, fields map[string]interface{}) {
	if l, ok := enabled(LevelInfo); ok {
		l.Info().Str("stage", stage).Fields(fields).Msg("alignment")
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	if l, ok := enabled(LevelLive); ok {
		l.Info().Str("lvl", "live").Msgf(format, args...)
	}
}

// Move prints an axis move (level 2).
func Move(axis string, from, to int64) {
	if l, ok := enabled(LevelLive); ok {
		l.Info().Str("lvl", "live").Str("axis", axis).Int64("from", from).Int64("to", to).Msg("move")
	}
}

// Track prints an auto-track target recompute (level 2).
func Track(elapsed time.Duration, x, y int64) {
	if l, ok := enabled(LevelLive); ok {
		l.Info().Str("lvl", "live").Dur("elapsed", elapsed).Int64("x", x).Int64("y", y).Msg("track")
	}
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	if l, ok := enabled(LevelVerbose); ok {
		l.Debug().Msgf(format, args...)
	}
}

// Print prints a level 3 message (alias for Verbose).
func Print(format string, args ...interface{}) {
	Verbose(format, args...)
}

// Printf is an alias for Print for compatibility.
func Printf(format string, args ...interface{}) {
	Verbose(format, args...)
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	if l, ok := enabled(LevelVerbose); ok {
		l.Debug().Msgf("%s: %+v", name, v)
	}
}

// Section prints a section separator (level 3).
func Section(name string) {
	if l, ok := enabled(LevelVerbose); ok {
		l.Debug().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		l.Debug().Msgf("  %s", name)
		l.Debug().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	if l, ok := enabled(LevelVerbose); ok {
		l.Debug().Msgf("Step %d: %s", num, description)
	}
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	if l, ok := enabled(LevelInfo); ok {
		l.Info().Msgf("  %s = %v", name, value)
	}
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message (trace, GPIO).
func Trace(format string, args ...interface{}) {
	if l, ok := enabled(LevelTrace); ok {
		l.Trace().Msgf(format, args...)
	}
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	if l, ok := enabled(LevelTrace); ok {
		l.Trace().Str("op", operation).Int("pin", pin).Interface("value", value).Msg("gpio")
	}
}

// --- General functions ---

// Error prints a debug error (level 1+).
func Error(err error) {
	if l, ok := enabled(LevelInfo); ok {
		l.Error().Err(err).Msg("")
	}
}

// Fmt is a helper function that returns a formatted string
// only if debug is enabled (to avoid unnecessary allocations).
func Fmt(format string, args ...interface{}) string {
	if Level() > 0 {
		return fmt.Sprintf(format, args...)
	}
	return ""
}
