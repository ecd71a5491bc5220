// Package config loads AAG CloudWatcher configuration from the environment.
//
// Variables are prefixed AAG_ and nested keys are joined with a double
// underscore, e.g. AAG_THRESHOLDS__CLOUDY or AAG_HEATER__MIN_POWER. An
// optional .env file (loaded with godotenv) may supply the same variables
// for local development; it is never required.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// lookupEnv is a thin wrapper over os.LookupEnv so tests can stub it without
// mutating the real process environment.
var lookupEnv = os.LookupEnv

// ConfigError reports invalid or missing required configuration. It is the
// only fatal error class in this service; every other error is recoverable
// by the acquisition loop's supervisor.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Thresholds holds the safety-classification boundaries from spec.md §3/4.7.
type Thresholds struct {
	Cloudy     float64 // sky-ambient delta, °C
	VeryCloudy float64
	Windy      float64 // km/h
	VeryWindy  float64
	Gusty      float64
	VeryGusty  float64
	Wet        int // rain frequency counter; lower means wetter
	Rainy      int
}

// Heater holds the PWM initialization parameters. Only MinPower is used by
// this service (see DESIGN.md: no closed-loop PID per spec.md §1 Non-goals);
// the remainder is retained so the configuration surface matches the device
// manual and a future closed-loop extension has somewhere to read from.
type Heater struct {
	MinPower        float64
	LowTemp         float64
	LowDelta        float64
	HighTemp        float64
	HighDelta       float64
	ImpulseTemp     float64
	ImpulseDuration time.Duration
	ImpulseCycle    time.Duration
}

// Location holds the station's physical location, used for sea-level
// pressure correction and reading timestamps.
type Location struct {
	ElevationM float64
	Timezone   string
}

// Config is the complete, flat configuration record for one CloudWatcher
// station. It has no back-pointers to other objects (spec.md §9).
type Config struct {
	SerialPort       string
	CaptureDelay     time.Duration
	NumReadings      int
	SafetyDelay      time.Duration
	IgnoreUnsafe     map[string]bool // subset of {"cloud", "wind", "rain"}
	Thresholds       Thresholds
	Heater           Heater
	HaveHeater       bool
	SampleCount      int
	Location         Location
	SQReference      float64
	VerboseLogging   bool
	SoloSnapshotPath string
}

// Default returns the configuration defaults from spec.md §3 and §8's S1-S4
// scenarios.
func Default() Config {
	return Config{
		SerialPort:   "/dev/ttyUSB0",
		CaptureDelay: 30 * time.Second,
		NumReadings:  10,
		SafetyDelay:  15 * time.Minute,
		IgnoreUnsafe: map[string]bool{},
		Thresholds: Thresholds{
			Cloudy:     -25,
			VeryCloudy: -15,
			Windy:      50,
			VeryWindy:  75,
			Gusty:      100,
			VeryGusty:  125,
			Wet:        2200,
			Rainy:      1800,
		},
		Heater: Heater{
			MinPower:        0,
			LowTemp:         0,
			LowDelta:        6,
			HighTemp:        20,
			HighDelta:       4,
			ImpulseTemp:     10,
			ImpulseDuration: 60 * time.Second,
			ImpulseCycle:    600 * time.Second,
		},
		HaveHeater:  false,
		SampleCount: 1,
		Location: Location{
			ElevationM: 100.0,
			Timezone:   "UTC",
		},
		SQReference: 19.6,
	}
}

// Load reads AAG_-prefixed environment variables into a Config, optionally
// seeding the process environment from envFile first. envFile may be empty,
// in which case no .env file is loaded.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		// A missing .env file is not an error: it's a convenience, not a
		// contract. godotenv.Load only fails loudly on a malformed file.
		if err := godotenv.Load(envFile); err != nil {
			if !strings.Contains(err.Error(), "no such file") {
				return Config{}, &ConfigError{Field: "envFile", Msg: err.Error()}
			}
		}
	}

	cfg := Default()
	env := newEnvReader("AAG_")

	cfg.SerialPort = env.str("SERIAL_PORT", cfg.SerialPort)
	if cfg.SerialPort == "" {
		return cfg, &ConfigError{Field: "serial_port", Msg: "must not be empty"}
	}

	var err error
	if cfg.CaptureDelay, err = env.seconds("CAPTURE_DELAY", cfg.CaptureDelay); err != nil {
		return cfg, err
	}
	if cfg.NumReadings, err = env.integer("NUM_READINGS", cfg.NumReadings); err != nil {
		return cfg, err
	}
	if cfg.NumReadings <= 0 {
		return cfg, &ConfigError{Field: "num_readings", Msg: "must be positive"}
	}
	if cfg.SafetyDelay, err = env.seconds("SAFETY_DELAY", cfg.SafetyDelay); err != nil {
		return cfg, err
	}
	cfg.IgnoreUnsafe = env.stringSet("IGNORE_UNSAFE")

	t := &cfg.Thresholds
	if t.Cloudy, err = env.float("THRESHOLDS__CLOUDY", t.Cloudy); err != nil {
		return cfg, err
	}
	if t.VeryCloudy, err = env.float("THRESHOLDS__VERY_CLOUDY", t.VeryCloudy); err != nil {
		return cfg, err
	}
	if t.Windy, err = env.float("THRESHOLDS__WINDY", t.Windy); err != nil {
		return cfg, err
	}
	if t.VeryWindy, err = env.float("THRESHOLDS__VERY_WINDY", t.VeryWindy); err != nil {
		return cfg, err
	}
	if t.Gusty, err = env.float("THRESHOLDS__GUSTY", t.Gusty); err != nil {
		return cfg, err
	}
	if t.VeryGusty, err = env.float("THRESHOLDS__VERY_GUSTY", t.VeryGusty); err != nil {
		return cfg, err
	}
	if t.Wet, err = env.integer("THRESHOLDS__WET", t.Wet); err != nil {
		return cfg, err
	}
	if t.Rainy, err = env.integer("THRESHOLDS__RAINY", t.Rainy); err != nil {
		return cfg, err
	}

	h := &cfg.Heater
	if h.MinPower, err = env.float("HEATER__MIN_POWER", h.MinPower); err != nil {
		return cfg, err
	}
	if h.LowTemp, err = env.float("HEATER__LOW_TEMP", h.LowTemp); err != nil {
		return cfg, err
	}
	if h.LowDelta, err = env.float("HEATER__LOW_DELTA", h.LowDelta); err != nil {
		return cfg, err
	}
	if h.HighTemp, err = env.float("HEATER__HIGH_TEMP", h.HighTemp); err != nil {
		return cfg, err
	}
	if h.HighDelta, err = env.float("HEATER__HIGH_DELTA", h.HighDelta); err != nil {
		return cfg, err
	}
	if h.ImpulseTemp, err = env.float("HEATER__IMPULSE_TEMP", h.ImpulseTemp); err != nil {
		return cfg, err
	}
	if h.ImpulseDuration, err = env.seconds("HEATER__IMPULSE_DURATION", h.ImpulseDuration); err != nil {
		return cfg, err
	}
	if h.ImpulseCycle, err = env.seconds("HEATER__IMPULSE_CYCLE", h.ImpulseCycle); err != nil {
		return cfg, err
	}
	if cfg.HaveHeater, err = env.boolean("HAVE_HEATER", cfg.HaveHeater); err != nil {
		return cfg, err
	}
	if cfg.HaveHeater && (h.MinPower < 0 || h.MinPower > 100) {
		return cfg, &ConfigError{Field: "heater.min_power", Msg: "must be within 0-100"}
	}

	if cfg.SampleCount, err = env.integer("SAMPLE_COUNT", cfg.SampleCount); err != nil {
		return cfg, err
	}
	if cfg.SampleCount <= 0 {
		return cfg, &ConfigError{Field: "sample_count", Msg: "must be positive"}
	}

	if cfg.Location.ElevationM, err = env.float("LOCATION__ELEVATION_M", cfg.Location.ElevationM); err != nil {
		return cfg, err
	}
	cfg.Location.Timezone = env.str("LOCATION__TIMEZONE", cfg.Location.Timezone)
	if _, zerr := time.LoadLocation(cfg.Location.Timezone); zerr != nil {
		return cfg, &ConfigError{Field: "location.timezone", Msg: zerr.Error()}
	}

	if cfg.SQReference, err = env.float("SQ_REFERENCE", cfg.SQReference); err != nil {
		return cfg, err
	}
	if cfg.VerboseLogging, err = env.boolean("VERBOSE_LOGGING", cfg.VerboseLogging); err != nil {
		return cfg, err
	}
	cfg.SoloSnapshotPath = env.str("SOLO_DATA_FILE_PATH", cfg.SoloSnapshotPath)

	return cfg, nil
}

type envReader struct {
	prefix string
}

func newEnvReader(prefix string) *envReader {
	return &envReader{prefix: prefix}
}

func (e *envReader) lookup(key string) (string, bool) {
	return lookupEnv(e.prefix + key)
}

func (e *envReader) str(key, def string) string {
	if v, ok := e.lookup(key); ok {
		return v
	}
	return def
}

func (e *envReader) float(key string, def float64) (float64, error) {
	v, ok := e.lookup(key)
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, &ConfigError{Field: e.prefix + key, Msg: "not a number: " + err.Error()}
	}
	return f, nil
}

func (e *envReader) integer(key string, def int) (int, error) {
	v, ok := e.lookup(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, &ConfigError{Field: e.prefix + key, Msg: "not an integer: " + err.Error()}
	}
	return n, nil
}

func (e *envReader) seconds(key string, def time.Duration) (time.Duration, error) {
	v, ok := e.lookup(key)
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, &ConfigError{Field: e.prefix + key, Msg: "not a number of seconds: " + err.Error()}
	}
	return time.Duration(f * float64(time.Second)), nil
}

func (e *envReader) boolean(key string, def bool) (bool, error) {
	v, ok := e.lookup(key)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, &ConfigError{Field: e.prefix + key, Msg: "not a boolean: " + err.Error()}
	}
	return b, nil
}

func (e *envReader) stringSet(key string) map[string]bool {
	v, ok := e.lookup(key)
	set := map[string]bool{}
	if !ok || strings.TrimSpace(v) == "" {
		return set
	}
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			set[part] = true
		}
	}
	return set
}
