// Public domain.

// Package config loads settings shared by the conjunct commands.
//
// Settings start from Default, are overlaid by a TOML file, then by
// CONJUNCT_ environment variables.  Commands apply their own flags last.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/soniakeys/conjunct/internal/conjunct"
)

// ErrInvalid is wrapped by errors from Validate and ApplyEnv.
var ErrInvalid = errors.New("invalid configuration")

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// StoreConfig locates an optional graph database.  An empty URI
// disables export.
type StoreConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

type LogConfig struct {
	Debug bool `toml:"debug"`
}

type Config struct {
	HorizonMinutes   int     `toml:"horizon_minutes" validate:"gt=0"`
	StepMinutes      int     `toml:"step_minutes" validate:"gt=0,ltefield=HorizonMinutes"`
	CloseThresholdKm float64 `toml:"close_threshold_km" validate:"gt=0"`
	MaxObjects       int     `toml:"max_objects" validate:"gte=0"`
	TopK             int     `toml:"top_k" validate:"gte=0"`
	Workers          int     `toml:"workers" validate:"gte=0"`
	Source           string  `toml:"source"`

	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Log    LogConfig    `toml:"log"`
}

// Default returns the built in settings.
func Default() Config {
	return Config{
		HorizonMinutes:   120,
		StepMinutes:      10,
		CloseThresholdKm: 10,
		MaxObjects:       60,
		TopK:             10,
		Source:           "active",
		Server:           ServerConfig{Addr: ":8000"},
	}
}

// Load reads the TOML file at path over Default.  Keys missing from the
// file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from CONJUNCT_ variables, looked up with
// getenv.  Empty values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	ints := map[string]*int{
		"CONJUNCT_HORIZON_MINUTES": &c.HorizonMinutes,
		"CONJUNCT_STEP_MINUTES":    &c.StepMinutes,
		"CONJUNCT_MAX_OBJECTS":     &c.MaxObjects,
		"CONJUNCT_TOP_K":           &c.TopK,
		"CONJUNCT_WORKERS":         &c.Workers,
	}
	for k, p := range ints {
		if s := getenv(k); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalid, k, err)
			}
			*p = v
		}
	}
	if s := getenv("CONJUNCT_CLOSE_THRESHOLD_KM"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%w: CONJUNCT_CLOSE_THRESHOLD_KM: %v", ErrInvalid, err)
		}
		c.CloseThresholdKm = v
	}
	if s := getenv("CONJUNCT_DEBUG"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("%w: CONJUNCT_DEBUG: %v", ErrInvalid, err)
		}
		c.Log.Debug = v
	}
	strs := map[string]*string{
		"CONJUNCT_SOURCE":         &c.Source,
		"CONJUNCT_ADDR":           &c.Server.Addr,
		"CONJUNCT_NEO4J_URI":      &c.Store.URI,
		"CONJUNCT_NEO4J_USER":     &c.Store.User,
		"CONJUNCT_NEO4J_PASSWORD": &c.Store.Password,
		"CONJUNCT_NEO4J_DATABASE": &c.Store.Database,
	}
	for k, p := range strs {
		if s := getenv(k); s != "" {
			*p = s
		}
	}
	return nil
}

var validate = validator.New()

// Validate checks value ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Options returns the pipeline options c describes.
func (c Config) Options() conjunct.Options {
	return conjunct.Options{
		HorizonMinutes:   c.HorizonMinutes,
		StepMinutes:      c.StepMinutes,
		CloseThresholdKm: c.CloseThresholdKm,
		MaxObjects:       c.MaxObjects,
	}
}
