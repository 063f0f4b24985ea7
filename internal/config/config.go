// Package config provides environment configuration for go-mocap commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Default process configuration.
const (
	DefaultPort     = "8080"
	DefaultLogLevel = "info"
)

// Env holds process-level settings read from the environment.
type Env struct {
	Port      string // MOCAP_PORT
	RigURL    string // MOCAP_RIG_URL, empty selects the procedural rig
	Stream    string // MOCAP_STREAM, file path or URL loaded at startup
	Tuning    string // MOCAP_TUNING, YAML overrides for solver/smoother constants
	SolverURL string // MOCAP_SOLVER_URL, enables the delegated strategy
	LogLevel  string // LOG_LEVEL
}

// Load reads .env files (if present) and then the process environment.
// Variables already set in the environment win over .env values. A file
// that exists but cannot be parsed is reported; the returned Env still
// reflects the environment and any files that did load.
func Load(files ...string) (Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var errs []error
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", f, err))
		}
	}
	return FromEnv(), errors.Join(errs...)
}

// FromEnv reads settings from the environment without touching .env files.
func FromEnv() Env {
	return Env{
		Port:      String("MOCAP_PORT", DefaultPort),
		RigURL:    os.Getenv("MOCAP_RIG_URL"),
		Stream:    os.Getenv("MOCAP_STREAM"),
		Tuning:    os.Getenv("MOCAP_TUNING"),
		SolverURL: os.Getenv("MOCAP_SOLVER_URL"),
		LogLevel:  String("LOG_LEVEL", DefaultLogLevel),
	}
}

// String returns the env var value or def when unset.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Float returns the env var parsed as float64, or def when unset or invalid.
func Float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// Bool returns the env var parsed as bool, or def when unset or invalid.
func Bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
