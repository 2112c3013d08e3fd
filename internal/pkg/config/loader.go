// Package config loads worker settings from the environment with a fail-open
// policy: a value that is missing keeps its default, a value that fails to
// parse or validate falls back to the default and reports a warning.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadResult is the outcome of loading one setting.
//
// Value is always usable. When FallbackApplied is set, Value is the default
// and Warning explains which input was rejected.
type LoadResult[T any] struct {
	Value           T
	Warning         string
	FallbackApplied bool
}

// LoadEnvString returns the variable's value, or defaultValue when unset or empty.
func LoadEnvString(envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultValue
}

// LoadEnvWithFallback loads a string setting and checks it with validator (nil accepts anything).
//
//	result := LoadEnvWithFallback("WORKER_TIMEZONE", "Asia/Seoul", ValidateTimezone)
//	tz := result.Value
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) LoadResult[string] {
	return loadEnv(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvDuration loads a time.ParseDuration setting such as "90s" or "1h30m".
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) LoadResult[time.Duration] {
	return loadEnv(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvInt loads a base-10 integer setting. Surrounding whitespace is rejected.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) LoadResult[int] {
	return loadEnv(envKey, defaultValue, strconv.Atoi, validator)
}

// LoadEnvBool loads a boolean setting.
// Accepted values are those of strconv.ParseBool plus yes/no and on/off.
func LoadEnvBool(envKey string, defaultValue bool) LoadResult[bool] {
	return loadEnv(envKey, defaultValue, parseBool, nil)
}

func loadEnv[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) LoadResult[T] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return LoadResult[T]{Value: defaultValue}
	}

	value, err := parse(raw)
	if err != nil {
		return fallback(envKey, raw, defaultValue, fmt.Errorf("parse: %w", err))
	}
	if validator != nil {
		if err := validator(value); err != nil {
			return fallback(envKey, raw, defaultValue, err)
		}
	}
	return LoadResult[T]{Value: value}
}

func fallback[T any](envKey, raw string, defaultValue T, err error) LoadResult[T] {
	return LoadResult[T]{
		Value:           defaultValue,
		FallbackApplied: true,
		Warning: fmt.Sprintf("%s=%q rejected (%v), using default %v",
			envKey, raw, err, defaultValue),
	}
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}
