// Package config provides plain environment getters for values that need no
// validation layer, such as credentials and connection strings.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// GetEnvString returns the trimmed variable value, or defaultValue when unset or blank.
func GetEnvString(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvBool parses the variable with strconv.ParseBool.
// Invalid values log a warning and return defaultValue.
func GetEnvBool(key string, defaultValue bool) bool {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		slog.Warn("invalid boolean value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.Bool("default", defaultValue))
		return defaultValue
	}
	return value
}

// GetEnvStringList splits a comma-separated variable, trimming items and
// dropping empty ones.
//
//	// RECIPIENTS="telegram:123, discord:default"
//	GetEnvStringList("RECIPIENTS", nil) // ["telegram:123", "discord:default"]
func GetEnvStringList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
