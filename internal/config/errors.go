package config

import (
	"errors"

	"glucare/internal/dashboard"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")

	// ErrConfigurationMissing aliases the dashboard sentinel.
	ErrConfigurationMissing = dashboard.ErrConfigurationMissing
)
