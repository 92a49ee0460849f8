package telemetry

import "codeberg.org/mutker/hrvmon/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidListen = errors.ErrorCode("telemetry_invalid_listen_address")

	// Registration Errors
	ErrRegister = errors.ErrorCode("telemetry_register_failed")

	// Server Errors
	ErrServe           = errors.ErrorCode("telemetry_serve_failed")
	ErrServiceShutdown = errors.ErrShutdownFailed
)
