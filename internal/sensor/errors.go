package sensor

import "codeberg.org/mutker/hrvmon/internal/errors"

const (
	ErrAcquisitionFault = errors.ErrAcquisitionFault
	ErrNoSample         = errors.ErrorCode("sensor_no_sample")
	ErrOpenPort         = errors.ErrorCode("sensor_open_port_failed")
	ErrInvalidOptions   = errors.ErrorCode("sensor_invalid_options")
	ErrClosed           = errors.ErrorCode("sensor_closed")
)
