package publish

import "codeberg.org/mutker/hrvmon/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrConnect       = errors.ErrorCode("publish_connect_failed")
	ErrEncode        = errors.ErrorCode("publish_encode_failed")
)
