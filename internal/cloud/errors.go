package cloud

import "codeberg.org/mutker/hrvmon/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrNoData        = errors.ErrorCode("cloud_no_data")
	ErrToken         = errors.ErrorCode("cloud_token_failed")
	ErrRequest       = errors.ErrorCode("cloud_request_failed")
	ErrStatus        = errors.ErrorCode("cloud_unexpected_status")
	ErrResponse      = errors.ErrorCode("cloud_invalid_response")
)
