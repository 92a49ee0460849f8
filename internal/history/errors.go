package history

import "codeberg.org/mutker/hrvmon/internal/errors"

const (
	ErrNoHistory = errors.ErrorCode("history_not_found")
	ErrWrite     = errors.ErrorCode("history_write_failed")
	ErrRead      = errors.ErrorCode("history_read_failed")
	ErrParse     = errors.ErrorCode("history_parse_failed")
)
