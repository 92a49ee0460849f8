package hrv

import "codeberg.org/mutker/hrvmon/internal/errors"

const (
	ErrInsufficientData = errors.ErrInsufficientData
	ErrEmptyPPIs        = errors.ErrorCode("hrv_empty_ppis")
	ErrEmptyHRs         = errors.ErrorCode("hrv_empty_hrs")
	ErrTooFewPPIs       = errors.ErrorCode("hrv_too_few_ppis")
)
