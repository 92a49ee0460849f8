package mode

import "codeberg.org/mutker/hrvmon/internal/errors"

const (
	ErrInvalidDeps      = errors.ErrorCode("mode_invalid_dependencies")
	ErrSession          = errors.ErrSession
	ErrCollaborator     = errors.ErrCollaborator
	ErrNotConfigured    = errors.ErrorCode("mode_collaborator_not_configured")
	ErrInsufficientData = errors.ErrInsufficientData
)
