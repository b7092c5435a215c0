package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrDuplicate  = errors.New("duplicate record")
)

var (
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)
	ErrMessageNotFound = fmt.Errorf("message %w", ErrNotFound)
	ErrAgentNotFound   = fmt.Errorf("agent %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrTenantNotFound  = fmt.Errorf("tenant %w", ErrNotFound)
	ErrUsageNotFound   = fmt.Errorf("usage record %w", ErrNotFound)

	ErrMissingUniqKey   = fmt.Errorf("%w: uniqKey is required", ErrValidation)
	ErrEmptyContent     = fmt.Errorf("%w: content is required", ErrValidation)
	ErrInvalidProvider  = fmt.Errorf("%w: invalid provider", ErrValidation)
	ErrSameProviders    = fmt.Errorf("%w: primary and fallback providers must differ", ErrValidation)
	ErrInvalidDimension = fmt.Errorf("%w: invalid usage dimension", ErrValidation)
	ErrInvalidMetric    = fmt.Errorf("%w: invalid usage metric", ErrValidation)
	ErrInvalidRole      = fmt.Errorf("%w: invalid role", ErrValidation)

	ErrNoTenant      = fmt.Errorf("%w: no tenant in context", ErrForbidden)
	ErrNoUser        = fmt.Errorf("%w: no user in context", ErrForbidden)
	ErrMissingScope  = fmt.Errorf("%w: missing scope", ErrForbidden)
	ErrInvalidAPIKey = fmt.Errorf("%w: invalid api key", ErrForbidden)
)
