// internal/domain/errors.go
package domain

import "errors"

var (
	// General errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidReference = errors.New("referenced record does not exist")
	ErrForbidden        = errors.New("insufficient permissions")

	// Token-related errors
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// User-related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUserInUse          = errors.New("user still owns reports")

	// Organization-related errors
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrSelfParent           = errors.New("organization cannot be its own parent or ancestor")

	// Report-related errors
	ErrReportNotFound      = errors.New("report not found")
	ErrNoOrganization      = errors.New("user has no organization affiliation")
	ErrInvalidApprovalType = errors.New("invalid approval type")
	ErrInvalidTransition   = errors.New("invalid report status transition")
)
