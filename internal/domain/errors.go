package domain

import "errors"

// Sentinel errors for rule violations. Handlers map these onto HTTP
// statuses; stores wrap them with context about the conflicting row.
var (
	// ErrInvalidTransition is returned when a requested estado change is
	// not present in the transition table.
	ErrInvalidTransition = errors.New("invalid estado transition")

	// ErrPermissionDenied is returned when the acting user may not
	// perform the requested action on the resource.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUniquenessConflict is returned when activating a role or
	// assignment that would violate an exclusivity invariant.
	ErrUniquenessConflict = errors.New("uniqueness conflict")

	// ErrVersionCapExceeded is returned when a guía category already
	// holds the maximum number of versions.
	ErrVersionCapExceeded = errors.New("version cap exceeded")

	// ErrRoleChangeBlocked is returned when a user with municipio
	// assignment history is moved to a role that takes no municipios.
	ErrRoleChangeBlocked = errors.New("role change blocked by municipio history")

	// ErrNotFound is returned by stores when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentUpdate is returned when a guarded write finds the row
	// no longer in the expected estado.
	ErrConcurrentUpdate = errors.New("record changed concurrently")
)
