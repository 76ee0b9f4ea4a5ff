// Package repository defines error values that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers
// to distinguish between failure scenarios. For example, ErrForbidden
// indicates that the current user is not authorized to modify a road owned
// or maintained by another builder, while ErrConflict signals that an
// operation cannot proceed because of existing state (e.g. a citizen rating
// the same road twice).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own or maintain. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update cannot be performed
// because of conflicting state, such as rating a road that the user has
// already rated. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
