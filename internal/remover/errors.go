package remover

import "errors"

var (
	// ErrNotFound is returned when the target path does not exist.
	ErrNotFound = errors.New("remover: path not found")
	// ErrPermission is returned when the target cannot be removed because
	// of missing rights or because another process holds it.
	ErrPermission = errors.New("remover: permission denied or path busy")
	// ErrBadMask is returned for a malformed glob mask.
	ErrBadMask = errors.New("remover: malformed mask")
)
