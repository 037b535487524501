package taralli

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoChildren indicates a drill-forward was requested on a container
	// whose child set resolved empty. The engine stays at the current level;
	// this is flow control, not an infrastructure failure.
	ErrNoChildren = errors.New("container has no children")

	// ErrEngineClosed indicates an operation was attempted after Close.
	ErrEngineClosed = errors.New("engine is closed")

	// errRootRequired indicates a Config carried neither inline root data
	// nor a root loader.
	errRootRequired = errors.New("either RootData or RootLoader is required")

	// ErrNotRestorable indicates a persisted snapshot could not be applied
	// at all (bad payload or unknown schema version). A partial identity
	// mismatch is not an error; it truncates the restore instead.
	ErrNotRestorable = errors.New("persisted state is not restorable")
)

// InfrastructureError represents a framework-level error that indicates
// something is wrong beneath the engine itself (storage write failed,
// children loader crashed, etc.). These errors typically require
// host-level recovery rather than domain handling.
type InfrastructureError struct {
	Op  string // Operation that failed (e.g., "snapshot", "load_children")
	Err error  // Underlying error
}

func (e *InfrastructureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("taralli: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("taralli: %s", e.Op)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// NewInfrastructureError creates a new infrastructure error.
func NewInfrastructureError(op string, err error) *InfrastructureError {
	return &InfrastructureError{Op: op, Err: err}
}

// IsInfrastructureError checks if an error is an infrastructure error.
func IsInfrastructureError(err error) bool {
	var infraErr *InfrastructureError
	return errors.As(err, &infraErr)
}
