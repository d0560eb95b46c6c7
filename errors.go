package snapkeeper

import (
	"errors"
	"fmt"
)

// CreateError is returned by the Creator when a snapshot could not be
// made for a volume. It only halts pruning for that volume.
type CreateError struct {
	VolumeID string
	Op       string
	Err      error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("error processing volume id %s: %s: %v", e.VolumeID, e.Op, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

// DeleteError records a snapshot the Pruner failed to delete.
type DeleteError struct {
	SnapshotID  string
	Description string
	Err         error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("error deleting snapshot %s (%s): %v", e.SnapshotID, e.Description, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// FatalError marks a connector failure that no single volume can
// recover from, such as rejected credentials or an unreachable
// endpoint. A FatalError aborts the run.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal connector error during %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err as a FatalError for operation op. A nil err stays nil.
func Fatal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Op: op, Err: err}
}

// IsFatal reports whether err, or anything it wraps, is a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
