package board

import (
	"errors"
	"fmt"

	"taskboard/internal/models"
)

// ErrInvalidArgument is wrapped by every error caused by a malformed request.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// BlockedError reports a blocked task being placed into the terminal column.
// Callers use errors.As to tell it apart from validation failures.
type BlockedError struct {
	TaskID int64
	Status models.Status
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("task %d is blocked and cannot be moved to %s", e.TaskID, e.Status)
}
