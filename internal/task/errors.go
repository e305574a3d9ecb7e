package task

import (
	"errors"
	"fmt"

	"github.com/kazz187/taskflow/pkg/cerr"
)

const msgStoreUnavailable = "task store unavailable"

func ErrTitleRequired() error {
	return cerr.NewError(cerr.InvalidArgument, "title is required", nil)
}

func ErrInvalidStatus(raw string) error {
	return cerr.NewError(cerr.InvalidArgument,
		fmt.Sprintf("invalid status %q: must be one of %q, %q, %q", raw, StatusPending, StatusInProgress, StatusCompleted), nil)
}

func ErrNotFound() error {
	return cerr.NewError(cerr.NotFound, "task not found", nil)
}

// ErrStoreUnavailable wraps a driver failure. Callers only see the generic
// message; the cause stays in the logs.
func ErrStoreUnavailable(err error) error {
	var cErr *cerr.Error
	if errors.As(err, &cErr) {
		return err
	}
	return cerr.NewError(cerr.Internal, msgStoreUnavailable, err)
}
