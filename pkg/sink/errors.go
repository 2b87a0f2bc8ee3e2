package sink

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalState is fatal: the state machine observed a state it has
	// no transition for. Surfaces unchecked per spec §7.
	ErrIllegalState = errors.New("sink: illegal worker state")

	// ErrSchemaProjection is fatal: the compatibility policy could not
	// project a record onto the current schema.
	ErrSchemaProjection = errors.New("sink: schema projection failed")

	// ErrBackoffActive is returned by Write when re-entry happens before
	// the configured retry.backoff.ms has elapsed since the last failure;
	// the caller should treat this as a no-op, not an error to surface.
	ErrBackoffActive = errors.New("sink: backoff still active")
)

// TransientError wraps a recoverable storage/WAL/recovery failure. The
// write loop records failureTime and requests a retry delay for these;
// everything else is fatal (spec §7).
type TransientError struct {
	State State
	Err   error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("sink: transient failure in state %s: %v", e.State, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func transient(state State, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{State: state, Err: err}
}

// IsTransient reports whether err (or anything it wraps) is a
// TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}
