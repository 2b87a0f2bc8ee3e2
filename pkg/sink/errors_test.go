package sink

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient_DetectsWrappedTransientError(t *testing.T) {
	base := errors.New("boom")
	wrapped := fmt.Errorf("writing record: %w", transient(WALAppended, base))

	if !IsTransient(wrapped) {
		t.Fatalf("IsTransient() = false, want true for a wrapped TransientError")
	}
}

func TestIsTransient_FalseForOrdinaryError(t *testing.T) {
	if IsTransient(errors.New("ordinary")) {
		t.Fatalf("IsTransient() = true, want false for a non-transient error")
	}
}

func TestIsTransient_FalseForNil(t *testing.T) {
	if IsTransient(nil) {
		t.Fatalf("IsTransient(nil) = true, want false")
	}
}

func TestTransient_NilErrIsNil(t *testing.T) {
	if transient(WALAppended, nil) != nil {
		t.Fatalf("transient(state, nil) should return nil")
	}
}

func TestTransientError_UnwrapReachesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := transient(TempFileClosed, cause)

	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is() could not reach the wrapped cause through TransientError")
	}
}

func TestTransientError_ErrorIncludesState(t *testing.T) {
	err := transient(ShouldRotate, errors.New("timeout"))
	want := "sink: transient failure in state SHOULD_ROTATE: timeout"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
