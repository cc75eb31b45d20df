package errors

import (
	"errors"
	"fmt"
	"testing"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// PaneError Tests
// -----------------------------------------------------------------------------

func TestPaneError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *PaneError
		want string
	}{
		{
			name: "bare",
			err:  NewPaneError("render refused", nil),
			want: "pane error: render refused",
		},
		{
			name: "with runner and cause",
			err:  NewPaneError("render refused", ErrPaneRemoved).WithRunner("python3-13"),
			want: "pane error [runner=python3-13]: render refused: pane removed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPaneError_Is(t *testing.T) {
	err := NewPaneError("x", ErrPaneRemoved)
	if !errors.Is(err, ErrPaneRemoved) {
		t.Error("errors.Is(err, ErrPaneRemoved) = false, want true")
	}
	if !errors.Is(err, &PaneError{}) {
		t.Error("errors.Is(err, &PaneError{}) = false, want true")
	}
	if errors.Is(err, ErrPaneExists) {
		t.Error("errors.Is(err, ErrPaneExists) = true, want false")
	}
}

// -----------------------------------------------------------------------------
// TransportError Tests
// -----------------------------------------------------------------------------

func TestTransportError_Retryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{502, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := NewTransportError("request failed", nil).WithStatus(tt.status)
			if got := err.IsRetryable(); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
			if got := IsRetryable(Wrap(err, "outer")); got != tt.want {
				t.Errorf("IsRetryable(wrapped) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransportError_Error(t *testing.T) {
	err := NewTransportError("run request failed", nil).
		WithStatus(502).
		WithRunner("python3.13").
		WithBody("  bad gateway\n")
	want := "transport error [runner=python3.13, status=502]: run request failed (bad gateway)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrTransport) {
		t.Error("errors.Is(err, ErrTransport) = false, want true")
	}
}

func TestTransportError_WithBodyTruncates(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'a'
	}
	err := NewTransportError("x", nil).WithBody(string(long))
	if len(err.Body) != 512+len("...") {
		t.Errorf("len(Body) = %d, want %d", len(err.Body), 515)
	}
}

// -----------------------------------------------------------------------------
// StorageError Tests
// -----------------------------------------------------------------------------

func TestStorageError(t *testing.T) {
	err := NewStorageError("decode failed", ErrStorageCorrupted).WithKey("selected_runners")
	want := "storage error [key=selected_runners]: decode failed: stored state corrupted"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if IsUserFacing(err) {
		t.Error("IsUserFacing() = true, want false")
	}
	if err.Severity() != SeverityDebug {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityDebug)
	}
	if !errors.Is(err, ErrStorageCorrupted) {
		t.Error("errors.Is(err, ErrStorageCorrupted) = false, want true")
	}
}

// -----------------------------------------------------------------------------
// Semantic Error Tests
// -----------------------------------------------------------------------------

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("share", "abc").WithCause(ErrShareNotFound)
	if got, want := err.Error(), "share 'abc' not found: shared session not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrShareNotFound) {
		t.Error("errors.Is(err, ErrShareNotFound) = false, want true")
	}
	var nf *NotFoundError
	if !errors.As(Wrap(err, "load"), &nf) {
		t.Fatal("errors.As(*NotFoundError) = false, want true")
	}
	if nf.ResourceID != "abc" {
		t.Errorf("ResourceID = %q, want %q", nf.ResourceID, "abc")
	}
}

func TestAlreadyExistsError(t *testing.T) {
	err := NewAlreadyExistsError("runner", "python3-14")
	if got, want := err.Error(), "runner 'python3-14' already exists"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Severity() != SeverityWarning {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityWarning)
	}
	if !IsUserFacing(Wrap(err, "add")) {
		t.Error("IsUserFacing(wrapped) = false, want true")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("`runners` is not a list.").WithField("runners").WithValue(42)
	if got, want := err.Error(), "`runners` is not a list."; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("errors.Is(err, ErrInvalidInput) = false, want true")
	}
	if err.Field != "runners" || err.Value != 42 {
		t.Errorf("Field/Value = %q/%v, want runners/42", err.Field, err.Value)
	}
}

// -----------------------------------------------------------------------------
// Helper Tests
// -----------------------------------------------------------------------------

func TestClassification_PlainErrors(t *testing.T) {
	plain := New("boom")
	if IsRetryable(plain) {
		t.Error("IsRetryable(plain) = true, want false")
	}
	if IsUserFacing(plain) {
		t.Error("IsUserFacing(plain) = true, want false")
	}
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true, want false")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Error("Wrap(nil) != nil")
	}
	if Wrapf(nil, "x %d", 1) != nil {
		t.Error("Wrapf(nil) != nil")
	}
	err := Wrapf(ErrTransport, "dispatch %s", "python3.13")
	if got, want := err.Error(), "dispatch python3.13: transport failure"; got != want {
		t.Errorf("Wrapf() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrTransport) {
		t.Error("errors.Is(Wrapf(ErrTransport)) = false")
	}
}
