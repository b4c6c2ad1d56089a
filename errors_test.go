package keylocker

import (
	"errors"
	"testing"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ValidationError
		wantMsg string
	}{
		{
			name:    "with field",
			err:     &ValidationError{Field: "slot_size", Value: 4, Message: "too small"},
			wantMsg: "validation error: slot_size: too small",
		},
		{
			name:    "without field",
			err:     &ValidationError{Message: "invalid configuration"},
			wantMsg: "validation error: invalid configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestIOError(t *testing.T) {
	baseErr := errors.New("permission denied")

	tests := []struct {
		name    string
		err     *IOError
		wantMsg string
	}{
		{
			name:    "with offset",
			err:     &IOError{Operation: "read", Path: "/dev/sdb1", Offset: 1024, Message: "permission denied", Err: baseErr},
			wantMsg: "io error: read /dev/sdb1 at offset 1024: permission denied",
		},
		{
			name:    "without offset",
			err:     &IOError{Operation: "write", Path: "/mnt/usb/.cache", Offset: -1, Message: "disk full"},
			wantMsg: "io error: write /mnt/usb/.cache: disk full",
		},
		{
			name:    "operation only",
			err:     &IOError{Operation: "sync", Message: "failed to sync"},
			wantMsg: "io error: sync: failed to sync",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("IOError.Error() = %q, want %q", got, tt.wantMsg)
			}
			if tt.err.Err != nil && tt.err.Unwrap() != tt.err.Err {
				t.Errorf("IOError.Unwrap() did not return wrapped error")
			}
		})
	}
}

func TestUsageError(t *testing.T) {
	err := NewUsageError("put", "mode threshold exceeds share count")
	if !IsUsageError(err) {
		t.Error("NewUsageError should produce a UsageError")
	}
	want := "usage error: put: mode threshold exceeds share count"
	if got := err.Error(); got != want {
		t.Errorf("UsageError.Error() = %q, want %q", got, want)
	}
}

func TestErrorCheckers(t *testing.T) {
	ve := &ValidationError{Message: "test"}
	ie := &IOError{Operation: "read", Message: "test"}
	ue := &UsageError{Message: "test"}
	genericErr := errors.New("generic error")

	tests := []struct {
		name string
		err  error
		fn   func(error) bool
		want bool
	}{
		{"IsValidationError with ValidationError", ve, IsValidationError, true},
		{"IsValidationError with other error", genericErr, IsValidationError, false},
		{"IsIOError with IOError", ie, IsIOError, true},
		{"IsIOError with other error", genericErr, IsIOError, false},
		{"IsUsageError with UsageError", ue, IsUsageError, true},
		{"IsUsageError with other error", genericErr, IsUsageError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.err); got != tt.want {
				t.Errorf("error checker = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCollapseRecoveryError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil passes through", nil, nil},
		{"io error passes through", NewIOError("read", "/dev/sdb1", errors.New("eio")), nil},
		{"bad password collapses", &badPasswordError{label: "DISK-A"}, ErrNoEntry},
		{"insufficient shares collapses", &insufficientSharesError{found: 2, needed: 4}, ErrNoEntry},
		{"corrupt entry collapses", &corruptEntryError{label: "DISK-A"}, ErrNoEntry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collapseRecoveryError(tt.in)
			switch {
			case tt.in == nil:
				if got != nil {
					t.Errorf("collapseRecoveryError(nil) = %v, want nil", got)
				}
			case tt.want == ErrNoEntry:
				if !errors.Is(got, ErrNoEntry) {
					t.Errorf("collapseRecoveryError(%v) = %v, want ErrNoEntry", tt.in, got)
				}
			default:
				if !IsIOError(got) {
					t.Errorf("collapseRecoveryError(%v) = %v, want IOError passthrough", tt.in, got)
				}
			}
		})
	}
}
