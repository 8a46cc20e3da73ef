package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindConnection, "connection"},
		{KindTransient, "transient"},
		{KindTimeout, "timeout"},
		{KindPermission, "permission"},
		{KindMalformedRef, "malformed_ref"},
		{KindInternal, "internal"},
		{Kind(0), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := &Error{Kind: KindTransient, Op: "write", Ref: Ref{Collection: "c", Key: "k"}, Err: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if !strings.Contains(err.Error(), "c/k") {
		t.Errorf("Error() = %q, want it to include the ref", err.Error())
	}
	if !strings.Contains(err.Error(), "transient") {
		t.Errorf("Error() = %q, want it to include the kind", err.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindTransient, true},
		{KindConnection, true},
		{KindTimeout, false},
		{KindPermission, false},
		{KindMalformedRef, false},
		{KindInternal, false},
	}
	for _, tt := range tests {
		e := &Error{Kind: tt.kind, Op: "op", Err: errors.New("x")}
		if got := e.IsRetryable(); got != tt.want {
			t.Errorf("Error{Kind: %v}.IsRetryable() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestKindHelpersSeeThroughWrapping(t *testing.T) {
	inner := &Error{Kind: KindTimeout, Op: "read", Err: errors.New("deadline")}
	wrapped := fmt.Errorf("while syncing positions: %w", inner)

	if !IsTimeout(wrapped) {
		t.Error("IsTimeout should see through fmt.Errorf wrapping")
	}
	if IsPermission(wrapped) {
		t.Error("IsPermission misclassified a timeout")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("KindOf of a non-store error should be internal")
	}
}
