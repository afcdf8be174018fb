package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/abarnes/kudos/internal/errors"
)

func TestErrorMessage(t *testing.T) {
	e := errors.NotFound("cycle not found")
	if e.Error() != "cycle not found" {
		t.Errorf("unexpected message: %q", e.Error())
	}

	wrapped := errors.Storage("failed to load cycle", stderrors.New("disk I/O error"))
	if wrapped.Error() != "failed to load cycle: disk I/O error" {
		t.Errorf("unexpected message: %q", wrapped.Error())
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	e := errors.Wrap(cause, errors.ErrStorage, "query failed")
	if !stderrors.Is(e, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want errors.Kind
	}{
		{"nil", nil, errors.ErrInternal},
		{"plain error", stderrors.New("boom"), errors.ErrInternal},
		{"direct", errors.Duplicate("already nominated"), errors.ErrDuplicate},
		{"wrapped once", fmt.Errorf("context: %w", errors.OutOfWindow("too late")), errors.ErrOutOfWindow},
		{"wrapped twice", fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", errors.PermissionDenied("no"))), errors.ErrPermissionDenied},
		{"storage with cause", errors.Storage("write failed", stderrors.New("full")), errors.ErrStorage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := errors.KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	if errors.Is(nil, errors.ErrInternal) {
		t.Error("nil must not classify as any kind")
	}
	e := errors.InvalidStatef("cycle %s is %s", "x", "DRAFT")
	if !errors.Is(e, errors.ErrInvalidState) {
		t.Error("expected ErrInvalidState")
	}
	if errors.Is(e, errors.ErrNotFound) {
		t.Error("did not expect ErrNotFound")
	}
}
