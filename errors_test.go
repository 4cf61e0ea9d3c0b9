package restwire

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestNewError(t *testing.T) {
	err := NewError(KindTypeMismatch, "bad value")
	if err.Kind != KindTypeMismatch {
		t.Errorf("expected kind %s, got %s", KindTypeMismatch, err.Kind)
	}
	if err.Error() != "type_mismatch: bad value" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf(KindMissingPathParameter, "no argument for %q", "user")
	if err.Message != `no argument for "user"` {
		t.Errorf("expected formatted message, got %s", err.Message)
	}
}

func TestWrap(t *testing.T) {
	root := io.ErrUnexpectedEOF

	t.Run("wraps cause", func(t *testing.T) {
		err := Wrap(KindExecution, root, "")
		if !errors.Is(err, root) {
			t.Error("expected wrapped cause to be reachable")
		}
		if err.Error() != "execution: unexpected EOF" {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("keeps same kind", func(t *testing.T) {
		inner := NewError(KindExecution, "down")
		if got := Wrap(KindExecution, inner, ""); got != inner {
			t.Error("expected same-kind error to be returned unchanged")
		}
	})

	t.Run("nests other kind", func(t *testing.T) {
		inner := NewError(KindTypeMismatch, "bad header")
		got := Wrap(KindHeaderBuild, inner, "Svc.Method")
		if got.Kind != KindHeaderBuild {
			t.Errorf("expected header_build, got %s", got.Kind)
		}
		var se *Error
		if !errors.As(got.Err, &se) || se.Kind != KindTypeMismatch {
			t.Error("expected inner type_mismatch to be preserved")
		}
	})
}

func TestWithDetail(t *testing.T) {
	base := NewError(KindEndpointValidation, "bad")
	withOne := base.WithDetail("field", "Host")
	if base.Details != nil {
		t.Error("expected original error to be unchanged")
	}
	if withOne.Details["field"] != "Host" {
		t.Errorf("expected detail, got %v", withOne.Details)
	}

	merged := withOne.WithDetails(map[string]any{"endpoint": "svc"})
	if len(merged.Details) != 2 {
		t.Errorf("expected 2 details, got %v", merged.Details)
	}
	if same := merged.WithDetails(nil); same != merged {
		t.Error("expected empty details to return receiver")
	}
}

func TestInvocationError(t *testing.T) {
	inner := NewError(KindMissingPathParameter, `no argument for path parameter "id"`)
	err := &InvocationError{Endpoint: "example.Users", Method: "Get", Stage: StageBuildURI, Err: inner}

	msg := err.Error()
	for _, want := range []string{"example.Users.Get", "build_uri", "missing_path_parameter"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
	if err.Kind() != KindMissingPathParameter {
		t.Errorf("expected missing_path_parameter, got %s", err.Kind())
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain", err: errors.New("x"), want: KindInvocation},
		{name: "classified", err: NewError(KindResponseParse, "x"), want: KindResponseParse},
		{name: "wrapped classified", err: fmt.Errorf("ctx: %w", NewError(KindTypeMismatch, "x")), want: KindTypeMismatch},
		{
			name: "invocation",
			err:  &InvocationError{Stage: StageExecute, Err: Wrap(KindExecution, ErrClientClosed, "")},
			want: KindExecution,
		},
		{
			name: "invocation without classification",
			err:  &InvocationError{Stage: StageExecute, Err: errors.New("x")},
			want: KindInvocation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if tt.err != nil && !IsKind(tt.err, tt.want) {
				t.Errorf("IsKind(%v, %s) = false", tt.err, tt.want)
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	err := &StatusError{StatusCode: 404, Status: "404 Not Found", Body: []byte("missing\n")}
	if err.Error() != "unexpected status 404 Not Found: missing" {
		t.Errorf("unexpected message %q", err.Error())
	}
	empty := &StatusError{StatusCode: 500, Status: "500 Internal Server Error"}
	if empty.Error() != "unexpected status 500 Internal Server Error" {
		t.Errorf("unexpected message %q", empty.Error())
	}
}
