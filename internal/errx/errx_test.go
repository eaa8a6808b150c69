package errx

import (
	"errors"
	"fmt"
	"testing"
)

// TestE tests the E function constructor
func TestE(t *testing.T) {
	t.Run("returns nil when error is nil", func(t *testing.T) {
		got := E("op", NotFound, nil)
		if got != nil {
			t.Errorf("E() with nil error = %v, want nil", got)
		}
	})

	t.Run("constructs Error with all fields", func(t *testing.T) {
		root := errors.New("root cause")
		err := E("repo.GetByID", NotFound, root)

		var e *Error
		if !errors.As(err, &e) {
			t.Fatal("expected error to be of type *errx.Error")
		}

		if got, want := e.Op, "repo.GetByID"; got != want {
			t.Errorf("Op = %q, want %q", got, want)
		}
		if got, want := e.Kind, NotFound; got != want {
			t.Errorf("Kind = %v, want %v", got, want)
		}
		if e.Entity != "" {
			t.Errorf("Entity = %q, want empty", e.Entity)
		}
		if !errors.Is(e.Err, root) {
			t.Errorf("Err = %v, want %v", e.Err, root)
		}
	})

	t.Run("preserves all error kinds", func(t *testing.T) {
		kinds := []Kind{
			Unknown, NotFound, AlreadyExists, Invalid, Unauthorized,
			RefreshRequired, AdminRequired, InvalidCredential, Unavailable, Internal,
		}
		root := errors.New("test error")

		for _, kind := range kinds {
			t.Run(fmt.Sprintf("kind_%d", kind), func(t *testing.T) {
				err := E("operation", kind, root)
				if got := KindOf(err); got != kind {
					t.Errorf("KindOf() = %v, want %v", got, kind)
				}
			})
		}
	})
}

// TestTag tests the entity-tagged constructor
func TestTag(t *testing.T) {
	t.Run("returns nil when error is nil", func(t *testing.T) {
		got := Tag("op", NotFound, "credential", nil)
		if got != nil {
			t.Errorf("Tag() with nil error = %v, want nil", got)
		}
	})

	t.Run("carries the entity tag", func(t *testing.T) {
		root := errors.New("no rows")
		err := Tag("storex.repo.GetByID", NotFound, "credential", root)

		if got, want := EntityOf(err), "credential"; got != want {
			t.Errorf("EntityOf() = %q, want %q", got, want)
		}
		if got := KindOf(err); got != NotFound {
			t.Errorf("KindOf() = %v, want %v", got, NotFound)
		}
		if !errors.Is(err, root) {
			t.Error("errors.Is() failed to find root error")
		}
	})

	t.Run("distinguishes entities with the same kind", func(t *testing.T) {
		root := errors.New("no rows")
		credErr := Tag("op", NotFound, "credential", root)
		acctErr := Tag("op", NotFound, "account", root)

		if EntityOf(credErr) == EntityOf(acctErr) {
			t.Error("expected different entity tags for credential and account")
		}
		if KindOf(credErr) != KindOf(acctErr) {
			t.Error("expected the same kind for both entities")
		}
	})
}

// TestError_Error tests the Error method
func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "nil inner error returns op",
			err:  &Error{Op: "handler.Resolve", Kind: NotFound, Err: nil},
			want: "handler.Resolve",
		},
		{
			name: "empty op returns inner error message",
			err:  &Error{Op: "", Kind: Unknown, Err: errors.New("root cause")},
			want: "root cause",
		},
		{
			name: "normal case formats op and error",
			err:  &Error{Op: "service.Resolve", Kind: NotFound, Err: errors.New("root cause")},
			want: "service.Resolve: root cause",
		},
		{
			name: "both empty returns empty string",
			err:  &Error{Op: "", Kind: Unknown, Err: nil},
			want: "",
		},
		{
			name: "entity tag renders not-found phrase",
			err:  &Error{Op: "storex.repo.GetByID", Kind: NotFound, Entity: "credential", Err: errors.New("no rows")},
			want: "storex.repo.GetByID: credential not found: no rows",
		},
		{
			name: "entity tag renders already-exists phrase",
			err:  &Error{Op: "storex.repo.Create", Kind: AlreadyExists, Entity: "account", Err: errors.New("duplicate key")},
			want: "storex.repo.Create: account already exists: duplicate key",
		},
		{
			name: "entity tag is ignored for unrelated kinds",
			err:  &Error{Op: "op", Kind: Unauthorized, Entity: "credential", Err: errors.New("bad token")},
			want: "op: bad token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestError_Unwrap tests error unwrapping
func TestError_Unwrap(t *testing.T) {
	t.Run("unwraps to inner error", func(t *testing.T) {
		root := errors.New("root")
		err := E("repo.GetByID", NotFound, root)

		if !errors.Is(err, root) {
			t.Error("errors.Is() failed to identify root error through unwrapping")
		}
	})

	t.Run("supports nested wrapping", func(t *testing.T) {
		root := errors.New("database error")
		layer1 := E("repo.Query", Unavailable, root)
		layer2 := E("service.Get", KindOf(layer1), layer1)
		layer3 := E("handler.Handle", KindOf(layer2), layer2)

		if !errors.Is(layer3, root) {
			t.Error("errors.Is() failed with deeply nested errors")
		}
	})

	t.Run("returns nil when Err is nil", func(t *testing.T) {
		err := &Error{Op: "test", Kind: Unknown, Err: nil}
		if unwrapped := err.Unwrap(); unwrapped != nil {
			t.Errorf("Unwrap() = %v, want nil", unwrapped)
		}
	})
}

// TestKindOf tests kind extraction
func TestKindOf(t *testing.T) {
	t.Run("returns Unknown for standard error", func(t *testing.T) {
		err := errors.New("standard error")
		if got := KindOf(err); got != Unknown {
			t.Errorf("KindOf() = %v, want %v", got, Unknown)
		}
	})

	t.Run("returns Unknown for nil error", func(t *testing.T) {
		if got := KindOf(nil); got != Unknown {
			t.Errorf("KindOf(nil) = %v, want %v", got, Unknown)
		}
	})

	t.Run("extracts kind from single errx.Error", func(t *testing.T) {
		err := E("operation", AlreadyExists, errors.New("duplicate"))
		if got := KindOf(err); got != AlreadyExists {
			t.Errorf("KindOf() = %v, want %v", got, AlreadyExists)
		}
	})

	t.Run("extracts kind through wrapping chain", func(t *testing.T) {
		root := errors.New("root")
		repo := Tag("repo.GetByUsername", NotFound, "credential", root)
		service := E("service.Login", KindOf(repo), repo)
		handler := E("handler.Login", KindOf(service), service)

		if got := KindOf(handler); got != NotFound {
			t.Errorf("KindOf() = %v, want %v", got, NotFound)
		}
	})

	t.Run("finds first Kind in chain with mixed errors", func(t *testing.T) {
		root := errors.New("root")
		wrapped := fmt.Errorf("wrapped: %w", root)
		errxErr := E("operation", AdminRequired, wrapped)

		if got := KindOf(errxErr); got != AdminRequired {
			t.Errorf("KindOf() = %v, want %v", got, AdminRequired)
		}
	})
}

// TestOpOf tests operation extraction
func TestOpOf(t *testing.T) {
	t.Run("returns empty for standard error", func(t *testing.T) {
		err := errors.New("standard error")
		if got := OpOf(err); got != "" {
			t.Errorf("OpOf() = %q, want empty string", got)
		}
	})

	t.Run("returns empty for nil error", func(t *testing.T) {
		if got := OpOf(nil); got != "" {
			t.Errorf("OpOf(nil) = %q, want empty string", got)
		}
	})

	t.Run("extracts op from single errx.Error", func(t *testing.T) {
		err := E("repo.Save", Invalid, errors.New("validation failed"))
		if got, want := OpOf(err), "repo.Save"; got != want {
			t.Errorf("OpOf() = %q, want %q", got, want)
		}
	})

	t.Run("extracts outermost op from chain", func(t *testing.T) {
		root := errors.New("root")
		repo := E("repo.GetByID", NotFound, root)
		service := E("service.Resolve", KindOf(repo), repo)
		handler := E("handler.Resolve", KindOf(service), service)

		// errors.As finds the first (outermost) match
		if got, want := OpOf(handler), "handler.Resolve"; got != want {
			t.Errorf("OpOf() = %q, want %q", got, want)
		}
	})
}

// TestEntityOf tests entity tag extraction through chains
func TestEntityOf(t *testing.T) {
	t.Run("returns empty for untagged errors", func(t *testing.T) {
		if got := EntityOf(E("op", NotFound, errors.New("x"))); got != "" {
			t.Errorf("EntityOf() = %q, want empty string", got)
		}
		if got := EntityOf(errors.New("plain")); got != "" {
			t.Errorf("EntityOf() = %q, want empty string", got)
		}
		if got := EntityOf(nil); got != "" {
			t.Errorf("EntityOf(nil) = %q, want empty string", got)
		}
	})

	t.Run("finds tag through fmt.Errorf wrapping", func(t *testing.T) {
		tagged := Tag("op", AlreadyExists, "short link", errors.New("duplicate"))
		wrapped := fmt.Errorf("context: %w", tagged)

		if got, want := EntityOf(wrapped), "short link"; got != want {
			t.Errorf("EntityOf() = %q, want %q", got, want)
		}
	})

	t.Run("finds tag through an untagged rewrap", func(t *testing.T) {
		tagged := Tag("repo.op", NotFound, "credential", errors.New("no rows"))
		rewrapped := E("service.op", KindOf(tagged), tagged)

		if got, want := EntityOf(rewrapped), "credential"; got != want {
			t.Errorf("EntityOf() = %q, want %q", got, want)
		}
	})
}

// TestMessage tests user-presentable message selection
func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"tagged not found", Tag("op", NotFound, "credential", errors.New("no rows")), "credential not found"},
		{"tagged already exists", Tag("op", AlreadyExists, "account", errors.New("dup")), "account already exists"},
		{"untagged not found", E("op", NotFound, errors.New("no rows")), "resource not found"},
		{"rewrapped tagged not found", E("outer", NotFound, Tag("inner", NotFound, "account", errors.New("no rows"))), "account not found"},
		{"invalid uses inner message", E("op", Invalid, errors.New("name cannot be empty")), "name cannot be empty"},
		{"unauthorized", E("op", Unauthorized, errors.New("sig")), "not authorized"},
		{"refresh required", E("op", RefreshRequired, errors.New("missing")), "refresh token required"},
		{"admin required", E("op", AdminRequired, errors.New("not admin")), "admin rights required"},
		{"invalid credential", E("op", InvalidCredential, errors.New("secret detail")), "invalid username or password"},
		{"unavailable", E("op", Unavailable, errors.New("down")), "service unavailable"},
		{"internal", E("op", Internal, errors.New("boom")), "internal server error"},
		{"plain error", errors.New("boom"), "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("hides the rejection reason for credential failures", func(t *testing.T) {
		miss := E("op", InvalidCredential, errors.New("credential not found"))
		mismatch := E("op", InvalidCredential, errors.New("password mismatch"))

		if Message(miss) != Message(mismatch) {
			t.Error("expected identical messages for both credential failure paths")
		}
	})
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Unknown, "Unknown"},
		{NotFound, "NotFound"},
		{AlreadyExists, "AlreadyExists"},
		{Invalid, "Invalid"},
		{Unauthorized, "Unauthorized"},
		{RefreshRequired, "RefreshRequired"},
		{AdminRequired, "AdminRequired"},
		{InvalidCredential, "InvalidCredential"},
		{Unavailable, "Unavailable"},
		{Internal, "Internal"},
		{Kind(99), "Kind(99)"}, // Unknown kind value
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.kind.String()
			if got != tt.want {
				t.Errorf("Kind.String() = %q, want %q", got, tt.want)
			}
		})
	}
}
