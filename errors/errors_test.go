package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:      PhaseConvert,
				Kind:       KindIncompatibleType,
				Path:       []string{"person", "age"},
				GoType:     "int32",
				ScriptType: "string",
				Detail:     "cannot convert",
			},
			contains: []string{"[convert]", "incompatible_type", "person.age", "int32", "string", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseValue,
				Kind:  KindNotParsed,
			},
			contains: []string{"[value]", "not_parsed"},
		},
		{
			name:     "named error",
			err:      NoSuchMethod("private"),
			contains: []string{"[dispatch]", "no_such_method", "'private'"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhasePassport,
				Kind:   KindPassport,
				Detail: "atom",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[passport]", "passport", "atom", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := ArgConversion("age", cause)

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause through chain")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseConvert,
		Kind:  KindOverflow,
	}

	if !err.Is(&Error{Phase: PhaseConvert, Kind: KindOverflow}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseValue, Kind: KindOverflow}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseConvert, Kind: KindArgCount}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, ErrOverflow) {
		t.Error("errors.Is should match kind sentinel")
	}
	if errors.Is(err, ErrIncompatibleType) {
		t.Error("errors.Is should not match other kind sentinel")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDispatch, KindArgConversion).
		Path("person", "format").
		GoType("string").
		ScriptType("int").
		Name("name").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "string", "int").
		Build()

	if err.Phase != PhaseDispatch {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDispatch)
	}
	if err.Kind != KindArgConversion {
		t.Errorf("Kind = %v, want %v", err.Kind, KindArgConversion)
	}
	if len(err.Path) != 2 || err.Path[0] != "person" || err.Path[1] != "format" {
		t.Errorf("Path = %v, want [person format]", err.Path)
	}
	if err.Name != "name" {
		t.Errorf("Name = %v, want 'name'", err.Name)
	}
	if err.GoType != "string" || err.ScriptType != "int" {
		t.Errorf("GoType=%v ScriptType=%v", err.GoType, err.ScriptType)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected string, got int" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("APIUnavailable", func(t *testing.T) {
		err := APIUnavailable("ValueInit")
		if err.Kind != KindAPIUnavailable || err.Name != "ValueInit" {
			t.Errorf("got %+v", err)
		}
		if !strings.Contains(err.Error(), "'ValueInit' API method unavailable") {
			t.Errorf("message = %q", err.Error())
		}
	})

	t.Run("ArgCount", func(t *testing.T) {
		err := ArgCount("second", 2, 0)
		if err.Kind != KindArgCount || err.Name != "second" {
			t.Errorf("got %+v", err)
		}
		if !strings.Contains(err.Detail, "expected 2") {
			t.Errorf("Detail = %v", err.Detail)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseConvert, int32(70000), "int16")
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
		if err.Value != int32(70000) {
			t.Errorf("Value = %v", err.Value)
		}
	})

	t.Run("NotParsed", func(t *testing.T) {
		err := NotParsed(3)
		if err.Kind != KindNotParsed || err.Value != 3 {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("DoubleRelease", func(t *testing.T) {
		err := DoubleRelease("*main.Person", 7)
		if !errors.Is(err, ErrDoubleRelease) {
			t.Errorf("expected double release kind, got %v", err)
		}
	})

	t.Run("Passport", func(t *testing.T) {
		cause := APIUnavailable("AtomValue")
		err := Passport("*main.Person", cause)
		if !errors.Is(err, ErrPassport) || !errors.Is(err, ErrAPIUnavailable) {
			t.Errorf("passport error should match both kinds: %v", err)
		}
	})

	t.Run("Panic", func(t *testing.T) {
		err := Panic("explode", "boom")
		if err.Kind != KindPanic || !strings.Contains(err.Detail, "boom") {
			t.Errorf("got %+v", err)
		}
	})
}

func TestMissingEntryPointsError(t *testing.T) {
	err := &MissingEntryPointsError{Version: 2, EntryPoints: []string{"ValueInit", "AtomValue"}}
	msg := err.Error()
	for _, s := range []string{"v2", "2 entry point(s)", "- ValueInit", "- AtomValue"} {
		if !strings.Contains(msg, s) {
			t.Errorf("message %q does not contain %q", msg, s)
		}
	}
	if !errors.Is(err, ErrAPIUnavailable) {
		t.Error("missing entry points should match api_unavailable")
	}

	empty := &MissingEntryPointsError{}
	if !strings.Contains(empty.Error(), "no entry points") {
		t.Errorf("empty message = %q", empty.Error())
	}
}
