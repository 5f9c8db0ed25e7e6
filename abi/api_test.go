package abi

import "testing"

func TestAPI_Missing(t *testing.T) {
	api := &API{
		Version:   Version,
		ValueInit: func(v *Value) Result { return ResultOK },
	}
	missing := api.Missing()
	if len(missing) == 0 {
		t.Fatal("expected missing entry points")
	}
	for _, name := range missing {
		if name == "ValueInit" {
			t.Fatal("ValueInit is set and must not be reported")
		}
		if name == "Version" {
			t.Fatal("Version is not an entry point")
		}
	}
	if missing[0] != "ValueClear" {
		t.Fatalf("expected table order, first missing = %s", missing[0])
	}
}

func TestAPI_Clear(t *testing.T) {
	api := &API{
		ValueInit:  func(v *Value) Result { return ResultOK },
		ValueClear: func(v *Value) Result { return ResultOK },
	}
	api.Clear("ValueClear", "NoSuchEntry")
	if api.ValueClear != nil {
		t.Fatal("ValueClear should be nil after Clear")
	}
	if api.ValueInit == nil {
		t.Fatal("ValueInit should be untouched")
	}
}

func TestArgs(t *testing.T) {
	if got := Args(0, nil); got != nil {
		t.Fatalf("Args(0, nil) = %v, want nil", got)
	}

	raw := []Value{{T: TInt, D: 1}, {T: TBool, D: 1}}
	argc, argv := ArgsPtr(raw)
	if argc != 2 {
		t.Fatalf("argc = %d, want 2", argc)
	}
	args := Args(argc, argv)
	if len(args) != 2 || args[1].T != TBool {
		t.Fatalf("Args = %+v", args)
	}

	// shares memory with the caller
	args[0].D = 5
	if raw[0].D != 5 {
		t.Fatal("Args must not copy")
	}
}

func TestType_String(t *testing.T) {
	if TArray.String() != "array" || Type(99).String() != "unknown" {
		t.Fatalf("unexpected names: %s %s", TArray, Type(99))
	}
}
