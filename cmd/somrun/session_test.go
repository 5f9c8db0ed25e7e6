package main

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestSession_Call(t *testing.T) {
	ctx := context.Background()
	s, err := newSession(ctx, zap.NewNop())
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	defer s.Close(ctx)

	tests := []struct {
		name   string
		inputs []string
		want   string
	}{
		{"native.sum", []string{"2, 3"}, "5"},
		{"native.u64_to_str", []string{"7"}, `"7"`},
		{"return13", nil, "13"},
		{"Person.format", nil, `"Arthur of 42"`},
		{"Person.rename", []string{"Ford"}, ""},
		{"Person.older", []string{"Person"}, "false"},
		{"Person.birthday", nil, "43"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := s.find(tt.name)
			if !ok {
				t.Fatalf("%s not in catalog", tt.name)
			}
			got, err := s.call(ctx, target, tt.inputs)
			if err != nil {
				t.Fatalf("call: %v", err)
			}
			if tt.want != "" && got != tt.want {
				t.Errorf("result = %s, want %s", got, tt.want)
			}
		})
	}
	if s.arthur.Name != "Ford" {
		t.Errorf("name = %q after rename", s.arthur.Name)
	}

	if _, err := s.call(ctx, target{name: "nope"}, nil); err == nil {
		t.Error("unknown function succeeded")
	}
}

func TestFormatTarget(t *testing.T) {
	s := catalog()
	want := map[string]string{
		"Person.older": "Person.older(arg0: Person) -> bool",
		"native.sum":   "native.sum(args: literal, ...)",
	}
	for _, tgt := range s {
		if w, ok := want[tgt.name]; ok {
			if got := formatTarget(tgt); got != w {
				t.Errorf("formatTarget = %q, want %q", got, w)
			}
			delete(want, tgt.name)
		}
	}
	if len(want) != 0 {
		t.Errorf("missing targets: %v", want)
	}
}
