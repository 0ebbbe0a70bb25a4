package modkit

import (
	"testing"

	phttp "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/net/http"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/testkit"
)

type runner interface{ Run() string }

type runnerImpl struct{}

func (runnerImpl) Run() string { return "ran" }

type portSet struct {
	Runner runner
	hidden runner
}

// stub module that satisfies Module and records calls
type stub struct {
	mounted bool
	ports   any
}

func (s *stub) MountRoutes(_ phttp.Router) { s.mounted = true }
func (s *stub) Ports() any                 { return s.ports }
func (s *stub) Name() string               { return "stub" }

var _ Module = (*stub)(nil)

func TestBuilder_TypeSignatureAndUse(t *testing.T) {
	t.Parallel()

	var b Builder = func(_ Deps, _ ...Option) Module {
		return &stub{ports: "ok"}
	}
	m := b(Deps{})
	if p := m.Ports(); p != "ok" {
		t.Fatalf("unexpected Ports value: got=%v want=ok", p)
	}
	m.MountRoutes(nil)
	if !m.(*stub).mounted {
		t.Fatal("expected MountRoutes to be called")
	}
}

func TestPortsOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		ports any
		ok    bool
	}{
		{"nil ports", nil, false},
		{"direct", runnerImpl{}, true},
		{"struct field", portSet{Runner: runnerImpl{}}, true},
		{"pointer to struct", &portSet{Runner: runnerImpl{}}, true},
		{"nil pointer", (*portSet)(nil), false},
		{"unexported only", portSet{hidden: runnerImpl{}}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := PortsOf[runner](&stub{ports: c.ports})
			if ok != c.ok {
				t.Fatalf("ok = %v, want %v", ok, c.ok)
			}
			if ok && got.Run() != "ran" {
				t.Fatalf("wrong port returned")
			}
		})
	}
}

func TestMustPortsOf_PanicsWithModuleName(t *testing.T) {
	t.Parallel()

	testkit.MustPanic(t, func() { _ = MustPortsOf[runner](&stub{}) })
}

func TestBuild_DefaultsAndOverrides(t *testing.T) {
	t.Parallel()

	b := Build("extract", "CORE_EXTRACT_")
	if b.Name != "extract" || b.Prefix != "CORE_EXTRACT_" || len(b.Ports) != 0 {
		t.Fatalf("defaults: %+v", b)
	}

	b = Build("extract", "CORE_EXTRACT_", WithName("x"), WithPrefix("TEST_"), WithPorts(runnerImpl{}, 7), nil)
	if b.Name != "x" || b.Prefix != "TEST_" {
		t.Fatalf("overrides: %+v", b)
	}
	if r, ok := Port[runner](b); !ok || r.Run() != "ran" {
		t.Fatalf("runner port not found")
	}
	if n, ok := Port[int](b); !ok || n != 7 {
		t.Fatalf("int port = %v %v", n, ok)
	}
	if _, ok := Port[string](b); ok {
		t.Fatalf("unexpected string port")
	}
}

func TestDeps_Has(t *testing.T) {
	t.Parallel()

	var d Deps
	if d.HasPG() || d.HasCH() {
		t.Fatal("zero deps should report no backends")
	}
}
