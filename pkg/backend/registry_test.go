package backend

import (
	"errors"
	"reflect"
	"testing"

	"github.com/viewgate-dev/viewgate/pkg/session"
)

func TestRegistryLoad(t *testing.T) {
	reg := NewRegistry()
	reg.Register("vnc", func() session.Module {
		return &Module{Protocol: "vnc", OnInit: func(*session.Session, []string) error { return nil }}
	})

	module, err := reg.Load("vnc")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if module.Name() != "vnc" {
		t.Errorf("Name() = %q, want %q", module.Name(), "vnc")
	}
}

func TestRegistryLoadFreshInstances(t *testing.T) {
	reg := NewRegistry()
	reg.Register("vnc", func() session.Module {
		return &Module{Protocol: "vnc", OnInit: func(*session.Session, []string) error { return nil }}
	})

	a, _ := reg.Load("vnc")
	b, _ := reg.Load("vnc")
	if a == b {
		t.Error("Load() returned the same Module instance twice")
	}
}

func TestRegistryUnknownProtocol(t *testing.T) {
	reg := NewRegistry()

	module, err := reg.Load("telnet")
	if !errors.Is(err, ErrUnknownProtocol) {
		t.Fatalf("Load() error = %v, want ErrUnknownProtocol", err)
	}
	if module != nil {
		t.Errorf("Load() module = %v, want nil", module)
	}
}

func TestRegistryReplace(t *testing.T) {
	reg := NewRegistry()
	reg.Register("vnc", func() session.Module {
		return &Module{Protocol: "vnc-old"}
	})
	reg.Register("vnc", func() session.Module {
		return &Module{Protocol: "vnc-new"}
	})

	module, err := reg.Load("vnc")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if module.Name() != "vnc-new" {
		t.Errorf("Name() = %q, want %q", module.Name(), "vnc-new")
	}
}

func TestRegistryProtocolsSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"vnc", "rdp", "ssh"} {
		reg.Register(name, func() session.Module { return &Module{Protocol: name} })
	}

	got := reg.Protocols()
	want := []string{"rdp", "ssh", "vnc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Protocols() = %v, want %v", got, want)
	}
}

func TestModuleReleaseOptional(t *testing.T) {
	m := &Module{Protocol: "vnc"}
	if err := m.Release(); err != nil {
		t.Errorf("Release() error = %v, want nil", err)
	}
}
