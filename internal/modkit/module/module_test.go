package module

import (
	"strings"
	"sync"
	"testing"

	phttp "github.com/open-sensor-research-platform/osrp/internal/platform/net/http"
)

type planPorts struct{ Name string }

type fake struct {
	name  string
	ports any
}

func (f fake) MountRoutes(phttp.Router) {}
func (f fake) Ports() any               { return f.ports }
func (f fake) Name() string             { return f.name }

func TestPortsOf(t *testing.T) {
	if p, ok := PortsOf[planPorts](fake{ports: planPorts{Name: "default"}}); !ok || p.Name != "default" {
		t.Fatalf("got %v %v", p, ok)
	}
	if _, ok := PortsOf[planPorts](fake{ports: 7}); ok {
		t.Fatal("mismatched type should not assert")
	}
	if _, ok := PortsOf[planPorts](nil); ok {
		t.Fatal("nil module should not assert")
	}
}

func TestMustPortsOf_PanicNamesModule(t *testing.T) {
	defer func() {
		msg, _ := recover().(string)
		if !strings.Contains(msg, `"streams"`) {
			t.Fatalf("panic %q", msg)
		}
	}()
	MustPortsOf[planPorts](fake{name: "streams"})
}

func TestRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	Register("fusion", planPorts{Name: "a"})
	Register("fusion", planPorts{Name: "b"})
	Register("export", 1)

	if p, ok := PortsAs[planPorts]("fusion"); !ok || p.Name != "b" {
		t.Fatalf("overwrite: %v %v", p, ok)
	}
	if _, ok := PortsAs[planPorts]("export"); ok {
		t.Fatal("type mismatch should miss")
	}
	if _, ok := PortsAs[planPorts]("missing"); ok {
		t.Fatal("missing should miss")
	}
	if got := Names(); len(got) != 2 || got[0] != "export" || got[1] != "fusion" {
		t.Fatalf("names %v", got)
	}

	Reset()
	if len(Names()) != 0 {
		t.Fatal("reset left entries")
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Register("streams", i)
			_, _ = PortsAs[int]("streams")
			_ = Names()
		}()
	}
	wg.Wait()
	if _, ok := PortsAs[int]("streams"); !ok {
		t.Fatal("expected an entry")
	}
}
