// Package module is the contract modules satisfy and the registry that
// hands their ports to each other at startup
package module

import (
	"fmt"

	phttp "github.com/open-sensor-research-platform/osrp/internal/platform/net/http"
)

// Module mounts routes and exposes a port set; service modules mount nothing
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}

// PortsOf asserts m's port set to T
func PortsOf[T any](m Module) (T, bool) {
	var zero T
	if m == nil {
		return zero, false
	}
	p, ok := m.Ports().(T)
	return p, ok
}

// MustPortsOf is PortsOf for startup wiring, where a mismatch is a bug
func MustPortsOf[T any](m Module) T {
	p, ok := PortsOf[T](m)
	if !ok {
		panic(fmt.Sprintf("module %q: ports are %T, want %T", m.Name(), m.Ports(), p))
	}
	return p
}
