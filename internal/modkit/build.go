package modkit

import (
	"slices"
	"strings"

	"github.com/open-sensor-research-platform/osrp/internal/modkit/httpkit"
	"github.com/open-sensor-research-platform/osrp/internal/platform/net/middleware"
)

// Option adjusts a Built
type Option func(*Built)

// Built is the resolved shape of an API module
type Built struct {
	Name   string
	Prefix string
	Mw     []middleware.Func
	Ports  any

	// Register attaches endpoints to the module router
	Register func(httpkit.Router)
}

// WithName names the module for logs and the port registry
func WithName(name string) Option { return func(b *Built) { b.Name = name } }

// WithPrefix mounts the module under prefix
func WithPrefix(prefix string) Option { return func(b *Built) { b.Prefix = prefix } }

// WithMiddlewares appends module scoped middleware
func WithMiddlewares(mw ...middleware.Func) Option {
	return func(b *Built) { b.Mw = append(b.Mw, mw...) }
}

// WithPorts hands the module the ports it serves
func WithPorts[T any](p T) Option { return func(b *Built) { b.Ports = p } }

// WithRegister attaches extra endpoints after the module's own
func WithRegister(fn func(httpkit.Router)) Option {
	return func(b *Built) {
		prev := b.Register
		b.Register = func(r httpkit.Router) {
			if prev != nil {
				prev(r)
			}
			fn(r)
		}
	}
}

// Build applies opts in order; a module without a name is a wiring bug and panics
func Build(opts ...Option) Built {
	var b Built
	for _, o := range opts {
		o(&b)
	}
	if strings.TrimSpace(b.Name) == "" {
		panic("modkit: module built without a name")
	}
	b.Prefix = "/" + strings.Trim(strings.TrimSpace(b.Prefix), "/")
	b.Mw = slices.Clone(b.Mw)
	return b
}

// Mount routes the module under its prefix behind its middleware
func (b Built) Mount(r httpkit.Router) {
	r.Route(b.Prefix, func(rr httpkit.Router) {
		if len(b.Mw) > 0 {
			rr.Use(b.Mw...)
		}
		if b.Register != nil {
			b.Register(rr)
		}
	})
}
