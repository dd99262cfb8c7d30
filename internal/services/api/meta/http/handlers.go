// Package http serves the meta endpoints: liveness, readiness against the
// stores, build info and the loaded study plan
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/version"
	"github.com/open-sensor-research-platform/osrp/internal/modkit/httpkit"
	"github.com/open-sensor-research-platform/osrp/internal/modkit/module"

	"golang.org/x/sync/errgroup"
)

// Pinger is satisfied by store handles that can be probed
type Pinger interface {
	Ping(context.Context) error
}

// Deps are the handler dependencies
// PG and CH are probed when they implement Pinger; nil means not configured
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	PG          any
	CH          any

	// Plan is the loaded study plan, served as-is
	Plan any
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Started string `json:"started"`
	Now     string `json:"now"`
}

// ReadyCheck is one store probe; Status is ok, fail, skipped or unknown
type ReadyCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ReadyResponse rolls the probes up into ok, degraded or fail
type ReadyResponse struct {
	Status string       `json:"status"`
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"`
}

// ServiceResponse is process info
type ServiceResponse struct {
	Name    string   `json:"name"`
	Started string   `json:"started"`
	Uptime  int64    `json:"uptime"`
	Modules []string `json:"modules"`
}

// PlanResponse is the plan the service fuses with and the build that loaded it
type PlanResponse struct {
	Plan  any               `json:"plan"`
	Build version.BuildInfo `json:"build"`
}

const probeTimeout = 2 * time.Second

type handlers struct{ deps Deps }

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d}
	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
	httpkit.Get(r, "/plan", h.plan)
}

func (h *handlers) health(*http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Now:     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func probe(ctx context.Context, name string, c any) ReadyCheck {
	if c == nil {
		return ReadyCheck{Name: name, Status: "skipped"}
	}
	p, ok := c.(Pinger)
	if !ok {
		return ReadyCheck{Name: name, Status: "unknown"}
	}
	if err := p.Ping(ctx); err != nil {
		return ReadyCheck{Name: name, Status: "fail", Error: err.Error()}
	}
	return ReadyCheck{Name: name, Status: "ok"}
}

func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	checks := make([]ReadyCheck, 2)
	var g errgroup.Group
	for i, s := range []struct {
		name string
		c    any
	}{{"pg", h.deps.PG}, {"ch", h.deps.CH}} {
		g.Go(func() error {
			checks[i] = probe(ctx, s.name, s.c)
			return nil
		})
	}
	_ = g.Wait()

	status := "ok"
	for _, c := range checks {
		switch {
		case c.Status == "fail":
			status = "fail"
		case c.Status != "ok" && status == "ok":
			status = "degraded"
		}
	}
	return ReadyResponse{Status: status, Checks: checks, Now: time.Now().UTC().Format(time.RFC3339)}, nil
}

func (h *handlers) version(*http.Request) (any, error) {
	return version.Info(h.deps.ServiceName), nil
}

func (h *handlers) service(*http.Request) (any, error) {
	return ServiceResponse{
		Name:    h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(time.Since(h.deps.StartedAt) / time.Second),
		Modules: module.Names(),
	}, nil
}

func (h *handlers) plan(*http.Request) (any, error) {
	return PlanResponse{Plan: h.deps.Plan, Build: version.Info(h.deps.ServiceName)}, nil
}
