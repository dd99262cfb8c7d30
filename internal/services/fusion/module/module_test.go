package module

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/modkit"
	"github.com/open-sensor-research-platform/osrp/internal/platform/config"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"
	"github.com/open-sensor-research-platform/osrp/internal/services/streams/repo"
	streamsvc "github.com/open-sensor-research-platform/osrp/internal/services/streams/service"
)

func deps() modkit.Deps { return modkit.Deps{Log: *logger.Get(), Cfg: config.New()} }

func src() *streamsvc.Service {
	return streamsvc.New(nil, repo.NewMemory().Binder(), streamsvc.Config{}, nil)
}

func TestNew_DefaultPlan(t *testing.T) {
	m, err := New(deps(), src(), nil)
	if err != nil {
		t.Fatal(err)
	}
	p := m.Ports().(Ports)
	if p.Plan.Name != "default" || p.Fusion == nil || m.Service().Cfg.Workers != 4 {
		t.Fatalf("ports = %+v", p)
	}
	if m.Service().Cfg.Timeouts.Unit != 5*time.Minute {
		t.Fatalf("timeouts = %+v", m.Service().Cfg.Timeouts)
	}
}

func TestNew_PlanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte("name: wave2\nwindow: 30m\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CORE_FUSION_PLAN", path)
	t.Setenv("CORE_FUSION_WORKERS", "2")

	m, err := New(deps(), src(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.Service().Plan.Name != "wave2" || m.Service().Plan.Window != 30*time.Minute || m.Service().Cfg.Workers != 2 {
		t.Fatalf("plan = %+v", m.Service().Plan)
	}
}

func TestNew_BadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte("fill: cubic\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CORE_FUSION_PLAN", path)
	if _, err := New(deps(), src(), nil); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("err = %v", err)
	}
}
