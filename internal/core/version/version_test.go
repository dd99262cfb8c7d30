package version

import (
	"runtime/debug"
	"testing"

	"github.com/open-sensor-research-platform/osrp/internal/platform/testkit"
)

func TestInfo(t *testing.T) {
	testkit.Serial(t)
	testkit.Swap(t, &readBuild, func() (*debug.BuildInfo, bool) { return nil, false })

	got := Info("osrp-fusion")
	want := BuildInfo{Service: "osrp-fusion", Version: "dev", Commit: "none", Date: "unknown"}
	if got != want {
		t.Fatalf("Info = %+v", got)
	}
	if Info("").Service != "osrp" {
		t.Fatal("empty service should default")
	}
}

func TestInfo_VCSStamp(t *testing.T) {
	testkit.Serial(t)
	testkit.Swap(t, &readBuild, func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "4f2a9c1"},
			{Key: "vcs.time", Value: "2025-06-02T08:00:00Z"},
		}}, true
	})
	testkit.Swap(t, &commit, "")

	got := Info("osrp-api")
	if got.Commit != "4f2a9c1" || got.Date != "2025-06-02T08:00:00Z" {
		t.Fatalf("Info = %+v", got)
	}

	testkit.Swap(t, &commit, "release")
	if got := Info("osrp-api"); got.Commit != "release" {
		t.Fatalf("ldflags commit should win, got %q", got.Commit)
	}
}
