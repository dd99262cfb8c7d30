package ch

import (
	"os"
	"runtime"
	"strings"

	"github.com/open-sensor-research-platform/osrp/internal/core/version"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// BuildClientInfo names this process in system.query_log; role is api or fusion
func BuildClientInfo(app, role, tag string) clickhouse.ClientInfo {
	app = strings.TrimSpace(app)
	if app == "" {
		app = "osrp"
	}
	host, _ := os.Hostname()
	commit := version.Info(app).Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}

	info := clickhouse.ClientInfo{}
	for _, p := range [][2]string{
		{app, tag},
		{"role", role},
		{"go", runtime.Version()},
		{"commit", commit},
		{"host", host},
	} {
		info.Products = append(info.Products, struct{ Name, Version string }{p[0], strings.TrimSpace(p[1])})
	}
	return info
}
