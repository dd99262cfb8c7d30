// Package schema applies the postgres tables the fusion engine writes
// Statements are idempotent so Apply is safe on every boot
package schema

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"github.com/open-sensor-research-platform/osrp/internal/platform/config"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/store"
)

//go:embed sql/*.sql
var files embed.FS

// Wanted reports whether CORE_PG_MIGRATE asks binaries to Apply at start; unset is off
func Wanted(root config.Conf) bool {
	return root.Prefix("CORE_").MayBool("PG_MIGRATE", false)
}

// Files lists the embedded statements in apply order
func Files() []string {
	names, _ := fs.Glob(files, "sql/*.sql")
	sort.Strings(names)
	return names
}

// Apply runs every file inside one transaction
func Apply(ctx context.Context, db store.TxRunner) error {
	if db == nil {
		return perr.Unavailablef("schema: postgres is not configured")
	}
	return db.Tx(ctx, func(q store.RowQuerier) error {
		for _, name := range Files() {
			body, err := files.ReadFile(name)
			if err != nil {
				return perr.Wrapf(err, perr.ErrorCodeUnknown, "read %s", name)
			}
			for _, stmt := range Statements(string(body)) {
				if _, err := q.Exec(ctx, stmt); err != nil {
					return perr.FromPostgresf(err, "apply %s", name)
				}
			}
		}
		return nil
	})
}

// Statements splits a file on semicolons; the files hold no function bodies
func Statements(body string) []string {
	var out []string
	for _, s := range strings.Split(body, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
