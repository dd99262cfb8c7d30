package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE files into the process env without overriding
// values that are already set. Missing files are skipped; with no paths it tries ./.env
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
		logger.Get().Debug().Str("path", p).Msg("loaded env file")
	}
	return nil
}
