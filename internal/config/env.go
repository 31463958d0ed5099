package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order; a variable set by an earlier file, or by the
// process environment, is never overwritten.
var envFiles = []string{".env.local", ".env"}

func loadEnvFiles(dir string) error {
	for _, name := range envFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}
