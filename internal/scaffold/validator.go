package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/projecthub/internal/config"
)

// CheckExisting returns an error when dir already holds a config. An existing
// uploads directory is fine: init leaves stored attachments alone.
func CheckExisting(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, config.DefaultPath)); err != nil {
		return nil
	}
	return fmt.Errorf("project already initialized\n\nFound existing: %s\n"+
		"\nUse 'projecthub init --force' to reinitialize (this will overwrite existing configuration)", config.DefaultPath)
}
