package telemetry

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// InstallIDFile holds the anonymous install id inside the data directory.
const InstallIDFile = "telemetry_id"

// LoadOrCreateInstallID returns the install id stored in dir, creating one
// on first use.
func LoadOrCreateInstallID(fs afero.Fs, dir string) (string, error) {
	path := filepath.Join(dir, InstallIDFile)
	if data, err := afero.ReadFile(fs, path); err == nil {
		if id := strings.TrimSpace(string(data)); uuid.Validate(id) == nil {
			return id, nil
		}
	}

	id := uuid.NewString()
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	if err := afero.WriteFile(fs, path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write install id: %w", err)
	}
	return id, nil
}
