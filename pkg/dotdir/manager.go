// Package dotdir manages the .campus/ and ~/.campus directories that hold
// config.toml, credentials.toml and the saved chat transcript.
//
// A course workspace usually keeps one .campus/ at its root, so lookups walk
// up from the working directory the way git finds .git/.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirName = ".campus"

	// HomeEnvVar names a directory used instead of any discovered .campus/.
	HomeEnvVar = "CAMPUS_HOME"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the campus directory, creating it if
// needed. Order of precedence:
//  1. overrideDir (--config-dir)
//  2. $CAMPUS_HOME
//  3. the nearest .campus/ in the working directory or one of its parents
//  4. ~/.campus/
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case os.Getenv(HomeEnvVar) != "":
		dir = os.Getenv(HomeEnvVar)

	default:
		local, err := m.findLocal()
		if err != nil {
			return "", err
		}
		if local != "" {
			dir = local
			break
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	// Transcripts and API keys live here: keep it private to the user.
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating campus directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// findLocal returns the nearest .campus/ directory at or above the working
// directory, or "" if there is none.
func (m *Manager) findLocal() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}

	for dir := cwd; ; {
		candidate := filepath.Join(dir, dirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
