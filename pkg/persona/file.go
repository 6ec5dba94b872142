package persona

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
)

// File is the on-disk shape of personas.toml:
//
//	[[persona]]
//	tag = "tutor"
//	description = "Physics tutor"
//	system_prompt = "You are a physics tutor..."
type File struct {
	Personas []Persona `toml:"persona"`
}

// LoadFile replaces the table's overrides with those in path. A missing file
// resets the table to the built-in personas. Tags must name a built-in
// persona; they are matched case-insensitively.
func (t *Table) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.reset(nil)
			return nil
		}
		return fmt.Errorf("reading personas file: %w", err)
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing personas file: %w", err)
	}

	for i, p := range f.Personas {
		if strings.TrimSpace(string(p.Tag)) == "" {
			return fmt.Errorf("persona %d in %s has no tag", i, path)
		}
		tag, err := ParseTag(string(p.Tag))
		if err != nil {
			return fmt.Errorf("persona %d in %s: %w: only built-in personas can be overridden", i, path, err)
		}
		f.Personas[i].Tag = tag
	}

	t.reset(f.Personas)
	return nil
}

// Watch reloads path into the table whenever it is written or recreated,
// until ctx is cancelled. Reload failures are logged and the previous table
// is kept.
func (t *Table) Watch(ctx context.Context, path string, log *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating personas watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors commonly replace files by rename.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching personas dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := t.LoadFile(path); err != nil {
				log.Warn("personas reload failed", "path", path, "error", err)
				continue
			}
			log.Info("personas reloaded", "path", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("personas watcher error: %w", err)
		}
	}
}
