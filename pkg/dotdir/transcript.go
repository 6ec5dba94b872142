package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/campusai/campus/pkg/llm"
)

const (
	transcriptFile = "transcript.json"
)

// Transcript is the last chat session, saved so "campus chat --resume" can
// continue it. Only the CLI writes it; the gateway keeps no history.
type Transcript struct {
	Persona  string            `json:"persona,omitempty"`
	SavedAt  time.Time         `json:"saved_at"`
	Messages []llm.ChatMessage `json:"messages"`
}

// LoadTranscript loads .campus/transcript.json.
// Returns nil, nil if no transcript has been saved.
func (m *Manager) LoadTranscript(overrideDir string) (*Transcript, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, transcriptFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	t := &Transcript{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parsing transcript: %w", err)
	}

	return t, nil
}

// SaveTranscript writes t to .campus/transcript.json, replacing any earlier one.
func (m *Manager) SaveTranscript(t *Transcript, overrideDir string) error {
	if t == nil {
		return errors.New("cannot save nil transcript")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling transcript: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, transcriptFile), data, 0o600); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}

	return nil
}

// ClearTranscript removes the saved transcript. A missing file is not an error.
func (m *Manager) ClearTranscript(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, transcriptFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing transcript: %w", err)
	}

	return nil
}
