package sequence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Store persists a single recorded sequence as a human-inspectable JSON file.
type Store struct {
	path   string
	logger zerolog.Logger
}

func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

func (s *Store) Path() string { return s.path }

// Load returns the stored sequence, or ok=false when no file exists yet.
// A missing file is the normal first-run condition, not an error. Malformed
// or structurally invalid content is an error; callers treat it as absent.
func (s *Store) Load(ctx context.Context) (Recorded, bool, error) {
	if err := ctx.Err(); err != nil {
		return Recorded{}, false, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Recorded{}, false, nil
	}
	if err != nil {
		return Recorded{}, false, fmt.Errorf("read sequence file: %w", err)
	}
	var rec Recorded
	if err := json.Unmarshal(data, &rec); err != nil {
		return Recorded{}, false, fmt.Errorf("decode sequence file: %w", err)
	}
	if err := Validate(rec); err != nil {
		return Recorded{}, false, fmt.Errorf("sequence file invalid: %w", err)
	}
	s.logger.Debug().Str("path", s.path).Int("actions", len(rec.Actions)).Msg("sequence loaded")
	return rec, true, nil
}

// Save validates and atomically replaces the stored sequence. The write goes
// through a temp file in the same directory plus rename, so a crash mid-write
// never leaves a truncated file that a later Load would accept.
func (s *Store) Save(ctx context.Context, rec Recorded) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := Validate(rec); err != nil {
		return fmt.Errorf("refusing to save: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sequence: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".sequence-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace sequence file: %w", err)
	}
	s.logger.Info().Str("path", s.path).Int("actions", len(rec.Actions)).Msg("sequence saved")
	return nil
}
