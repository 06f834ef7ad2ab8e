package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/flowstate-io/flowstate/internal/ir"
	"github.com/flowstate-io/flowstate/internal/logging"
)

// Store reads and writes the state file. Every durable mutation of state
// goes through Save; no other code path writes the file.
type Store struct {
	path       string
	projectKey string
}

func NewStore(path, projectKey string) *Store {
	return &Store{
		path:       path,
		projectKey: projectKey,
	}
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a state file has been written yet.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load returns the persisted state, or an empty state with a freshly
// generated lineage if no file exists yet.
func (s *Store) Load() (*ir.State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ir.NewState(s.projectKey), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}

	st := &ir.State{}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	if st.Resources == nil {
		st.Resources = make(map[string]*ir.ResourceState)
	}
	return st, nil
}

// Save persists the state. It increments the serial, recomputes the
// digest, writes to a temporary file, retains the previous version as a
// .backup sibling, and renames into place so the existing file is never
// partially overwritten.
func (s *Store) Save(st *ir.State) error {
	st.Serial++
	st.Digest = ir.ComputeDigest(st.Resources)

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := writeFileSync(tmp, data); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	if prev, err := os.ReadFile(s.path); err == nil {
		if err := writeFileSync(s.path+".backup", prev); err != nil {
			return fmt.Errorf("failed to write state backup: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read prior state for backup: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	logging.L().Debug().
		Str("path", s.path).
		Uint64("serial", st.Serial).
		Msg("state saved")
	return nil
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
