package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Checkpoint is the durable cursor of the full-catalog stream. It lives
// outside the database so a restarted run resumes instead of reprocessing.
type Checkpoint struct {
	CurrentOffset int   `json:"currentOffset"`
	VacuumCounter int   `json:"vacuumCounter"`
	ProcessedRows int64 `json:"processedRows"`
	TotalRows     int64 `json:"totalRows"`
}

// Store abstracts checkpoint persistence so the orchestrator does not care
// about the storage mechanism.
type Store interface {
	Load() (Checkpoint, error)
	Save(Checkpoint) error
}

// FileStore keeps the checkpoint in a small JSON file, written atomically
// via a temp file and rename. Only the scheduler process touches it.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the checkpoint, returning zero-valued defaults when the file
// does not exist yet.
func (s *FileStore) Load() (Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, nil
		}
		return Checkpoint{}, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	return cp, nil
}

func (s *FileStore) Save(cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}

// MemoryStore is the in-memory fake used by tests.
type MemoryStore struct {
	mu sync.Mutex
	cp Checkpoint
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cp, nil
}

func (s *MemoryStore) Save(cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cp = cp
	return nil
}
