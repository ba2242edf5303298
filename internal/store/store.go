// Package store persists recording metadata in a single JSON file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/sirupsen/logrus"

	"voice-memos-go/internal/types"
)

// MetadataFile is the file name inside the recordings directory.
const MetadataFile = "metadata.json"

var (
	ErrNotFound  = errors.New("recording not found")
	ErrDuplicate = errors.New("recording id already exists")
	ErrNoID      = errors.New("recording id is empty")
)

// Store reads and rewrites metadata.json under a mutex. Writes go through
// a pending file and an atomic rename so readers never see a torn file.
type Store struct {
	mu   sync.Mutex
	path string
	log  *logrus.Entry
}

// Open prepares dir and returns a store over dir/metadata.json. The file is
// created lazily on first write.
func Open(dir string, log *logrus.Entry) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create recordings dir: %w", err)
	}
	return &Store{
		path: filepath.Join(dir, MetadataFile),
		log:  log.WithField("component", "store"),
	}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) List() ([]types.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) Get(id string) (types.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load()
	if err != nil {
		return types.Recording{}, err
	}
	i := indexOf(recs, id)
	if i < 0 {
		return types.Recording{}, ErrNotFound
	}
	return recs[i], nil
}

// Add appends a new recording.
func (s *Store) Add(r types.Recording) error {
	if r.ID == "" {
		return ErrNoID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load()
	if err != nil {
		return err
	}
	if indexOf(recs, r.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, r.ID)
	}
	return s.save(append(recs, normalized(r)))
}

// Update replaces the stored record with r. The id and the audio path of
// the stored record always win over whatever the caller sent.
func (s *Store) Update(id string, r types.Recording) (types.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load()
	if err != nil {
		return types.Recording{}, err
	}
	i := indexOf(recs, id)
	if i < 0 {
		return types.Recording{}, ErrNotFound
	}

	r.ID = id
	r.AudioPath = recs[i].AudioPath
	recs[i] = normalized(r)
	if err := s.save(recs); err != nil {
		return types.Recording{}, err
	}
	return recs[i], nil
}

// Delete removes a recording and returns it so the caller can remove the
// audio file it points at.
func (s *Store) Delete(id string) (types.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load()
	if err != nil {
		return types.Recording{}, err
	}
	i := indexOf(recs, id)
	if i < 0 {
		return types.Recording{}, ErrNotFound
	}
	removed := recs[i]
	recs = append(recs[:i], recs[i+1:]...)
	if err := s.save(recs); err != nil {
		return types.Recording{}, err
	}
	return removed, nil
}

func (s *Store) load() ([]types.Recording, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []types.Recording{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var recs []types.Recording
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if recs == nil {
		recs = []types.Recording{}
	}
	return recs, nil
}

func (s *Store) save(recs []types.Recording) error {
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	pending, err := renameio.NewPendingFile(s.path)
	if err != nil {
		return fmt.Errorf("create pending metadata file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			s.log.WithError(err).Debug("cleanup pending metadata file")
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace metadata: %w", err)
	}
	s.log.WithField("recordings", len(recs)).Debug("metadata saved")
	return nil
}

func indexOf(recs []types.Recording, id string) int {
	for i := range recs {
		if recs[i].ID == id {
			return i
		}
	}
	return -1
}

func normalized(r types.Recording) types.Recording {
	if r.Tags == nil {
		r.Tags = []string{}
	}
	return r
}
