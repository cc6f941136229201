// Package history keeps the local log of past captures: a directory of
// copied images plus a flat JSON list describing them.
//
// The log is rewritten in full on every append. A write either completes or
// the operation reports an error; there is no journaling beyond that.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/menta2k/snapcrop/internal/utils"
	"github.com/menta2k/snapcrop/pkg/types"
)

const (
	historyFile = "history.json"
	imagesDir   = "images"
)

// ErrNotFound is returned when no entry has the requested ID
var ErrNotFound = errors.New("history: item not found")

// Store is a history log rooted at a directory. It is safe for concurrent use.
type Store struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// Option customizes a Store
type Option func(*Store)

// WithLogger sets the logger used for recoverable problems
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store in dir. Nothing is written until the first append.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the root directory of the store
func (s *Store) Dir() string { return s.dir }

// ImagesDir returns the directory captured images are copied into
func (s *Store) ImagesDir() string { return filepath.Join(s.dir, imagesDir) }

// SaveImage copies the image read from r into the store as
// photo_<millis>.<ext> and appends an entry for it.
func (s *Store) SaveImage(r io.Reader, ext, example string) (types.HistoryItem, error) {
	if err := utils.EnsureDir(s.ImagesDir()); err != nil {
		return types.HistoryItem{}, fmt.Errorf("failed to create images directory: %w", err)
	}

	path := utils.UniquePath(s.ImagesDir(), utils.TimestampedName("photo", ext, s.now()))
	f, err := os.Create(path)
	if err != nil {
		return types.HistoryItem{}, fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return types.HistoryItem{}, fmt.Errorf("failed to copy image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return types.HistoryItem{}, fmt.Errorf("failed to write image: %w", err)
	}

	item, err := s.Add(path, example)
	if err != nil {
		os.Remove(path)
		return types.HistoryItem{}, err
	}
	return item, nil
}

// SaveImageFile copies the file at src into the store and appends an entry
func (s *Store) SaveImageFile(src, example string) (types.HistoryItem, error) {
	f, err := os.Open(src)
	if err != nil {
		return types.HistoryItem{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	ext := utils.GetFileExtension(src)
	if ext == "" {
		ext = "jpg"
	}
	return s.SaveImage(f, ext, example)
}

// Add appends an entry for an image that already lives at imagePath.
func (s *Store) Add(imagePath, example string) (types.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		// An unreadable log is replaced rather than blocking new captures.
		s.logger.Warn("discarding unreadable history", "path", s.path(), "error", err)
		items = nil
	}

	abs, err := filepath.Abs(imagePath)
	if err != nil {
		abs = imagePath
	}
	item := types.HistoryItem{
		ID:        uuid.NewString(),
		ImagePath: abs,
		Example:   example,
		Timestamp: s.now().UnixMilli(),
	}
	items = append(items, item)

	if err := s.write(items); err != nil {
		return types.HistoryItem{}, err
	}
	s.logger.Debug("history entry added", "id", item.ID, "image", item.ImagePath)
	return item, nil
}

// List returns all entries, newest first
func (s *Store) List() ([]types.HistoryItem, error) {
	s.mu.Lock()
	items, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp > items[j].Timestamp
	})
	return items, nil
}

// Get returns the entry with the given ID
func (s *Store) Get(id string) (types.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return types.HistoryItem{}, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return types.HistoryItem{}, ErrNotFound
}

// Clear removes every stored image and the log itself
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.ImagesDir()); err != nil {
		return fmt.Errorf("failed to remove images: %w", err)
	}
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove history: %w", err)
	}
	s.logger.Info("history cleared", "dir", s.dir)
	return nil
}

func (s *Store) path() string { return filepath.Join(s.dir, historyFile) }

// load reads the log; a missing file is an empty history.
func (s *Store) load() ([]types.HistoryItem, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var items []types.HistoryItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return items, nil
}

func (s *Store) write(items []types.HistoryItem) error {
	if err := utils.EnsureDir(s.dir); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := os.WriteFile(s.path(), data, 0644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}
