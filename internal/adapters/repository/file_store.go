package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/cinereview/core/internal/domain/entities"
	"github.com/cinereview/core/internal/infrastructure/config"
	"github.com/cinereview/core/internal/infrastructure/logger"
	"github.com/cinereview/core/internal/ports"
)

const lockRetryDelay = 10 * time.Millisecond

// FileStoreOptions configures a FileStore
type FileStoreOptions struct {
	Dir           string
	LockTimeout   time.Duration
	CorruptPolicy string
	Logger        *logger.Logger
	Clock         func() time.Time
	OnCorrupt     func()
}

// FileStore keeps one pretty-printed JSON array per movie in Dir.
// Appends replace the whole file through a temp file and rename, so a
// reader sees either the old or the new collection.
type FileStore struct {
	dir         string
	locks       *KeyedLocker
	lockTimeout time.Duration
	strict      bool
	now         func() time.Time
	logger      *logger.Logger
	onCorrupt   func()
}

// NewFileStore creates the storage directory if needed
func NewFileStore(opts FileStoreOptions) (*FileStore, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("storage dir is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	s := &FileStore{
		dir:         opts.Dir,
		locks:       NewKeyedLocker(),
		lockTimeout: opts.LockTimeout,
		strict:      opts.CorruptPolicy == config.CorruptPolicyStrict,
		now:         opts.Clock,
		logger:      opts.Logger,
		onCorrupt:   opts.OnCorrupt,
	}
	if s.lockTimeout <= 0 {
		s.lockTimeout = 5 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	s.logger = s.logger.WithComponent("file_store")

	return s, nil
}

var _ ports.ReviewStore = (*FileStore)(nil)

// Path returns the file holding the collection for id
func (s *FileStore) Path(id entities.MovieID) string {
	return filepath.Join(s.dir, "reviews_"+id.String()+".json")
}

func (s *FileStore) List(ctx context.Context, id entities.MovieID) ([]entities.Review, error) {
	reviews, err := s.read(id)
	if errors.Is(err, entities.ErrCorruptData) {
		s.reportCorruption(id, err)
		if s.strict {
			return nil, err
		}
		return []entities.Review{}, nil
	}
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (s *FileStore) Append(ctx context.Context, id entities.MovieID, review entities.Review) (entities.Review, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(lockCtx, id.String())
	if err != nil {
		return entities.Review{}, err
	}
	defer unlock()

	path := s.Path(id)
	fileLock := flock.New(path + ".lock")
	locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !locked {
		return entities.Review{}, fmt.Errorf("lock %s: %w: %v", path, entities.ErrStorageUnavailable, err)
	}
	defer fileLock.Unlock()

	existing, err := s.read(id)
	if errors.Is(err, entities.ErrCorruptData) {
		s.reportCorruption(id, err)
		if s.strict {
			return entities.Review{}, fmt.Errorf("%w: %w", entities.ErrPriorReadFailed, err)
		}
		if err := s.quarantine(path); err != nil {
			return entities.Review{}, err
		}
		existing = nil
	} else if err != nil {
		return entities.Review{}, fmt.Errorf("%w: %w", entities.ErrPriorReadFailed, err)
	}

	review.Timestamp = nextTimestamp(s.now(), existing)
	updated := append(existing, review)

	data, err := json.MarshalIndent(updated, "", "    ")
	if err != nil {
		return entities.Review{}, fmt.Errorf("encode reviews: %w: %v", entities.ErrStorageUnavailable, err)
	}

	if err := writeFileAtomic(s.dir, path, data); err != nil {
		return entities.Review{}, err
	}

	return review, nil
}

func (s *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("stat storage dir: %w: %v", entities.ErrStorageUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory: %w", s.dir, entities.ErrStorageUnavailable)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read(id entities.MovieID) ([]entities.Review, error) {
	path := s.Path(id)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []entities.Review{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", path, entities.ErrStorageUnavailable, err)
	}

	var reviews []entities.Review
	if err := json.Unmarshal(data, &reviews); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %v", path, entities.ErrCorruptData, err)
	}
	if reviews == nil {
		reviews = []entities.Review{}
	}
	return reviews, nil
}

func (s *FileStore) reportCorruption(id entities.MovieID, err error) {
	s.logger.Warnw("Review collection could not be parsed",
		"movie_id", id.String(),
		"path", s.Path(id),
		"strict", s.strict,
		"error", err.Error(),
	)
	if s.onCorrupt != nil {
		s.onCorrupt()
	}
}

// quarantine moves an unreadable collection aside before it is replaced
func (s *FileStore) quarantine(path string) error {
	target := fmt.Sprintf("%s.corrupt-%d", path, s.now().UnixNano())
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("quarantine %s: %w: %v", path, entities.ErrStorageUnavailable, err)
	}
	s.logger.Warnw("Corrupt review collection moved aside", "path", path, "moved_to", target)
	return nil
}

func writeFileAtomic(dir, path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w: %v", entities.ErrStorageUnavailable, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w: %v", tmp.Name(), entities.ErrStorageUnavailable, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w: %v", tmp.Name(), entities.ErrStorageUnavailable, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w: %v", tmp.Name(), entities.ErrStorageUnavailable, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w: %v", tmp.Name(), entities.ErrStorageUnavailable, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w: %v", path, entities.ErrStorageUnavailable, err)
	}
	return nil
}

// nextTimestamp never goes back past the newest stored record
func nextTimestamp(now time.Time, existing []entities.Review) time.Time {
	now = now.UTC()
	if n := len(existing); n > 0 && now.Before(existing[n-1].Timestamp) {
		return existing[n-1].Timestamp.UTC()
	}
	return now
}
