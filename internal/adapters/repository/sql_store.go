package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cinereview/core/internal/domain/entities"
	"github.com/cinereview/core/internal/infrastructure/database"
	"github.com/cinereview/core/internal/ports"
)

// SQLStore keeps one row per review in the reviews table
type SQLStore struct {
	db          *database.DB
	locks       *KeyedLocker
	lockTimeout time.Duration
	now         func() time.Time
}

type reviewRow struct {
	Name        string `db:"name"`
	Text        string `db:"text"`
	CreatedAtMS int64  `db:"created_at_ms"`
}

// NewSQLStore creates a review store over an already migrated database.
// lockTimeout bounds the wait for another append to the same movie.
func NewSQLStore(db *database.DB, lockTimeout time.Duration, clock func() time.Time) *SQLStore {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	if clock == nil {
		clock = time.Now
	}
	return &SQLStore{
		db:          db,
		locks:       NewKeyedLocker(),
		lockTimeout: lockTimeout,
		now:         clock,
	}
}

var _ ports.ReviewStore = (*SQLStore)(nil)

func (s *SQLStore) List(ctx context.Context, id entities.MovieID) ([]entities.Review, error) {
	query := s.db.DB.Rebind(`
		SELECT name, text, created_at_ms
		FROM reviews
		WHERE movie_id = ?
		ORDER BY id`)

	var rows []reviewRow
	if err := s.db.DB.SelectContext(ctx, &rows, query, id.String()); err != nil {
		return nil, fmt.Errorf("list reviews: %w: %v", entities.ErrStorageUnavailable, err)
	}

	reviews := make([]entities.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, entities.Review{
			Name:      row.Name,
			Text:      row.Text,
			Timestamp: fromMillis(row.CreatedAtMS),
		})
	}
	return reviews, nil
}

func (s *SQLStore) Append(ctx context.Context, id entities.MovieID, review entities.Review) (entities.Review, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(lockCtx, id.String())
	if err != nil {
		return entities.Review{}, err
	}
	defer unlock()

	err = s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var last sql.NullInt64
		lastQuery := tx.Rebind(`SELECT MAX(created_at_ms) FROM reviews WHERE movie_id = ?`)
		if err := tx.GetContext(ctx, &last, lastQuery, id.String()); err != nil {
			return fmt.Errorf("read last timestamp: %w: %v", entities.ErrPriorReadFailed, err)
		}

		stamp := toMillis(s.now())
		if last.Valid && stamp < last.Int64 {
			stamp = last.Int64
		}

		insert := tx.Rebind(`
			INSERT INTO reviews (movie_id, name, text, created_at_ms)
			VALUES (?, ?, ?, ?)`)
		if _, err := tx.ExecContext(ctx, insert, id.String(), review.Name, review.Text, stamp); err != nil {
			return fmt.Errorf("insert review: %w", err)
		}

		review.Timestamp = fromMillis(stamp)
		return nil
	})
	if err != nil {
		return entities.Review{}, fmt.Errorf("append review: %w: %v", entities.ErrStorageUnavailable, err)
	}

	return review, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrStorageUnavailable, err)
	}
	return nil
}

// Stats reports the connection pool of the underlying database
func (s *SQLStore) Stats() map[string]interface{} {
	return s.db.GetConnectionInfo()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
