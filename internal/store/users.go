// Package store persists user records in Postgres behind a Redis read cache,
// and keeps sessions and coach chat threads in Redis.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kredmitra/internal/common/database"
	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/models"
)

var (
	ErrUserExists   = errors.New("USER_EXISTS")
	ErrUserNotFound = errors.New("USER_NOT_FOUND")
)

const userKeyPrefix = "kredmitra_user_"

// Migrations creates the users table.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS kredmitra_users (
		mobile     TEXT PRIMARY KEY,
		record     JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS kredmitra_users_updated_at_idx ON kredmitra_users (updated_at DESC)`,
}

const (
	insertUserQuery = `INSERT INTO kredmitra_users (mobile, record, updated_at) VALUES ($1, $2, NOW()) ON CONFLICT (mobile) DO NOTHING`
	upsertUserQuery = `INSERT INTO kredmitra_users (mobile, record, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (mobile) DO UPDATE SET record = EXCLUDED.record, updated_at = NOW()`
	selectUserQuery  = `SELECT record FROM kredmitra_users WHERE mobile = $1`
	lockUserQuery    = `SELECT record FROM kredmitra_users WHERE mobile = $1 FOR UPDATE`
	updateUserQuery  = `UPDATE kredmitra_users SET record = $2, updated_at = NOW() WHERE mobile = $1`
	listUsersQuery   = `SELECT record FROM kredmitra_users ORDER BY mobile`
	deleteUsersQuery = `DELETE FROM kredmitra_users RETURNING mobile`
)

func userKey(mobile string) string {
	return userKeyPrefix + mobile
}

// Indexer mirrors saved records into a search index.
type Indexer interface {
	IndexUser(ctx context.Context, rec *models.UserRecord) error
}

type Users struct {
	db      *database.PostgresClient
	cache   *database.RedisClient
	ttl     time.Duration
	indexer Indexer
	logger  logger.Logger
}

func NewUsers(db *database.PostgresClient, cache *database.RedisClient, ttl time.Duration, log logger.Logger) *Users {
	return &Users{db: db, cache: cache, ttl: ttl, logger: log}
}

// WithIndexer mirrors every created or saved record into ix. Index
// failures are logged and never fail the write.
func (u *Users) WithIndexer(ix Indexer) *Users {
	u.indexer = ix
	return u
}

func (u *Users) index(ctx context.Context, rec *models.UserRecord) {
	if u.indexer == nil {
		return
	}
	if err := u.indexer.IndexUser(ctx, rec); err != nil {
		u.logger.Warn("User index write failed", map[string]interface{}{
			"mobile": rec.Mobile,
			"error":  err.Error(),
		})
	}
}

func (u *Users) Migrate(ctx context.Context) error {
	return u.db.Migrate(ctx, Migrations...)
}

// Create inserts rec. It fails with ErrUserExists when the mobile number is
// already registered.
func (u *Users) Create(ctx context.Context, rec *models.UserRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	res, err := u.db.Exec(ctx, insertUserQuery, rec.Mobile, data)
	if err != nil {
		return commonerrors.NewDatabaseError("create user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return commonerrors.NewDatabaseError("create user", err)
	}
	if n == 0 {
		return commonerrors.Wrap(commonerrors.NewUserExistsError(rec.Mobile), ErrUserExists)
	}
	u.index(ctx, rec)
	return nil
}

// Get reads through the cache.
func (u *Users) Get(ctx context.Context, mobile string) (*models.UserRecord, error) {
	var rec models.UserRecord
	err := u.cache.GetJSON(ctx, userKey(mobile), &rec)
	if err == nil {
		return &rec, nil
	}
	if !errors.Is(err, database.ErrCacheMiss) {
		u.logger.Warn("User cache read failed", map[string]interface{}{
			"mobile": mobile,
			"error":  err.Error(),
		})
	}

	var data []byte
	err = u.db.QueryRow(ctx, selectUserQuery, mobile).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, commonerrors.Wrap(commonerrors.NewUserNotFoundError(mobile), ErrUserNotFound)
	}
	if err != nil {
		return nil, commonerrors.NewDatabaseError("get user", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", mobile, err)
	}

	if err := u.cache.SetJSON(ctx, userKey(mobile), &rec, u.ttl); err != nil {
		u.logger.Warn("User cache write failed", map[string]interface{}{
			"mobile": mobile,
			"error":  err.Error(),
		})
	}
	return &rec, nil
}

// Save upserts rec and invalidates its cache entry.
func (u *Users) Save(ctx context.Context, rec *models.UserRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if _, err := u.db.Exec(ctx, upsertUserQuery, rec.Mobile, data); err != nil {
		return commonerrors.NewDatabaseError("save user", err)
	}
	u.invalidate(ctx, rec.Mobile)
	u.index(ctx, rec)
	return nil
}

func (u *Users) invalidate(ctx context.Context, mobile string) {
	if err := u.cache.Del(ctx, userKey(mobile)); err != nil {
		u.logger.Warn("User cache invalidation failed", map[string]interface{}{
			"mobile": mobile,
			"error":  err.Error(),
		})
	}
}

// Update applies fn to the stored record under a row lock, so concurrent
// updates of one user serialize instead of overwriting each other. The
// record is read from Postgres, never the cache, and the cache entry is
// dropped after commit. fn returning an error rolls back.
func (u *Users) Update(ctx context.Context, mobile string, fn func(*models.UserRecord) error) (*models.UserRecord, error) {
	var (
		rec   models.UserRecord
		fnErr error
	)
	err := u.db.InTx(ctx, func(tx *sql.Tx) error {
		var data []byte
		err := tx.QueryRowContext(ctx, lockUserQuery, mobile).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			return commonerrors.Wrap(commonerrors.NewUserNotFoundError(mobile), ErrUserNotFound)
		}
		if err != nil {
			return commonerrors.NewDatabaseError("lock user", err)
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode user %s: %w", mobile, err)
		}

		if fnErr = fn(&rec); fnErr != nil {
			return fnErr
		}

		out, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		if _, err := tx.ExecContext(ctx, updateUserQuery, mobile, out); err != nil {
			return commonerrors.NewDatabaseError("update user", err)
		}
		return nil
	})
	switch {
	case fnErr != nil:
		return nil, fnErr
	case err != nil:
		if _, ok := commonerrors.As(err); ok {
			return nil, err
		}
		return nil, commonerrors.NewDatabaseError("update user", err)
	}

	u.invalidate(ctx, mobile)
	u.index(ctx, &rec)
	return &rec, nil
}

func (u *Users) List(ctx context.Context) ([]*models.UserRecord, error) {
	rows, err := u.db.Query(ctx, listUsersQuery)
	if err != nil {
		return nil, commonerrors.NewDatabaseError("list users", err)
	}
	defer rows.Close()

	var users []*models.UserRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, commonerrors.NewDatabaseError("list users", err)
		}
		var rec models.UserRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewDatabaseError("list users", err)
	}
	return users, nil
}

// Reset deletes every user and their cache entries.
func (u *Users) Reset(ctx context.Context) error {
	rows, err := u.db.Query(ctx, deleteUsersQuery)
	if err != nil {
		return commonerrors.NewDatabaseError("reset users", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var mobile string
		if err := rows.Scan(&mobile); err != nil {
			return commonerrors.NewDatabaseError("reset users", err)
		}
		keys = append(keys, userKey(mobile))
	}
	if err := rows.Err(); err != nil {
		return commonerrors.NewDatabaseError("reset users", err)
	}
	if len(keys) > 0 {
		return u.cache.Del(ctx, keys...)
	}
	return nil
}
