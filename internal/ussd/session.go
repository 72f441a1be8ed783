package ussd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kredmitra/internal/common/database"
	"kredmitra/internal/models"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("USSD_SESSION_NOT_FOUND")

type Status string

const (
	StatusCollecting Status = "collecting"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusError      Status = "error"
	StatusClosed     Status = "closed"
)

// Session is one USSD dialogue. It is persisted between gateway requests.
type Session struct {
	ID             string              `json:"id"`
	Mobile         string              `json:"mobile,omitempty"`
	Saved          bool                `json:"saved,omitempty"`
	Status         Status              `json:"status"`
	Step           string              `json:"step"`
	Screen         string              `json:"screen"`
	Error          string              `json:"error,omitempty"`
	Data           models.UserData     `json:"userData"`
	Clarifications []string            `json:"clarifications,omitempty"`
	Application    *models.Application `json:"application,omitempty"`
	StartedAt      time.Time           `json:"startedAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// Done reports whether the gateway should end the dialogue.
func (s *Session) Done() bool {
	return s.Status == StatusError || s.Status == StatusClosed
}

func (s *Session) alt() *models.AlternativeData {
	if s.Data.AlternativeData == nil {
		s.Data.AlternativeData = &models.AlternativeData{}
	}
	return s.Data.AlternativeData
}

// Store persists sessions between requests.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

const sessionKeyPrefix = "kredmitra_ussd_"

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// RedisStore keeps sessions as JSON values that expire after ttl.
type RedisStore struct {
	redis *database.RedisClient
	ttl   time.Duration
}

func NewRedisStore(redis *database.RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: redis, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := r.redis.GetJSON(ctx, sessionKey(id), &s)
	if errors.Is(err, database.ErrCacheMiss) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ussd session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if err := r.redis.SetJSON(ctx, sessionKey(s.ID), s, r.ttl); err != nil {
		return fmt.Errorf("save ussd session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.redis.Del(ctx, sessionKey(id))
}
