package store

import (
	"context"
	"errors"
	"time"

	"kredmitra/internal/common/database"
	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/models"
)

var ErrSessionNotFound = errors.New("SESSION_NOT_FOUND")

const (
	sessionKeyPrefix = "kredmitra_session_"
	chatKeyPrefix    = "kredmitra_chat_"
)

type Sessions struct {
	redis *database.RedisClient
	ttl   time.Duration
	now   func() time.Time
}

func NewSessions(redis *database.RedisClient, ttl time.Duration) *Sessions {
	return &Sessions{redis: redis, ttl: ttl, now: time.Now}
}

// Put stores s under its token and stamps its expiry.
func (s *Sessions) Put(ctx context.Context, sess *models.Session) error {
	sess.ExpiresAt = s.now().Add(s.ttl).UTC()
	if err := s.redis.SetJSON(ctx, sessionKeyPrefix+sess.Token, sess, s.ttl); err != nil {
		return commonerrors.NewDatabaseError("store session", err)
	}
	return nil
}

func (s *Sessions) Get(ctx context.Context, token string) (*models.Session, error) {
	var sess models.Session
	err := s.redis.GetJSON(ctx, sessionKeyPrefix+token, &sess)
	if errors.Is(err, database.ErrCacheMiss) {
		return nil, commonerrors.Wrap(commonerrors.NewSessionNotFoundError(), ErrSessionNotFound)
	}
	if err != nil {
		return nil, commonerrors.NewDatabaseError("load session", err)
	}
	return &sess, nil
}

func (s *Sessions) Delete(ctx context.Context, token string) error {
	return s.redis.Del(ctx, sessionKeyPrefix+token)
}

// Chats keeps each user's coach thread as one JSON list.
type Chats struct {
	redis *database.RedisClient
}

func NewChats(redis *database.RedisClient) *Chats {
	return &Chats{redis: redis}
}

// History returns the stored thread, or nil when there is none.
func (c *Chats) History(ctx context.Context, mobile string) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := c.redis.GetJSON(ctx, chatKeyPrefix+mobile, &msgs)
	if errors.Is(err, database.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, commonerrors.NewDatabaseError("load chat", err)
	}
	return msgs, nil
}

func (c *Chats) Save(ctx context.Context, mobile string, msgs []models.ChatMessage) error {
	if err := c.redis.SetJSON(ctx, chatKeyPrefix+mobile, msgs, 0); err != nil {
		return commonerrors.NewDatabaseError("save chat", err)
	}
	return nil
}

func (c *Chats) Clear(ctx context.Context, mobile string) error {
	return c.redis.Del(ctx, chatKeyPrefix+mobile)
}
