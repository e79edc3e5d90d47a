package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smileclinic/whatsbot/internal/domain/models"
)

const keyPrefix = "whatsbot"

// RedisStore keeps sessions and drafts as JSON values in Redis so several
// replicas can share conversation state. A zero ttl keeps keys forever.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("state: redis client cannot be nil")
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Session(ctx context.Context, userID string) (*models.Session, error) {
	var session models.Session
	found, err := s.load(ctx, sessionKey(userID), &session)
	if err != nil {
		return nil, fmt.Errorf("state: load session: %w", err)
	}
	if found {
		return &session, nil
	}

	fresh := models.NewSession(userID)
	if err := s.SaveSession(ctx, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

func (s *RedisStore) SaveSession(ctx context.Context, session *models.Session) error {
	if session == nil || session.UserID == "" {
		return errors.New("state: session with user id is required")
	}
	if err := s.store(ctx, sessionKey(session.UserID), session); err != nil {
		return fmt.Errorf("state: persist session: %w", err)
	}
	return nil
}

func (s *RedisStore) Draft(ctx context.Context, userID string) (*models.BookingDraft, error) {
	var draft models.BookingDraft
	found, err := s.load(ctx, draftKey(userID), &draft)
	if err != nil {
		return nil, fmt.Errorf("state: load draft: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &draft, nil
}

func (s *RedisStore) SaveDraft(ctx context.Context, userID string, draft *models.BookingDraft) error {
	if draft == nil {
		return s.DeleteDraft(ctx, userID)
	}
	if err := s.store(ctx, draftKey(userID), draft); err != nil {
		return fmt.Errorf("state: persist draft: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteDraft(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, draftKey(userID)).Err(); err != nil {
		return fmt.Errorf("state: delete draft: %w", err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) store(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

func sessionKey(userID string) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, userID)
}

func draftKey(userID string) string {
	return fmt.Sprintf("%s:draft:%s", keyPrefix, userID)
}
