package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/creator-service/internal/domain"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("onboarding session not found")

// SessionStore keeps ephemeral onboarding state. Sessions and drafts live
// under a TTL; abandonment is simply expiry, nothing is persisted.
type SessionStore interface {
	Create(ctx context.Context, session *domain.OnboardingSession) error
	Get(ctx context.Context, id string) (*domain.OnboardingSession, error)
	Save(ctx context.Context, session *domain.OnboardingSession) error
	// SeedDraft stores the first profile snapshot taken for an identity and
	// returns whichever snapshot won. Later seeds never overwrite the first.
	SeedDraft(ctx context.Context, identityID string, draft domain.OnboardingDraft) (domain.OnboardingDraft, error)
}

type redisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore returns a Redis-backed implementation.
func NewSessionStore(client *redis.Client, ttl time.Duration) SessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &redisSessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return "onboarding:session:" + id
}

func seedKey(identityID string) string {
	return "onboarding:seed:" + identityID
}

func (s *redisSessionStore) Create(ctx context.Context, session *domain.OnboardingSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, sessionKey(session.ID), payload, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	return nil
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (*domain.OnboardingSession, error) {
	payload, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var session domain.OnboardingSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *redisSessionStore) Save(ctx context.Context, session *domain.OnboardingSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(session.ID), payload, redis.KeepTTL).Err()
}

func (s *redisSessionStore) SeedDraft(ctx context.Context, identityID string, draft domain.OnboardingDraft) (domain.OnboardingDraft, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return domain.OnboardingDraft{}, err
	}
	ok, err := s.client.SetNX(ctx, seedKey(identityID), payload, s.ttl).Result()
	if err != nil {
		return domain.OnboardingDraft{}, err
	}
	if ok {
		return draft, nil
	}

	stored, err := s.client.Get(ctx, seedKey(identityID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// seed expired between SETNX and GET; this snapshot wins
			return draft, nil
		}
		return domain.OnboardingDraft{}, err
	}
	var first domain.OnboardingDraft
	if err := json.Unmarshal(stored, &first); err != nil {
		return domain.OnboardingDraft{}, err
	}
	return first, nil
}
