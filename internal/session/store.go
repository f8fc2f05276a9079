package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates the session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

const keyPrefix = "checkout:session:"

// Store persists checkout sessions in Redis as JSON documents.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewStore constructs a session store. A non-positive ttl falls back to 24 hours.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl, now: time.Now}
}

// WithClock overrides the time source, mainly for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// Key returns the Redis key for the session id.
func Key(id string) string {
	return keyPrefix + id
}

// Create starts an empty session.
func (s *Store) Create(ctx context.Context) (Record, error) {
	now := s.now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		Items:     []LineItem{},
		CreatedAt: now,
	}
	if err := s.Save(ctx, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Get loads the session identified by id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	if s == nil || s.client == nil {
		return Record{}, errors.New("session store not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrNotFound
	}
	data, err := s.client.Get(ctx, Key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("load session: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode session: %w", err)
	}
	return rec, nil
}

// Save writes the session and refreshes its expiry.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if s == nil || s.client == nil {
		return errors.New("session store not configured")
	}
	if rec == nil || strings.TrimSpace(rec.ID) == "" {
		return errors.New("session id is required")
	}
	now := s.now().UTC()
	rec.UpdatedAt = now
	rec.ExpiresAt = now.Add(s.ttl)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, Key(rec.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.client == nil {
		return errors.New("session store not configured")
	}
	return s.client.Del(ctx, Key(id)).Err()
}
