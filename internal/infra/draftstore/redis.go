package draftstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
)

// Redis stores drafts as JSON values with a TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to Redis using a URL (redis://...) and verifies the
// connection before returning.
func NewRedis(redisURL string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

func draftKey(draftID string) string {
	return "intake:draft:" + draftID
}

// Get fetches and decodes a stored draft.
func (r *Redis) Get(ctx context.Context, draftID string) (*domain.NotaDraft, error) {
	raw, err := r.client.Get(ctx, draftKey(draftID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &domain.ErrNotFound{Resource: "draft", ID: draftID}
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "redis/drafts", Err: err}
	}

	var draft domain.NotaDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, &domain.ErrExternalService{Service: "redis/drafts", Err: fmt.Errorf("decode draft: %w", err)}
	}
	return &draft, nil
}

// Put stores the draft and refreshes its TTL.
func (r *Redis) Put(ctx context.Context, draft *domain.NotaDraft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := r.client.Set(ctx, draftKey(draft.DraftID), raw, r.ttl).Err(); err != nil {
		return &domain.ErrExternalService{Service: "redis/drafts", Err: err}
	}
	return nil
}

// Delete discards a session. Deleting a missing session is not an error.
func (r *Redis) Delete(ctx context.Context, draftID string) error {
	if err := r.client.Del(ctx, draftKey(draftID)).Err(); err != nil {
		return &domain.ErrExternalService{Service: "redis/drafts", Err: err}
	}
	return nil
}
