// Package redis stores password reset codes in Redis, letting key TTLs
// enforce expiry. An expired code simply disappears, so lookups report
// it as not found rather than expired.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/projecthub/backend/internal/model/reset"
)

// CodeStore implements reset.CodeStore on a Redis client.
type CodeStore struct {
	rdb *redis.Client
}

// NewCodeStore wraps an existing client.
func NewCodeStore(rdb *redis.Client) *CodeStore {
	return &CodeStore{rdb: rdb}
}

// Dial connects and pings before returning a store.
func Dial(ctx context.Context, addr, password string, db int) (*CodeStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewCodeStore(rdb), nil
}

// Close releases the underlying client.
func (s *CodeStore) Close() error {
	return s.rdb.Close()
}

func codeKey(userID, code string) string {
	return fmt.Sprintf("reset:code:%s:%s", userID, code)
}

func (s *CodeStore) Save(ctx context.Context, c reset.Code) error {
	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal reset code: %w", err)
	}

	if err := s.rdb.Set(ctx, codeKey(c.UserID, c.Code), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save reset code: %w", err)
	}
	return nil
}

func (s *CodeStore) Consume(ctx context.Context, userID, code string) (reset.Code, error) {
	// GETDEL makes the code single-use even under concurrent attempts.
	raw, err := s.rdb.GetDel(ctx, codeKey(userID, code)).Result()
	if errors.Is(err, redis.Nil) {
		return reset.Code{}, reset.ErrCodeNotFound
	}
	if err != nil {
		return reset.Code{}, fmt.Errorf("consume reset code: %w", err)
	}

	var c reset.Code
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return reset.Code{}, fmt.Errorf("unmarshal reset code: %w", err)
	}
	c.Used = true
	return c, nil
}
