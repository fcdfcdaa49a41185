package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// Store persists carts by owner. Load never fails for an unknown owner; it
// returns an empty cart instead.
type Store interface {
	Load(ctx context.Context, owner string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, owner string) error
}

// RedisStore keeps each cart as JSON with a sliding TTL.
type RedisStore struct {
	Redis redis.Cmdable
	TTL   time.Duration
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) Load(ctx context.Context, owner string) (*Cart, error) {
	b, err := s.Redis.Get(ctx, redisx.CartKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(owner), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	c := New(owner)
	if err := json.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	return c, nil
}

func (s *RedisStore) Save(ctx context.Context, c *Cart) error {
	if c.IsEmpty() {
		return s.Delete(ctx, c.Owner)
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := s.Redis.Set(ctx, redisx.CartKey(c.Owner), b, s.TTL).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, owner string) error {
	return s.Redis.Del(ctx, redisx.CartKey(owner)).Err()
}

type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]Cart
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]Cart)}
}

func (s *MemoryStore) Load(_ context.Context, owner string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[owner]
	if !ok {
		return New(owner), nil
	}
	c.Lines = append([]Line{}, c.Lines...)
	return &c, nil
}

func (s *MemoryStore) Save(_ context.Context, c *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.IsEmpty() {
		delete(s.carts, c.Owner)
		return nil
	}
	cp := *c
	cp.Lines = append([]Line{}, c.Lines...)
	s.carts[c.Owner] = cp
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, owner)
	return nil
}
