package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{rdb: rdb}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func profileKey(userID string) string {
	return "profile:" + userID
}

// GetProfile decodes the cached profile of userID into v.
// A miss returns redis.Nil.
func (s *Store) GetProfile(ctx context.Context, userID string, v any) error {
	raw, err := s.rdb.Get(ctx, profileKey(userID)).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (s *Store) SetProfile(ctx context.Context, userID string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, profileKey(userID), raw, ttl).Err()
}

func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, profileKey(userID)).Err()
}
