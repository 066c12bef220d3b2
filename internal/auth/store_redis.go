// Copyright (c) 2026 Klokain. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/klokain/osticket-api/internal/platform/constants"
)

// RedisStateRepository implements StateRepository using Redis.
//
// State nonces are short-lived and shared across instances: Redis gives the
// round trip a TTL for free and lets any instance serve the callback.
type RedisStateRepository struct {
	client *redis.Client
}

// NewStateRepository creates a new Redis-backed StateRepository.
func NewStateRepository(client *redis.Client) *RedisStateRepository {
	return &RedisStateRepository{client: client}
}

/*
Set stores a state nonce for the duration of one authorization round trip.

Parameters:
  - context: context.Context
  - state: string
  - ttl: time.Duration

Returns:
  - error: Storage failures
*/
func (repository *RedisStateRepository) Set(context context.Context, state string, ttl time.Duration) error {

	// Use constants for key prefix
	key := fmt.Sprintf("%s%s", constants.RedisPrefixOAuth2State, state)

	// Store a marker value with TTL; only existence matters
	if err := repository.client.Set(context, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis_oauth2_state_set_failed: %w", err)
	}

	// Return nil on success
	return nil
}

/*
Consume atomically retrieves and deletes a state nonce.

Description: GETDEL makes each state single-use; a replayed callback finds
nothing and fails.

Parameters:
  - context: context.Context
  - state: string

Returns:
  - bool: Whether the state existed before this call
  - error: Connectivity errors
*/
func (repository *RedisStateRepository) Consume(context context.Context, state string) (bool, error) {

	// Use constants for key prefix
	key := fmt.Sprintf("%s%s", constants.RedisPrefixOAuth2State, state)

	// Atomically fetch and remove the nonce
	_, err := repository.client.GetDel(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis_oauth2_state_consume_failed: %w", err)
	}

	return true, nil
}
