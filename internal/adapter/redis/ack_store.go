package redis

import (
	"context"
	"fmt"
	"time"

	rds "github.com/redis/go-redis/v9"
)

const keyPrefix = "kitchen:acks:"

// AckStore keeps a session's acknowledged order ids in a Redis set. The TTL
// is refreshed on every write, so an idle session's set expires on its own.
type AckStore struct {
	client rds.Cmdable
	ttl    time.Duration
}

func NewAckStore(client rds.Cmdable, ttl time.Duration) *AckStore {
	return &AckStore{client: client, ttl: ttl}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (s *AckStore) Load(ctx context.Context, sessionID string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load acks: %w", err)
	}
	return ids, nil
}

func (s *AckStore) Add(ctx context.Context, sessionID, orderID string) error {
	k := key(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe rds.Pipeliner) error {
		pipe.SAdd(ctx, k, orderID)
		if s.ttl > 0 {
			pipe.Expire(ctx, k, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store ack: %w", err)
	}
	return nil
}
