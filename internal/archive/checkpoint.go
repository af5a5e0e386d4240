package archive

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// checkpointKeyPrefix follows the <area>:<name> redis key convention.
// The run id is appended so a restarted process, whose in-memory event
// log starts over at sequence one, never resumes from a stale
// checkpoint left by a previous run.
const checkpointKeyPrefix = "archive:events:checkpoint:"

// RedisCheckpoint stores the last archived sequence number in redis,
// scoped to one ledger run.
type RedisCheckpoint struct {
	client *redis.Client
	key    string
}

// NewRedisCheckpoint returns a checkpoint backed by the given client
// for the given run.
func NewRedisCheckpoint(client *redis.Client, runID string) *RedisCheckpoint {
	return &RedisCheckpoint{client: client, key: checkpointKeyPrefix + runID}
}

// Last returns the stored sequence number; a missing key means zero.
func (c *RedisCheckpoint) Last(ctx context.Context) (uint64, error) {
	raw, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(raw, 10, 64)
}

// Set stores the sequence number.
func (c *RedisCheckpoint) Set(ctx context.Context, seq uint64) error {
	return c.client.Set(ctx, c.key, strconv.FormatUint(seq, 10), 0).Err()
}
