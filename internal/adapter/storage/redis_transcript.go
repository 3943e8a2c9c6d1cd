package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

const (
	transcriptKeyPrefix = "transcript:"
	transcriptTTL       = 24 * time.Hour
)

// RedisTranscript stores each session's turns as a JSON list.
type RedisTranscript struct {
	client *redis.Client
}

func NewRedisTranscript(client *redis.Client) *RedisTranscript {
	return &RedisTranscript{client: client}
}

func (r *RedisTranscript) Append(ctx context.Context, sessionID string, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		raw, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
		values = append(values, raw)
	}

	key := transcriptKeyPrefix + sessionID
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.Expire(ctx, key, transcriptTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append transcript %s: %w", sessionID, err)
	}
	return nil
}

func (r *RedisTranscript) Load(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	raws, err := r.client.LRange(ctx, transcriptKeyPrefix+sessionID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load transcript %s: %w", sessionID, err)
	}

	turns := make([]domain.Turn, 0, len(raws))
	for _, raw := range raws {
		var turn domain.Turn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}
