package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	// Key prefix for per-lobby entry sets
	entriesKeyPrefix = "entries:"
)

// Config holds configuration for the Redis ledger
type Config struct {
	// Redis client
	RedisClient *redis.Client
}

// redisLedger implements the Ledger interface using Redis
type redisLedger struct {
	client *redis.Client
}

// NewRedis creates a new Redis-backed entry ledger
func NewRedis(cfg *Config) (*redisLedger, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	// Test connection
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisLedger{
		client: cfg.RedisClient,
	}, nil
}

// MarkPaid records a settled entry fee
func (l *redisLedger) MarkPaid(ctx context.Context, input *MarkPaidInput) error {
	if input == nil || input.LobbyCode == "" || input.PlayerID == "" {
		return errors.New("input, lobby code and player ID cannot be empty")
	}

	key := fmt.Sprintf("%s%s", entriesKeyPrefix, input.LobbyCode)
	if err := l.client.SAdd(ctx, key, input.PlayerID).Err(); err != nil {
		return fmt.Errorf("failed to mark player paid: %w", err)
	}
	return nil
}

// HasPaid checks for a settled entry fee
func (l *redisLedger) HasPaid(ctx context.Context, input *HasPaidInput) (bool, error) {
	if input == nil || input.LobbyCode == "" || input.PlayerID == "" {
		return false, errors.New("input, lobby code and player ID cannot be empty")
	}

	key := fmt.Sprintf("%s%s", entriesKeyPrefix, input.LobbyCode)
	ok, err := l.client.SIsMember(ctx, key, input.PlayerID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check payment: %w", err)
	}
	return ok, nil
}

// PaidPlayers lists every settled entry for a lobby
func (l *redisLedger) PaidPlayers(ctx context.Context, input *PaidPlayersInput) (*PaidPlayersOutput, error) {
	if input == nil || input.LobbyCode == "" {
		return nil, errors.New("input and lobby code cannot be empty")
	}

	key := fmt.Sprintf("%s%s", entriesKeyPrefix, input.LobbyCode)
	ids, err := l.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list paid players: %w", err)
	}
	return &PaidPlayersOutput{PlayerIDs: ids}, nil
}
