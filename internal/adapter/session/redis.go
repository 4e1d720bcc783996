package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"nexiro/internal/domain"
)

const keyPrefix = "nexiro:account:"

// redisCmdable is the subset of *redis.Client the store needs.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps the last CreditAccount seen for each identity as JSON
// with a sliding TTL.
type RedisStore struct {
	rdb redisCmdable
	ttl time.Duration
}

func NewRedisStore(rdb redisCmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, identity string) (domain.CreditAccount, bool, error) {
	data, err := s.rdb.Get(ctx, accountKey(identity)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CreditAccount{}, false, nil
	}
	if err != nil {
		return domain.CreditAccount{}, false, fmt.Errorf("load account snapshot: %w", err)
	}
	var account domain.CreditAccount
	if err := json.Unmarshal(data, &account); err != nil {
		// a corrupt snapshot is treated as a miss; the ledger is authoritative
		return domain.CreditAccount{}, false, nil
	}
	return account, true, nil
}

func (s *RedisStore) Save(ctx context.Context, identity string, account domain.CreditAccount) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("encode account snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, accountKey(identity), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save account snapshot: %w", err)
	}
	return nil
}

func accountKey(identity string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(identity))
}

var _ domain.AccountStore = (*RedisStore)(nil)
