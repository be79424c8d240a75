package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"TradeGate/internal/domain/models"
)

// RedisStore persists the last-known cohort signal in Redis for
// deployments where instances restart on different hosts. SET of a whole
// record is atomic on the server, and the staleness ceiling doubles as the
// key TTL so an expired record is simply gone.
type RedisStore struct {
	client       *redis.Client
	prefix       string
	stalenessMax time.Duration
	now          func() time.Time
}

// NewRedisStore connects and pings the server; a dead Redis is a startup
// failure, not something to discover on the first bar.
func NewRedisStore(addr, password string, db int, stalenessMax time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{
		client:       client,
		prefix:       "tradegate:cohort",
		stalenessMax: stalenessMax,
		now:          time.Now,
	}, nil
}

func (s *RedisStore) key(symbol string) string {
	return fmt.Sprintf("%s:%s", s.prefix, symbol)
}

// Save stores the record with the staleness ceiling as TTL.
func (s *RedisStore) Save(ctx context.Context, sig models.CohortSignal) error {
	rec := persistedSignal{SavedAt: s.now().UTC(), Signal: sig}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal cohort state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sig.Symbol), b, s.stalenessMax).Err(); err != nil {
		return fmt.Errorf("redis set cohort state: %w", err)
	}
	return nil
}

// Load returns the stored signal when present and fresh.
func (s *RedisStore) Load(ctx context.Context, symbol string) (models.CohortSignal, bool, error) {
	b, err := s.client.Get(ctx, s.key(symbol)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.CohortSignal{}, false, nil
		}
		return models.CohortSignal{}, false, fmt.Errorf("redis get cohort state: %w", err)
	}
	var rec persistedSignal
	if err := json.Unmarshal(b, &rec); err != nil {
		return models.CohortSignal{}, false, nil
	}
	if s.stalenessMax > 0 && s.now().Sub(rec.SavedAt) > s.stalenessMax {
		return models.CohortSignal{}, false, nil
	}
	return rec.Signal.Sanitized(), true, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error { return s.client.Close() }
