package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tripdesk/booking/internal/wizard"
)

const (
	keyPrefix     = "wizard:"
	bookingPrefix = "wizard:booking:"
)

// RedisStore keeps wizard sessions in Redis with a TTL.  Abandoned
// flows age out on their own; nothing abandoned before `succeeded`
// needs compensation, since an inert pending booking moves no money.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps a Redis client.  ttl <= 0 defaults to 24 hours,
// long enough to cover a user who wanders off mid-challenge and comes
// back the next morning.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("nil redis client passed to NewRedisStore")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, w wizard.Wizard) error {
	next := w
	next.Version = w.Version + 1
	blob, err := json.Marshal(next)
	if err != nil {
		return err
	}
	key := keyPrefix + w.ID

	// WATCH makes the version check and the write one atomic step: if
	// another process saves this wizard between the read and the EXEC,
	// the transaction aborts and the save is reported stale.
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
			// First save for this wizard.
		case err != nil:
			return err
		default:
			var stored wizard.Wizard
			if err := json.Unmarshal(cur, &stored); err != nil {
				return err
			}
			if stored.Version != w.Version {
				return ErrStaleSession
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, blob, s.ttl)
			if w.Intent != nil {
				pipe.Set(ctx, bookingPrefix+w.Intent.BookingID, w.ID, s.ttl)
			}
			return nil
		})
		return err
	}, key)
	if err == redis.TxFailedErr {
		return ErrStaleSession
	}
	return err
}

func (s *RedisStore) Load(ctx context.Context, id string) (wizard.Wizard, error) {
	blob, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return wizard.Wizard{}, ErrNotFound
	}
	if err != nil {
		return wizard.Wizard{}, err
	}
	var w wizard.Wizard
	if err := json.Unmarshal(blob, &w); err != nil {
		return wizard.Wizard{}, err
	}
	return w, nil
}

func (s *RedisStore) FindByBookingID(ctx context.Context, bookingID string) (wizard.Wizard, error) {
	id, err := s.client.Get(ctx, bookingPrefix+bookingID).Result()
	if err == redis.Nil {
		return wizard.Wizard{}, ErrNotFound
	}
	if err != nil {
		return wizard.Wizard{}, err
	}
	return s.Load(ctx, id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	w, err := s.Load(ctx, id)
	if err == nil && w.Intent != nil {
		_ = s.client.Del(ctx, bookingPrefix+w.Intent.BookingID).Err()
	}
	return s.client.Del(ctx, keyPrefix+id).Err()
}
