package identity

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is the small slice of a key-value store the cache needs. RedisKV adapts
// a go-redis client; tests use an in-memory fake.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// ErrCacheMiss is returned by KV.Get when the key is absent.
var ErrCacheMiss = errors.New("identity: cache miss")

// RedisKV adapts a go-redis client to the KV interface.
type RedisKV struct {
	Client redis.Cmdable
}

func (r RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

func (r RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

// CachedValidator decorates a Validator with a short-TTL cache keyed by
// normalized RUT. Repeated submissions of the same document (retried queue
// deliveries, re-uploads) skip the registry round trip. Cache failures fall
// through to the underlying validator; they never fail a lookup.
type CachedValidator struct {
	next   Validator
	kv     KV
	ttl    time.Duration
	logger *slog.Logger
}

var _ Validator = (*CachedValidator)(nil)

// NewCachedValidator wraps next. A nil kv disables caching entirely.
func NewCachedValidator(next Validator, kv KV, ttl time.Duration, logger *slog.Logger) *CachedValidator {
	return &CachedValidator{next: next, kv: kv, ttl: ttl, logger: logger}
}

func (v *CachedValidator) Validate(ctx context.Context, idNumber, fullName, birthDate string) (Validation, error) {
	if v.kv == nil {
		return v.next.Validate(ctx, idNumber, fullName, birthDate)
	}

	key := "veridoc:identity:" + NormalizeRUT(idNumber)
	if cached, ok := v.lookup(ctx, key); ok {
		return cached, nil
	}

	result, err := v.next.Validate(ctx, idNumber, fullName, birthDate)
	if err != nil {
		return Validation{}, err
	}
	v.store(ctx, key, result)
	return result, nil
}

func (v *CachedValidator) ValidateFromFields(ctx context.Context, fields map[string]string) (Validation, error) {
	idNumber, fullName, birthDate, reason := DeriveIdentity(fields)
	if reason != "" {
		return Validation{
			Valid:   false,
			Details: map[string]string{"error": reason},
			Source:  "boostr",
		}, nil
	}
	return v.Validate(ctx, idNumber, fullName, birthDate)
}

func (v *CachedValidator) lookup(ctx context.Context, key string) (Validation, bool) {
	raw, err := v.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) && v.logger != nil {
			v.logger.WarnContext(ctx, "identity cache read failed", "error", err)
		}
		return Validation{}, false
	}
	var cached Validation
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return Validation{}, false
	}
	return cached, true
}

func (v *CachedValidator) store(ctx context.Context, key string, result Validation) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := v.kv.Set(ctx, key, string(raw), v.ttl); err != nil && v.logger != nil {
		v.logger.WarnContext(ctx, "identity cache write failed", "error", err)
	}
}
