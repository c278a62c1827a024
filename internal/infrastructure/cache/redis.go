package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"jobflow/internal/config"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned by every operation when Redis could not be
// reached at start-up. Callers fall back to process-local state.
var ErrUnavailable = errors.New("redis unavailable")

type Redis struct {
	client *redis.Client
	logger *log.Logger

	warnedUnavailable atomic.Bool
}

// advanceGenerationScript moves a view scope's generation high-water mark
// forward and refuses to move it back.
var advanceGenerationScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '-1')
local gen = tonumber(ARGV[1])
if gen < cur then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

func NewRedis(cfg config.RedisConfig, logger *log.Logger) *Redis {
	if logger == nil {
		logger = log.Default()
	}

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Printf("[Cache] Redis unavailable, using process-local state: addr=%s err=%v", addr, err)
		_ = client.Close()
		return &Redis{client: nil, logger: logger}
	}

	logger.Printf("[Cache] Redis connected addr=%s", addr)
	return &Redis{client: client, logger: logger}
}

func (r *Redis) isUnavailable() bool {
	return r == nil || r.client == nil
}

func (r *Redis) warnUnavailableOnce(err error) {
	if r == nil || r.logger == nil {
		return
	}
	if r.warnedUnavailable.CompareAndSwap(false, true) {
		r.logger.Printf("[Cache] Redis error, using process-local state: %v", err)
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	if r.isUnavailable() {
		return ErrUnavailable
	}
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r.isUnavailable() {
		return nil
	}
	return r.client.Close()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if r.isUnavailable() {
		return ErrUnavailable
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return err
	}
	return nil
}

// SetIfNotExists sets key only when it is absent and reports whether it did.
func (r *Redis) SetIfNotExists(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	if r.isUnavailable() {
		return false, ErrUnavailable
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		r.warnUnavailableOnce(err)
		return false, err
	}
	return ok, nil
}

// AdvanceGeneration records gen as the latest generation of scope unless a
// newer one is already stored. It reports whether gen is current.
func (r *Redis) AdvanceGeneration(ctx context.Context, scope string, gen int64, ttl time.Duration) (bool, error) {
	if r.isUnavailable() {
		return false, ErrUnavailable
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	key := "viewscope:gen:" + scope
	res, err := advanceGenerationScript.Run(ctx, r.client, []string{key}, strconv.FormatInt(gen, 10), ttl.Milliseconds()).Int()
	if err != nil {
		r.warnUnavailableOnce(err)
		return false, err
	}
	return res == 1, nil
}
