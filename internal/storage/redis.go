package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisKeyRoot = "coursekeep"

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

type redisSubstrate struct {
	client *redis.Client
	prefix string
}

// NewRedis stores every key under "coursekeep:<namespace>:" on the given client.
func NewRedis(client *redis.Client, namespace string) Substrate {
	if namespace == "" {
		namespace = "default"
	}
	return &redisSubstrate{
		client: client,
		prefix: fmt.Sprintf("%s:%s:", redisKeyRoot, namespace),
	}
}

func (r *redisSubstrate) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", r.wrap(err)
	}
	return value, nil
}

func (r *redisSubstrate) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return r.wrap(err)
	}
	return nil
}

func (r *redisSubstrate) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return r.wrap(err)
	}
	return nil
}

func (r *redisSubstrate) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := r.scan(ctx, globEscaper.Replace(r.prefix+prefix)+"*")
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(keys))
	for _, key := range keys {
		result = append(result, strings.TrimPrefix(key, r.prefix))
	}
	sort.Strings(result)
	return result, nil
}

func (r *redisSubstrate) Usage(ctx context.Context) (int64, error) {
	keys, err := r.scan(ctx, globEscaper.Replace(r.prefix)+"*")
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := r.client.Pipeline()
	lengths := make([]*redis.IntCmd, len(keys))
	for i, key := range keys {
		lengths[i] = pipe.StrLen(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, r.wrap(err)
	}

	var total int64
	for i, key := range keys {
		total += int64(len(key)-len(r.prefix)) + lengths[i].Val()
	}
	return total, nil
}

func (r *redisSubstrate) scan(ctx context.Context, match string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, r.wrap(err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (r *redisSubstrate) wrap(err error) error {
	if isOutOfMemory(err) {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
