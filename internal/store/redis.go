package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/tartampluch/remindme/internal/config"
)

// changeMessage is published on every write so other processes can reconcile.
type changeMessage struct {
	Origin string `json:"origin"`
	Key    string `json:"key"`
}

// Redis keeps values as plain strings under a common prefix and announces
// writes on a pub/sub channel.
type Redis struct {
	client *redis.Client
	origin string
}

// NewRedis connects to the configured server.
func NewRedis(ctx context.Context, s config.StoreSettings) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     s.RedisAddr,
		Password: s.RedisPassword,
		DB:       s.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, config.ShutdownTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrStoreOpen, err)
	}
	return &Redis{client: client, origin: ulid.Make().String()}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, config.RedisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, config.RedisKeyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	r.publish(ctx, key)
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, config.RedisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreDelete, err)
	}
	r.publish(ctx, key)
	return nil
}

func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, config.RedisKeyPrefix+escapeGlob(prefix)+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), config.RedisKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreList, err)
	}
	slices.Sort(keys)
	return keys, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Watch subscribes to the change channel and re-reads every key announced
// by another process.
func (r *Redis) Watch(ctx context.Context) (<-chan Change, error) {
	sub := r.client.Subscribe(ctx, config.RedisChangeChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrStoreWatch, err)
	}

	out := make(chan Change, config.WatchBufferSize)
	go func() {
		log := slog.With(config.LogKeyComponent, config.CompWatcher, config.LogKeyBackend, config.BackendRedis)
		log.Debug(config.MsgWatchStart)
		defer func() {
			_ = sub.Close()
			close(out)
			log.Debug(config.MsgWatchStop)
		}()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				change, ok := r.handleMessage(ctx, log, msg.Payload)
				if !ok {
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *Redis) handleMessage(ctx context.Context, log *slog.Logger, payload string) (Change, bool) {
	var m changeMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		log.Warn(config.MsgWatchError, config.LogKeyError, err)
		return Change{}, false
	}
	if m.Origin == r.origin {
		return Change{}, false
	}

	log.Debug(config.MsgWatchEvent, config.LogKeyKey, m.Key)
	v, err := r.Get(ctx, m.Key)
	switch {
	case errors.Is(err, ErrNotFound):
		return Change{Key: m.Key}, true
	case err != nil:
		log.Warn(config.MsgWatchError, config.LogKeyError, err)
		return Change{}, false
	}
	return Change{Key: m.Key, Value: v}, true
}

// publish is best effort: a lost announcement only delays reconciliation.
func (r *Redis) publish(ctx context.Context, key string) {
	payload, _ := json.Marshal(changeMessage{Origin: r.origin, Key: key})
	if err := r.client.Publish(ctx, config.RedisChangeChannel, payload).Err(); err != nil {
		slog.Warn(config.MsgWatchError,
			config.LogKeyComponent, config.CompStore,
			config.LogKeyError, err)
	}
}

// escapeGlob protects the SCAN MATCH metacharacters.
func escapeGlob(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`).Replace(s)
}
