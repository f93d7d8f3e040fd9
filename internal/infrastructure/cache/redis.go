package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis remembers which postings were already routed into the approval
// flow. When the server is unreachable every operation degrades to a
// no-op so ingestion keeps working without the dedupe guard.
type Redis struct {
	client *redis.Client
	logger *log.Logger
	ttl    time.Duration

	warnedUnavailable atomic.Bool
}

type Options struct {
	Host     string
	Port     string
	Password string
	TTL      time.Duration
}

func NewRedis(opts Options, logger *log.Logger) *Redis {
	host := opts.Host
	if host == "" {
		host = "localhost"
	}
	port := opts.Port
	if port == "" {
		port = "6379"
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		if logger != nil {
			logger.Printf("[Cache] Redis unavailable, bypassing dedupe: %v", err)
		}
		_ = client.Close()
		return &Redis{client: nil, logger: logger, ttl: ttl}
	}

	return &Redis{client: client, logger: logger, ttl: ttl}
}

func (r *Redis) isUnavailable() bool {
	return r == nil || r.client == nil
}

func (r *Redis) warnUnavailableOnce(err error) {
	if r == nil {
		return
	}
	if r.logger == nil {
		return
	}
	if r.warnedUnavailable.CompareAndSwap(false, true) {
		if err != nil {
			r.logger.Printf("[Cache] Redis unavailable, bypassing dedupe: %v", err)
			return
		}
		r.logger.Printf("[Cache] Redis unavailable, bypassing dedupe")
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	if r.isUnavailable() {
		return errors.New("redis unavailable")
	}
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r.isUnavailable() {
		return nil
	}
	return r.client.Close()
}

// Seen reports whether a posting with the same content hash was
// already ingested. An unavailable server always reports false.
func (r *Redis) Seen(ctx context.Context, title, description string) (bool, error) {
	if r.isUnavailable() {
		return false, nil
	}
	n, err := r.client.Exists(ctx, contentKey(title, description)).Result()
	if err != nil {
		r.warnUnavailableOnce(err)
		return false, nil
	}
	return n > 0, nil
}

func (r *Redis) MarkSeen(ctx context.Context, title, description string) error {
	if r.isUnavailable() {
		return nil
	}
	if err := r.client.Set(ctx, contentKey(title, description), "1", r.ttl).Err(); err != nil {
		r.warnUnavailableOnce(err)
	}
	return nil
}

func contentKey(title, description string) string {
	sum := sha1.Sum([]byte(title + "\n" + description))
	return "opportunities:seen:" + hex.EncodeToString(sum[:])
}
