package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

const keyPrefix = "famorg:"

// Redis is a durable Queue backed by Redis lists (RPUSH / BLPOP).
type Redis struct {
	rdb         *goredis.Client
	pollTimeout time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Attempts int
	Backoff  time.Duration
}

// Connect dials Redis, retrying the initial ping up to opts.Attempts times.
func Connect(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}
	try := 0
	b := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(opts.Backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		try++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("broker not ready", "addr", opts.Addr, "attempt", try, "of", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping after %d attempts: %w", try, err)
	}

	logger.Info("connected to broker", "addr", opts.Addr)
	return &Redis{rdb: rdb, pollTimeout: 5 * time.Second}, nil
}

func (r *Redis) Publish(ctx context.Context, queue string, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := r.rdb.RPush(ctx, keyPrefix+queue, raw).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

func (r *Redis) Receive(ctx context.Context, queue string) (Message, error) {
	for {
		res, err := r.rdb.BLPop(ctx, r.pollTimeout, keyPrefix+queue).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if ctx.Err() != nil {
			return Message{}, ctx.Err()
		}
		if errors.Is(err, goredis.ErrClosed) {
			return Message{}, ErrClosed
		}
		if err != nil {
			return Message{}, fmt.Errorf("receive from %s: %w", queue, err)
		}
		// res is [key, value].
		return decode([]byte(res[1]))
	}
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func decode(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return msg, nil
}
