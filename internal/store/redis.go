package store

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Connect parses redisURL and pings the server, retrying with exponential
// backoff for up to maxWait.
func Connect(ctx context.Context, redisURL string, maxWait time.Duration) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = maxWait
	ping := func() error {
		err := c.Ping(ctx).Err()
		if err != nil {
			log.Warn().Err(err).Str("addr", opt.Addr).Msg("redis not reachable yet")
		}
		return err
	}
	if err := backoff.Retry(ping, backoff.WithContext(b, ctx)); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
