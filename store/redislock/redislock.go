// Package redislock implements leave.Locker on Redis so adjudications of
// the same balance are serialized across server processes.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// unlockScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another process is never released by us.
const unlockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type Options struct {
	TTL    time.Duration // lock expiry; 30s when zero
	Retry  time.Duration // poll interval while waiting; 50ms when zero
	Prefix string        // key prefix; "lock:" when empty

	// Token generates the value identifying the holder. uuid when nil.
	Token func() string
}

type Locker struct {
	client redis.Cmdable
	opts   Options
	log    *zap.Logger
}

var _ leave.Locker = (*Locker)(nil)

func New(client redis.Cmdable, opts Options, logger ...*zap.Logger) *Locker {
	log := zap.L()
	if len(logger) > 0 && logger[0] != nil {
		log = logger[0]
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.Retry <= 0 {
		opts.Retry = 50 * time.Millisecond
	}
	if opts.Prefix == "" {
		opts.Prefix = "lock:"
	}
	if opts.Token == nil {
		opts.Token = uuid.NewString
	}
	return &Locker{client: client, opts: opts, log: log.Named("redislock")}
}

// Lock polls SET NX PX until the key is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.opts.Prefix + key
	token := l.opts.Token()

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.opts.TTL).Result()
		if err != nil {
			return nil, generic.ErrInfrastructure.Wrap(fmt.Errorf("acquire lock %s: %w", k, err))
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.opts.Retry):
		}
	}

	return func() {
		// release must survive a cancelled request context
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.client.Eval(rctx, unlockScript, []string{k}, token).Err(); err != nil {
			l.log.Warn("failed to release lock", zap.String("key", k), zap.Error(err))
		}
	}, nil
}
