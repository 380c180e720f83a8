package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bed-booking-service/config"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

func SetupClient(cfg *config.RedisConfig) *goredislib.Client {
	client := goredislib.NewClient(&goredislib.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis ping failed, continuing without a warm connection: %v", err)
	}

	return client
}

// Lease is a redsync backed mutex that is either acquired at once or skipped.
type Lease struct {
	rs     *redsync.Redsync
	name   string
	expiry time.Duration
}

func NewLease(client *goredislib.Client, name string, expiry time.Duration) *Lease {
	return &Lease{
		rs:     redsync.New(goredis.NewPool(client)),
		name:   name,
		expiry: expiry,
	}
}

// TryAcquire returns ok=false without error when another holder owns the lease.
func (l *Lease) TryAcquire(ctx context.Context) (release func(), ok bool, err error) {
	mutex := l.rs.NewMutex(l.name, redsync.WithExpiry(l.expiry), redsync.WithTries(1))
	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return func() {}, false, nil
		}
		return func() {}, false, err
	}

	return func() {
		// a fresh context so an expired caller context still frees the lease
		unlockCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = mutex.UnlockContext(unlockCtx)
	}, true, nil
}
