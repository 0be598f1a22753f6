package service

import (
	"context"
	"hash/fnv"
	"time"

	dErrors "passport/pkg/domain-errors"
)

// numLockShards spreads record locks over a fixed set of slots so unrelated
// records rarely contend and memory stays bounded.
const numLockShards = 128

// recordLocks serializes read-modify-write cycles on a single record within
// this process. Each shard is a one-slot semaphore so waiting can honour
// context cancellation and the lock timeout. Cross-process races are caught
// by the store's version check.
type recordLocks struct {
	shards [numLockShards]chan struct{}
}

func newRecordLocks() *recordLocks {
	l := &recordLocks{}
	for i := range l.shards {
		l.shards[i] = make(chan struct{}, 1)
	}
	return l
}

// acquire blocks until the lock for key is held, ctx ends, or timeout passes.
// The returned func releases the lock.
func (l *recordLocks) acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled before acquiring lock")
	}
	shard := l.shards[shardFor(key)]

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case shard <- struct{}{}:
		return func() { <-shard }, nil
	case <-ctx.Done():
		return nil, translateStoreErr(ctx.Err(), "lock")
	case <-timer.C:
		return nil, dErrors.New(dErrors.CodeUnavailable, "timed out waiting for record lock")
	}
}

func shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % numLockShards)
}

func itemLockKey(s string) string     { return "item:" + s }
func passportLockKey(s string) string { return "passport:" + s }
