package lock

import (
	"context"
	"sync"
	"time"

	idgen "github.com/allanhy/tallysight-sub000/internal/platform/id"
)

// LocalLocker guards runs within a single process.
type LocalLocker struct {
	mu     sync.Mutex
	leases map[string]localLease
	ids    idgen.Generator
	now    func() time.Time
}

type localLease struct {
	token     string
	expiresAt time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		leases: make(map[string]localLease),
		ids:    idgen.NewPrefixedGenerator("lease"),
		now:    time.Now,
	}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	token, err := l.ids.NewID()
	if err != nil {
		return noopRelease, false, err
	}

	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.leases[key]; ok && current.expiresAt.After(now) {
		return noopRelease, false, nil
	}
	l.leases[key] = localLease{token: token, expiresAt: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if current, ok := l.leases[key]; ok && current.token == token {
			delete(l.leases, key)
		}
		return nil
	}, true, nil
}
