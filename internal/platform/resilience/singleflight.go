package resilience

import (
	"fmt"
	"sync"
)

// SingleFlight deduplicates concurrent calls for the same key. A panicking call
// is reported as an error to every waiter.
type SingleFlight struct {
	mu    sync.Mutex
	calls map[string]*call
}

type call struct {
	wg  sync.WaitGroup
	val any
	err error
}

func (g *SingleFlight) Do(key string, fn func() (any, error)) (any, error, bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*call)
	}

	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}

	c := &call{}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				c.err = fmt.Errorf("singleflight %q panicked: %v", key, rec)
			}
			c.wg.Done()

			g.mu.Lock()
			delete(g.calls, key)
			g.mu.Unlock()
		}()
		c.val, c.err = fn()
	}()

	return c.val, c.err, false
}
