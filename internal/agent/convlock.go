package agent

import "sync"

// convLocks serializes runs that share a conversation id within this process.
// Entries are dropped once no run holds or waits on them.
type convLocks struct {
	mu    sync.Mutex
	locks map[string]*convLock
}

type convLock struct {
	mu   sync.Mutex
	refs int
}

func newConvLocks() *convLocks {
	return &convLocks{locks: make(map[string]*convLock)}
}

// Lock blocks until key is free and returns the release func. An empty key is not locked.
func (c *convLocks) Lock(key string) func() {
	if key == "" {
		return func() {}
	}

	c.mu.Lock()
	l, ok := c.locks[key]
	if !ok {
		l = &convLock{}
		c.locks[key] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, key)
		}
		c.mu.Unlock()
	}
}

func (c *convLocks) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}
