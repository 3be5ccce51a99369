package engine

import "sync"

// courseLocks hands out one mutex per course id and forgets it once unused.
type courseLocks struct {
	mu   sync.Mutex
	held map[string]*courseLock
}

type courseLock struct {
	mu   sync.Mutex
	refs int
}

func newCourseLocks() *courseLocks {
	return &courseLocks{held: map[string]*courseLock{}}
}

func (l *courseLocks) lock(id string) func() {
	l.mu.Lock()
	cl, ok := l.held[id]
	if !ok {
		cl = &courseLock{}
		l.held[id] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}
