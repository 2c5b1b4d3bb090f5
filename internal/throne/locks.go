package throne

import "sync"

// chatLocks hands out one mutex per chat id. Entries are dropped once no
// goroutine holds or waits on them.
type chatLocks struct {
	mu    sync.Mutex
	locks map[string]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

func newChatLocks() *chatLocks {
	return &chatLocks{locks: map[string]*chatLock{}}
}

func (l *chatLocks) lock(chatID string) (unlock func()) {
	l.mu.Lock()
	cl, ok := l.locks[chatID]
	if !ok {
		cl = &chatLock{}
		l.locks[chatID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, chatID)
		}
		l.mu.Unlock()
	}
}

func (l *chatLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
