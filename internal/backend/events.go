package backend

import "sync"

// Broadcaster fans auth events out to subscribers. The zero value is ready to use.
//
// Publish holds the read lock while calling subscribers, and Unsubscribe takes
// the write lock, so once Unsubscribe returns the callback is never invoked
// again. Callbacks must not block or call back into the Broadcaster.
type Broadcaster struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]func(AuthEvent)
}

type Subscription struct {
	b    *Broadcaster
	id   uint64
	once sync.Once
}

func (b *Broadcaster) Subscribe(fn func(AuthEvent)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[uint64]func(AuthEvent))
	}
	b.next++
	b.subs[b.next] = fn
	return &Subscription{b: b, id: b.next}
}

func (b *Broadcaster) Publish(ev AuthEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.subs {
		fn(ev)
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Unsubscribe is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.b == nil {
		return
	}
	s.once.Do(func() {
		s.b.mu.Lock()
		delete(s.b.subs, s.id)
		s.b.mu.Unlock()
	})
}
