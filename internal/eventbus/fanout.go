package eventbus

import "sync"

// DefaultQueueSize is WAITING_EVENTS_MAX from spec §4.E: the default
// per-subscriber queue capacity.
const DefaultQueueSize = 64

// Subscriber is one client session's bounded inbox, handed out by Bus.
type Subscriber struct {
	id     int
	q      *Queue
	notify func()
}

// ID identifies the subscriber within its Bus.
func (s *Subscriber) ID() int { return s.id }

// Drain removes and returns every event queued for this subscriber.
func (s *Subscriber) Drain() []Event { return s.q.Drain() }

// Len is the number of events currently queued.
func (s *Subscriber) Len() int { return s.q.Len() }

// Dropped is the running count of events dropped for this subscriber due
// to a full queue.
func (s *Subscriber) Dropped() uint64 { return s.q.Dropped() }

// Bus fans logical GPIO events out to every subscribed idle-mode session.
// Non-idle sessions are not subscribed and never see it: spec §4.E
// "events are only queued for sessions currently in idle mode".
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*Subscriber
}

// NewBus builds an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*Subscriber)}
}

// Subscribe registers a new subscriber with a bounded inbox of the given
// size (rounded up to a power of 2).
func (b *Bus) Subscribe(queueSize int) *Subscriber {
	return b.SubscribeNotify(queueSize, nil)
}

// SubscribeNotify is Subscribe plus a callback invoked synchronously from
// Publish every time an event is queued for this subscriber. Spec §4.E:
// "if the session is in idle, publish immediately flushes the session's
// queue into its output buffer and marks it for writing" — notify is how
// the daemon learns to do that flush without polling every subscriber.
func (b *Bus) SubscribeNotify(queueSize int, notify func()) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := &Subscriber{id: b.nextID, q: NewQueue(queueSize), notify: notify}
	b.subs[s.id] = s
	return s
}

// Unsubscribe removes a subscriber, e.g. when its session leaves idle mode
// or disconnects.
func (b *Bus) Unsubscribe(s *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s.id)
}

// Publish enqueues ev on every current subscriber, then runs each
// subscriber's notify callback (if any) after releasing the lock, so a
// callback that re-enters the Bus (Subscribe/Unsubscribe) cannot deadlock.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	var notifies []func()
	for _, s := range b.subs {
		s.q.Push(ev)
		if s.notify != nil {
			notifies = append(notifies, s.notify)
		}
	}
	b.mu.Unlock()

	for _, notify := range notifies {
		notify()
	}
}

// Subscribers reports the current subscriber count, for diagnostics.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
