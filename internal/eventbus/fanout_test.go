package eventbus

import "testing"

func TestPublishFansOutToEverySubscriber(t *testing.T) {
	b := NewBus()
	s1 := b.Subscribe(DefaultQueueSize)
	s2 := b.Subscribe(DefaultQueueSize)

	b.Publish(Event{Line: 1, Kind: 1})

	if s1.Len() != 1 || s2.Len() != 1 {
		t.Fatalf("s1.Len()=%d s2.Len()=%d, want 1 each", s1.Len(), s2.Len())
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus()
	s := b.Subscribe(DefaultQueueSize)
	b.Unsubscribe(s)

	b.Publish(Event{Line: 1})

	if b.Subscribers() != 0 {
		t.Fatalf("Subscribers() = %d, want 0", b.Subscribers())
	}
	if s.Len() != 0 {
		t.Fatalf("unsubscribed subscriber should not receive further events, Len() = %d", s.Len())
	}
}

func TestSubscribeNotifyFiresOnPublish(t *testing.T) {
	b := NewBus()
	fired := 0
	s := b.SubscribeNotify(DefaultQueueSize, func() { fired++ })

	b.Publish(Event{Line: 1})
	b.Publish(Event{Line: 2})

	if fired != 2 {
		t.Fatalf("notify fired %d times, want 2", fired)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
}

func TestSubscribeWithoutNotifyNeverPanics(t *testing.T) {
	b := NewBus()
	b.Subscribe(DefaultQueueSize)
	b.Publish(Event{Line: 1}) // must not panic on a nil notify callback
}

func TestSubscribeAssignsDistinctIDs(t *testing.T) {
	b := NewBus()
	s1 := b.Subscribe(4)
	s2 := b.Subscribe(4)
	if s1.ID() == s2.ID() {
		t.Fatal("expected distinct subscriber IDs")
	}
}
