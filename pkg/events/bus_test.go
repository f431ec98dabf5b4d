package events

import (
	"sync"
	"testing"

	"github.com/littlemud/littlemud/pkg/gamedb"
)

// mockSubscriber implements Subscriber for testing.
type mockSubscriber struct {
	mu       sync.Mutex
	events   []Event
	isClosed bool
}

func (m *mockSubscriber) Receive(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockSubscriber) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isClosed
}

func (m *mockSubscriber) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Event, len(m.events))
	copy(cp, m.events)
	return cp
}

func TestBusEmit(t *testing.T) {
	db := gamedb.NewDatabase()
	player, err := db.NewPlayer("Alice", "alice", "secret")
	if err != nil {
		t.Fatal(err)
	}

	bus := NewBus()
	sub := &mockSubscriber{}
	bus.Subscribe(sub)

	bus.Emit(Event{Type: EvConnect, Player: player, Host: "example.com"})

	events := sub.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Player != player {
		t.Errorf("expected player %v, got %v", player, events[0].Player)
	}
	if events[0].Type != EvConnect {
		t.Errorf("expected type EvConnect, got %v", events[0].Type)
	}
}

func TestBusOrder(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe(SubscriberFunc(func(ev Event) { got = append(got, "first:"+ev.Text) }))
	bus.Subscribe(SubscriberFunc(func(ev Event) { got = append(got, "second:"+ev.Text) }))

	bus.Emit(Event{Type: EvDisconnect, Text: "x"})

	if len(got) != 2 || got[0] != "first:x" || got[1] != "second:x" {
		t.Errorf("unexpected delivery %q", got)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{}
	other := &mockSubscriber{}

	bus.Subscribe(sub)
	bus.Subscribe(other)
	bus.Unsubscribe(sub)
	bus.Unsubscribe(&mockSubscriber{})

	bus.Emit(Event{Type: EvDisconnect, Text: "should not arrive"})

	if len(sub.Events()) != 0 {
		t.Error("expected no events after unsubscribe")
	}
	if len(other.Events()) != 1 {
		t.Error("remaining subscriber should still receive events")
	}
}

func TestBusClosedSubscriberSkipped(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{isClosed: true}

	bus.Subscribe(sub)
	bus.Emit(Event{Type: EvRedirect, Text: "no delivery"})

	if len(sub.Events()) != 0 {
		t.Error("closed subscriber should not receive events")
	}
}

func TestBusCleanup(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(&mockSubscriber{})
	bus.Subscribe(&mockSubscriber{isClosed: true})
	bus.Subscribe(&mockSubscriber{isClosed: true})

	bus.Cleanup()

	if bus.Len() != 1 {
		t.Errorf("expected 1 active subscriber, got %d", bus.Len())
	}
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		t    EventType
		want string
	}{
		{EvConnect, "connect"},
		{EvDisconnect, "disconnect"},
		{EvRedirect, "redirect"},
		{EventType(999), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.t, got, tt.want)
		}
	}
}
