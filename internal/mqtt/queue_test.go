package mqtt

import "testing"

func TestOfflineQueueEmptyDrain(t *testing.T) {
	q := newOfflineQueue(10)
	got, dropped := q.drain()
	if got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
	if dropped != 0 {
		t.Errorf("expected 0 dropped, got %d", dropped)
	}
}

func TestOfflineQueueOrderedDrain(t *testing.T) {
	q := newOfflineQueue(10)
	for i := 0; i < 5; i++ {
		q.enqueue(queuedMsg{topic: TopicTransitions, payload: []byte{byte(i)}})
	}

	got, dropped := q.drain()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	if dropped != 0 {
		t.Errorf("expected 0 dropped, got %d", dropped)
	}
	for i := range got {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: expected payload %d, got %d", i, i, got[i].payload[0])
		}
	}

	if again, _ := q.drain(); again != nil {
		t.Errorf("expected nil from second drain, got %d items", len(again))
	}
}

func TestOfflineQueueEvictsOldest(t *testing.T) {
	q := newOfflineQueue(5)
	for i := 0; i < 8; i++ {
		q.enqueue(queuedMsg{payload: []byte{byte(i)}})
	}

	got, dropped := q.drain()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	if dropped != 3 {
		t.Errorf("expected 3 dropped, got %d", dropped)
	}
	for i := range got {
		if want := byte(i + 3); got[i].payload[0] != want {
			t.Errorf("item %d: expected payload %d, got %d", i, want, got[i].payload[0])
		}
	}
}

func TestOfflineQueueDroppedResetsAfterDrain(t *testing.T) {
	q := newOfflineQueue(2)
	for i := 0; i < 4; i++ {
		q.enqueue(queuedMsg{payload: []byte{byte(i)}})
	}
	if _, dropped := q.drain(); dropped != 2 {
		t.Fatalf("first drain: expected 2 dropped, got %d", dropped)
	}

	q.enqueue(queuedMsg{payload: []byte{9}})
	got, dropped := q.drain()
	if dropped != 0 {
		t.Errorf("second drain: expected 0 dropped, got %d", dropped)
	}
	if len(got) != 1 || got[0].payload[0] != 9 {
		t.Errorf("second drain: got %+v", got)
	}
}

func TestOfflineQueueReusedAcrossCycles(t *testing.T) {
	q := newOfflineQueue(5)

	for i := 0; i < 3; i++ {
		q.enqueue(queuedMsg{payload: []byte{byte(i)}})
	}
	if got, _ := q.drain(); len(got) != 3 {
		t.Fatalf("cycle 1: expected 3 items, got %d", len(got))
	}

	for i := 10; i < 14; i++ {
		q.enqueue(queuedMsg{payload: []byte{byte(i)}})
	}
	got, _ := q.drain()
	if len(got) != 4 {
		t.Fatalf("cycle 2: expected 4 items, got %d", len(got))
	}
	for i, msg := range got {
		if want := byte(10 + i); msg.payload[0] != want {
			t.Errorf("cycle 2 item %d: expected %d, got %d", i, want, msg.payload[0])
		}
	}
}

func TestOfflineQueueLen(t *testing.T) {
	q := newOfflineQueue(10)
	if q.len() != 0 {
		t.Errorf("expected len 0, got %d", q.len())
	}

	q.enqueue(queuedMsg{topic: TopicSystem})
	q.enqueue(queuedMsg{topic: TopicSystem})
	if q.len() != 2 {
		t.Errorf("expected len 2, got %d", q.len())
	}

	q.drain()
	if q.len() != 0 {
		t.Errorf("expected len 0 after drain, got %d", q.len())
	}
}

func TestOfflineQueuePreservesFields(t *testing.T) {
	q := newOfflineQueue(10)
	q.enqueue(queuedMsg{
		topic:    TopicSystem,
		payload:  []byte(`{"system":{"event":"SHUTDOWN"}}`),
		qos:      1,
		retained: true,
	})

	got, _ := q.drain()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].topic != TopicSystem {
		t.Errorf("topic: got %s, want %s", got[0].topic, TopicSystem)
	}
	if string(got[0].payload) != `{"system":{"event":"SHUTDOWN"}}` {
		t.Errorf("payload: got %s", got[0].payload)
	}
	if got[0].qos != 1 {
		t.Errorf("qos: got %d, want 1", got[0].qos)
	}
	if !got[0].retained {
		t.Error("retained flag lost")
	}
}
