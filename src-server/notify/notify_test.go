package notify

import (
	"fmt"
	"testing"
)

func TestQueueDrain(t *testing.T) {
	q := NewQueue(10)
	q.Notify(LevelSuccess, "Attendee added successfully")
	q.Notify(LevelError, "Failed to add attendee")

	items := q.Drain()
	if len(items) != 2 {
		t.Fatalf("got %d notifications, want 2", len(items))
	}
	if items[0].Level != LevelSuccess || items[1].Message != "Failed to add attendee" {
		t.Errorf("unexpected order or content: %+v", items)
	}
	if q.Len() != 0 {
		t.Error("queue should be empty after drain")
	}
	if got := q.Drain(); got == nil || len(got) != 0 {
		t.Errorf("empty drain should return an empty non-nil slice, got %#v", got)
	}
}

func TestQueueCapacity(t *testing.T) {
	q := NewQueue(3)
	for i := 0; i < 5; i++ {
		q.Notify(LevelInfo, fmt.Sprintf("msg %d", i))
	}
	items := q.Drain()
	if len(items) != 3 {
		t.Fatalf("got %d notifications, want 3", len(items))
	}
	if items[0].Message != "msg 2" || items[2].Message != "msg 4" {
		t.Errorf("oldest should be dropped first: %+v", items)
	}
}

func TestHubPerSession(t *testing.T) {
	h := NewHub(5)
	h.Queue("a").Notify(LevelInfo, "for a")
	if h.Queue("b").Len() != 0 {
		t.Error("session b should not see a's notifications")
	}
	if h.Queue("a").Len() != 1 {
		t.Error("session a should keep its queue")
	}
	h.Forget("a")
	if h.Queue("a").Len() != 0 {
		t.Error("forgotten session should start fresh")
	}
}
