package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pomodoroai/pomod/internal/model"
)

func testEvent(id string) Event {
	return Started(&model.Session{ID: id, Label: "Work", Status: model.StatusRunning})
}

func recvOne(t *testing.T, sub *Subscription) (Event, uint64) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e, missed, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	return e, missed
}

func TestBus_DeliversInOrder(t *testing.T) {
	bus := NewBus(16)
	defer bus.Close()
	sub := bus.Subscribe()
	defer sub.Cancel()

	for i := 0; i < 5; i++ {
		bus.Publish(testEvent(fmt.Sprintf("ses-%d", i)))
	}

	for i := 0; i < 5; i++ {
		e, missed := recvOne(t, sub)
		if missed != 0 {
			t.Errorf("event %d: missed = %d, want 0", i, missed)
		}
		if want := fmt.Sprintf("ses-%d", i); e.Session.ID != want {
			t.Errorf("event %d: session = %q, want %q", i, e.Session.ID, want)
		}
	}
}

func TestBus_MultipleSubscribersSeeEveryEvent(t *testing.T) {
	bus := NewBus(16)
	defer bus.Close()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish(testEvent("ses-1"))
	bus.Publish(Stopped(&model.Session{ID: "ses-1", Status: model.StatusStopped}))

	for _, sub := range []*Subscription{a, b} {
		e1, _ := recvOne(t, sub)
		e2, _ := recvOne(t, sub)
		if e1.Type != TypeStarted || e2.Type != TypeStopped {
			t.Errorf("got %q then %q, want started then stopped", e1.Type, e2.Type)
		}
	}
}

func TestBus_SlowSubscriberDropsOldestAndReportsMissed(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()
	sub := bus.Subscribe()

	// 10 events into a 4-slot buffer: 6 oldest are dropped.
	for i := 0; i < 10; i++ {
		bus.Publish(testEvent(fmt.Sprintf("ses-%d", i)))
	}

	e, missed := recvOne(t, sub)
	if missed != 6 {
		t.Errorf("missed = %d, want 6", missed)
	}
	if e.Session.ID != "ses-6" {
		t.Errorf("first delivered = %q, want ses-6", e.Session.ID)
	}

	// The remaining events report no further loss.
	for _, want := range []string{"ses-7", "ses-8", "ses-9"} {
		e, missed := recvOne(t, sub)
		if missed != 0 {
			t.Errorf("missed = %d, want 0", missed)
		}
		if e.Session.ID != want {
			t.Errorf("delivered = %q, want %q", e.Session.ID, want)
		}
	}
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()
	_ = bus.Subscribe() // never reads

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(testEvent("ses-x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}

func TestBus_NextHonorsContext(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()
	sub := bus.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := sub.Next(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next on empty bus = %v, want deadline exceeded", err)
	}
}

func TestBus_CancelDrainsThenCloses(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()
	sub := bus.Subscribe()

	bus.Publish(testEvent("ses-1"))
	sub.Cancel()

	e, _ := recvOne(t, sub)
	if e.Session.ID != "ses-1" {
		t.Errorf("buffered event lost on cancel: got %q", e.Session.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, err := sub.Next(ctx)
	if !errors.Is(err, ErrBusClosed) {
		t.Errorf("Next after cancel = %v, want ErrBusClosed", err)
	}

	// Publishing after cancel must not reach the subscription.
	bus.Publish(testEvent("ses-2"))
	_, _, err = sub.Next(context.Background())
	if !errors.Is(err, ErrBusClosed) {
		t.Errorf("Next after cancel+publish = %v, want ErrBusClosed", err)
	}
}

func TestBus_CloseReleasesSubscribers(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe()
	bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, err := sub.Next(ctx)
	if !errors.Is(err, ErrBusClosed) {
		t.Errorf("Next after Close = %v, want ErrBusClosed", err)
	}
}

func TestEvent_Topics(t *testing.T) {
	s := &model.Session{ID: "ses-1"}
	tests := []struct {
		event Event
		want  string
	}{
		{Started(s), TopicStarted},
		{Tick(30, s), TopicTick},
		{Completed(s), TopicCompleted},
		{Stopped(s), TopicStopped},
	}
	for _, tt := range tests {
		if got := tt.event.Topic(); got != tt.want {
			t.Errorf("Topic(%q) = %q, want %q", tt.event.Type, got, tt.want)
		}
	}
}
