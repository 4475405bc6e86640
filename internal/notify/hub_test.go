package notify_test

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/xzeeeeen/HM/internal/notify"
)

func recv(t *testing.T, ch <-chan notify.Notification) notify.Notification {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
	}
	return notify.Notification{}
}

func TestHub_DeliversToLearnerOnly(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := notify.NewHub()
	defer hub.Close()

	mine, cancelMine := hub.Subscribe("u1")
	defer cancelMine()
	other, cancelOther := hub.Subscribe("u2")
	defer cancelOther()

	_ = hub.Notify(t.Context(), notify.Notification{ID: "n1", LearnerID: "u1"})

	if got := recv(t, mine); got.ID != "n1" {
		t.Errorf("received %q, want n1", got.ID)
	}
	select {
	case n := <-other:
		t.Errorf("other learner received %+v", n)
	default:
	}
}

func TestHub_FanOutPreservesOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := notify.NewHub()
	defer hub.Close()

	a, cancelA := hub.Subscribe("u1")
	defer cancelA()
	b, cancelB := hub.Subscribe("u1")
	defer cancelB()

	for _, id := range []string{"first", "second"} {
		_ = hub.Notify(t.Context(), notify.Notification{ID: id, LearnerID: "u1"})
	}
	for _, ch := range []<-chan notify.Notification{a, b} {
		if got := recv(t, ch).ID; got != "first" {
			t.Errorf("first = %q", got)
		}
		if got := recv(t, ch).ID; got != "second" {
			t.Errorf("second = %q", got)
		}
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := notify.NewHub()
	defer hub.Close()

	ch, cancel := hub.Subscribe("u1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 100 {
			_ = hub.Notify(t.Context(), notify.Notification{LearnerID: "u1"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify() blocked on a full subscriber")
	}

	n := 0
	for len(ch) > 0 {
		<-ch
		n++
	}
	if n == 0 || n >= 100 {
		t.Errorf("buffered %d notifications, want some but not all", n)
	}
}

func TestHub_CancelClosesChannel(t *testing.T) {
	hub := notify.NewHub()

	ch, cancel := hub.Subscribe("u1")
	if hub.Subscribers("u1") != 1 {
		t.Fatalf("Subscribers() = %d, want 1", hub.Subscribers("u1"))
	}
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	if hub.Subscribers("u1") != 0 {
		t.Errorf("Subscribers() = %d after cancel, want 0", hub.Subscribers("u1"))
	}
}

func TestHub_Close(t *testing.T) {
	hub := notify.NewHub()
	ch, cancel := hub.Subscribe("u1")
	hub.Close()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("Close() should close subscriber channels")
	}

	late, _ := hub.Subscribe("u1")
	if _, ok := <-late; ok {
		t.Error("subscribing to a closed hub should yield a closed channel")
	}
}
