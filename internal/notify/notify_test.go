package notify_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xzeeeeen/HM/internal/notify"
)

func TestQuizResult(t *testing.T) {
	tests := []struct {
		name        string
		percentage  int
		passed      bool
		wantKind    notify.Kind
		wantMessage string
	}{
		{"pass", 85, true, notify.KindPass, "Selamat! Anda lulus kuis dengan skor 85%."},
		{"fail", 60, false, notify.KindFail, "Skor Anda 60%. Coba lagi untuk melanjutkan."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := notify.QuizResult("u1", "1", "101", "q-1", tt.percentage, 80, tt.passed)
			if n.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", n.Kind, tt.wantKind)
			}
			if n.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", n.Message, tt.wantMessage)
			}
			if n.ID == "" || n.CreatedAt.IsZero() {
				t.Error("notification should carry an id and a timestamp")
			}
			if n.Percentage != tt.percentage || n.PassingScore != 80 {
				t.Errorf("Percentage/PassingScore = %d/%d", n.Percentage, n.PassingScore)
			}
		})
	}
}

func TestQuizResult_UniqueIDs(t *testing.T) {
	a := notify.QuizResult("u1", "1", "101", "q-1", 50, 80, false)
	b := notify.QuizResult("u1", "1", "101", "q-1", 50, 80, false)
	if a.ID == b.ID {
		t.Error("each notification should get its own id")
	}
}

func TestMemoryNotifier(t *testing.T) {
	m := notify.NewMemoryNotifier()
	_ = m.Notify(t.Context(), notify.Notification{ID: "1"})
	_ = m.Notify(t.Context(), notify.Notification{ID: "2"})

	sent := m.Sent()
	if len(sent) != 2 || sent[0].ID != "1" || sent[1].ID != "2" {
		t.Errorf("Sent() = %+v", sent)
	}
	sent[0].ID = "changed"
	if m.Sent()[0].ID != "1" {
		t.Error("Sent() should return a copy")
	}
}

type failingNotifier struct{ err error }

func (f failingNotifier) Notify(context.Context, notify.Notification) error { return f.err }

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	a := notify.NewMemoryNotifier()
	b := notify.NewMemoryNotifier()
	errBoom := errors.New("boom")

	multi := notify.Multi{a, failingNotifier{errBoom}, nil, b}
	err := multi.Notify(t.Context(), notify.Notification{ID: "x"})
	if !errors.Is(err, errBoom) {
		t.Errorf("Notify() error = %v, want %v", err, errBoom)
	}
	if len(a.Sent()) != 1 || len(b.Sent()) != 1 {
		t.Error("a failing notifier must not stop delivery to the others")
	}
}

func TestNewRedisNotifier_Validation(t *testing.T) {
	_, err := notify.NewRedisNotifier(nil, "hm:notifications")
	if err == nil || !strings.Contains(err.Error(), "nil") {
		t.Errorf("NewRedisNotifier(nil) error = %v", err)
	}
}
