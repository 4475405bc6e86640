// Package notify delivers quiz result notifications to learners.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind is the outcome a notification reports.
type Kind string

const (
	KindPass Kind = "pass"
	KindFail Kind = "fail"
)

// Notification is a transient message shown to the learner after a quiz
// submission. It carries no state of its own.
type Notification struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	LearnerID    string    `json:"learner_id"`
	CourseID     string    `json:"course_id"`
	ModuleID     string    `json:"module_id"`
	QuizID       string    `json:"quiz_id"`
	Percentage   int       `json:"percentage"`
	PassingScore int       `json:"passing_score"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
}

// QuizResult builds the notification for a scored submission.
func QuizResult(learnerID, courseID, moduleID, quizID string, percentage, passingScore int, passed bool) Notification {
	n := Notification{
		ID:           uuid.NewString(),
		Kind:         KindFail,
		LearnerID:    learnerID,
		CourseID:     courseID,
		ModuleID:     moduleID,
		QuizID:       quizID,
		Percentage:   percentage,
		PassingScore: passingScore,
		Message:      fmt.Sprintf("Skor Anda %d%%. Coba lagi untuk melanjutkan.", percentage),
		CreatedAt:    time.Now(),
	}
	if passed {
		n.Kind = KindPass
		n.Message = fmt.Sprintf("Selamat! Anda lulus kuis dengan skor %d%%.", percentage)
	}
	return n
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) error {
	return nil
}

// MemoryNotifier records notifications in memory for tests.
type MemoryNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{sent: []Notification{}}
}

func (m *MemoryNotifier) Notify(_ context.Context, n Notification) error {
	m.mu.Lock()
	m.sent = append(m.sent, n)
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of everything delivered so far.
func (m *MemoryNotifier) Sent() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification{}, m.sent...)
}

// Multi fans a notification out to several notifiers. Every notifier is
// tried; their errors are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, nt := range m {
		if nt == nil {
			continue
		}
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
