// Package engine applies learner actions to progress records. It is the
// only component that mutates a progress.Store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xzeeeeen/HM/internal/catalog"
	"github.com/xzeeeeen/HM/internal/notify"
	"github.com/xzeeeeen/HM/internal/progress"
	"github.com/xzeeeeen/HM/internal/unlock"
)

var (
	// ErrLookup is returned when a course, module, lesson or quiz does not
	// exist, or a quiz does not belong to the given module.
	ErrLookup = errors.New("not found")
	// ErrPolicyViolation is returned when an action targets a locked module
	// or a quiz that is not yet available.
	ErrPolicyViolation = errors.New("not allowed")
)

// Catalog is the read-only course source the engine needs.
type Catalog interface {
	Course(id string) (catalog.Course, bool)
}

// EngineConfig holds dependencies for the engine.
type EngineConfig struct {
	Catalog  Catalog
	Store    progress.Store
	Notifier notify.Notifier
	Events   EventLogger
}

// Engine executes lesson completions and quiz submissions.
type Engine struct {
	catalog  Catalog
	store    progress.Store
	notifier notify.Notifier
	events   EventLogger
}

// NewEngine creates a new engine. Missing dependencies fall back to an empty
// catalog, an in-memory store and no-op notification and event sinks.
func NewEngine(cfg EngineConfig) *Engine {
	cat := cfg.Catalog
	if cat == nil {
		empty, _ := catalog.New()
		cat = empty
	}
	store := cfg.Store
	if store == nil {
		store = progress.NewMemoryStore()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	return &Engine{
		catalog:  cat,
		store:    store,
		notifier: notifier,
		events:   events,
	}
}

// Result is the outcome of a scored quiz submission.
type Result struct {
	Percentage   int  `json:"percentage"`
	Passed       bool `json:"passed"`
	Correct      int  `json:"correct"`
	Total        int  `json:"total"`
	PassingScore int  `json:"passing_score"`
	BestScore    int  `json:"best_score"`
	// Ignored counts answers for questions the quiz does not have.
	Ignored      int  `json:"ignored"`
}

// CompleteLesson marks a lesson completed. Completing it again is a no-op.
// The lesson's module must be unlocked.
func (e *Engine) CompleteLesson(ctx context.Context, learnerID, courseID, lessonID string) (*progress.Progress, error) {
	course, err := e.course(courseID)
	if err != nil {
		return nil, err
	}
	module, _, ok := course.LessonModule(lessonID)
	if !ok {
		return nil, fmt.Errorf("lesson %q in course %q: %w", lessonID, courseID, ErrLookup)
	}

	var added bool
	p, err := e.store.Update(ctx, learnerID, func(p *progress.Progress) error {
		if unlock.Compute(course, p).Locked(module.ID) {
			return fmt.Errorf("lesson %q: module %q is locked: %w", lessonID, module.ID, ErrPolicyViolation)
		}
		added = p.AddLesson(courseID, lessonID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete lesson: %w", err)
	}

	if added {
		slog.Info("lesson completed",
			"learner_id", learnerID,
			"course_id", courseID,
			"module_id", module.ID,
			"lesson_id", lessonID,
		)
		e.logEvent(Event{
			LearnerID: learnerID,
			CourseID:  courseID,
			EventType: EventLessonCompleted,
			Data:      map[string]any{"module_id": module.ID, "lesson_id": lessonID},
		})
	}
	return p, nil
}

// SubmitQuiz scores a set of answers, keyed by question id, for the quiz of
// a module. The quiz must be available to the learner. Answers to unknown
// questions are ignored. A passing score completes the module.
func (e *Engine) SubmitQuiz(ctx context.Context, learnerID, courseID, moduleID, quizID string, answers map[string]string) (Result, *progress.Progress, error) {
	course, err := e.course(courseID)
	if err != nil {
		return Result{}, nil, err
	}
	module, ok := course.Module(moduleID)
	if !ok {
		return Result{}, nil, fmt.Errorf("module %q in course %q: %w", moduleID, courseID, ErrLookup)
	}
	if module.Quiz.ID != quizID {
		return Result{}, nil, fmt.Errorf("quiz %q in module %q: %w", quizID, moduleID, ErrLookup)
	}

	score := Score(module.Quiz, answers)
	res := Result{
		Percentage:   score.Percentage,
		Passed:       score.Percentage >= module.Quiz.PassingScore,
		Correct:      score.Correct,
		Total:        score.Total,
		PassingScore: module.Quiz.PassingScore,
		Ignored:      score.Ignored,
	}

	var moduleCompleted bool
	p, err := e.store.Update(ctx, learnerID, func(p *progress.Progress) error {
		view := unlock.Compute(course, p)
		if view.Locked(moduleID) {
			return fmt.Errorf("quiz %q: module %q is locked: %w", quizID, moduleID, ErrPolicyViolation)
		}
		if !view.QuizActionable(moduleID) {
			return fmt.Errorf("quiz %q: lessons of module %q are not complete: %w", quizID, moduleID, ErrPolicyViolation)
		}
		res.BestScore = p.RecordScore(quizID, res.Percentage)
		if res.Passed {
			moduleCompleted = p.AddModule(courseID, moduleID)
		}
		return nil
	})
	if err != nil {
		return Result{}, nil, fmt.Errorf("submit quiz: %w", err)
	}

	if res.Ignored > 0 {
		slog.Warn("ignored answers for unknown questions",
			"learner_id", learnerID,
			"quiz_id", quizID,
			"ignored", res.Ignored,
		)
	}
	slog.Info("quiz submitted",
		"learner_id", learnerID,
		"course_id", courseID,
		"module_id", moduleID,
		"quiz_id", quizID,
		"percentage", res.Percentage,
		"passed", res.Passed,
	)

	e.logEvent(Event{
		LearnerID: learnerID,
		CourseID:  courseID,
		EventType: EventQuizSubmitted,
		Data: map[string]any{
			"module_id":     moduleID,
			"quiz_id":       quizID,
			"percentage":    res.Percentage,
			"passed":        res.Passed,
			"passing_score": res.PassingScore,
			"best_score":    res.BestScore,
		},
	})
	if moduleCompleted {
		e.logEvent(Event{
			LearnerID: learnerID,
			CourseID:  courseID,
			EventType: EventModuleCompleted,
			Data:      map[string]any{"module_id": moduleID, "quiz_id": quizID},
		})
	}

	n := notify.QuizResult(learnerID, courseID, moduleID, quizID, res.Percentage, res.PassingScore, res.Passed)
	if err := e.notifier.Notify(ctx, n); err != nil {
		slog.Warn("failed to deliver notification",
			"learner_id", learnerID,
			"notification_id", n.ID,
			"error", err,
		)
	}

	return res, p, nil
}

// View returns the learner's unlock view of a course.
func (e *Engine) View(ctx context.Context, learnerID, courseID string) (unlock.CourseView, error) {
	course, err := e.course(courseID)
	if err != nil {
		return unlock.CourseView{}, err
	}
	p, err := e.store.Get(ctx, learnerID)
	if err != nil {
		return unlock.CourseView{}, fmt.Errorf("get progress: %w", err)
	}
	return unlock.Compute(course, p), nil
}

// Progress returns a snapshot of the learner's record.
func (e *Engine) Progress(ctx context.Context, learnerID string) (*progress.Progress, error) {
	p, err := e.store.Get(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

func (e *Engine) course(courseID string) (catalog.Course, error) {
	course, ok := e.catalog.Course(courseID)
	if !ok {
		return catalog.Course{}, fmt.Errorf("course %q: %w", courseID, ErrLookup)
	}
	return course, nil
}

func (e *Engine) logEvent(event Event) {
	if err := e.events.LogEvent(event); err != nil {
		slog.Warn("failed to log event",
			"type", event.EventType,
			"learner_id", event.LearnerID,
			"error", err,
		)
	}
}
