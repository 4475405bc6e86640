// Package unlock derives which modules, lessons and quizzes a learner may act
// on. It is a pure function of a course and a progress snapshot.
package unlock

import (
	"github.com/xzeeeeen/HM/internal/catalog"
	"github.com/xzeeeeen/HM/internal/progress"
)

// Status summarises where a learner stands in a module.
type Status string

const (
	StatusLocked    Status = "locked"
	StatusUnlocked  Status = "unlocked"
	StatusQuizReady Status = "quiz_ready"
	StatusCompleted Status = "completed"
)

// LessonView is the derived state of one lesson.
type LessonView struct {
	LessonID   string `json:"lesson_id"`
	Completed  bool   `json:"completed"`
	Actionable bool   `json:"actionable"`
}

// ModuleView is the derived state of one module.
type ModuleView struct {
	ModuleID  string       `json:"module_id"`
	Index     int          `json:"index"`
	Locked    bool         `json:"locked"`
	Completed bool         `json:"completed"`
	Status    Status       `json:"status"`
	Lessons   []LessonView `json:"lessons"`

	LessonsCompleted int `json:"lessons_completed"`
	LessonsTotal     int `json:"lessons_total"`
	// LessonsRemaining is how many lessons are left before the quiz opens.
	LessonsRemaining int `json:"lessons_remaining"`
	LessonProgress   int `json:"lesson_progress"`

	QuizID         string `json:"quiz_id"`
	QuizActionable bool   `json:"quiz_actionable"`
	PassingScore   int    `json:"passing_score"`
	BestScore      int    `json:"best_score"`
	HasScore       bool   `json:"has_score"`
}

// CourseView is the derived state of a whole course for one learner.
type CourseView struct {
	CourseID         string       `json:"course_id"`
	Modules          []ModuleView `json:"modules"`
	ModulesCompleted int          `json:"modules_completed"`
	ModulesTotal     int          `json:"modules_total"`
	Progress         int          `json:"progress"`
}

// Compute derives the view of course for the learner whose record is p.
// A nil record is treated as empty.
func Compute(course catalog.Course, p *progress.Progress) CourseView {
	view := CourseView{
		CourseID:     course.ID,
		Modules:      make([]ModuleView, 0, len(course.Modules)),
		ModulesTotal: len(course.Modules),
	}

	for i, m := range course.Modules {
		unlocked := i == 0 || p.HasModule(course.ID, course.Modules[i-1].ID)

		mv := ModuleView{
			ModuleID:     m.ID,
			Index:        i,
			Locked:       !unlocked,
			Completed:    p.HasModule(course.ID, m.ID),
			Lessons:      make([]LessonView, 0, len(m.Lessons)),
			LessonsTotal: len(m.Lessons),
			QuizID:       m.Quiz.ID,
			PassingScore: m.Quiz.PassingScore,
		}
		mv.BestScore, mv.HasScore = p.Score(m.Quiz.ID)

		for _, l := range m.Lessons {
			done := p.HasLesson(course.ID, l.ID)
			if done {
				mv.LessonsCompleted++
			}
			mv.Lessons = append(mv.Lessons, LessonView{
				LessonID:   l.ID,
				Completed:  done,
				Actionable: unlocked,
			})
		}
		mv.LessonsRemaining = mv.LessonsTotal - mv.LessonsCompleted
		mv.LessonProgress = Percent(mv.LessonsCompleted, mv.LessonsTotal)
		mv.QuizActionable = unlocked && mv.LessonsTotal > 0 && mv.LessonsRemaining == 0

		switch {
		case mv.Locked:
			mv.Status = StatusLocked
		case mv.Completed:
			mv.Status = StatusCompleted
		case mv.QuizActionable:
			mv.Status = StatusQuizReady
		default:
			mv.Status = StatusUnlocked
		}

		if mv.Completed {
			view.ModulesCompleted++
		}
		view.Modules = append(view.Modules, mv)
	}

	view.Progress = Percent(view.ModulesCompleted, view.ModulesTotal)
	return view
}

// Percent returns 100*part/total rounded half up, or 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}

// Module returns the view of the module with the given id.
func (v CourseView) Module(moduleID string) (ModuleView, bool) {
	for _, m := range v.Modules {
		if m.ModuleID == moduleID {
			return m, true
		}
	}
	return ModuleView{}, false
}

// Locked reports whether the module is locked. Unknown modules are locked.
func (v CourseView) Locked(moduleID string) bool {
	m, ok := v.Module(moduleID)
	return !ok || m.Locked
}

// LessonActionable reports whether the lesson may be completed now.
func (v CourseView) LessonActionable(lessonID string) bool {
	for _, m := range v.Modules {
		for _, l := range m.Lessons {
			if l.LessonID == lessonID {
				return l.Actionable
			}
		}
	}
	return false
}

// QuizActionable reports whether the module's quiz may be submitted now.
func (v CourseView) QuizActionable(moduleID string) bool {
	m, ok := v.Module(moduleID)
	return ok && m.QuizActionable
}
