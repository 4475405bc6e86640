package unlock_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xzeeeeen/HM/internal/catalog"
	"github.com/xzeeeeen/HM/internal/progress"
	"github.com/xzeeeeen/HM/internal/unlock"
)

func forexCourse() catalog.Course {
	return catalog.Course{
		ID:     "1",
		Title:  "Trading Forex Mastery",
		Status: catalog.StatusPublished,
		Modules: []catalog.Module{
			{
				ID:      "101",
				Lessons: []catalog.Lesson{{ID: "1001"}, {ID: "1002"}},
				Quiz:    catalog.Quiz{ID: "q-1", ModuleID: "101", PassingScore: 80},
			},
			{
				ID:      "102",
				Lessons: []catalog.Lesson{{ID: "1003"}},
				Quiz:    catalog.Quiz{ID: "q-2", ModuleID: "102", PassingScore: 70},
			},
			{
				ID:      "103",
				Lessons: []catalog.Lesson{{ID: "1004"}, {ID: "1005"}, {ID: "1006"}},
				Quiz:    catalog.Quiz{ID: "q-3", ModuleID: "103", PassingScore: 80},
			},
		},
	}
}

func TestCompute_EmptyProgress(t *testing.T) {
	view := unlock.Compute(forexCourse(), nil)

	want := []unlock.Status{unlock.StatusUnlocked, unlock.StatusLocked, unlock.StatusLocked}
	for i, m := range view.Modules {
		if m.Status != want[i] {
			t.Errorf("module %s status = %s, want %s", m.ModuleID, m.Status, want[i])
		}
		if m.QuizActionable {
			t.Errorf("module %s quiz should not be actionable", m.ModuleID)
		}
	}
	if !view.LessonActionable("1001") {
		t.Error("lessons of the first module should be actionable")
	}
	if view.LessonActionable("1003") {
		t.Error("lessons of a locked module should not be actionable")
	}
	if view.Progress != 0 || view.ModulesTotal != 3 {
		t.Errorf("Progress = %d of %d modules, want 0 of 3", view.Progress, view.ModulesTotal)
	}
}

func TestCompute_QuizReadyAfterAllLessons(t *testing.T) {
	p := progress.New("u1")
	p.AddLesson("1", "1001")

	view := unlock.Compute(forexCourse(), p)
	m, _ := view.Module("101")
	if m.QuizActionable || m.LessonsRemaining != 1 || m.LessonProgress != 50 {
		t.Errorf("after one lesson: actionable=%v remaining=%d progress=%d", m.QuizActionable, m.LessonsRemaining, m.LessonProgress)
	}

	p.AddLesson("1", "1002")
	view = unlock.Compute(forexCourse(), p)
	if !view.QuizActionable("101") {
		t.Error("quiz should be actionable once every lesson is complete")
	}
	if m, _ := view.Module("101"); m.Status != unlock.StatusQuizReady {
		t.Errorf("status = %s, want quiz_ready", m.Status)
	}
	if !view.Locked("102") {
		t.Error("next module stays locked until the quiz is passed")
	}
}

func TestCompute_PassedModuleUnlocksNext(t *testing.T) {
	p := progress.New("u1")
	p.AddLesson("1", "1001")
	p.AddLesson("1", "1002")
	p.RecordScore("q-1", 85)
	p.AddModule("1", "101")

	view := unlock.Compute(forexCourse(), p)

	first, _ := view.Module("101")
	if first.Status != unlock.StatusCompleted || first.BestScore != 85 || !first.HasScore {
		t.Errorf("module 101 = %+v", first)
	}
	if view.Locked("102") {
		t.Error("module 102 should unlock after 101 is completed")
	}
	if !view.Locked("103") {
		t.Error("module 103 should remain locked")
	}
	if view.Progress != 33 {
		t.Errorf("Progress = %d, want 33", view.Progress)
	}
}

func TestCompute_FailedScoreKeepsNextLocked(t *testing.T) {
	p := progress.New("u1")
	p.AddLesson("1", "1001")
	p.AddLesson("1", "1002")
	p.RecordScore("q-1", 60)

	view := unlock.Compute(forexCourse(), p)
	if !view.Locked("102") {
		t.Error("a failing score must not unlock the next module")
	}
	if m, _ := view.Module("101"); !m.HasScore || m.BestScore != 60 || m.Status != unlock.StatusQuizReady {
		t.Errorf("module 101 = %+v", m)
	}
}

func TestCompute_CompletedLessonsInLockedModuleAreNotActionable(t *testing.T) {
	p := progress.New("u1")
	p.AddLesson("1", "1003")

	view := unlock.Compute(forexCourse(), p)
	m, _ := view.Module("102")
	if !m.Lessons[0].Completed || m.Lessons[0].Actionable {
		t.Errorf("lesson 1003 = %+v, want completed and not actionable", m.Lessons[0])
	}
	if m.QuizActionable {
		t.Error("quiz of a locked module must never be actionable")
	}
}

func TestCompute_ModuleWithoutLessonsNeverReady(t *testing.T) {
	course := forexCourse()
	course.Modules[0].Lessons = nil

	view := unlock.Compute(course, progress.New("u1"))
	if view.QuizActionable("101") {
		t.Error("a module with no lessons has no actionable quiz")
	}
}

func TestCompute_ScopedToCourse(t *testing.T) {
	p := progress.New("u1")
	p.AddModule("2", "101")

	if unlock.Compute(forexCourse(), p).Modules[0].Completed {
		t.Error("completion in another course must not leak")
	}
}

func TestCompute_Idempotent(t *testing.T) {
	p := progress.New("u1")
	p.AddLesson("1", "1001")
	p.AddModule("1", "101")

	before := p.Clone()
	a := unlock.Compute(forexCourse(), p)
	b := unlock.Compute(forexCourse(), p)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Compute() not deterministic (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(before, p); diff != "" {
		t.Errorf("Compute() modified progress (-before +after):\n%s", diff)
	}
}

// For any progress, module i>0 is locked exactly when module i-1 is not
// completed, and locked modules expose nothing actionable.
func TestCompute_LockingProperty(t *testing.T) {
	course := forexCourse()
	var lessons []string
	for _, m := range course.Modules {
		for _, l := range m.Lessons {
			lessons = append(lessons, l.ID)
		}
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for iter := range 500 {
		p := progress.New(fmt.Sprintf("u%d", iter))
		for _, m := range course.Modules {
			if rng.IntN(2) == 0 {
				p.AddModule(course.ID, m.ID)
			}
		}
		for _, l := range lessons {
			if rng.IntN(2) == 0 {
				p.AddLesson(course.ID, l)
			}
		}

		view := unlock.Compute(course, p)
		for i, mv := range view.Modules {
			wantLocked := i > 0 && !p.HasModule(course.ID, course.Modules[i-1].ID)
			if mv.Locked != wantLocked {
				t.Fatalf("iter %d module %s locked = %v, want %v", iter, mv.ModuleID, mv.Locked, wantLocked)
			}
			if mv.Locked {
				for _, l := range mv.Lessons {
					if l.Actionable {
						t.Fatalf("iter %d lesson %s actionable in locked module", iter, l.LessonID)
					}
				}
				if mv.QuizActionable {
					t.Fatalf("iter %d quiz actionable in locked module %s", iter, mv.ModuleID)
				}
			}
		}
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		part, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{7, 9, 78},
		{2, 3, 67},
		{1, 3, 33},
		{1, 8, 13},
		{4, 5, 80},
		{5, 5, 100},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.part, tt.total), func(t *testing.T) {
			if got := unlock.Percent(tt.part, tt.total); got != tt.want {
				t.Errorf("Percent(%d, %d) = %d, want %d", tt.part, tt.total, got, tt.want)
			}
		})
	}
}
