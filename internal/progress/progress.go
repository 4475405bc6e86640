// Package progress holds a learner's mastery record and the stores that
// persist it.
package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"
)

// IDSet is a set of content ids. It encodes as a sorted JSON array.
type IDSet map[string]struct{}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	ids := s.Sorted()
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	*s = set
	return nil
}

// CourseProgress is the completion state of one course.
type CourseProgress struct {
	CompletedLessonIDs IDSet `json:"completed_lesson_ids"`
	CompletedModuleIDs IDSet `json:"completed_module_ids"`
}

// Progress is a learner's mastery record. Sets only grow and scores only
// increase; the mutators enforce that.
type Progress struct {
	LearnerID  string                     `json:"learner_id"`
	Courses    map[string]*CourseProgress `json:"courses"`
	QuizScores map[string]int             `json:"quiz_scores"`
	UpdatedAt  time.Time                  `json:"updated_at,omitzero"`
}

// New returns an empty record for a learner.
func New(learnerID string) *Progress {
	return &Progress{
		LearnerID:  learnerID,
		Courses:    make(map[string]*CourseProgress),
		QuizScores: make(map[string]int),
	}
}

// Decode reads a JSON-encoded record, such as one exported by the HTTP API.
func Decode(r io.Reader) (*Progress, error) {
	var p Progress
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	if p.LearnerID == "" {
		return nil, fmt.Errorf("decode progress: learner_id is required")
	}
	normalize(&p, p.LearnerID)
	return &p, nil
}

// Clone returns a deep copy.
func (p *Progress) Clone() *Progress {
	if p == nil {
		return nil
	}
	out := New(p.LearnerID)
	out.UpdatedAt = p.UpdatedAt
	for id, cp := range p.Courses {
		if cp == nil {
			continue
		}
		out.Courses[id] = &CourseProgress{
			CompletedLessonIDs: maps.Clone(cp.CompletedLessonIDs),
			CompletedModuleIDs: maps.Clone(cp.CompletedModuleIDs),
		}
	}
	maps.Copy(out.QuizScores, p.QuizScores)
	return out
}

// HasLesson reports whether the lesson is completed in the course.
func (p *Progress) HasLesson(courseID, lessonID string) bool {
	if p == nil {
		return false
	}
	cp := p.Courses[courseID]
	return cp != nil && cp.CompletedLessonIDs.Has(lessonID)
}

// HasModule reports whether the module is completed in the course.
func (p *Progress) HasModule(courseID, moduleID string) bool {
	if p == nil {
		return false
	}
	cp := p.Courses[courseID]
	return cp != nil && cp.CompletedModuleIDs.Has(moduleID)
}

// Score returns the best recorded score for a quiz.
func (p *Progress) Score(quizID string) (int, bool) {
	if p == nil {
		return 0, false
	}
	s, ok := p.QuizScores[quizID]
	return s, ok
}

// AddLesson marks a lesson completed. It reports whether the set changed.
func (p *Progress) AddLesson(courseID, lessonID string) bool {
	cp := p.course(courseID)
	if cp.CompletedLessonIDs.Has(lessonID) {
		return false
	}
	cp.CompletedLessonIDs[lessonID] = struct{}{}
	return true
}

// AddModule marks a module completed. It reports whether the set changed.
func (p *Progress) AddModule(courseID, moduleID string) bool {
	cp := p.course(courseID)
	if cp.CompletedModuleIDs.Has(moduleID) {
		return false
	}
	cp.CompletedModuleIDs[moduleID] = struct{}{}
	return true
}

// RecordScore keeps the maximum of the stored and the new score and returns
// the resulting best score.
func (p *Progress) RecordScore(quizID string, score int) int {
	if p.QuizScores == nil {
		p.QuizScores = make(map[string]int)
	}
	if best, ok := p.QuizScores[quizID]; ok && best >= score {
		return best
	}
	p.QuizScores[quizID] = score
	return score
}

func (p *Progress) course(courseID string) *CourseProgress {
	if p.Courses == nil {
		p.Courses = make(map[string]*CourseProgress)
	}
	cp := p.Courses[courseID]
	if cp == nil {
		cp = &CourseProgress{}
		p.Courses[courseID] = cp
	}
	if cp.CompletedLessonIDs == nil {
		cp.CompletedLessonIDs = make(IDSet)
	}
	if cp.CompletedModuleIDs == nil {
		cp.CompletedModuleIDs = make(IDSet)
	}
	return cp
}
