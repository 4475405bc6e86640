package engine

import (
	"github.com/xzeeeeen/HM/internal/catalog"
	"github.com/xzeeeeen/HM/internal/unlock"
)

// QuizScore is the raw outcome of grading one answer set.
type QuizScore struct {
	Correct    int
	Total      int
	Ignored    int
	Percentage int
}

// Score grades answers against the quiz. Unanswered questions count as
// incorrect; answers for questions outside the quiz are counted as ignored.
// A quiz without questions scores 0.
func Score(quiz catalog.Quiz, answers map[string]string) QuizScore {
	s := QuizScore{Total: len(quiz.Questions)}
	known := make(map[string]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		known[q.ID] = struct{}{}
		if got, ok := answers[q.ID]; ok && got == q.CorrectOption {
			s.Correct++
		}
	}
	for id := range answers {
		if _, ok := known[id]; !ok {
			s.Ignored++
		}
	}
	s.Percentage = unlock.Percent(s.Correct, s.Total)
	return s
}
