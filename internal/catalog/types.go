// Package catalog holds the read-only course content: courses made of
// ordered modules, each module carrying ordered lessons and exactly one quiz.
package catalog

// Status is the publication state of a course.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusPublished Status = "Published"
)

// Course is an ordered sequence of modules. Module order defines the unlock
// sequence.
type Course struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Category    string   `yaml:"category" json:"category"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Status      Status   `yaml:"status" json:"status"`
	Modules     []Module `yaml:"modules" json:"modules"`
}

// Module groups lessons behind a single quiz.
type Module struct {
	ID      string   `yaml:"id" json:"id"`
	Title   string   `yaml:"title" json:"title"`
	Lessons []Lesson `yaml:"lessons" json:"lessons"`
	Quiz    Quiz     `yaml:"quiz" json:"quiz"`
}

// Lesson is a unit of content. Only its completion is tracked.
type Lesson struct {
	ID       string `yaml:"id" json:"id"`
	Title    string `yaml:"title" json:"title"`
	Content  string `yaml:"content" json:"content,omitempty"`
	VideoURL string `yaml:"video_url" json:"video_url,omitempty"`
}

// Quiz gates completion of its owning module.
type Quiz struct {
	ID           string     `yaml:"id" json:"id"`
	ModuleID     string     `yaml:"module_id" json:"module_id"`
	Title        string     `yaml:"title" json:"title"`
	Questions    []Question `yaml:"questions" json:"questions"`
	PassingScore int        `yaml:"passing_score" json:"passing_score"`
}

// Question is a single-answer multiple-choice question.
type Question struct {
	ID            string   `yaml:"id" json:"id"`
	Prompt        string   `yaml:"prompt" json:"prompt"`
	Options       []string `yaml:"options" json:"options"`
	CorrectOption string   `yaml:"correct_option" json:"correct_option,omitempty"`
}

// Published reports whether members can see the course.
func (c Course) Published() bool {
	return c.Status == StatusPublished
}

// Module returns the module with the given id.
func (c Course) Module(id string) (Module, bool) {
	if i := c.ModuleIndex(id); i >= 0 {
		return c.Modules[i], true
	}
	return Module{}, false
}

// ModuleIndex returns the position of the module in the unlock sequence, or
// -1 if the course has no such module.
func (c Course) ModuleIndex(id string) int {
	for i, m := range c.Modules {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// LessonModule returns the module containing the lesson and its index.
func (c Course) LessonModule(lessonID string) (Module, int, bool) {
	for i, m := range c.Modules {
		if m.HasLesson(lessonID) {
			return m, i, true
		}
	}
	return Module{}, -1, false
}

// WithoutAnswers returns a copy of the course with correct options removed,
// for serving to learners.
func (c Course) WithoutAnswers() Course {
	out := c
	out.Modules = make([]Module, len(c.Modules))
	for i, m := range c.Modules {
		qs := make([]Question, len(m.Quiz.Questions))
		for j, q := range m.Quiz.Questions {
			q.CorrectOption = ""
			qs[j] = q
		}
		m.Quiz.Questions = qs
		out.Modules[i] = m
	}
	return out
}

// HasLesson reports whether the lesson belongs to the module.
func (m Module) HasLesson(lessonID string) bool {
	for _, l := range m.Lessons {
		if l.ID == lessonID {
			return true
		}
	}
	return false
}

// Question returns the question with the given id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, qq := range q.Questions {
		if qq.ID == id {
			return qq, true
		}
	}
	return Question{}, false
}
