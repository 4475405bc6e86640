package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var courseSchemaJSON string

var courseSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(courseSchemaJSON))
})

// ValidateDocument checks a decoded course document (as produced by a YAML or
// JSON decoder into any) against the embedded course schema.
func ValidateDocument(doc any) error {
	schema, err := courseSchema()
	if err != nil {
		return fmt.Errorf("compiling course schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validating course document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema: %s", strings.Join(msgs, "; "))
}

// Validate checks the rules a single course must satisfy and fills in quiz
// module ids that were left empty.
func Validate(c *Course) error {
	var errs []error

	if c.ID == "" {
		errs = append(errs, errors.New("course id is empty"))
	}
	if c.Status != StatusDraft && c.Status != StatusPublished {
		errs = append(errs, fmt.Errorf("course %s: status must be Draft or Published, got %q", c.ID, c.Status))
	}

	moduleIDs := make(map[string]bool)
	lessonIDs := make(map[string]bool)
	for i := range c.Modules {
		m := &c.Modules[i]
		if m.ID == "" {
			errs = append(errs, fmt.Errorf("course %s: module %d has empty id", c.ID, i))
		} else if moduleIDs[m.ID] {
			errs = append(errs, fmt.Errorf("course %s: duplicate module id %s", c.ID, m.ID))
		}
		moduleIDs[m.ID] = true

		for _, l := range m.Lessons {
			if l.ID == "" {
				errs = append(errs, fmt.Errorf("module %s: lesson with empty id", m.ID))
				continue
			}
			if lessonIDs[l.ID] {
				errs = append(errs, fmt.Errorf("course %s: duplicate lesson id %s", c.ID, l.ID))
			}
			lessonIDs[l.ID] = true
		}

		errs = append(errs, validateQuiz(m)...)
	}

	return errors.Join(errs...)
}

func validateQuiz(m *Module) []error {
	var errs []error
	q := &m.Quiz

	if q.ID == "" {
		errs = append(errs, fmt.Errorf("module %s: quiz id is empty", m.ID))
	}
	switch q.ModuleID {
	case "":
		q.ModuleID = m.ID
	case m.ID:
	default:
		errs = append(errs, fmt.Errorf("quiz %s: references module %s but belongs to %s", q.ID, q.ModuleID, m.ID))
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		errs = append(errs, fmt.Errorf("quiz %s: passing score %d out of range 0-100", q.ID, q.PassingScore))
	}

	seen := make(map[string]bool)
	for _, qq := range q.Questions {
		if qq.ID == "" {
			errs = append(errs, fmt.Errorf("quiz %s: question with empty id", q.ID))
			continue
		}
		if seen[qq.ID] {
			errs = append(errs, fmt.Errorf("quiz %s: duplicate question id %s", q.ID, qq.ID))
		}
		seen[qq.ID] = true
		if !slices.Contains(qq.Options, qq.CorrectOption) {
			errs = append(errs, fmt.Errorf("quiz %s: question %s correct option %q is not one of its options", q.ID, qq.ID, qq.CorrectOption))
		}
	}
	return errs
}

// emptyModules lists modules that have no lessons. Their quizzes can never
// become actionable.
func emptyModules(c Course) []string {
	var ids []string
	for _, m := range c.Modules {
		if len(m.Lessons) == 0 {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
