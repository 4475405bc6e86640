package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// Problem records a course file that could not be loaded.
type Problem struct {
	Path string
	Err  error
}

func (p Problem) String() string {
	if p.Path == "" {
		return p.Err.Error()
	}
	return p.Path + ": " + p.Err.Error()
}

// Catalog loads and caches course content. It is read-only to its users;
// Reload swaps the whole content at once.
type Catalog struct {
	rootDir  string
	courses  map[string]Course
	order    []string
	problems []Problem
	mu       sync.RWMutex
}

// Load creates a catalog from every course YAML file under rootDir.
// Files that fail validation are skipped and reported by Problems.
func Load(rootDir string) (*Catalog, error) {
	c := &Catalog{rootDir: rootDir}
	if err := c.Reload(); err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return c, nil
}

// New creates an in-memory catalog. Unlike Load, any invalid course is an
// error.
func New(courses ...Course) (*Catalog, error) {
	set := newCourseSet()
	var errs []error
	for _, course := range courses {
		course.Modules = slices.Clone(course.Modules)
		if err := set.add(course); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &Catalog{courses: set.courses, order: set.order}, nil
}

// Reload re-reads the catalog directory and replaces the current content.
func (c *Catalog) Reload() error {
	if c.rootDir == "" {
		return fmt.Errorf("catalog has no root directory")
	}

	set := newCourseSet()
	err := filepath.WalkDir(c.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			set.loadFile(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", c.rootDir, err)
	}

	c.mu.Lock()
	c.courses = set.courses
	c.order = set.order
	c.problems = set.problems
	c.mu.Unlock()

	slog.Info("catalog loaded", "courses", len(set.order), "problems", len(set.problems))
	return nil
}

// Course returns a course by ID.
func (c *Catalog) Course(id string) (Course, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	course, ok := c.courses[id]
	return course, ok
}

// Courses returns all loaded courses in load order.
func (c *Catalog) Courses() []Course {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Course, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.courses[id])
	}
	return out
}

// Published returns the published courses of a category. Categories are
// compared case-insensitively; an empty category matches all.
func (c *Catalog) Published(category string) []Course {
	fold := cases.Fold()
	want := fold.String(category)

	var out []Course
	for _, course := range c.Courses() {
		if !course.Published() {
			continue
		}
		if category != "" && fold.String(course.Category) != want {
			continue
		}
		out = append(out, course)
	}
	return out
}

// Problems returns the files skipped by the last load.
func (c *Catalog) Problems() []Problem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.problems)
}

type courseSet struct {
	courses   map[string]Course
	order     []string
	quizOwner map[string]string
	problems  []Problem
}

func newCourseSet() *courseSet {
	return &courseSet{
		courses:   make(map[string]Course),
		quizOwner: make(map[string]string),
	}
}

func (s *courseSet) loadFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.problem(path, err)
		return
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		s.problem(path, fmt.Errorf("invalid YAML: %w", err))
		return
	}
	if !isCourseDocument(doc) {
		return // Not a course file
	}
	if err := ValidateDocument(doc); err != nil {
		s.problem(path, err)
		return
	}

	var course Course
	if err := yaml.Unmarshal(data, &course); err != nil {
		s.problem(path, err)
		return
	}
	if err := s.add(course); err != nil {
		s.problem(path, err)
	}
}

func (s *courseSet) add(course Course) error {
	if err := Validate(&course); err != nil {
		return err
	}
	if _, dup := s.courses[course.ID]; dup {
		return fmt.Errorf("duplicate course id %s", course.ID)
	}
	quizzes := make(map[string]bool, len(course.Modules))
	for _, m := range course.Modules {
		if owner, used := s.quizOwner[m.Quiz.ID]; used || quizzes[m.Quiz.ID] {
			if owner == "" {
				owner = course.ID
			}
			return fmt.Errorf("course %s: quiz id %s already used by course %s", course.ID, m.Quiz.ID, owner)
		}
		quizzes[m.Quiz.ID] = true
	}

	for _, m := range course.Modules {
		s.quizOwner[m.Quiz.ID] = course.ID
	}
	s.courses[course.ID] = course
	s.order = append(s.order, course.ID)

	if course.Published() {
		if empty := emptyModules(course); len(empty) > 0 {
			slog.Warn("published course has modules without lessons",
				"course_id", course.ID,
				"modules", empty,
			)
		}
	}
	return nil
}

func (s *courseSet) problem(path string, err error) {
	slog.Warn("skipping course file", "path", path, "error", err)
	s.problems = append(s.problems, Problem{Path: path, Err: err})
}

func isCourseDocument(doc map[string]any) bool {
	if doc["id"] == nil {
		return false
	}
	_, hasModules := doc["modules"]
	_, hasStatus := doc["status"]
	return hasModules || hasStatus
}
