package progress

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Schema is the DDL for the PostgreSQL progress tables.
//
//go:embed schema.sql
var Schema string

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is a PostgreSQL-backed Store. Set members and best scores
// are only ever inserted or raised, never deleted or lowered.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

func (s *PostgresStore) Get(ctx context.Context, learnerID string) (*Progress, error) {
	if learnerID == "" {
		return nil, fmt.Errorf("learner_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return load(ctx, s.pool, learnerID)
}

func (s *PostgresStore) Update(ctx context.Context, learnerID string, fn UpdateFunc) (*Progress, error) {
	if learnerID == "" {
		return nil, fmt.Errorf("learner_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var out *Progress
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO learner_progress (learner_id) VALUES ($1)
			 ON CONFLICT (learner_id) DO NOTHING`,
			learnerID,
		); err != nil {
			return fmt.Errorf("ensure learner: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`SELECT 1 FROM learner_progress WHERE learner_id = $1 FOR UPDATE`,
			learnerID,
		); err != nil {
			return fmt.Errorf("lock learner: %w", err)
		}

		current, err := load(ctx, tx, learnerID)
		if err != nil {
			return err
		}
		working := current.Clone()
		if err := fn(working); err != nil {
			return err
		}
		working.LearnerID = learnerID
		working.UpdatedAt = s.now()

		if err := persist(ctx, tx, current, working); err != nil {
			return err
		}
		out = working
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func persist(ctx context.Context, tx pgx.Tx, before, after *Progress) error {
	batch := &pgx.Batch{}

	for courseID, cp := range after.Courses {
		for lessonID := range cp.CompletedLessonIDs {
			if before.HasLesson(courseID, lessonID) {
				continue
			}
			batch.Queue(
				`INSERT INTO completed_lessons (learner_id, course_id, lesson_id, completed_at)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT DO NOTHING`,
				after.LearnerID, courseID, lessonID, after.UpdatedAt,
			)
		}
		for moduleID := range cp.CompletedModuleIDs {
			if before.HasModule(courseID, moduleID) {
				continue
			}
			batch.Queue(
				`INSERT INTO completed_modules (learner_id, course_id, module_id, completed_at)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT DO NOTHING`,
				after.LearnerID, courseID, moduleID, after.UpdatedAt,
			)
		}
	}

	for quizID, score := range after.QuizScores {
		if prev, ok := before.Score(quizID); ok && prev >= score {
			continue
		}
		batch.Queue(
			`INSERT INTO quiz_scores (learner_id, quiz_id, best_score, updated_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (learner_id, quiz_id) DO UPDATE
			 SET best_score = GREATEST(quiz_scores.best_score, EXCLUDED.best_score),
			     updated_at = EXCLUDED.updated_at`,
			after.LearnerID, quizID, score, after.UpdatedAt,
		)
	}

	batch.Queue(
		`UPDATE learner_progress SET updated_at = $2 WHERE learner_id = $1`,
		after.LearnerID, after.UpdatedAt,
	)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("persist progress: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("persist progress: %w", err)
	}
	return nil
}

func load(ctx context.Context, q querier, learnerID string) (*Progress, error) {
	p := New(learnerID)

	err := q.QueryRow(ctx,
		`SELECT updated_at FROM learner_progress WHERE learner_id = $1`,
		learnerID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, nil
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}

	if err := scanPairs(ctx, q,
		`SELECT course_id, lesson_id FROM completed_lessons WHERE learner_id = $1`,
		learnerID,
		func(courseID, lessonID string) { p.AddLesson(courseID, lessonID) },
	); err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}

	if err := scanPairs(ctx, q,
		`SELECT course_id, module_id FROM completed_modules WHERE learner_id = $1`,
		learnerID,
		func(courseID, moduleID string) { p.AddModule(courseID, moduleID) },
	); err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}

	rows, err := q.Query(ctx,
		`SELECT quiz_id, best_score FROM quiz_scores WHERE learner_id = $1`,
		learnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var quizID string
		var score int
		if err := rows.Scan(&quizID, &score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		p.QuizScores[quizID] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}

	return p, nil
}

func scanPairs(ctx context.Context, q querier, query, learnerID string, add func(a, b string)) error {
	rows, err := q.Query(ctx, query, learnerID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return err
		}
		add(a, b)
	}
	return rows.Err()
}
