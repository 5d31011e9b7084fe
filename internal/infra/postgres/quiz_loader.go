package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quiz-app-service/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var quizColumns = []string{
	"id", "title", "description", "category_id", "question_ids", "time_limit",
	"created_by", "is_published", "attempts", "average_score", "version", "created_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// QuizLoader reads quizzes straight from Postgres through pgx. It feeds the answer-key
// caches and serves quiz listings.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

// LoadQuiz returns the quiz with its questions, including correctness flags, in quiz order.
// Questions deleted since the quiz was saved are left out.
func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	query, args, err := psql.Select(quizColumns...).From("quizzes").Where(sq.Eq{"id": quizID}).ToSql()
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("build quiz query: %w", err)
	}
	quiz, err := scanQuiz(l.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	questions, err := l.loadQuestions(ctx, quiz.QuestionIDs)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions = questions
	return quiz, nil
}

// ListQuizzes returns quizzes without questions, newest first.
func (l *QuizLoader) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	query, args, err := listQuizzesQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("build quiz listing: %w", err)
	}
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	out := []domain.Quiz{}
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return out, nil
}

func listQuizzesQuery(filter domain.QuizFilter) (string, []interface{}, error) {
	q := psql.Select(quizColumns...).From("quizzes").OrderBy("created_at DESC", "id")
	if filter.PublishedOnly {
		q = q.Where(sq.Eq{"is_published": true})
	}
	if filter.CategoryID != "" {
		q = q.Where(sq.Eq{"category_id": filter.CategoryID})
	}
	return q.ToSql()
}

func (l *QuizLoader) loadQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return []domain.Question{}, nil
	}
	rows, err := l.pool.Query(ctx,
		`SELECT id, text, options, explanation, category_id, difficulty, created_at
		   FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Question, len(ids))
	for rows.Next() {
		var (
			q       domain.Question
			options []byte
		)
		if err := rows.Scan(&q.ID, &q.Text, &options, &q.Explanation, &q.CategoryID, &q.Difficulty, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options of %s: %w", q.ID, err)
		}
		byID[q.ID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return orderQuestions(ids, byID), nil
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var (
		quiz domain.Quiz
		ids  []byte
	)
	err := row.Scan(
		&quiz.ID, &quiz.Title, &quiz.Description, &quiz.CategoryID, &ids, &quiz.TimeLimit,
		&quiz.CreatedBy, &quiz.IsPublished, &quiz.Stats.Attempts, &quiz.Stats.AverageScore,
		&quiz.Stats.Version, &quiz.CreatedAt,
	)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := json.Unmarshal(ids, &quiz.QuestionIDs); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal question ids of %s: %w", quiz.ID, err)
	}
	return quiz, nil
}
