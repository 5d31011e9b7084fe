package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/domain"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const uniqueViolation = "23505"

// Store implements the app repositories on Postgres through bun.
// Quiz listings and answer-key loads go through QuizLoader instead.
type Store struct {
	db *bun.DB
	statsStore
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, statsStore: statsStore{db: db}}
}

// Categories

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var rows []categoryModel
	if err := s.db.NewSelect().Model(&rows).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]domain.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	var row categoryModel
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return domain.Category{}, notFound(err, domain.ErrCategoryNotFound, "get category")
	}
	return row.toDomain(), nil
}

func (s *Store) CreateCategory(ctx context.Context, c domain.Category) error {
	if _, err := s.db.NewInsert().Model(categoryFromDomain(c)).Exec(ctx); err != nil {
		return writeErr(err, "create category")
	}
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c domain.Category) error {
	res, err := s.db.NewUpdate().
		Model(categoryFromDomain(c)).
		Column("name", "description", "icon", "color").
		WherePK().
		Exec(ctx)
	if err != nil {
		return writeErr(err, "update category")
	}
	return requireRow(res, domain.ErrCategoryNotFound)
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*categoryModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res, domain.ErrCategoryNotFound)
}

// Questions

func (s *Store) ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	var rows []questionModel
	q := s.db.NewSelect().Model(&rows).Order("created_at DESC")
	if filter.CategoryID != "" {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Difficulty != "" {
		q = q.Where("difficulty = ?", filter.Difficulty)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	var row questionModel
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Question{}, notFound(err, domain.ErrQuestionNotFound, "get question")
	}
	return row.toDomain(), nil
}

// GetQuestions returns the stored questions among ids in the order of ids.
func (s *Store) GetQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return []domain.Question{}, nil
	}
	var rows []questionModel
	if err := s.db.NewSelect().Model(&rows).Where("id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	byID := make(map[string]domain.Question, len(rows))
	for _, r := range rows {
		byID[r.ID] = r.toDomain()
	}
	return orderQuestions(ids, byID), nil
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) error {
	if _, err := s.db.NewInsert().Model(questionFromDomain(q)).Exec(ctx); err != nil {
		return writeErr(err, "create question")
	}
	return nil
}

func (s *Store) UpdateQuestion(ctx context.Context, q domain.Question) error {
	res, err := s.db.NewUpdate().
		Model(questionFromDomain(q)).
		Column("text", "options", "explanation", "category_id", "difficulty").
		WherePK().
		Exec(ctx)
	if err != nil {
		return writeErr(err, "update question")
	}
	return requireRow(res, domain.ErrQuestionNotFound)
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*questionModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return requireRow(res, domain.ErrQuestionNotFound)
}

// Quizzes

func (s *Store) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	var row quizModel
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Quiz{}, notFound(err, domain.ErrQuizNotFound, "get quiz")
	}
	return row.toDomain(), nil
}

func (s *Store) CreateQuiz(ctx context.Context, q domain.Quiz) error {
	if _, err := s.db.NewInsert().Model(quizFromDomain(q)).Exec(ctx); err != nil {
		return writeErr(err, "create quiz")
	}
	return nil
}

// UpdateQuiz rewrites the editable columns. Stats, version and authorship stay as stored.
func (s *Store) UpdateQuiz(ctx context.Context, q domain.Quiz) error {
	res, err := s.db.NewUpdate().
		Model(quizFromDomain(q)).
		Column("title", "description", "category_id", "question_ids", "time_limit", "is_published").
		WherePK().
		Exec(ctx)
	if err != nil {
		return writeErr(err, "update quiz")
	}
	return requireRow(res, domain.ErrQuizNotFound)
}

func (s *Store) DeleteQuiz(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*quizModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return requireRow(res, domain.ErrQuizNotFound)
}

// Users

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	if _, err := s.db.NewInsert().Model(userFromDomain(u)).Exec(ctx); err != nil {
		return writeErr(err, "create user")
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	var row userModel
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.User{}, notFound(err, domain.ErrUserNotFound, "get user")
	}
	return row.toDomain(), nil
}

// GetUserByLogin matches the username or, case-insensitively, the email.
func (s *Store) GetUserByLogin(ctx context.Context, login string) (domain.User, error) {
	var row userModel
	err := s.db.NewSelect().
		Model(&row).
		Where("username = ?", login).
		WhereOr("lower(email) = lower(?)", login).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.User{}, notFound(err, domain.ErrUserNotFound, "get user by login")
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateProfile(ctx context.Context, u domain.User) error {
	res, err := s.db.NewUpdate().
		Model(userFromDomain(u)).
		Column("username", "email", "profile_picture").
		WherePK().
		Exec(ctx)
	if err != nil {
		return writeErr(err, "update profile")
	}
	return requireRow(res, domain.ErrUserNotFound)
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.NewUpdate().
		Model((*userModel)(nil)).
		Set("password_hash = ?", passwordHash).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRow(res, domain.ErrUserNotFound)
}

// WithinTx runs fn in one database transaction. Stats rows read inside fn are locked
// until commit.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.StatsStore) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, statsStore{db: tx, lock: true})
	})
}

// statsStore reads and version-checks the stats columns of quizzes and users.
type statsStore struct {
	db   bun.IDB
	lock bool
}

func (s statsStore) QuizStats(ctx context.Context, quizID string) (domain.QuizStats, error) {
	var row quizModel
	q := s.db.NewSelect().Model(&row).Column("attempts", "average_score", "version").Where("id = ?", quizID)
	if s.lock {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return domain.QuizStats{}, notFound(err, domain.ErrQuizNotFound, "load quiz stats")
	}
	return domain.QuizStats{Attempts: row.Attempts, AverageScore: row.AverageScore, Version: row.Version}, nil
}

func (s statsStore) CommitQuizStats(ctx context.Context, quizID string, stats domain.QuizStats, expectVersion int64) error {
	q := s.db.NewUpdate().
		Model((*quizModel)(nil)).
		Set("attempts = ?", stats.Attempts).
		Set("average_score = ?", stats.AverageScore).
		Set("version = version + 1").
		Where("id = ?", quizID)
	if expectVersion != app.AnyVersion {
		q = q.Where("version = ?", expectVersion)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("commit quiz stats: %w", err)
	}
	return s.checkCommit(ctx, res, (*quizModel)(nil), quizID, expectVersion, domain.ErrQuizNotFound)
}

func (s statsStore) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	var row userModel
	q := s.db.NewSelect().Model(&row).Column("stats", "quizzes_taken", "version").Where("id = ?", userID)
	if s.lock {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return domain.UserStats{}, notFound(err, domain.ErrUserNotFound, "load user stats")
	}
	return row.toDomain().Stats, nil
}

func (s statsStore) CommitUserStats(ctx context.Context, userID string, stats domain.UserStats, expectVersion int64) error {
	history := stats.History
	if history == nil {
		history = []domain.Attempt{}
	}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode user stats: %w", err)
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode quiz history: %w", err)
	}
	q := s.db.NewUpdate().
		Model((*userModel)(nil)).
		Set("stats = ?::jsonb", string(statsJSON)).
		Set("quizzes_taken = ?::jsonb", string(historyJSON)).
		Set("version = version + 1").
		Where("id = ?", userID)
	if expectVersion != app.AnyVersion {
		q = q.Where("version = ?", expectVersion)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("commit user stats: %w", err)
	}
	return s.checkCommit(ctx, res, (*userModel)(nil), userID, expectVersion, domain.ErrUserNotFound)
}

// checkCommit tells a lost version race apart from a missing row when nothing was updated.
func (s statsStore) checkCommit(ctx context.Context, res sql.Result, model any, id string, expectVersion int64, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if expectVersion == app.AnyVersion {
		return missing
	}
	exists, err := s.db.NewSelect().Model(model).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return fmt.Errorf("check stats row: %w", err)
	}
	if !exists {
		return missing
	}
	return domain.ErrVersionConflict
}

func orderQuestions(ids []string, byID map[string]domain.Question) []domain.Question {
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out
}

func notFound(err, sentinel error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}

func writeErr(err error, op string) error {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
		return domain.ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
