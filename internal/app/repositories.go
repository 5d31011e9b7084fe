package app

import (
	"context"
	"io"
	"time"

	"quiz-app-service/internal/domain"
)

// AnyVersion makes a stats commit unconditional (last write wins).
const AnyVersion int64 = -1

// AnswerKeySource resolves a quiz with its ordered questions and correctness flags.
// Implementations are caches in front of a QuizLoader.
type AnswerKeySource interface {
	GetQuizWithAnswerKey(ctx context.Context, quizID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID string)
}

// StatsStore reads and commits the running aggregates of quizzes and users.
// A commit with expectVersion != AnyVersion fails with domain.ErrVersionConflict when the stored
// version differs; every successful commit bumps the stored version.
type StatsStore interface {
	QuizStats(ctx context.Context, quizID string) (domain.QuizStats, error)
	CommitQuizStats(ctx context.Context, quizID string, stats domain.QuizStats, expectVersion int64) error
	UserStats(ctx context.Context, userID string) (domain.UserStats, error)
	CommitUserStats(ctx context.Context, userID string, stats domain.UserStats, expectVersion int64) error
}

// StatsRepository is a StatsStore that can run several commits in one transaction.
type StatsRepository interface {
	StatsStore
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx StatsStore) error) error
}

// CategoryRepository stores categories. Names are unique.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (domain.Category, error)
	CreateCategory(ctx context.Context, c domain.Category) error
	UpdateCategory(ctx context.Context, c domain.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

// QuestionRepository stores questions.
type QuestionRepository interface {
	ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	// GetQuestions returns the questions that exist, in the order of ids. Missing ids are skipped.
	GetQuestions(ctx context.Context, ids []string) ([]domain.Question, error)
	CreateQuestion(ctx context.Context, q domain.Question) error
	UpdateQuestion(ctx context.Context, q domain.Question) error
	DeleteQuestion(ctx context.Context, id string) error
}

// QuizRepository stores quiz metadata. UpdateQuiz never touches the stats columns.
type QuizRepository interface {
	GetQuiz(ctx context.Context, id string) (domain.Quiz, error)
	CreateQuiz(ctx context.Context, q domain.Quiz) error
	UpdateQuiz(ctx context.Context, q domain.Quiz) error
	DeleteQuiz(ctx context.Context, id string) error
}

// QuizLister serves quiz listings, newest first.
type QuizLister interface {
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error)
}

// UserRepository stores accounts. Username and email are unique.
type UserRepository interface {
	CreateUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByLogin(ctx context.Context, login string) (domain.User, error)
	UpdateProfile(ctx context.Context, u domain.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// SessionStore tracks issued tokens so they can be revoked before they expire.
type SessionStore interface {
	Create(ctx context.Context, tokenID, userID string, ttl time.Duration) error
	Lookup(ctx context.Context, tokenID string) (string, bool, error)
	Revoke(ctx context.Context, tokenID string) error
}

// EventPublisher announces committed submissions to other services.
type EventPublisher interface {
	PublishSubmission(ctx context.Context, event domain.SubmissionEvent) error
}

// AvatarStorage keeps uploaded profile pictures and returns their public URL.
type AvatarStorage interface {
	UploadAvatar(ctx context.Context, userID string, body io.Reader, size int64, contentType string) (string, error)
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishSubmission(context.Context, domain.SubmissionEvent) error { return nil }
