package memory

import (
	"context"
	"errors"
	"testing"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLoadQuizKeepsQuestionOrder(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	quiz, err := store.GetQuiz(ctx, "quiz-1")
	require.NoError(t, err)
	quiz.QuestionIDs = []string{"q2", "q1"}
	require.NoError(t, store.UpdateQuiz(ctx, quiz))

	loaded, err := store.LoadQuiz(ctx, "quiz-1")
	require.NoError(t, err)
	require.Len(t, loaded.Questions, 2)
	assert.Equal(t, "q2", loaded.Questions[0].ID)
	assert.Equal(t, "q1", loaded.Questions[1].ID)
}

func TestStoreUpdateQuizKeepsStats(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	require.NoError(t, store.CommitQuizStats(ctx, "quiz-1", domain.QuizStats{Attempts: 3, AverageScore: 70}, app.AnyVersion))

	quiz, err := store.GetQuiz(ctx, "quiz-1")
	require.NoError(t, err)
	quiz.Title = "Renamed"
	quiz.Stats = domain.QuizStats{}
	require.NoError(t, store.UpdateQuiz(ctx, quiz))

	stats, err := store.QuizStats(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Attempts)
	assert.Equal(t, 70.0, stats.AverageScore)
}

func TestStoreCommitQuizStatsVersionCheck(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	stats, err := store.QuizStats(ctx, "quiz-1")
	require.NoError(t, err)
	require.NoError(t, store.CommitQuizStats(ctx, "quiz-1", domain.QuizStats{Attempts: 1, AverageScore: 50}, stats.Version))

	err = store.CommitQuizStats(ctx, "quiz-1", domain.QuizStats{Attempts: 1, AverageScore: 90}, stats.Version)
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	require.NoError(t, store.CommitQuizStats(ctx, "quiz-1", domain.QuizStats{Attempts: 2, AverageScore: 70}, app.AnyVersion))
	current, err := store.QuizStats(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 2, current.Attempts)
	assert.Equal(t, stats.Version+2, current.Version)
}

func TestStoreWithinTxRollsBack(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, domain.User{ID: "user-1", Username: "ann", Email: "ann@example.com"}))

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, tx app.StatsStore) error {
		if err := tx.CommitQuizStats(ctx, "quiz-1", domain.QuizStats{Attempts: 1, AverageScore: 100}, app.AnyVersion); err != nil {
			return err
		}
		if err := tx.CommitUserStats(ctx, "user-1", domain.UserStats{TotalQuizzesTaken: 1}, app.AnyVersion); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	quizStats, err := store.QuizStats(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Zero(t, quizStats.Attempts)
	assert.Zero(t, quizStats.Version)

	userStats, err := store.UserStats(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, userStats.TotalQuizzesTaken)
}

func TestStoreUserUniqueness(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, domain.User{ID: "u1", Username: "ann", Email: "ann@example.com"}))

	require.ErrorIs(t, store.CreateUser(ctx, domain.User{ID: "u2", Username: "ann", Email: "other@example.com"}), domain.ErrDuplicate)
	require.ErrorIs(t, store.CreateUser(ctx, domain.User{ID: "u2", Username: "bob", Email: "ANN@example.com"}), domain.ErrDuplicate)

	u, err := store.GetUserByLogin(ctx, "Ann@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}

func TestStoreUserStatsAreCopied(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, domain.User{ID: "u1", Username: "ann", Email: "ann@example.com"}))

	stats, err := store.UserStats(ctx, "u1")
	require.NoError(t, err)
	stats.CategoryPerformance["cat-1"] = domain.CategoryPerformance{QuizzesTaken: 9}

	again, err := store.UserStats(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, again.CategoryPerformance)
}

func TestStoreQuestionFilters(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	easy, err := store.ListQuestions(ctx, domain.QuestionFilter{Difficulty: domain.DifficultyEasy})
	require.NoError(t, err)
	require.Len(t, easy, 1)
	assert.Equal(t, "q1", easy[0].ID)

	found, err := store.GetQuestions(ctx, []string{"q2", "nope", "q1"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "q2", found[0].ID)
	assert.Equal(t, "q1", found[1].ID)
}
