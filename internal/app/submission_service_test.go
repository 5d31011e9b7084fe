package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitScoresAndUpdatesStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	events := &recordingPublisher{}
	svc := app.NewSubmissionService(f.answerKeys, f.store, app.WithEvents(events))

	// q1..q3 right, q4 and q5 wrong
	res, err := svc.Submit(ctx, domain.Submission{
		QuizID:    "quiz-1",
		UserID:    bob.UserID,
		Answers:   answers("a", "b", "c", "a", "b"),
		TimeTaken: 42,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Score)
	assert.Equal(t, 5, res.TotalQuestions)
	assert.Equal(t, 60.0, res.PercentageScore)
	assert.Equal(t, 42.0, res.TimeTaken)
	require.Len(t, res.Results, 5)
	assert.True(t, res.Results[0].Correct)
	assert.False(t, res.Results[3].Correct)
	assert.Equal(t, "q4-d", res.Results[3].CorrectOption)

	quizStats, err := f.store.QuizStats(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 1, quizStats.Attempts)
	assert.Equal(t, 60.0, quizStats.AverageScore)

	userStats, err := f.store.UserStats(ctx, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, userStats.TotalQuizzesTaken)
	assert.Equal(t, 60.0, userStats.AverageScore)
	assert.Equal(t, domain.CategoryPerformance{QuizzesTaken: 1, AverageScore: 60}, userStats.CategoryPerformance["cat-1"])
	require.Len(t, userStats.History, 1)
	assert.Equal(t, "quiz-1", userStats.History[0].QuizID)
	assert.Equal(t, 60.0, userStats.History[0].Score)
	assert.NotEmpty(t, userStats.History[0].ID)

	require.Len(t, events.events, 1)
	assert.Equal(t, 3, events.events[0].Score)
	assert.Equal(t, "cat-1", events.events[0].CategoryID)
}

func TestSubmitUnknownQuizMutatesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := app.NewSubmissionService(f.answerKeys, f.store)

	_, err := svc.Submit(ctx, domain.Submission{QuizID: "missing", UserID: bob.UserID, Answers: answers("a")})
	require.ErrorIs(t, err, domain.ErrQuizNotFound)

	userStats, err := f.store.UserStats(ctx, bob.UserID)
	require.NoError(t, err)
	assert.Zero(t, userStats.TotalQuizzesTaken)
	assert.Empty(t, userStats.History)
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := app.NewSubmissionService(f.answerKeys, f.store)

	_, err := svc.Submit(ctx, domain.Submission{QuizID: "quiz-1", UserID: bob.UserID, TimeTaken: -1})
	assert.True(t, domain.IsValidation(err))

	_, err = svc.Submit(ctx, domain.Submission{QuizID: "quiz-1"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Submit(ctx, domain.Submission{UserID: bob.UserID})
	assert.True(t, domain.IsValidation(err))
}

func TestSubmitRunningAverages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := app.NewSubmissionService(f.answerKeys, f.store)

	for _, letters := range [][]string{
		{"a", "b", "c", "d", "a"}, // 100
		{"b", "b", "b", "b", "b"}, // 20
	} {
		_, err := svc.Submit(ctx, domain.Submission{QuizID: "quiz-1", UserID: bob.UserID, Answers: answers(letters...)})
		require.NoError(t, err)
	}

	quizStats, err := f.store.QuizStats(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 2, quizStats.Attempts)
	assert.InDelta(t, 60.0, quizStats.AverageScore, 1e-9)

	userStats, err := f.store.UserStats(ctx, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, userStats.TotalQuizzesTaken)
	assert.InDelta(t, 60.0, userStats.AverageScore, 1e-9)
	assert.Equal(t, 2, userStats.CategoryPerformance["cat-1"].QuizzesTaken)
}

// racingStats makes the first two quiz stats reads wait for each other, so both submissions
// see the same starting aggregates.
type racingStats struct {
	app.StatsRepository
	mu      sync.Mutex
	reads   int
	release chan struct{}
}

func newRacingStats(inner app.StatsRepository) *racingStats {
	return &racingStats{StatsRepository: inner, release: make(chan struct{})}
}

func (r *racingStats) QuizStats(ctx context.Context, quizID string) (domain.QuizStats, error) {
	stats, err := r.StatsRepository.QuizStats(ctx, quizID)
	r.mu.Lock()
	r.reads++
	n := r.reads
	r.mu.Unlock()
	if n == 2 {
		close(r.release)
	}
	if n <= 2 {
		select {
		case <-r.release:
		case <-time.After(5 * time.Second):
		}
	}
	return stats, err
}

func submitConcurrently(t *testing.T, svc *app.SubmissionService) {
	t.Helper()
	var wg sync.WaitGroup
	for _, user := range []string{alice.UserID, bob.UserID} {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), domain.Submission{
				QuizID:  "quiz-1",
				UserID:  userID,
				Answers: answers("a", "b", "c", "d", "a"),
			})
			assert.NoError(t, err)
		}(user)
	}
	wg.Wait()
}

func TestLegacyModeLosesConcurrentUpdate(t *testing.T) {
	f := newFixture(t)
	svc := app.NewSubmissionService(f.answerKeys, newRacingStats(f.store))
	require.Equal(t, app.ModeLegacy, svc.Mode())

	submitConcurrently(t, svc)

	stats, err := f.store.QuizStats(context.Background(), "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Attempts)
}

func TestAtomicModeKeepsConcurrentUpdates(t *testing.T) {
	f := newFixture(t)
	svc := app.NewSubmissionService(f.answerKeys, newRacingStats(f.store), app.WithConsistency(app.ModeAtomic, 3))

	submitConcurrently(t, svc)

	stats, err := f.store.QuizStats(context.Background(), "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Attempts)
	assert.Equal(t, 100.0, stats.AverageScore)
}

func TestTransactionalModeManySubmissions(t *testing.T) {
	f := newFixture(t)
	svc := app.NewSubmissionService(f.answerKeys, f.store, app.WithConsistency(app.ModeTransactional, 0))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), domain.Submission{
				QuizID:  "quiz-1",
				UserID:  bob.UserID,
				Answers: answers("a", "b", "c", "d", "a"),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ctx := context.Background()
	quizStats, err := f.store.QuizStats(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 20, quizStats.Attempts)

	userStats, err := f.store.UserStats(ctx, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, 20, userStats.TotalQuizzesTaken)
	assert.Len(t, userStats.History, 20)
}

func TestPartialFailureDependsOnMode(t *testing.T) {
	ctx := context.Background()
	sub := domain.Submission{QuizID: "quiz-1", UserID: "ghost", Answers: answers("a")}

	t.Run("legacy keeps the quiz update", func(t *testing.T) {
		f := newFixture(t)
		svc := app.NewSubmissionService(f.answerKeys, f.store)

		_, err := svc.Submit(ctx, sub)
		require.ErrorIs(t, err, domain.ErrPersistence)

		stats, err := f.store.QuizStats(ctx, "quiz-1")
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Attempts)
	})

	t.Run("transactional rolls back", func(t *testing.T) {
		f := newFixture(t)
		svc := app.NewSubmissionService(f.answerKeys, f.store, app.WithConsistency(app.ModeTransactional, 0))

		_, err := svc.Submit(ctx, sub)
		require.ErrorIs(t, err, domain.ErrPersistence)

		stats, err := f.store.QuizStats(ctx, "quiz-1")
		require.NoError(t, err)
		assert.Zero(t, stats.Attempts)
	})
}

func TestSubmitPublishesToFeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	feed := app.NewStatsFeed()
	svc := app.NewSubmissionService(f.answerKeys, f.store, app.WithStatsFeed(feed))

	initial, err := svc.QuizStatsSnapshot(ctx, "quiz-1")
	require.NoError(t, err)
	ch, cancel := feed.Subscribe("quiz-1", initial)
	defer cancel()
	<-ch

	_, err = svc.Submit(ctx, domain.Submission{QuizID: "quiz-1", UserID: bob.UserID, Answers: answers("a", "b", "c")})
	require.NoError(t, err)

	select {
	case snap := <-ch:
		assert.Equal(t, 1, snap.Attempts)
		assert.Equal(t, 60.0, snap.AverageScore)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after submission")
	}
}

func TestSubmitIgnoresPublishFailure(t *testing.T) {
	f := newFixture(t)
	events := &recordingPublisher{err: errors.New("broker down")}
	svc := app.NewSubmissionService(f.answerKeys, f.store, app.WithEvents(events))

	res, err := svc.Submit(context.Background(), domain.Submission{QuizID: "quiz-1", UserID: bob.UserID})
	require.NoError(t, err)
	assert.Zero(t, res.Score)
	assert.Len(t, events.events, 1)
}

func TestParseConsistencyMode(t *testing.T) {
	for raw, want := range map[string]app.ConsistencyMode{
		"":              app.ModeLegacy,
		"legacy":        app.ModeLegacy,
		"atomic":        app.ModeAtomic,
		"transactional": app.ModeTransactional,
	} {
		got, err := app.ParseConsistencyMode(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := app.ParseConsistencyMode("eventual")
	assert.Error(t, err)
}
