package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/auth"
	"quiz-app-service/internal/domain"
	"quiz-app-service/internal/infra/memory"

	"github.com/stretchr/testify/require"
)

var (
	admin  = app.Actor{UserID: "admin-1", IsAdmin: true}
	alice  = app.Actor{UserID: "user-1"}
	bob    = app.Actor{UserID: "user-2"}
	nobody = app.Actor{}
)

type fixture struct {
	store      *memory.Store
	answerKeys *memory.AnswerKeyCache
	sessions   *memory.SessionStore
}

// newFixture seeds category cat-1, questions q1..q5 with options qN-a..qN-d (correct letters
// a, b, c, d, a), published quiz-1 created by user-1 and the users admin-1, user-1, user-2.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, store.CreateCategory(ctx, domain.Category{ID: "cat-1", Name: "Science", Description: "Nature"}))

	correct := []string{"a", "b", "c", "d", "a"}
	ids := make([]string, 0, len(correct))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, letter := range correct {
		id := fmt.Sprintf("q%d", i+1)
		opts := make([]domain.Option, 0, 4)
		for _, l := range []string{"a", "b", "c", "d"} {
			opts = append(opts, domain.Option{ID: id + "-" + l, Text: "option " + l, Correct: l == letter})
		}
		require.NoError(t, store.CreateQuestion(ctx, domain.Question{
			ID:         id,
			Text:       "question " + id,
			Options:    opts,
			CategoryID: "cat-1",
			Difficulty: domain.DifficultyMedium,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
		ids = append(ids, id)
	}
	require.NoError(t, store.CreateQuiz(ctx, domain.Quiz{
		ID:          "quiz-1",
		Title:       "Basics",
		Description: "Five questions",
		CategoryID:  "cat-1",
		QuestionIDs: ids,
		TimeLimit:   600,
		CreatedBy:   alice.UserID,
		IsPublished: true,
		CreatedAt:   base,
	}))

	hash, err := auth.HashPassword("password")
	require.NoError(t, err)
	for _, u := range []domain.User{
		{ID: admin.UserID, Username: "admin", Email: "admin@example.com", IsAdmin: true},
		{ID: alice.UserID, Username: "alice", Email: "alice@example.com"},
		{ID: bob.UserID, Username: "bob", Email: "bob@example.com"},
	} {
		u.PasswordHash = hash
		require.NoError(t, store.CreateUser(ctx, u))
	}

	return &fixture{
		store:      store,
		answerKeys: memory.NewAnswerKeyCache(store, time.Minute),
		sessions:   memory.NewSessionStore(),
	}
}

// answers selects the given letter per question, in order.
func answers(letters ...string) []domain.SubmittedAnswer {
	out := make([]domain.SubmittedAnswer, 0, len(letters))
	for i, l := range letters {
		id := fmt.Sprintf("q%d", i+1)
		out = append(out, domain.SubmittedAnswer{QuestionID: id, SelectedOption: id + "-" + l})
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.SubmissionEvent
	err    error
}

func (p *recordingPublisher) PublishSubmission(_ context.Context, e domain.SubmissionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}
