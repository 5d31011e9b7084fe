package cli

import (
	"testing"

	"quiz-app-service/internal/domain"
	"quiz-app-service/internal/infra/memory"
	"quiz-app-service/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedCatalogIsValidAndIdempotent(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()

	require.NoError(t, seedCatalog(ctx, store, "password"))
	require.NoError(t, seedCatalog(ctx, store, "password"))

	categories, err := store.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, len(seedCategories))
	assert.Equal(t, "Computer Science", categories[0].Name)

	quizzes, err := store.ListQuizzes(ctx, domain.QuizFilter{PublishedOnly: true})
	require.NoError(t, err)
	require.Len(t, quizzes, len(seedCategories))

	for _, q := range quizzes {
		loaded, err := store.LoadQuiz(ctx, q.ID)
		require.NoError(t, err)
		assert.Len(t, loaded.Questions, len(loaded.QuestionIDs), q.ID)

		var perfect []domain.SubmittedAnswer
		for _, question := range loaded.Questions {
			correct, err := scoring.CorrectOption(question)
			require.NoError(t, err)
			perfect = append(perfect, domain.SubmittedAnswer{QuestionID: question.ID, SelectedOption: correct})
		}
		res, err := scoring.Score(loaded, perfect)
		require.NoError(t, err)
		assert.Equal(t, 100.0, res.Percentage, q.ID)
	}

	admin, err := store.GetUserByLogin(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	tester, err := store.GetUserByLogin(ctx, "test@example.com")
	require.NoError(t, err)
	assert.False(t, tester.IsAdmin)
}
