package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/auth"
	"quiz-app-service/internal/domain"
	"quiz-app-service/internal/infra/memory"
	"quiz-app-service/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

type testEnv struct {
	router *gin.Engine
	store  *memory.Store
	feed   *app.StatsFeed
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	store := memory.NewStore()
	seedStore(t, store)

	answerKeys := memory.NewAnswerKeyCache(store, time.Minute)
	feed := app.NewStatsFeed()
	svc := Services{
		Auth:        app.NewAuthService(store, memory.NewSessionStore(), auth.NewIssuer("test-secret", time.Hour), nil),
		Categories:  app.NewCategoryService(store),
		Questions:   app.NewQuestionService(store, store, store, answerKeys),
		Quizzes:     app.NewQuizService(store, store, store, store, answerKeys),
		Submissions: app.NewSubmissionService(answerKeys, store, app.WithStatsFeed(feed)),
		Results:     app.NewResultsService(store, store, store),
		Feed:        feed,
	}
	return testEnv{
		router: NewRouter(svc, []string{"*"}, logger.New(io.Discard, "error", false)),
		store:  store,
		feed:   feed,
	}
}

func seedStore(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := t.Context()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateCategory(ctx, domain.Category{ID: "cat-1", Name: "Science", Description: "Nature", CreatedAt: base}))
	for i, correct := range []string{"b", "c"} {
		id := fmt.Sprintf("q%d", i+1)
		q := domain.Question{ID: id, Text: "Question " + id, Explanation: "Because " + correct, CategoryID: "cat-1", Difficulty: "easy", CreatedAt: base}
		for _, l := range []string{"a", "b", "c", "d"} {
			q.Options = append(q.Options, domain.Option{ID: id + "-" + l, Text: l, Correct: l == correct})
		}
		require.NoError(t, store.CreateQuestion(ctx, q))
	}
	broken := domain.Question{ID: "q-broken", Text: "Broken", CategoryID: "cat-1", Difficulty: "easy", CreatedAt: base}
	for _, l := range []string{"a", "b", "c", "d"} {
		broken.Options = append(broken.Options, domain.Option{ID: "q-broken-" + l, Text: l})
	}
	require.NoError(t, store.CreateQuestion(ctx, broken))

	quizzes := []domain.Quiz{
		{ID: "quiz-1", Title: "Basics", Description: "Warm up", CategoryID: "cat-1", QuestionIDs: []string{"q1", "q2"}, TimeLimit: 600, CreatedBy: "user-1", IsPublished: true, CreatedAt: base},
		{ID: "quiz-draft", Title: "Draft", Description: "Hidden", CategoryID: "cat-1", QuestionIDs: []string{"q1"}, TimeLimit: 600, CreatedBy: "user-1", CreatedAt: base.Add(time.Hour)},
		{ID: "quiz-broken", Title: "Broken", Description: "No key", CategoryID: "cat-1", QuestionIDs: []string{"q-broken"}, TimeLimit: 600, CreatedBy: "admin", IsPublished: true, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, q := range quizzes {
		require.NoError(t, store.CreateQuiz(ctx, q))
	}

	hash, err := auth.HashPassword("password")
	require.NoError(t, err)
	users := []domain.User{
		{ID: "admin", Username: "admin", Email: "admin@example.com", IsAdmin: true},
		{ID: "user-1", Username: "alice", Email: "alice@example.com"},
		{ID: "user-2", Username: "bob", Email: "bob@example.com"},
	}
	for _, u := range users {
		u.PasswordHash = hash
		u.CreatedAt = base
		require.NoError(t, store.CreateUser(ctx, u))
	}
}

func (e testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e testEnv) login(t *testing.T, username string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": "password"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = e.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", decode[healthResponse](t, rec).Status)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestSubmitScoresAndUpdatesStats(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice")

	rec := e.do(t, http.MethodPost, "/api/quizzes/quiz-1/submit", token,
		`{"answers":[{"questionId":"q1","selectedOption":"q1-b"},{"questionId":"q2","selectedOption":7}],"timeTaken":30}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[domain.SubmissionResult](t, rec)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, 2, res.TotalQuestions)
	assert.Equal(t, 50.0, res.PercentageScore)
	assert.Equal(t, 30.0, res.TimeTaken)
	require.Len(t, res.Results, 2)
	assert.True(t, res.Results[0].Correct)
	assert.False(t, res.Results[1].Correct)
	require.NotNil(t, res.Results[1].SelectedOption)
	assert.Equal(t, "7", *res.Results[1].SelectedOption)
	assert.Equal(t, "q2-c", res.Results[1].CorrectOption)

	quiz, err := e.store.GetQuiz(t.Context(), "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 1, quiz.Stats.Attempts)
	assert.Equal(t, 50.0, quiz.Stats.AverageScore)

	user, err := e.store.GetUser(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, user.Stats.TotalQuizzesTaken)
}

func TestSubmitErrors(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice")
	valid := `{"answers":[],"timeTaken":5}`

	cases := []struct {
		name    string
		path    string
		token   string
		body    string
		status  int
		message string
	}{
		{name: "no token", path: "/api/quizzes/quiz-1/submit", body: valid, status: http.StatusUnauthorized, message: "Authentication required"},
		{name: "bad token", path: "/api/quizzes/quiz-1/submit", token: "garbage", body: valid, status: http.StatusUnauthorized, message: "Authentication required"},
		{name: "unknown quiz", path: "/api/quizzes/nope/submit", token: token, body: valid, status: http.StatusNotFound, message: "Quiz not found"},
		{name: "answers not a list", path: "/api/quizzes/quiz-1/submit", token: token, body: `{"answers":"q1","timeTaken":5}`, status: http.StatusBadRequest},
		{name: "missing timeTaken", path: "/api/quizzes/quiz-1/submit", token: token, body: `{"answers":[]}`, status: http.StatusBadRequest},
		{name: "negative timeTaken", path: "/api/quizzes/quiz-1/submit", token: token, body: `{"answers":[],"timeTaken":-1}`, status: http.StatusBadRequest},
		{name: "quiz without answer key", path: "/api/quizzes/quiz-broken/submit", token: token, body: valid, status: http.StatusInternalServerError, message: "Server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			if tc.message != "" {
				assert.Equal(t, tc.message, decode[ErrorResponse](t, rec).Message)
			}
		})
	}

	for _, id := range []string{"quiz-1", "quiz-broken"} {
		quiz, err := e.store.GetQuiz(t.Context(), id)
		require.NoError(t, err)
		assert.Zero(t, quiz.Stats.Attempts, id)
	}
}

func TestQuizReadsHideAnswers(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/quizzes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]quizView](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "quiz-broken", list[0].ID)
	assert.Equal(t, "quiz-1", list[1].ID)
	assert.Empty(t, list[1].Questions)

	rec = e.do(t, http.MethodGet, "/api/quizzes/quiz-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "isCorrect")
	assert.NotContains(t, rec.Body.String(), "Because")
	view := decode[quizView](t, rec)
	require.Len(t, view.Questions, 2)
	assert.Equal(t, "q1", view.Questions[0].ID)

	rec = e.do(t, http.MethodGet, "/api/quizzes/quiz-draft", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFullQuizIsForCreatorOrAdmin(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/quizzes/quiz-draft/full", e.login(t, "alice"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[quizView](t, rec)
	require.Len(t, view.Questions, 1)
	require.NotNil(t, view.Questions[0].Options[1].IsCorrect)
	assert.True(t, *view.Questions[0].Options[1].IsCorrect)

	rec = e.do(t, http.MethodGet, "/api/quizzes/quiz-draft/full", e.login(t, "bob"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/quizzes/quiz-draft/full", e.login(t, "admin"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQuizLifecycle(t *testing.T) {
	e := newTestEnv(t)
	alice := e.login(t, "alice")

	rec := e.do(t, http.MethodPost, "/api/quizzes", alice, map[string]any{
		"title": "New", "description": "Fresh", "categoryId": "cat-1", "questionIds": []string{"q2", "q1"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[quizView](t, rec)
	assert.Equal(t, 600, created.TimeLimit)
	assert.True(t, created.IsPublished)
	assert.Equal(t, "user-1", created.CreatedBy)

	rec = e.do(t, http.MethodPost, "/api/quizzes", alice, map[string]any{
		"title": "Bad", "description": "x", "categoryId": "cat-1", "questionIds": []string{"missing"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPut, "/api/quizzes/"+created.ID, e.login(t, "bob"), map[string]any{"title": "Hijack"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPut, "/api/quizzes/"+created.ID, alice, map[string]any{"title": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed", decode[quizView](t, rec).Title)

	rec = e.do(t, http.MethodDelete, "/api/quizzes/"+created.ID, alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodGet, "/api/quizzes/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCategoriesAndQuestions(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login(t, "admin")
	alice := e.login(t, "alice")

	rec := e.do(t, http.MethodPost, "/api/categories", alice, map[string]string{"name": "Art", "description": "Paint"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/categories", admin, map[string]string{"name": "Art", "description": "Paint"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cat := decode[domain.Category](t, rec)
	assert.Equal(t, "default-category-icon.png", cat.Icon)
	assert.Equal(t, "#1976D2", cat.Color)

	rec = e.do(t, http.MethodPost, "/api/categories", admin, map[string]string{"name": "Art", "description": "Again"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[[]domain.Category](t, rec)
	require.Len(t, cats, 2)
	assert.Equal(t, "Art", cats[0].Name)

	rec = e.do(t, http.MethodGet, "/api/questions/category/cat-1", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "isCorrect")

	rec = e.do(t, http.MethodGet, "/api/questions/category/nope", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/questions", alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/questions", admin, map[string]any{
		"text":       "Two correct",
		"categoryId": "cat-1",
		"options": []map[string]any{
			{"text": "a", "isCorrect": true}, {"text": "b", "isCorrect": true}, {"text": "c"}, {"text": "d"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/questions", admin, map[string]any{
		"text":       "One correct",
		"categoryId": "cat-1",
		"options": []map[string]any{
			{"text": "a"}, {"text": "b", "isCorrect": true}, {"text": "c"}, {"text": "d"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	q := decode[questionView](t, rec)
	assert.Equal(t, "medium", q.Difficulty)
	require.Len(t, q.Options, 4)

	rec = e.do(t, http.MethodGet, "/api/questions?difficulty=medium", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]questionView](t, rec), 1)
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "carol", "email": "carol@example.com", "password": "secret"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[authResponse](t, rec)
	assert.Equal(t, "carol", reg.User.Username)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "carol", "email": "other@example.com", "password": "secret"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "CAROL@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid credentials", decode[ErrorResponse](t, rec).Message)

	rec = e.do(t, http.MethodGet, "/api/auth/current", reg.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "carol@example.com", decode[domain.User](t, rec).Email)

	rec = e.do(t, http.MethodPut, "/api/auth/profile", reg.Token, map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPut, "/api/auth/password", reg.Token, map[string]string{"currentPassword": "secret", "newPassword": "better"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/auth/logout", reg.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodGet, "/api/auth/user", reg.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "carol", "password": "better"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAvatarUploadWithoutStorage(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/auth/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestResults(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice")

	rec := e.do(t, http.MethodPost, "/api/quizzes/quiz-1/submit", token, `{"answers":[{"questionId":"q1","selectedOption":"q1-b"}],"timeTaken":12}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/user/results", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[[]app.Result](t, rec)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Quiz)
	assert.Equal(t, "Basics", results[0].Quiz.Title)
	assert.Equal(t, 50.0, results[0].Score)

	rec = e.do(t, http.MethodGet, "/api/user/results?resultId="+results[0].ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/user/results?resultId="+results[0].ID, e.login(t, "bob"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusForPrefersServerErrors(t *testing.T) {
	wrapped := fmt.Errorf("commit user stats: %w: %w", domain.ErrPersistence, domain.ErrUserNotFound)
	status, msg := statusFor(wrapped)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, serverErrorMessage, msg)

	status, msg = statusFor(domain.NewValidationError("timeTaken", "must be a non-negative number"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "timeTaken must be a non-negative number", msg)

	status, _ = statusFor(fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
}
