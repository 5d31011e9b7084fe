package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/domain"
)

// Store is an in-memory implementation of every app repository. It backs local development
// and tests, and doubles as the QuizLoader behind the answer-key cache.
type Store struct {
	mu         sync.RWMutex
	categories map[string]domain.Category
	questions  map[string]domain.Question
	quizzes    map[string]domain.Quiz
	users      map[string]domain.User
}

func NewStore() *Store {
	return &Store{
		categories: make(map[string]domain.Category),
		questions:  make(map[string]domain.Question),
		quizzes:    make(map[string]domain.Quiz),
		users:      make(map[string]domain.User),
	}
}

// Categories

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return c, nil
}

func (s *Store) CreateCategory(_ context.Context, c domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryNameTakenLocked(c.Name, "") {
		return domain.ErrDuplicate
	}
	s.categories[c.ID] = c
	return nil
}

func (s *Store) UpdateCategory(_ context.Context, c domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[c.ID]; !ok {
		return domain.ErrCategoryNotFound
	}
	if s.categoryNameTakenLocked(c.Name, c.ID) {
		return domain.ErrDuplicate
	}
	s.categories[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) categoryNameTakenLocked(name, exceptID string) bool {
	for id, c := range s.categories {
		if id != exceptID && c.Name == name {
			return true
		}
	}
	return false
}

// Questions

func (s *Store) ListQuestions(_ context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0)
	for _, q := range s.questions {
		if filter.CategoryID != "" && q.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Difficulty != "" && q.Difficulty != filter.Difficulty {
			continue
		}
		out = append(out, cloneQuestion(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetQuestion(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return cloneQuestion(q), nil
}

func (s *Store) GetQuestions(_ context.Context, ids []string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.questionsLocked(ids), nil
}

func (s *Store) questionsLocked(ids []string) []domain.Question {
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out = append(out, cloneQuestion(q))
		}
	}
	return out
}

func (s *Store) CreateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (s *Store) UpdateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, id)
	return nil
}

// Quizzes

func (s *Store) ListQuizzes(_ context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for _, q := range s.quizzes {
		if filter.PublishedOnly && !q.IsPublished {
			continue
		}
		if filter.CategoryID != "" && q.CategoryID != filter.CategoryID {
			continue
		}
		out = append(out, cloneQuiz(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetQuiz(_ context.Context, id string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(q), nil
}

func (s *Store) CreateQuiz(_ context.Context, q domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.Questions = nil
	s.quizzes[q.ID] = cloneQuiz(q)
	return nil
}

func (s *Store) UpdateQuiz(_ context.Context, q domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.quizzes[q.ID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	q.Questions = nil
	q.Stats = existing.Stats
	q.CreatedAt = existing.CreatedAt
	q.CreatedBy = existing.CreatedBy
	s.quizzes[q.ID] = cloneQuiz(q)
	return nil
}

func (s *Store) DeleteQuiz(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, id)
	return nil
}

// LoadQuiz returns the quiz with its questions, including correctness flags, in quiz order.
// Questions deleted since the quiz was saved are left out.
func (s *Store) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz := cloneQuiz(q)
	quiz.Questions = s.questionsLocked(quiz.QuestionIDs)
	return quiz, nil
}

// Users

func (s *Store) CreateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userTakenLocked(u.Username, u.Email, "") {
		return domain.ErrDuplicate
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// GetUserByLogin matches the username or, case-insensitively, the email.
func (s *Store) GetUserByLogin(_ context.Context, login string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == login || strings.EqualFold(u.Email, login) {
			return cloneUser(u), nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) UpdateProfile(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if s.userTakenLocked(u.Username, u.Email, u.ID) {
		return domain.ErrDuplicate
	}
	existing.Username = u.Username
	existing.Email = u.Email
	existing.ProfilePicture = u.ProfilePicture
	s.users[u.ID] = existing
	return nil
}

func (s *Store) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	existing.PasswordHash = passwordHash
	s.users[id] = existing
	return nil
}

func (s *Store) userTakenLocked(username, email, exceptID string) bool {
	for id, u := range s.users {
		if id == exceptID {
			continue
		}
		if u.Username == username || strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

// Stats

func (s *Store) QuizStats(_ context.Context, quizID string) (domain.QuizStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quizStatsLocked(quizID)
}

func (s *Store) CommitQuizStats(_ context.Context, quizID string, stats domain.QuizStats, expectVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.commitQuizStatsLocked(quizID, stats, expectVersion)
	return err
}

func (s *Store) UserStats(_ context.Context, userID string) (domain.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userStatsLocked(userID)
}

func (s *Store) CommitUserStats(_ context.Context, userID string, stats domain.UserStats, expectVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.commitUserStatsLocked(userID, stats, expectVersion)
	return err
}

// WithinTx holds the store lock for the whole of fn and restores every record fn committed
// when it returns an error.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.StatsStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txStore{store: s}
	if err := fn(ctx, tx); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	return nil
}

func (s *Store) quizStatsLocked(quizID string) (domain.QuizStats, error) {
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.QuizStats{}, domain.ErrQuizNotFound
	}
	return q.Stats, nil
}

func (s *Store) commitQuizStatsLocked(quizID string, stats domain.QuizStats, expectVersion int64) (domain.Quiz, error) {
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if expectVersion != app.AnyVersion && q.Stats.Version != expectVersion {
		return domain.Quiz{}, domain.ErrVersionConflict
	}
	prev := q
	q.Stats = domain.QuizStats{
		Attempts:     stats.Attempts,
		AverageScore: stats.AverageScore,
		Version:      prev.Stats.Version + 1,
	}
	s.quizzes[quizID] = q
	return prev, nil
}

func (s *Store) userStatsLocked(userID string) (domain.UserStats, error) {
	u, ok := s.users[userID]
	if !ok {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	return cloneUserStats(u.Stats), nil
}

func (s *Store) commitUserStatsLocked(userID string, stats domain.UserStats, expectVersion int64) (domain.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	if expectVersion != app.AnyVersion && u.Stats.Version != expectVersion {
		return domain.User{}, domain.ErrVersionConflict
	}
	prev := u
	next := cloneUserStats(stats)
	next.Version = prev.Stats.Version + 1
	u.Stats = next
	s.users[userID] = u
	return prev, nil
}

// txStore runs against a Store whose lock is already held by WithinTx.
type txStore struct {
	store *Store
	undo  []func()
}

func (t *txStore) QuizStats(_ context.Context, quizID string) (domain.QuizStats, error) {
	return t.store.quizStatsLocked(quizID)
}

func (t *txStore) CommitQuizStats(_ context.Context, quizID string, stats domain.QuizStats, expectVersion int64) error {
	prev, err := t.store.commitQuizStatsLocked(quizID, stats, expectVersion)
	if err != nil {
		return err
	}
	t.undo = append(t.undo, func() { t.store.quizzes[quizID] = prev })
	return nil
}

func (t *txStore) UserStats(_ context.Context, userID string) (domain.UserStats, error) {
	return t.store.userStatsLocked(userID)
}

func (t *txStore) CommitUserStats(_ context.Context, userID string, stats domain.UserStats, expectVersion int64) error {
	prev, err := t.store.commitUserStatsLocked(userID, stats, expectVersion)
	if err != nil {
		return err
	}
	t.undo = append(t.undo, func() { t.store.users[userID] = prev })
	return nil
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Options = append([]domain.Option(nil), q.Options...)
	return q
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	q.QuestionIDs = append([]string(nil), q.QuestionIDs...)
	if q.Questions != nil {
		questions := make([]domain.Question, len(q.Questions))
		for i, question := range q.Questions {
			questions[i] = cloneQuestion(question)
		}
		q.Questions = questions
	}
	return q
}

func cloneUser(u domain.User) domain.User {
	u.Stats = cloneUserStats(u.Stats)
	return u
}

func cloneUserStats(st domain.UserStats) domain.UserStats {
	perf := make(map[string]domain.CategoryPerformance, len(st.CategoryPerformance))
	for k, v := range st.CategoryPerformance {
		perf[k] = v
	}
	st.CategoryPerformance = perf
	st.History = append([]domain.Attempt(nil), st.History...)
	return st
}
