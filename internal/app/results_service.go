package app

import (
	"context"

	"quiz-app-service/internal/domain"
)

// QuizSummary is the quiz information attached to a result.
type QuizSummary struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Category *domain.Category `json:"category"`
}

// Result is one history entry of the caller together with the quiz it belongs to.
// Quiz is nil when the quiz has been deleted since.
type Result struct {
	domain.Attempt
	Quiz *QuizSummary `json:"quiz"`
}

// ResultsService serves a user's own attempt history.
type ResultsService struct {
	users      UserRepository
	quizzes    QuizRepository
	categories CategoryRepository
}

func NewResultsService(users UserRepository, quizzes QuizRepository, categories CategoryRepository) *ResultsService {
	return &ResultsService{users: users, quizzes: quizzes, categories: categories}
}

// History returns the caller's attempts, newest first.
func (s *ResultsService) History(ctx context.Context, actor Actor) ([]Result, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	user, err := s.users.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	history := user.Stats.History
	summaries := make(map[string]*QuizSummary)
	out := make([]Result, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		summary, err := s.summary(ctx, history[i].QuizID, summaries)
		if err != nil {
			return nil, err
		}
		out = append(out, Result{Attempt: history[i], Quiz: summary})
	}
	return out, nil
}

// Get returns one of the caller's attempts. Attempts of other users are reported as not found.
func (s *ResultsService) Get(ctx context.Context, actor Actor, resultID string) (Result, error) {
	if err := requireUser(actor); err != nil {
		return Result{}, err
	}
	user, err := s.users.GetUser(ctx, actor.UserID)
	if err != nil {
		return Result{}, err
	}
	for _, attempt := range user.Stats.History {
		if attempt.ID != resultID {
			continue
		}
		summary, err := s.summary(ctx, attempt.QuizID, map[string]*QuizSummary{})
		if err != nil {
			return Result{}, err
		}
		return Result{Attempt: attempt, Quiz: summary}, nil
	}
	return Result{}, domain.ErrResultNotFound
}

func (s *ResultsService) summary(ctx context.Context, quizID string, seen map[string]*QuizSummary) (*QuizSummary, error) {
	if summary, ok := seen[quizID]; ok {
		return summary, nil
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if domain.IsNotFound(err) {
		seen[quizID] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	summary := &QuizSummary{ID: quiz.ID, Title: quiz.Title}
	category, err := s.categories.GetCategory(ctx, quiz.CategoryID)
	switch {
	case err == nil:
		summary.Category = &category
	case !domain.IsNotFound(err):
		return nil, err
	}
	seen[quizID] = summary
	return summary, nil
}
