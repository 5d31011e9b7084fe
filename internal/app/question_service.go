package app

import (
	"context"
	"slices"
	"strings"
	"time"

	"quiz-app-service/internal/domain"
	"quiz-app-service/internal/logger"

	"github.com/google/uuid"
)

// OptionInput is one answer option as sent by an editor.
type OptionInput struct {
	Text      string
	IsCorrect bool
}

// QuestionInput carries the writable question fields. On update nil pointers and a nil
// Options slice keep the current value.
type QuestionInput struct {
	Text        *string
	Options     []OptionInput
	Explanation *string
	CategoryID  *string
	Difficulty  *string
}

// QuestionService manages the question bank.
type QuestionService struct {
	questions  QuestionRepository
	categories CategoryRepository
	quizzes    QuizLister
	answerKeys AnswerKeySource
	now        func() time.Time
}

func NewQuestionService(questions QuestionRepository, categories CategoryRepository, quizzes QuizLister, answerKeys AnswerKeySource) *QuestionService {
	return &QuestionService{
		questions:  questions,
		categories: categories,
		quizzes:    quizzes,
		answerKeys: answerKeys,
		now:        time.Now,
	}
}

func (s *QuestionService) List(ctx context.Context, actor Actor, filter domain.QuestionFilter) ([]domain.Question, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.questions.ListQuestions(ctx, filter)
}

func (s *QuestionService) Get(ctx context.Context, actor Actor, id string) (domain.Question, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Question{}, err
	}
	return s.questions.GetQuestion(ctx, id)
}

// ByCategory lists the questions of a category without correctness flags.
func (s *QuestionService) ByCategory(ctx context.Context, actor Actor, categoryID string) ([]domain.Question, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if _, err := s.categories.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	questions, err := s.questions.ListQuestions(ctx, domain.QuestionFilter{CategoryID: categoryID})
	if err != nil {
		return nil, err
	}
	return domain.StripAnswers(questions), nil
}

func (s *QuestionService) Create(ctx context.Context, actor Actor, in QuestionInput) (domain.Question, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Question{}, err
	}
	q := domain.Question{
		ID:         uuid.NewString(),
		Difficulty: domain.DifficultyMedium,
		CreatedAt:  s.now(),
	}
	applyQuestionInput(&q, in)
	if q.CategoryID != "" {
		if _, err := s.categories.GetCategory(ctx, q.CategoryID); err != nil {
			return domain.Question{}, err
		}
	}
	if err := domain.ValidateQuestion(q); err != nil {
		return domain.Question{}, err
	}
	if err := s.questions.CreateQuestion(ctx, q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

func (s *QuestionService) Update(ctx context.Context, actor Actor, id string, in QuestionInput) (domain.Question, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Question{}, err
	}
	q, err := s.questions.GetQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	previousCategory := q.CategoryID
	applyQuestionInput(&q, in)
	if q.CategoryID != previousCategory {
		if _, err := s.categories.GetCategory(ctx, q.CategoryID); err != nil {
			return domain.Question{}, err
		}
	}
	if err := domain.ValidateQuestion(q); err != nil {
		return domain.Question{}, err
	}
	if err := s.questions.UpdateQuestion(ctx, q); err != nil {
		return domain.Question{}, err
	}
	s.invalidateQuizzesUsing(ctx, id)
	return q, nil
}

func (s *QuestionService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.questions.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	s.invalidateQuizzesUsing(ctx, id)
	return nil
}

// invalidateQuizzesUsing drops cached answer keys of every quiz that references questionID.
func (s *QuestionService) invalidateQuizzesUsing(ctx context.Context, questionID string) {
	quizzes, err := s.quizzes.ListQuizzes(ctx, domain.QuizFilter{})
	if err != nil {
		logger.FromContext(ctx).WithError(err).WithField("question_id", questionID).
			Warn("could not list quizzes to invalidate answer keys")
		return
	}
	for _, quiz := range quizzes {
		if slices.Contains(quiz.QuestionIDs, questionID) {
			s.answerKeys.Invalidate(ctx, quiz.ID)
		}
	}
}

func applyQuestionInput(q *domain.Question, in QuestionInput) {
	if in.Text != nil {
		q.Text = strings.TrimSpace(*in.Text)
	}
	if in.Explanation != nil {
		q.Explanation = *in.Explanation
	}
	if in.CategoryID != nil {
		q.CategoryID = *in.CategoryID
	}
	if in.Difficulty != nil && *in.Difficulty != "" {
		q.Difficulty = *in.Difficulty
	}
	if in.Options != nil {
		opts := make([]domain.Option, len(in.Options))
		for i, o := range in.Options {
			opts[i] = domain.Option{ID: uuid.NewString(), Text: strings.TrimSpace(o.Text), Correct: o.IsCorrect}
		}
		q.Options = opts
	}
}
