package app

import (
	"context"
	"strings"
	"time"

	"quiz-app-service/internal/domain"

	"github.com/google/uuid"
)

// DefaultTimeLimit is the quiz time limit in seconds when none is given.
const DefaultTimeLimit = 600

// QuizInput carries the writable quiz fields. On update nil pointers and a nil QuestionIDs
// slice keep the current value.
type QuizInput struct {
	Title       *string
	Description *string
	CategoryID  *string
	QuestionIDs []string
	TimeLimit   *int
	IsPublished *bool
}

// QuizService contains the quiz catalogue use cases.
type QuizService struct {
	quizzes    QuizRepository
	lister     QuizLister
	questions  QuestionRepository
	categories CategoryRepository
	answerKeys AnswerKeySource
	now        func() time.Time
}

func NewQuizService(quizzes QuizRepository, lister QuizLister, questions QuestionRepository, categories CategoryRepository, answerKeys AnswerKeySource) *QuizService {
	return &QuizService{
		quizzes:    quizzes,
		lister:     lister,
		questions:  questions,
		categories: categories,
		answerKeys: answerKeys,
		now:        time.Now,
	}
}

// List returns published quizzes, newest first, without their questions.
func (s *QuizService) List(ctx context.Context, categoryID string) ([]domain.Quiz, error) {
	quizzes, err := s.lister.ListQuizzes(ctx, domain.QuizFilter{CategoryID: categoryID, PublishedOnly: true})
	if err != nil {
		return nil, err
	}
	for i := range quizzes {
		quizzes[i].Questions = nil
	}
	return quizzes, nil
}

// Get returns a published quiz with its questions stripped of correctness flags.
func (s *QuizService) Get(ctx context.Context, id string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !quiz.IsPublished {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	questions, err := s.questions.GetQuestions(ctx, quiz.QuestionIDs)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions = domain.StripAnswers(questions)
	return quiz, nil
}

// GetFull returns a quiz with answers. Only its creator or an admin may read it.
func (s *QuizService) GetFull(ctx context.Context, actor Actor, id string) (domain.Quiz, error) {
	if err := requireUser(actor); err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !canManage(actor, quiz.CreatedBy) {
		return domain.Quiz{}, domain.ErrForbidden
	}
	questions, err := s.questions.GetQuestions(ctx, quiz.QuestionIDs)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions = questions
	return quiz, nil
}

func (s *QuizService) Create(ctx context.Context, actor Actor, in QuizInput) (domain.Quiz, error) {
	if err := requireUser(actor); err != nil {
		return domain.Quiz{}, err
	}
	quiz := domain.Quiz{
		ID:          uuid.NewString(),
		TimeLimit:   DefaultTimeLimit,
		CreatedBy:   actor.UserID,
		IsPublished: true,
		CreatedAt:   s.now(),
	}
	applyQuizInput(&quiz, in)
	if err := domain.ValidateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	if _, err := s.categories.GetCategory(ctx, quiz.CategoryID); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.checkQuestions(ctx, quiz.QuestionIDs); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.quizzes.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *QuizService) Update(ctx context.Context, actor Actor, id string, in QuizInput) (domain.Quiz, error) {
	if err := requireUser(actor); err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !canManage(actor, quiz.CreatedBy) {
		return domain.Quiz{}, domain.ErrForbidden
	}
	previousCategory := quiz.CategoryID
	applyQuizInput(&quiz, in)
	if err := domain.ValidateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	if quiz.CategoryID != previousCategory {
		if _, err := s.categories.GetCategory(ctx, quiz.CategoryID); err != nil {
			return domain.Quiz{}, err
		}
	}
	if in.QuestionIDs != nil {
		if err := s.checkQuestions(ctx, quiz.QuestionIDs); err != nil {
			return domain.Quiz{}, err
		}
	}
	if err := s.quizzes.UpdateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.answerKeys.Invalidate(ctx, id)
	return s.quizzes.GetQuiz(ctx, id)
}

func (s *QuizService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, quiz.CreatedBy) {
		return domain.ErrForbidden
	}
	if err := s.quizzes.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	s.answerKeys.Invalidate(ctx, id)
	return nil
}

// checkQuestions fails when any id is unknown or listed twice.
func (s *QuizService) checkQuestions(ctx context.Context, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return domain.NewValidationError("questions", "question "+id+" is listed twice")
		}
		seen[id] = struct{}{}
	}
	found, err := s.questions.GetQuestions(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func applyQuizInput(q *domain.Quiz, in QuizInput) {
	if in.Title != nil {
		q.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		q.Description = strings.TrimSpace(*in.Description)
	}
	if in.CategoryID != nil {
		q.CategoryID = *in.CategoryID
	}
	if in.QuestionIDs != nil {
		q.QuestionIDs = append([]string(nil), in.QuestionIDs...)
	}
	if in.TimeLimit != nil {
		q.TimeLimit = *in.TimeLimit
	}
	if in.IsPublished != nil {
		q.IsPublished = *in.IsPublished
	}
}
