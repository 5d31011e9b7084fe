package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"quiz-app-service/internal/domain"
	"quiz-app-service/internal/logger"
	"quiz-app-service/internal/scoring"

	"github.com/google/uuid"
)

// ConsistencyMode selects how the two aggregate commits of a submission are made.
type ConsistencyMode string

const (
	// ModeLegacy reads then writes each record unconditionally, quiz first and user second.
	// Concurrent submissions can lose updates and a failed user commit leaves the quiz updated.
	ModeLegacy ConsistencyMode = "legacy"
	// ModeAtomic commits each record with a version check and retries on conflict.
	ModeAtomic ConsistencyMode = "atomic"
	// ModeTransactional runs both versioned commits in one store transaction.
	ModeTransactional ConsistencyMode = "transactional"
)

// ParseConsistencyMode maps a config value to a mode; empty means legacy.
func ParseConsistencyMode(raw string) (ConsistencyMode, error) {
	switch ConsistencyMode(raw) {
	case "", ModeLegacy:
		return ModeLegacy, nil
	case ModeAtomic:
		return ModeAtomic, nil
	case ModeTransactional:
		return ModeTransactional, nil
	}
	return "", fmt.Errorf("unknown stats consistency mode %q", raw)
}

// SubmissionService scores submissions and folds them into quiz and user statistics.
type SubmissionService struct {
	quizzes    AnswerKeySource
	stats      StatsRepository
	feed       *StatsFeed
	events     EventPublisher
	mode       ConsistencyMode
	maxRetries int
	now        func() time.Time
	newID      func() string
}

// SubmissionOption customises a SubmissionService.
type SubmissionOption func(*SubmissionService)

// WithConsistency selects the commit mode and the retry budget for version conflicts.
func WithConsistency(mode ConsistencyMode, maxRetries int) SubmissionOption {
	return func(s *SubmissionService) {
		s.mode = mode
		if maxRetries > 0 {
			s.maxRetries = maxRetries
		}
	}
}

// WithEvents publishes a SubmissionEvent after every committed submission.
func WithEvents(p EventPublisher) SubmissionOption {
	return func(s *SubmissionService) {
		if p != nil {
			s.events = p
		}
	}
}

// WithStatsFeed broadcasts the new quiz aggregates after every committed submission.
func WithStatsFeed(feed *StatsFeed) SubmissionOption {
	return func(s *SubmissionService) { s.feed = feed }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) SubmissionOption {
	return func(s *SubmissionService) { s.now = now }
}

func NewSubmissionService(quizzes AnswerKeySource, stats StatsRepository, opts ...SubmissionOption) *SubmissionService {
	s := &SubmissionService{
		quizzes:    quizzes,
		stats:      stats,
		events:     NoopPublisher{},
		mode:       ModeLegacy,
		maxRetries: 5,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode reports the configured consistency mode.
func (s *SubmissionService) Mode() ConsistencyMode { return s.mode }

// Submit runs fetch quiz, score, persist quiz stats, persist user stats, respond.
func (s *SubmissionService) Submit(ctx context.Context, sub domain.Submission) (domain.SubmissionResult, error) {
	log := logger.FromContext(ctx).WithField("quiz_id", sub.QuizID).WithField("user_id", sub.UserID)

	if err := validateSubmission(sub); err != nil {
		return domain.SubmissionResult{}, err
	}

	quiz, err := s.quizzes.GetQuizWithAnswerKey(ctx, sub.QuizID)
	if err != nil {
		if !domain.IsNotFound(err) {
			log.WithError(err).Error("failed to load quiz answer key")
		}
		return domain.SubmissionResult{}, err
	}

	scored, err := scoring.Score(quiz, sub.Answers)
	if err != nil {
		log.WithError(err).Error("quiz data failed scoring")
		return domain.SubmissionResult{}, err
	}

	record := domain.AttemptRecord{
		QuizID:         quiz.ID,
		CategoryID:     quiz.CategoryID,
		Score:          scored.Percentage,
		TotalQuestions: scored.TotalQuestions,
		TimeTaken:      sub.TimeTaken,
	}

	var quizStats domain.QuizStats
	switch s.mode {
	case ModeTransactional:
		err = s.stats.WithinTx(ctx, func(ctx context.Context, tx StatsStore) error {
			var txErr error
			if quizStats, txErr = s.updateQuizStats(ctx, tx, quiz.ID, scored.Percentage, true); txErr != nil {
				return txErr
			}
			return s.updateUserStats(ctx, tx, sub.UserID, record, true)
		})
	default:
		checked := s.mode == ModeAtomic
		quizStats, err = s.updateQuizStats(ctx, s.stats, quiz.ID, scored.Percentage, checked)
		if err == nil {
			err = s.updateUserStats(ctx, s.stats, sub.UserID, record, checked)
			if err != nil {
				log.Warn("quiz stats committed but user stats were not")
			}
		}
	}
	if err != nil {
		log.WithError(err).Error("failed to persist submission stats")
		return domain.SubmissionResult{}, err
	}

	submittedAt := s.now()
	if s.feed != nil {
		s.feed.Publish(domain.QuizStatsSnapshot{
			QuizID:       quiz.ID,
			Attempts:     quizStats.Attempts,
			AverageScore: quizStats.AverageScore,
			UpdatedAt:    submittedAt,
		})
	}
	event := domain.SubmissionEvent{
		QuizID:          quiz.ID,
		UserID:          sub.UserID,
		CategoryID:      quiz.CategoryID,
		Score:           scored.Correct,
		PercentageScore: scored.Percentage,
		TotalQuestions:  scored.TotalQuestions,
		TimeTaken:       sub.TimeTaken,
		SubmittedAt:     submittedAt,
	}
	if err := s.events.PublishSubmission(ctx, event); err != nil {
		log.WithError(err).Warn("failed to publish submission event")
	}

	log.WithField("percentage", scored.Percentage).Info("submission scored")
	return domain.SubmissionResult{
		Score:           scored.Correct,
		TotalQuestions:  scored.TotalQuestions,
		PercentageScore: scored.Percentage,
		TimeTaken:       sub.TimeTaken,
		Results:         scored.Results,
	}, nil
}

// QuizStatsSnapshot reads the current aggregates of a quiz.
func (s *SubmissionService) QuizStatsSnapshot(ctx context.Context, quizID string) (domain.QuizStatsSnapshot, error) {
	stats, err := s.stats.QuizStats(ctx, quizID)
	if err != nil {
		return domain.QuizStatsSnapshot{}, err
	}
	return domain.QuizStatsSnapshot{
		QuizID:       quizID,
		Attempts:     stats.Attempts,
		AverageScore: stats.AverageScore,
		UpdatedAt:    s.now(),
	}, nil
}

func (s *SubmissionService) updateQuizStats(ctx context.Context, store StatsStore, quizID string, pct float64, checked bool) (domain.QuizStats, error) {
	for attempt := 0; ; attempt++ {
		current, err := store.QuizStats(ctx, quizID)
		if err != nil {
			return domain.QuizStats{}, fmt.Errorf("load quiz stats: %w: %w", domain.ErrPersistence, err)
		}
		next := scoring.RecordQuizAttempt(current, pct)
		expect := AnyVersion
		if checked {
			expect = current.Version
		}
		err = store.CommitQuizStats(ctx, quizID, next, expect)
		if err == nil {
			return next, nil
		}
		if !checked || !errors.Is(err, domain.ErrVersionConflict) || attempt >= s.maxRetries {
			return domain.QuizStats{}, fmt.Errorf("commit quiz stats: %w: %w", domain.ErrPersistence, err)
		}
	}
}

func (s *SubmissionService) updateUserStats(ctx context.Context, store StatsStore, userID string, rec domain.AttemptRecord, checked bool) error {
	for attempt := 0; ; attempt++ {
		current, err := store.UserStats(ctx, userID)
		if err != nil {
			return fmt.Errorf("load user stats: %w: %w", domain.ErrPersistence, err)
		}
		next := scoring.RecordUserAttempt(current, rec, s.newID(), s.now())
		expect := AnyVersion
		if checked {
			expect = current.Version
		}
		err = store.CommitUserStats(ctx, userID, next, expect)
		if err == nil {
			return nil
		}
		if !checked || !errors.Is(err, domain.ErrVersionConflict) || attempt >= s.maxRetries {
			return fmt.Errorf("commit user stats: %w: %w", domain.ErrPersistence, err)
		}
	}
}

func validateSubmission(sub domain.Submission) error {
	if sub.QuizID == "" {
		return domain.NewValidationError("quizId", "is required")
	}
	if sub.UserID == "" {
		return domain.ErrUnauthorized
	}
	if math.IsNaN(sub.TimeTaken) || math.IsInf(sub.TimeTaken, 0) || sub.TimeTaken < 0 {
		return domain.NewValidationError("timeTaken", "must be a non-negative number")
	}
	return nil
}
