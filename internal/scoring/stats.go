package scoring

import (
	"time"

	"quiz-app-service/internal/domain"
)

// IncrementalMean folds value into a mean over count samples.
func IncrementalMean(mean float64, count int, value float64) float64 {
	return (mean*float64(count) + value) / float64(count+1)
}

// RecordQuizAttempt returns the quiz aggregates after one more attempt scoring pct.
// The mean is updated incrementally; past scores are not kept, so this cannot be undone.
func RecordQuizAttempt(stats domain.QuizStats, pct float64) domain.QuizStats {
	return domain.QuizStats{
		Attempts:     stats.Attempts + 1,
		AverageScore: IncrementalMean(stats.AverageScore, stats.Attempts, pct),
		Version:      stats.Version,
	}
}

// RecordUserAttempt applies an attempt to a copy of the user's stats block.
//
// The overall average is recomputed from the stored history, whereas the per-category
// average is incremental like the quiz side. The two can drift apart under float64 rounding.
func RecordUserAttempt(stats domain.UserStats, rec domain.AttemptRecord, attemptID string, now time.Time) domain.UserStats {
	sum := rec.Score
	for _, a := range stats.History {
		sum += a.Score
	}

	next := domain.UserStats{
		TotalQuizzesTaken:   stats.TotalQuizzesTaken + 1,
		AverageScore:        sum / float64(len(stats.History)+1),
		CategoryPerformance: make(map[string]domain.CategoryPerformance, len(stats.CategoryPerformance)+1),
		History:             make([]domain.Attempt, len(stats.History), len(stats.History)+1),
		Version:             stats.Version,
	}
	for k, v := range stats.CategoryPerformance {
		next.CategoryPerformance[k] = v
	}
	copy(next.History, stats.History)

	if perf, ok := next.CategoryPerformance[rec.CategoryID]; ok {
		next.CategoryPerformance[rec.CategoryID] = domain.CategoryPerformance{
			QuizzesTaken: perf.QuizzesTaken + 1,
			AverageScore: IncrementalMean(perf.AverageScore, perf.QuizzesTaken, rec.Score),
		}
	} else {
		next.CategoryPerformance[rec.CategoryID] = domain.CategoryPerformance{
			QuizzesTaken: 1,
			AverageScore: rec.Score,
		}
	}

	next.History = append(next.History, domain.Attempt{
		ID:             attemptID,
		QuizID:         rec.QuizID,
		Score:          rec.Score,
		TotalQuestions: rec.TotalQuestions,
		TimeTaken:      rec.TimeTaken,
		AttemptedAt:    now,
	})
	return next
}
