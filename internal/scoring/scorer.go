// Package scoring holds the pure scoring and running-average rules applied on every submission.
package scoring

import (
	"fmt"

	"quiz-app-service/internal/domain"
)

// CorrectOption returns the ID of the option flagged correct.
func CorrectOption(q domain.Question) (string, error) {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt.ID, nil
		}
	}
	return "", fmt.Errorf("question %s has no correct option: %w", q.ID, domain.ErrInternalConsistency)
}

// Score matches submitted answers against the quiz's answer key in quiz order.
// A question without an answer is scored as incorrect.
func Score(quiz domain.Quiz, answers []domain.SubmittedAnswer) (domain.ScoreResult, error) {
	total := len(quiz.Questions)
	if total == 0 {
		return domain.ScoreResult{}, fmt.Errorf("quiz %s has no questions: %w", quiz.ID, domain.ErrInternalConsistency)
	}

	// First answer per question wins, as a linear find would.
	selected := make(map[string]string, len(answers))
	for _, a := range answers {
		if _, seen := selected[a.QuestionID]; !seen {
			selected[a.QuestionID] = a.SelectedOption
		}
	}

	result := domain.ScoreResult{
		TotalQuestions: total,
		Results:        make([]domain.QuestionResult, 0, total),
	}
	for _, q := range quiz.Questions {
		correctID, err := CorrectOption(q)
		if err != nil {
			return domain.ScoreResult{}, err
		}

		verdict := domain.QuestionResult{QuestionID: q.ID, CorrectOption: correctID}
		if choice, ok := selected[q.ID]; ok {
			choice := choice
			verdict.SelectedOption = &choice
			verdict.Correct = choice == correctID
		}
		if verdict.Correct {
			result.Correct++
		}
		result.Results = append(result.Results, verdict)
	}

	result.Percentage = float64(100*result.Correct) / float64(total)
	return result, nil
}
