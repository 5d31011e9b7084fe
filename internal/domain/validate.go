package domain

// ValidateQuestion enforces the option invariants checked when a question is stored.
func ValidateQuestion(q Question) error {
	if q.Text == "" {
		return NewValidationError("text", "is required")
	}
	if q.CategoryID == "" {
		return NewValidationError("category", "is required")
	}
	if len(q.Options) != OptionsPerQuestion {
		return NewValidationError("options", "each question must have exactly 4 options")
	}
	correct := 0
	for _, opt := range q.Options {
		if opt.Text == "" {
			return NewValidationError("options", "option text is required")
		}
		if opt.Correct {
			correct++
		}
	}
	if correct != 1 {
		return NewValidationError("options", "each question must have exactly one correct answer")
	}
	switch q.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return NewValidationError("difficulty", "must be one of easy, medium, hard")
	}
	return nil
}

// ValidateQuiz checks the fields required to store a quiz.
func ValidateQuiz(q Quiz) error {
	if q.Title == "" {
		return NewValidationError("title", "is required")
	}
	if q.Description == "" {
		return NewValidationError("description", "is required")
	}
	if q.CategoryID == "" {
		return NewValidationError("category", "is required")
	}
	if len(q.QuestionIDs) == 0 {
		return NewValidationError("questions", "a quiz needs at least one question")
	}
	if q.TimeLimit < 0 {
		return NewValidationError("timeLimit", "must not be negative")
	}
	return nil
}

// StripAnswers returns a copy of the questions with correctness flags cleared.
func StripAnswers(questions []Question) []Question {
	out := make([]Question, len(questions))
	for i, q := range questions {
		opts := make([]Option, len(q.Options))
		for j, o := range q.Options {
			opts[j] = Option{ID: o.ID, Text: o.Text}
		}
		q.Options = opts
		out[i] = q
	}
	return out
}
