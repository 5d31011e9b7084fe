package domain

import "time"

// Difficulty levels accepted for questions.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// OptionsPerQuestion is the fixed number of options on every question.
const OptionsPerQuestion = 4

// Category groups quizzes and questions (e.g. "Science").
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Options     []Option  `json:"options"`
	Explanation string    `json:"explanation"`
	CategoryID  string    `json:"categoryId"`
	Difficulty  string    `json:"difficulty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// QuizStats holds the running aggregates of a quiz. Version increases on every commit.
type QuizStats struct {
	Attempts     int     `json:"attempts"`
	AverageScore float64 `json:"averageScore"`
	Version      int64   `json:"-"`
}

// Quiz is an ordered set of questions with aggregate attempt statistics.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CategoryID  string     `json:"categoryId"`
	QuestionIDs []string   `json:"questionIds"`
	Questions   []Question `json:"questions,omitempty"`
	TimeLimit   int        `json:"timeLimit"`
	CreatedBy   string     `json:"createdBy"`
	IsPublished bool       `json:"isPublished"`
	Stats       QuizStats  `json:"stats"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// QuizFilter narrows quiz listings.
type QuizFilter struct {
	CategoryID    string
	PublishedOnly bool
}

// QuestionFilter narrows question listings.
type QuestionFilter struct {
	CategoryID string
	Difficulty string
}

// CategoryPerformance is a user's running aggregate for one category.
type CategoryPerformance struct {
	QuizzesTaken int     `json:"quizzesTaken"`
	AverageScore float64 `json:"averageScore"`
}

// Attempt is one entry of a user's quiz history.
type Attempt struct {
	ID             string    `json:"id"`
	QuizID         string    `json:"quizId"`
	Score          float64   `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	TimeTaken      float64   `json:"timeTaken"`
	AttemptedAt    time.Time `json:"attemptedAt"`
}

// UserStats is the stats block of a user together with the attempt history it is derived from.
type UserStats struct {
	TotalQuizzesTaken   int                            `json:"totalQuizzesTaken"`
	AverageScore        float64                        `json:"averageScore"`
	CategoryPerformance map[string]CategoryPerformance `json:"categoryPerformance"`
	History             []Attempt                      `json:"-"`
	Version             int64                          `json:"-"`
}

// User is an account. PasswordHash is never compared in plaintext.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	ProfilePicture string    `json:"profilePicture"`
	IsAdmin        bool      `json:"isAdmin"`
	Stats          UserStats `json:"stats"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SubmittedAnswer is one (questionId, selectedOption) pair of a submission.
type SubmittedAnswer struct {
	QuestionID     string
	SelectedOption string
}

// Submission is a user's set of answers to a quiz plus elapsed time in seconds.
type Submission struct {
	QuizID    string
	UserID    string
	Answers   []SubmittedAnswer
	TimeTaken float64
}

// QuestionResult is the verdict for a single question.
type QuestionResult struct {
	QuestionID     string  `json:"questionId"`
	Correct        bool    `json:"correct"`
	SelectedOption *string `json:"selectedOption"`
	CorrectOption  string  `json:"correctOption"`
}

// ScoreResult is the outcome of scoring a submission against an answer key.
type ScoreResult struct {
	Correct        int
	TotalQuestions int
	Percentage     float64
	Results        []QuestionResult
}

// SubmissionResult is returned to the submitter.
type SubmissionResult struct {
	Score           int              `json:"score"`
	TotalQuestions  int              `json:"totalQuestions"`
	PercentageScore float64          `json:"percentageScore"`
	TimeTaken       float64          `json:"timeTaken"`
	Results         []QuestionResult `json:"results"`
}

// AttemptRecord is the input to the user-side statistics update.
type AttemptRecord struct {
	QuizID         string
	CategoryID     string
	Score          float64
	TotalQuestions int
	TimeTaken      float64
}

// QuizStatsSnapshot is broadcast to live stats subscribers.
type QuizStatsSnapshot struct {
	QuizID       string    `json:"quizId"`
	Attempts     int       `json:"attempts"`
	AverageScore float64   `json:"averageScore"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SubmissionEvent is published after a submission has been committed.
type SubmissionEvent struct {
	QuizID          string    `json:"quizId"`
	UserID          string    `json:"userId"`
	CategoryID      string    `json:"categoryId"`
	Score           int       `json:"score"`
	PercentageScore float64   `json:"percentageScore"`
	TotalQuestions  int       `json:"totalQuestions"`
	TimeTaken       float64   `json:"timeTaken"`
	SubmittedAt     time.Time `json:"submittedAt"`
}
