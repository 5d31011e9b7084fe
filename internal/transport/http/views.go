package http

import (
	"time"

	"quiz-app-service/internal/domain"
)

type optionView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"isCorrect,omitempty"`
}

type questionView struct {
	ID          string       `json:"id"`
	Text        string       `json:"text"`
	Options     []optionView `json:"options"`
	Explanation string       `json:"explanation,omitempty"`
	CategoryID  string       `json:"categoryId"`
	Difficulty  string       `json:"difficulty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// quizView is the wire form of a quiz. Questions appear only on single-quiz reads.
type quizView struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	CategoryID    string         `json:"categoryId"`
	QuestionIDs   []string       `json:"questionIds"`
	QuestionCount int            `json:"questionCount"`
	Questions     []questionView `json:"questions,omitempty"`
	TimeLimit     int            `json:"timeLimit"`
	CreatedBy     string         `json:"createdBy"`
	IsPublished   bool           `json:"isPublished"`
	Attempts      int            `json:"attempts"`
	AverageScore  float64        `json:"averageScore"`
	CreatedAt     time.Time      `json:"createdAt"`
}

type authResponse struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

// newQuestionView renders q. Correctness flags and the explanation are only shown with answers.
func newQuestionView(q domain.Question, withAnswers bool) questionView {
	v := questionView{
		ID:         q.ID,
		Text:       q.Text,
		Options:    make([]optionView, len(q.Options)),
		CategoryID: q.CategoryID,
		Difficulty: q.Difficulty,
		CreatedAt:  q.CreatedAt,
	}
	for i, o := range q.Options {
		v.Options[i] = optionView{ID: o.ID, Text: o.Text}
		if withAnswers {
			correct := o.Correct
			v.Options[i].IsCorrect = &correct
		}
	}
	if withAnswers {
		v.Explanation = q.Explanation
	}
	return v
}

func newQuestionViews(qs []domain.Question, withAnswers bool) []questionView {
	out := make([]questionView, len(qs))
	for i, q := range qs {
		out[i] = newQuestionView(q, withAnswers)
	}
	return out
}

func newQuizView(q domain.Quiz, withAnswers bool) quizView {
	ids := q.QuestionIDs
	if ids == nil {
		ids = []string{}
	}
	v := quizView{
		ID:            q.ID,
		Title:         q.Title,
		Description:   q.Description,
		CategoryID:    q.CategoryID,
		QuestionIDs:   ids,
		QuestionCount: len(ids),
		TimeLimit:     q.TimeLimit,
		CreatedBy:     q.CreatedBy,
		IsPublished:   q.IsPublished,
		Attempts:      q.Stats.Attempts,
		AverageScore:  q.Stats.AverageScore,
		CreatedAt:     q.CreatedAt,
	}
	if q.Questions != nil {
		v.Questions = newQuestionViews(q.Questions, withAnswers)
	}
	return v
}

func newQuizViews(qs []domain.Quiz) []quizView {
	out := make([]quizView, len(qs))
	for i, q := range qs {
		out[i] = newQuizView(q, false)
	}
	return out
}
