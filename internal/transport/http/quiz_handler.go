package http

import (
	"bytes"
	"encoding/json"
	"net/http"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/domain"

	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	quizzes     *app.QuizService
	submissions *app.SubmissionService
}

func NewQuizHandler(quizzes *app.QuizService, submissions *app.SubmissionService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes, submissions: submissions}
}

type quizRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	CategoryID  *string  `json:"categoryId"`
	QuestionIDs []string `json:"questionIds"`
	TimeLimit   *int     `json:"timeLimit"`
	IsPublished *bool    `json:"isPublished"`
}

func (r quizRequest) input() app.QuizInput {
	return app.QuizInput{
		Title:       r.Title,
		Description: r.Description,
		CategoryID:  r.CategoryID,
		QuestionIDs: r.QuestionIDs,
		TimeLimit:   r.TimeLimit,
		IsPublished: r.IsPublished,
	}
}

// answerRequest keeps selectedOption raw: a non-string id is scored as a wrong answer, not rejected.
type answerRequest struct {
	QuestionID     string          `json:"questionId"`
	SelectedOption json.RawMessage `json:"selectedOption"`
}

type submitRequest struct {
	Answers   []answerRequest `json:"answers" binding:"required"`
	TimeTaken *float64        `json:"timeTaken" binding:"required"`
}

func (r submitRequest) answers() []domain.SubmittedAnswer {
	out := make([]domain.SubmittedAnswer, 0, len(r.Answers))
	for _, a := range r.Answers {
		raw := bytes.TrimSpace(a.SelectedOption)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}
		selected := string(raw)
		var s string
		if json.Unmarshal(raw, &s) == nil {
			selected = s
		}
		out = append(out, domain.SubmittedAnswer{QuestionID: a.QuestionID, SelectedOption: selected})
	}
	return out
}

// List serves published quizzes, optionally filtered by ?category=.
func (h *QuizHandler) List(c *gin.Context) {
	quizzes, err := h.quizzes.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuizViews(quizzes))
}

func (h *QuizHandler) Get(c *gin.Context) {
	quiz, err := h.quizzes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuizView(quiz, false))
}

func (h *QuizHandler) GetFull(c *gin.Context) {
	quiz, err := h.quizzes.GetFull(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuizView(quiz, true))
}

func (h *QuizHandler) Create(c *gin.Context) {
	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	quiz, err := h.quizzes.Create(c.Request.Context(), actorFrom(c), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newQuizView(quiz, true))
}

func (h *QuizHandler) Update(c *gin.Context) {
	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	quiz, err := h.quizzes.Update(c.Request.Context(), actorFrom(c), c.Param("id"), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuizView(quiz, true))
}

func (h *QuizHandler) Delete(c *gin.Context) {
	if err := h.quizzes.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Quiz deleted"})
}

// Submit scores the caller's answers and folds the result into the quiz and user stats.
func (h *QuizHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "answers must be a list and timeTaken is required")
		return
	}
	result, err := h.submissions.Submit(c.Request.Context(), domain.Submission{
		QuizID:    c.Param("id"),
		UserID:    actorFrom(c).UserID,
		Answers:   req.answers(),
		TimeTaken: *req.TimeTaken,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
