package http

import (
	"net/http"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/domain"

	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	questions *app.QuestionService
}

func NewQuestionHandler(questions *app.QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

type optionRequest struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type questionRequest struct {
	Text        *string         `json:"text"`
	Options     []optionRequest `json:"options"`
	Explanation *string         `json:"explanation"`
	CategoryID  *string         `json:"categoryId"`
	Difficulty  *string         `json:"difficulty"`
}

func (r questionRequest) input() app.QuestionInput {
	in := app.QuestionInput{
		Text:        r.Text,
		Explanation: r.Explanation,
		CategoryID:  r.CategoryID,
		Difficulty:  r.Difficulty,
	}
	if r.Options != nil {
		in.Options = make([]app.OptionInput, len(r.Options))
		for i, o := range r.Options {
			in.Options[i] = app.OptionInput{Text: o.Text, IsCorrect: o.IsCorrect}
		}
	}
	return in
}

// List serves the admin question bank, filtered by ?category= and ?difficulty=.
func (h *QuestionHandler) List(c *gin.Context) {
	questions, err := h.questions.List(c.Request.Context(), actorFrom(c), domain.QuestionFilter{
		CategoryID: c.Query("category"),
		Difficulty: c.Query("difficulty"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuestionViews(questions, true))
}

func (h *QuestionHandler) ByCategory(c *gin.Context) {
	questions, err := h.questions.ByCategory(c.Request.Context(), actorFrom(c), c.Param("categoryId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuestionViews(questions, false))
}

func (h *QuestionHandler) Get(c *gin.Context) {
	question, err := h.questions.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuestionView(question, true))
}

func (h *QuestionHandler) Create(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	question, err := h.questions.Create(c.Request.Context(), actorFrom(c), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newQuestionView(question, true))
}

func (h *QuestionHandler) Update(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	question, err := h.questions.Update(c.Request.Context(), actorFrom(c), c.Param("id"), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuestionView(question, true))
}

func (h *QuestionHandler) Delete(c *gin.Context) {
	if err := h.questions.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Question deleted"})
}
