package http

import (
	"net/http"

	"quiz-app-service/internal/app"

	"github.com/gin-gonic/gin"
)

type ResultsHandler struct {
	results *app.ResultsService
}

func NewResultsHandler(results *app.ResultsService) *ResultsHandler {
	return &ResultsHandler{results: results}
}

// List serves the caller's history, or a single entry when ?resultId= is set.
func (h *ResultsHandler) List(c *gin.Context) {
	if id := c.Query("resultId"); id != "" {
		result, err := h.results.Get(c.Request.Context(), actorFrom(c), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}
	results, err := h.results.History(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
