// Package http exposes the quiz use cases over a gin REST API and a websocket stats stream.
package http

import (
	"net/http"
	"slices"

	"quiz-app-service/internal/app"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Services bundles the use cases the router exposes.
type Services struct {
	Auth        *app.AuthService
	Categories  *app.CategoryService
	Questions   *app.QuestionService
	Quizzes     *app.QuizService
	Submissions *app.SubmissionService
	Results     *app.ResultsService
	Feed        *app.StatsFeed
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(svc Services, corsOrigins []string, log *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(log), Recovery(), cors.New(corsConfig(corsOrigins)))

	authRequired := RequireAuth(svc.Auth)

	authH := NewAuthHandler(svc.Auth)
	categoryH := NewCategoryHandler(svc.Categories)
	questionH := NewQuestionHandler(svc.Questions)
	quizH := NewQuizHandler(svc.Quizzes, svc.Submissions)
	resultsH := NewResultsHandler(svc.Results)
	statsH := NewStatsStreamHandler(svc.Submissions, svc.Feed)

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/ws/quizzes/:id/stats", statsH.Stream)

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, healthResponse{Status: "OK", Message: "Quiz service is running"})
	})

	authG := api.Group("/auth")
	{
		authG.POST("/register", authH.Register)
		authG.POST("/login", authH.Login)
		authG.GET("/current", authRequired, authH.Current)
		authG.GET("/user", authRequired, authH.Current)
		authG.PUT("/profile", authRequired, authH.UpdateProfile)
		authG.PUT("/password", authRequired, authH.ChangePassword)
		authG.POST("/logout", authRequired, authH.Logout)
		authG.PUT("/avatar", authRequired, authH.UploadAvatar)
	}

	categories := api.Group("/categories")
	{
		categories.GET("", categoryH.List)
		categories.GET("/:id", categoryH.Get)
		categories.POST("", authRequired, categoryH.Create)
		categories.PUT("/:id", authRequired, categoryH.Update)
		categories.DELETE("/:id", authRequired, categoryH.Delete)
	}

	questions := api.Group("/questions", authRequired)
	{
		questions.GET("", questionH.List)
		questions.GET("/category/:categoryId", questionH.ByCategory)
		questions.GET("/:id", questionH.Get)
		questions.POST("", questionH.Create)
		questions.PUT("/:id", questionH.Update)
		questions.DELETE("/:id", questionH.Delete)
	}

	quizzes := api.Group("/quizzes")
	{
		quizzes.GET("", quizH.List)
		quizzes.GET("/:id", quizH.Get)
		quizzes.GET("/:id/full", authRequired, quizH.GetFull)
		quizzes.POST("", authRequired, quizH.Create)
		quizzes.PUT("/:id", authRequired, quizH.Update)
		quizzes.DELETE("/:id", authRequired, quizH.Delete)
		quizzes.POST("/:id/submit", authRequired, quizH.Submit)
	}

	api.GET("/user/results", authRequired, resultsH.List)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Not found"})
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
