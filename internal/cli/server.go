package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/auth"
	"quiz-app-service/internal/config"
	transport "quiz-app-service/internal/transport/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", "", "port to listen on (overrides config)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if portFlag != "" {
		cfg.Server.Port = portFlag
	}
	mode, err := app.ParseConsistencyMode(cfg.Stats.Consistency)
	if err != nil {
		return err
	}
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	feed := app.NewStatsFeed()
	tokens := auth.NewIssuer(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	services := transport.Services{
		Auth:       app.NewAuthService(b.users, b.sessions, tokens, b.avatars),
		Categories: app.NewCategoryService(b.categories),
		Questions:  app.NewQuestionService(b.questions, b.categories, b.lister, b.answerKeys),
		Quizzes:    app.NewQuizService(b.quizzes, b.lister, b.questions, b.categories, b.answerKeys),
		Submissions: app.NewSubmissionService(b.answerKeys, b.stats,
			app.WithConsistency(mode, cfg.Stats.MaxRetries),
			app.WithEvents(b.events),
			app.WithStatsFeed(feed),
		),
		Results: app.NewResultsService(b.users, b.quizzes, b.categories),
		Feed:    feed,
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      transport.NewRouter(services, cfg.Server.CORSOrigins, logrus.StandardLogger()),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"port":        cfg.Server.Port,
			"env":         cfg.Env,
			"consistency": mode,
		}).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logrus.WithError(err).Error("server failed")
		return err
	case <-stop:
		logrus.Info("shutting down server...")
	case <-ctx.Done():
		logrus.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
