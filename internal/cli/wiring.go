package cli

import (
	"context"
	"fmt"
	"time"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/config"
	"quiz-app-service/internal/domain"
	"quiz-app-service/internal/infra/memory"
	"quiz-app-service/internal/infra/postgres"
	"quiz-app-service/internal/infra/rabbitmq"
	infraredis "quiz-app-service/internal/infra/redis"
	"quiz-app-service/internal/infra/storage"
	"quiz-app-service/internal/logger"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type quizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// backend is the set of stores the services run on.
type backend struct {
	categories app.CategoryRepository
	questions  app.QuestionRepository
	quizzes    app.QuizRepository
	lister     app.QuizLister
	users      app.UserRepository
	stats      app.StatsRepository
	loader     quizLoader
	answerKeys app.AnswerKeySource
	sessions   app.SessionStore
	events     app.EventPublisher
	avatars    app.AvatarStorage

	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// loadConfig reads and validates the config and sets up logging.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	logger.Setup(cfg.Log.Level, cfg.Log.JSON)
	return cfg, nil
}

// openBackend connects every configured store. Postgres and Redis are optional; without them
// the in-memory store is used and seeded with the sample catalogue.
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{events: app.NoopPublisher{}}
	if err := b.openStores(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openCache(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openEvents(cfg); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openAvatars(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *backend) openStores(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		store := memory.NewStore()
		if err := seedCatalog(ctx, store, seedPassword()); err != nil {
			return fmt.Errorf("seed memory store: %w", err)
		}
		logrus.Warn("postgres url not configured, using the in-memory store")
		b.categories, b.questions, b.quizzes, b.lister, b.users, b.stats, b.loader =
			store, store, store, store, store, store, store
		return nil
	}

	db := postgres.OpenBun(cfg.Postgres.URL)
	b.closers = append(b.closers, func() { _ = db.Close() })
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	b.closers = append(b.closers, pool.Close)

	store := postgres.NewStore(db)
	loader := postgres.NewQuizLoader(pool)
	b.categories, b.questions, b.quizzes, b.users, b.stats = store, store, store, store, store
	b.lister, b.loader = loader, loader
	return nil
}

func (b *backend) openCache(ctx context.Context, cfg config.Config) error {
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr == "" {
		b.answerKeys = memory.NewAnswerKeyCache(b.loader, quizTTL)
		b.sessions = memory.NewSessionStore()
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	b.closers = append(b.closers, func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	b.answerKeys = infraredis.NewAnswerKeyCache(client, b.loader, config.TTLDuration(cfg.Redis.TTL, quizTTL))
	b.sessions = infraredis.NewSessionStore(client)
	return nil
}

func (b *backend) openEvents(cfg config.Config) error {
	if cfg.RabbitMQ.URL == "" {
		return nil
	}
	client, err := rabbitmq.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func() { _ = client.Close() })
	if err := client.DeclareQueue(cfg.RabbitMQ.Queue); err != nil {
		return err
	}
	b.events = rabbitmq.NewSubmissionPublisher(client, cfg.RabbitMQ.Queue)
	return nil
}

func (b *backend) openAvatars(ctx context.Context, cfg config.Config) error {
	if cfg.Storage.Endpoint == "" {
		return nil
	}
	store, err := storage.NewAvatarStore(storage.Options{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		return err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return err
	}
	b.avatars = store
	return nil
}
