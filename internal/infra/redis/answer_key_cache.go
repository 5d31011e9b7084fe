package redis

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"quiz-app-service/internal/domain"
	"quiz-app-service/internal/logger"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches a quiz with its ordered questions and correctness flags from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AnswerKeyCache caches answer keys in Redis and falls back to a loader on cache miss.
// Answers are stored as: HSET quiz:{quizID}:answers {questionID} {correctOptionID}
// Metadata is stored as: HSET quiz:{quizID}:meta category {categoryID} order {q1,q2,...}
// A question without a correct option is cached with an empty option id.
type AnswerKeyCache struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewAnswerKeyCache(client *redis.Client, loader QuizLoader, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *AnswerKeyCache) GetQuizWithAnswerKey(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.readCache(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.readCache(ctx, quizID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := r.writeCache(ctx, quiz); err != nil {
			logger.FromContext(ctx).WithError(err).WithField("quiz_id", quizID).Warn("failed to cache answer key")
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate drops the cached answer key so the next read reloads it.
func (r *AnswerKeyCache) Invalidate(ctx context.Context, quizID string) {
	if err := r.client.Del(ctx, answersKey(quizID), metaKey(quizID)).Err(); err != nil {
		logger.FromContext(ctx).WithError(err).WithField("quiz_id", quizID).Warn("failed to invalidate answer key")
	}
	r.sf.Forget(quizID)
}

func (r *AnswerKeyCache) readCache(ctx context.Context, quizID string) (domain.Quiz, bool) {
	meta, err := r.client.HGetAll(ctx, metaKey(quizID)).Result()
	if err != nil || len(meta) == 0 {
		return domain.Quiz{}, false
	}
	order, ok := meta["order"]
	if !ok {
		return domain.Quiz{}, false
	}
	answers, err := r.client.HGetAll(ctx, answersKey(quizID)).Result()
	if err != nil {
		return domain.Quiz{}, false
	}
	return buildQuizFromCache(quizID, meta["category"], order, answers)
}

func (r *AnswerKeyCache) writeCache(ctx context.Context, quiz domain.Quiz) error {
	ttl := r.ttlWithJitter()
	if ttl <= 0 {
		return nil
	}
	aKey, mKey := answersKey(quiz.ID), metaKey(quiz.ID)
	order := make([]string, 0, len(quiz.Questions))

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, aKey, mKey)
	for _, q := range quiz.Questions {
		order = append(order, q.ID)
		pipe.HSet(ctx, aKey, q.ID, correctOptionID(q))
	}
	pipe.HSet(ctx, mKey, "category", quiz.CategoryID, "order", strings.Join(order, ","))
	pipe.Expire(ctx, aKey, ttl)
	pipe.Expire(ctx, mKey, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func answersKey(quizID string) string {
	return "quiz:" + quizID + ":answers"
}

func metaKey(quizID string) string {
	return "quiz:" + quizID + ":meta"
}

// buildQuizFromCache rebuilds the quiz in stored order. Each question carries only its correct option.
func buildQuizFromCache(quizID, categoryID, order string, answers map[string]string) (domain.Quiz, bool) {
	quiz := domain.Quiz{ID: quizID, CategoryID: categoryID}
	if order == "" {
		quiz.Questions = []domain.Question{}
		return quiz, true
	}
	ids := strings.Split(order, ",")
	quiz.QuestionIDs = ids
	quiz.Questions = make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		optionID, ok := answers[id]
		if !ok {
			// partially expired entry
			return domain.Quiz{}, false
		}
		q := domain.Question{ID: id, CategoryID: categoryID}
		if optionID != "" {
			q.Options = []domain.Option{{ID: optionID, Correct: true}}
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz, true
}

func correctOptionID(q domain.Question) string {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt.ID
		}
	}
	return ""
}

func (r *AnswerKeyCache) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
