package redis

import (
	"context"
	"math/rand"
	"time"

	"github.com/EfrenHaskell/Cosi166Project/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ProblemLoader fetches problem content from a backing store.
type ProblemLoader interface {
	LoadProblem(ctx context.Context, problemID string) (domain.Problem, error)
}

// ProblemRepository caches bank problems in Redis (hash per problem) and falls
// back to a loader on cache miss. Problems are stored as:
// HSET problem:{problemID} prompt {prompt} language {language}
type ProblemRepository struct {
	client *redis.Client
	loader ProblemLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewProblemRepository(client *redis.Client, loader ProblemLoader, ttl time.Duration) *ProblemRepository {
	return &ProblemRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ProblemRepository) GetProblem(ctx context.Context, problemID string) (domain.Problem, error) {
	key := r.problemKey(problemID)

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return buildProblemFromCache(problemID, fields), nil
	}

	result, err, _ := r.sf.Do(problemID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return buildProblemFromCache(problemID, fields), nil
		}

		problem, err := r.loader.LoadProblem(ctx, problemID)
		if err != nil {
			return domain.Problem{}, err
		}

		pipe := r.client.Pipeline()
		pipe.HSet(ctx, key, "prompt", problem.Prompt, "language", problem.Language)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return problem, nil
	})
	if err != nil {
		return domain.Problem{}, err
	}
	return result.(domain.Problem), nil
}

func (r *ProblemRepository) problemKey(problemID string) string {
	return "classroom:problem:" + problemID
}

func buildProblemFromCache(problemID string, fields map[string]string) domain.Problem {
	return domain.Problem{
		ID:       problemID,
		Prompt:   fields["prompt"],
		Language: fields["language"],
	}
}

func (r *ProblemRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
