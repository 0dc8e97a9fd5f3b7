package redis

import (
	"context"
	"testing"
	"time"

	"github.com/EfrenHaskell/Cosi166Project/internal/domain"
	"github.com/EfrenHaskell/Cosi166Project/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestProblemRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	loader := &countingLoader{
		ProblemLoader: memory.NewStaticProblemLoader(map[string]domain.Problem{
			"warmup-1": sampleProblem(),
		}),
	}
	repo := NewProblemRepository(client, loader, time.Minute)

	problem, err := repo.GetProblem(context.Background(), "warmup-1")
	if err != nil {
		t.Fatalf("get problem: %v", err)
	}
	if problem.Prompt == "" || problem.Language != "python" {
		t.Fatalf("unexpected problem from loader: %+v", problem)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("classroom:problem:warmup-1") {
		t.Fatalf("expected problem cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetProblem(context.Background(), "warmup-1")
	if err != nil {
		t.Fatalf("get cached problem: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.Prompt != problem.Prompt {
		t.Fatalf("cache returned different prompt: %q vs %q", cached.Prompt, problem.Prompt)
	}
}

type countingLoader struct {
	memory.ProblemLoader
	calls int
}

func (l *countingLoader) LoadProblem(ctx context.Context, problemID string) (domain.Problem, error) {
	l.calls++
	return l.ProblemLoader.LoadProblem(ctx, problemID)
}

func sampleProblem() domain.Problem {
	return domain.Problem{
		ID:       "warmup-1",
		Prompt:   "Write a function that returns the sum of two integers.",
		Language: "python",
	}
}
