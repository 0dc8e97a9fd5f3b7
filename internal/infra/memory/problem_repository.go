package memory

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/EfrenHaskell/Cosi166Project/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ProblemLoader fetches problem content from a backing store.
type ProblemLoader interface {
	LoadProblem(ctx context.Context, problemID string) (domain.Problem, error)
}

// ProblemRepository caches bank problems with TTL to avoid repeated DB hits.
// Not-found lookups are cached too, on a shorter TTL, so a mistyped problem
// id on a busy endpoint does not hammer the store.
type ProblemRepository struct {
	loader ProblemLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]problemEntry
}

type problemEntry struct {
	problem   domain.Problem
	missing   bool
	expiresAt time.Time
}

func NewProblemRepository(loader ProblemLoader, ttl time.Duration) *ProblemRepository {
	return &ProblemRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]problemEntry),
	}
}

func (r *ProblemRepository) GetProblem(ctx context.Context, problemID string) (domain.Problem, error) {
	if entry, ok := r.lookup(problemID); ok {
		return entry.resolve()
	}

	result, err, _ := r.sf.Do(problemID, func() (interface{}, error) {
		if entry, ok := r.lookup(problemID); ok {
			return entry.resolve()
		}

		problem, err := r.loader.LoadProblem(ctx, problemID)
		if errors.Is(err, domain.ErrProblemNotFound) {
			r.store(problemID, problemEntry{missing: true}, r.missTTL())
		}
		if err != nil {
			return domain.Problem{}, err
		}
		r.store(problemID, problemEntry{problem: problem}, r.ttlWithJitter())
		return problem, nil
	})
	if err != nil {
		return domain.Problem{}, err
	}
	return result.(domain.Problem), nil
}

func (r *ProblemRepository) lookup(problemID string) (problemEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[problemID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return problemEntry{}, false
	}
	return entry, true
}

func (r *ProblemRepository) store(problemID string, entry problemEntry, ttl time.Duration) {
	entry.expiresAt = r.clock().Add(ttl)
	r.mu.Lock()
	r.cache[problemID] = entry
	r.mu.Unlock()
}

func (e problemEntry) resolve() (domain.Problem, error) {
	if e.missing {
		return domain.Problem{}, domain.ErrProblemNotFound
	}
	return e.problem, nil
}

func (r *ProblemRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// missTTL keeps negative entries short-lived so a problem inserted after a
// failed lookup becomes visible quickly.
func (r *ProblemRepository) missTTL() time.Duration {
	return r.ttl / 10
}

// StaticProblemLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticProblemLoader struct {
	problems map[string]domain.Problem
}

func NewStaticProblemLoader(problems map[string]domain.Problem) *StaticProblemLoader {
	return &StaticProblemLoader{problems: problems}
}

func (l *StaticProblemLoader) LoadProblem(_ context.Context, problemID string) (domain.Problem, error) {
	if problem, ok := l.problems[problemID]; ok {
		return problem, nil
	}
	return domain.Problem{}, domain.ErrProblemNotFound
}
