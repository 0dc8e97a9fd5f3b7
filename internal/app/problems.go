package app

import (
	"context"

	"github.com/EfrenHaskell/Cosi166Project/internal/domain"
)

// ProblemRepository loads reusable practice problems (from cache/backing store).
type ProblemRepository interface {
	GetProblem(ctx context.Context, problemID string) (domain.Problem, error)
}
