package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/EfrenHaskell/Cosi166Project/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProblemLoader loads problem JSONB from Postgres.
type ProblemLoader struct {
	pool *pgxpool.Pool
}

func NewProblemLoader(pool *pgxpool.Pool) *ProblemLoader {
	return &ProblemLoader{pool: pool}
}

func (l *ProblemLoader) LoadProblem(ctx context.Context, problemID string) (domain.Problem, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM problems WHERE id=$1`, problemID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Problem{}, domain.ErrProblemNotFound
	}
	if err != nil {
		return domain.Problem{}, fmt.Errorf("load problem: %w", err)
	}
	var problem domain.Problem
	if err := json.Unmarshal(raw, &problem); err != nil {
		return domain.Problem{}, fmt.Errorf("unmarshal problem: %w", err)
	}
	if problem.ID == "" {
		problem.ID = problemID
	}
	return problem, nil
}
