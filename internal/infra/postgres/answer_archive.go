package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/EfrenHaskell/Cosi166Project/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AnswerArchive persists the ledger of a finished question so answers survive
// being superseded in memory. Best-effort: callers log and move on if an
// insert fails.
type AnswerArchive struct {
	pool *pgxpool.Pool
}

func NewAnswerArchive(pool *pgxpool.Pool) *AnswerArchive {
	return &AnswerArchive{pool: pool}
}

func (a *AnswerArchive) ArchiveLedger(ctx context.Context, question domain.Question, records []domain.AnswerRecord) error {
	for _, record := range records {
		var feedback interface{}
		if record.Feedback != nil {
			data, err := json.Marshal(record.Feedback)
			if err != nil {
				return fmt.Errorf("marshal feedback for %s: %w", record.RespondentID, err)
			}
			feedback = string(data)
		}
		_, err := a.pool.Exec(ctx, `
			INSERT INTO answer_archive (question_id, prompt, respondent_id, submission, feedback, received_at)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6)
			ON CONFLICT (question_id, respondent_id) DO UPDATE
			SET submission=EXCLUDED.submission, feedback=EXCLUDED.feedback, received_at=EXCLUDED.received_at`,
			question.ID, question.Prompt, record.RespondentID, record.Submission, feedback, record.ReceivedAt)
		if err != nil {
			return fmt.Errorf("archive answer for %s: %w", record.RespondentID, err)
		}
	}
	return nil
}

// LoadArchived returns the archived submissions for a past question.
func (a *AnswerArchive) LoadArchived(ctx context.Context, questionID string) ([]domain.AnswerRecord, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT respondent_id, submission, feedback, received_at
		FROM answer_archive WHERE question_id=$1 ORDER BY received_at`, questionID)
	if err != nil {
		return nil, fmt.Errorf("load archived answers: %w", err)
	}
	defer rows.Close()

	var records []domain.AnswerRecord
	for rows.Next() {
		var record domain.AnswerRecord
		var feedback []byte
		if err := rows.Scan(&record.RespondentID, &record.Submission, &feedback, &record.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan archived answer: %w", err)
		}
		if len(feedback) > 0 {
			record.Feedback = &domain.Feedback{}
			if err := json.Unmarshal(feedback, record.Feedback); err != nil {
				return nil, fmt.Errorf("unmarshal feedback: %w", err)
			}
		} else {
			record.Unavailable = true
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
