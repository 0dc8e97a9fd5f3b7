package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/EfrenHaskell/Cosi166Project/internal/domain"
	"github.com/google/uuid"
)

// DefaultStabilization is the quiet period after the last answer before the
// class counts as done when no expected-respondent count was given.
const DefaultStabilization = 3 * time.Second

// GradingPipeline produces structured feedback for a submission. Failures are
// tolerated; the controller records them as unavailable.
type GradingPipeline interface {
	Grade(ctx context.Context, prompt, submission, language string) (domain.Feedback, error)
}

// LedgerArchiver persists a finished question's answers (best-effort).
type LedgerArchiver interface {
	ArchiveLedger(ctx context.Context, question domain.Question, records []domain.AnswerRecord) error
}

// SessionController tracks the single active classroom question through its
// lifecycle: posted, collecting answers, closed. All mutation goes through its
// lock; the grading call runs outside it so one slow grade does not serialize
// other submissions.
type SessionController struct {
	grader        GradingPipeline
	archiver      LedgerArchiver
	stabilization time.Duration
	now           func() time.Time

	mu           sync.RWMutex
	generation   uint64
	question     *domain.Question
	lastQuestion *domain.Question // ended question whose ledger is retained
	ledger       map[string]*domain.AnswerRecord
	lastResponse time.Time
	scheduler    endScheduler
	subscribers  map[chan domain.Status]struct{}
}

func NewSessionController(grader GradingPipeline) *SessionController {
	return NewSessionControllerWithClock(grader, time.Now)
}

// NewSessionControllerWithClock allows deterministic timestamps in tests.
func NewSessionControllerWithClock(grader GradingPipeline, now func() time.Time) *SessionController {
	return &SessionController{
		grader:        grader,
		stabilization: DefaultStabilization,
		now:           now,
		ledger:        make(map[string]*domain.AnswerRecord),
		subscribers:   make(map[chan domain.Status]struct{}),
	}
}

// SetArchiver wires optional persistence for superseded ledgers.
func (c *SessionController) SetArchiver(a LedgerArchiver) {
	c.archiver = a
}

// SetStabilization overrides the quiet-period threshold.
func (c *SessionController) SetStabilization(d time.Duration) {
	if d > 0 {
		c.stabilization = d
	}
}

// StartQuestion posts a new question, replacing any current one. The prior
// ledger is handed to the archiver before being cleared. A positive duration
// arms the auto-end timer.
func (c *SessionController) StartQuestion(ctx context.Context, prompt, language string, duration time.Duration, expected int) (string, error) {
	if duration < 0 {
		duration = 0
	}
	if expected < 0 {
		expected = 0
	}

	c.mu.Lock()
	prevQuestion := c.question
	if prevQuestion == nil {
		prevQuestion = c.lastQuestion
	}
	prevRecords := c.recordsLocked()
	c.lastQuestion = nil

	c.generation++
	gen := c.generation
	question := &domain.Question{
		ID:        uuid.NewString(),
		Prompt:    prompt,
		Language:  language,
		Duration:  duration,
		Expected:  expected,
		StartedAt: c.now(),
	}
	c.question = question
	c.ledger = make(map[string]*domain.AnswerRecord)
	c.lastResponse = time.Time{}

	c.scheduler.cancel()
	if duration > 0 {
		c.scheduler.arm(duration, func() { c.autoEnd(gen) })
	}
	c.broadcastLocked()
	c.mu.Unlock()

	if c.archiver != nil && prevQuestion != nil && len(prevRecords) > 0 {
		go c.archive(*prevQuestion, prevRecords)
	}
	return question.ID, nil
}

// SubmitAnswer records a respondent's submission and grades it best-effort.
// The ledger upsert happens under the lock; grading runs outside it and its
// result is attached afterwards, unless a newer question has replaced the
// ledger in the meantime. A grading failure returns ErrGradingUnavailable;
// the submission itself is never lost.
func (c *SessionController) SubmitAnswer(ctx context.Context, respondentID, submission string) (*domain.Feedback, error) {
	c.mu.Lock()
	if c.question == nil {
		c.mu.Unlock()
		return nil, domain.ErrNoActiveQuestion
	}
	gen := c.generation
	question := *c.question
	record := &domain.AnswerRecord{
		RespondentID: respondentID,
		Submission:   submission,
		ReceivedAt:   c.now(),
	}
	c.ledger[respondentID] = record
	c.lastResponse = record.ReceivedAt
	c.broadcastLocked()
	c.mu.Unlock()

	if c.grader == nil {
		c.attach(gen, record, nil)
		return nil, domain.ErrGradingUnavailable
	}

	feedback, err := c.grader.Grade(ctx, question.Prompt, submission, question.Language)
	if err != nil {
		log.Printf("grading failed for %s: %v", respondentID, err)
		c.attach(gen, record, nil)
		return nil, domain.ErrGradingUnavailable
	}
	c.attach(gen, record, &feedback)
	return &feedback, nil
}

// attach sets the grading outcome on a record unless the ledger has since been
// cleared by a newer question, in which case the late result is dropped.
func (c *SessionController) attach(gen uint64, record *domain.AnswerRecord, feedback *domain.Feedback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	record.Feedback = feedback
	record.Unavailable = feedback == nil
}

// EndQuestion closes the active question. Idempotent; the ledger is retained
// for read-back until the next StartQuestion.
func (c *SessionController) EndQuestion() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLocked()
}

// autoEnd is the timer callback. It re-checks the generation under the lock so
// a stale fire against a replaced or already-ended question is a no-op.
func (c *SessionController) autoEnd(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen || c.question == nil {
		return
	}
	c.endLocked()
}

func (c *SessionController) endLocked() {
	if c.question == nil {
		return
	}
	c.scheduler.cancel()
	// Keep the ended question around so the retained ledger can still be
	// archived when the next question replaces it.
	c.lastQuestion = c.question
	c.question = nil
	c.broadcastLocked()
}

// Status reports a consistent snapshot of the active question.
func (c *SessionController) Status() domain.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statusLocked()
}

func (c *SessionController) statusLocked() domain.Status {
	status := domain.Status{Responses: len(c.ledger)}
	if c.question == nil {
		return status
	}
	status.Active = true
	status.QuestionID = c.question.ID
	status.Expected = c.question.Expected
	if c.question.Duration > 0 {
		duration := c.question.Duration.Seconds()
		remaining := (c.question.Duration - c.now().Sub(c.question.StartedAt)).Seconds()
		if remaining < 0 {
			remaining = 0
		}
		status.Duration = &duration
		status.TimeRemaining = &remaining
	}
	status.AllResponded = c.allRespondedLocked()
	return status
}

/// allRespondedLocked is the completion heuristic. It is advisory only: it
// informs status, it never ends the question.
func (c *SessionController) allRespondedLocked() bool {
	if c.question.Expected > 0 {
		return len(c.ledger) >= c.question.Expected
	}
	if len(c.ledger) > 0 {
		return c.now().Sub(c.lastResponse) >= c.stabilization
	}
	return false
}

// Answers returns the retained submissions. Iteration order is not guaranteed.
func (c *SessionController) Answers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	answers := make([]string, 0, len(c.ledger))
	for _, record := range c.ledger {
		answers = append(answers, record.Submission)
	}
	return answers
}

// Records snapshots the retained ledger, for archival and display.
func (c *SessionController) Records() []domain.AnswerRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recordsLocked()
}

func (c *SessionController) recordsLocked() []domain.AnswerRecord {
	records := make([]domain.AnswerRecord, 0, len(c.ledger))
	for _, record := range c.ledger {
		records = append(records, *record)
	}
	return records
}

// Subscribe returns a channel receiving status updates on every transition.
// The caller must invoke the returned cancel function to avoid leaks.
func (c *SessionController) Subscribe() (<-chan domain.Status, func()) {
	ch := make(chan domain.Status, 8)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	// The channel is fresh and buffered, so sending the snapshot under the
	// lock cannot block and no broadcast can slip in ahead of it.
	ch <- c.statusLocked()
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *SessionController) broadcastLocked() {
	status := c.statusLocked()
	for ch := range c.subscribers {
		select {
		case ch <- status:
		default:
			// Drop the stale update so a slow client never blocks the lock.
			select {
			case <-ch:
			default:
			}
			ch <- status
		}
	}
}

func (c *SessionController) archive(question domain.Question, records []domain.AnswerRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.archiver.ArchiveLedger(ctx, question, records); err != nil {
		log.Printf("archive ledger for question %s: %v", question.ID, err)
	}
}
