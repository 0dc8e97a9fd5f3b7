package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/EfrenHaskell/Cosi166Project/internal/app"
	"github.com/EfrenHaskell/Cosi166Project/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type stubGrader struct {
	mu       sync.Mutex
	feedback domain.Feedback
	err      error
	started  chan struct{} // closed when the first Grade call begins
	release  chan struct{} // when set, Grade blocks until closed
	calls    int
}

func (g *stubGrader) Grade(ctx context.Context, prompt, submission, language string) (domain.Feedback, error) {
	g.mu.Lock()
	g.calls++
	if g.started != nil && g.calls == 1 {
		close(g.started)
	}
	release := g.release
	g.mu.Unlock()
	if release != nil {
		<-release
	}
	return g.feedback, g.err
}

type archivedLedger struct {
	question domain.Question
	records  []domain.AnswerRecord
}

type recordingArchiver struct {
	calls chan archivedLedger
}

func (a *recordingArchiver) ArchiveLedger(ctx context.Context, question domain.Question, records []domain.AnswerRecord) error {
	a.calls <- archivedLedger{question: question, records: records}
	return nil
}

func TestSubmitRequiresActiveQuestion(t *testing.T) {
	controller := app.NewSessionController(&stubGrader{})

	_, err := controller.SubmitAnswer(context.Background(), "u1", "print('hi')")
	if !errors.Is(err, domain.ErrNoActiveQuestion) {
		t.Fatalf("expected ErrNoActiveQuestion, got %v", err)
	}
	if got := controller.Answers(); len(got) != 0 {
		t.Fatalf("expected empty ledger, got %v", got)
	}
}

func TestExpectedCountHeuristic(t *testing.T) {
	ctx := context.Background()
	controller := app.NewSessionController(&stubGrader{})

	if _, err := controller.StartQuestion(ctx, "sum two ints", "python", 0, 2); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := controller.SubmitAnswer(ctx, "u1", "a"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if status := controller.Status(); status.AllResponded {
		t.Fatalf("one of two respondents should not complete the question")
	}

	// Resubmission by the same respondent must not count twice.
	if _, err := controller.SubmitAnswer(ctx, "u1", "a2"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if status := controller.Status(); status.Responses != 1 || status.AllResponded {
		t.Fatalf("expected 1 response and not complete, got %+v", status)
	}

	if _, err := controller.SubmitAnswer(ctx, "u2", "b"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	status := controller.Status()
	if status.Responses != 2 || !status.AllResponded {
		t.Fatalf("expected complete at second respondent, got %+v", status)
	}

	controller.EndQuestion()
	if status := controller.Status(); status.Active || status.AllResponded {
		t.Fatalf("ended question should report inactive, got %+v", status)
	}
}

func TestQuietPeriodHeuristic(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	controller := app.NewSessionControllerWithClock(&stubGrader{}, clock.now)

	if _, err := controller.StartQuestion(ctx, "prompt", "python", 0, 0); err != nil {
		t.Fatalf("start: %v", err)
	}
	if status := controller.Status(); status.AllResponded {
		t.Fatalf("no responses yet, should not be complete")
	}

	if _, err := controller.SubmitAnswer(ctx, "u1", "answer"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if status := controller.Status(); status.AllResponded {
		t.Fatalf("answers still arriving, should not be complete")
	}

	clock.advance(3 * time.Second)
	if status := controller.Status(); !status.AllResponded {
		t.Fatalf("quiet period elapsed, expected complete")
	}
}

func TestStartClearsRetainedLedger(t *testing.T) {
	ctx := context.Background()
	controller := app.NewSessionController(&stubGrader{})

	if _, err := controller.StartQuestion(ctx, "first", "python", 0, 0); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := controller.SubmitAnswer(ctx, "u1", "first answer"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	controller.EndQuestion()
	// Ledger survives the end for read-back.
	if got := controller.Answers(); len(got) != 1 || got[0] != "first answer" {
		t.Fatalf("expected retained answer after end, got %v", got)
	}

	if _, err := controller.StartQuestion(ctx, "second", "python", 0, 0); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if status := controller.Status(); status.Responses != 0 {
		t.Fatalf("new question should start with 0 responses, got %+v", status)
	}
	if got := controller.Answers(); len(got) != 0 {
		t.Fatalf("new question should clear retained answers, got %v", got)
	}
}

func TestGradingUnavailableKeepsSubmission(t *testing.T) {
	ctx := context.Background()
	grader := &stubGrader{err: errors.New("upstream down")}
	controller := app.NewSessionController(grader)

	if _, err := controller.StartQuestion(ctx, "prompt", "python", 0, 0); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err := controller.SubmitAnswer(ctx, "u1", "my answer")
	if !errors.Is(err, domain.ErrGradingUnavailable) {
		t.Fatalf("expected ErrGradingUnavailable, got %v", err)
	}

	records := controller.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if !records[0].Unavailable || records[0].Submission != "my answer" {
		t.Fatalf("expected unavailable sentinel with submission retained, got %+v", records[0])
	}
}

func TestGradingFeedbackAttaches(t *testing.T) {
	ctx := context.Background()
	grader := &stubGrader{feedback: domain.Feedback{Problems: []string{"off by one"}}}
	controller := app.NewSessionController(grader)

	if _, err := controller.StartQuestion(ctx, "prompt", "python", 0, 0); err != nil {
		t.Fatalf("start: %v", err)
	}
	feedback, err := controller.SubmitAnswer(ctx, "u1", "answer")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if feedback == nil || len(feedback.Problems) != 1 {
		t.Fatalf("expected feedback returned, got %+v", feedback)
	}

	records := controller.Records()
	if len(records) != 1 || records[0].Feedback == nil {
		t.Fatalf("expected feedback attached to record, got %+v", records)
	}
}

func TestLateGradingResultDropped(t *testing.T) {
	ctx := context.Background()
	grader := &stubGrader{
		feedback: domain.Feedback{Problems: []string{"late"}},
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	controller := app.NewSessionController(grader)

	if _, err := controller.StartQuestion(ctx, "first", "python", 0, 0); err != nil {
		t.Fatalf("start: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = controller.SubmitAnswer(ctx, "u1", "slow answer")
	}()
	<-grader.started

	// Replace the question while grading is still in flight.
	if _, err := controller.StartQuestion(ctx, "second", "python", 0, 0); err != nil {
		t.Fatalf("restart: %v", err)
	}
	close(grader.release)
	<-done

	if status := controller.Status(); status.Responses != 0 {
		t.Fatalf("late grading must not leak into the new ledger, got %+v", status)
	}
}

func TestTimerEndsQuestion(t *testing.T) {
	ctx := context.Background()
	controller := app.NewSessionController(&stubGrader{})

	if _, err := controller.StartQuestion(ctx, "prompt", "python", 50*time.Millisecond, 0); err != nil {
		t.Fatalf("start: %v", err)
	}
	if status := controller.Status(); !status.Active {
		t.Fatalf("question should be active right after start")
	}

	deadline := time.After(2 * time.Second)
	for controller.Status().Active {
		select {
		case <-deadline:
			t.Fatalf("timer did not end the question")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStaleTimerDoesNotEndNewQuestion(t *testing.T) {
	ctx := context.Background()
	controller := app.NewSessionController(&stubGrader{})

	if _, err := controller.StartQuestion(ctx, "first", "python", 50*time.Millisecond, 0); err != nil {
		t.Fatalf("start: %v", err)
	}
	secondID, err := controller.StartQuestion(ctx, "second", "python", 0, 0)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	status := controller.Status()
	if !status.Active || status.QuestionID != secondID {
		t.Fatalf("stale timer ended the wrong question, got %+v", status)
	}
}

func TestStatusTimeRemaining(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	controller := app.NewSessionControllerWithClock(&stubGrader{}, clock.now)

	if _, err := controller.StartQuestion(ctx, "prompt", "python", 10*time.Second, 0); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.advance(4 * time.Second)

	status := controller.Status()
	if status.TimeRemaining == nil || *status.TimeRemaining != 6 {
		t.Fatalf("expected 6s remaining, got %+v", status.TimeRemaining)
	}

	clock.advance(20 * time.Second)
	status = controller.Status()
	if status.TimeRemaining == nil || *status.TimeRemaining != 0 {
		t.Fatalf("time remaining must clamp at 0, got %+v", status.TimeRemaining)
	}
}

func TestEndedQuestionArchivedOnReplacement(t *testing.T) {
	ctx := context.Background()
	archiver := &recordingArchiver{calls: make(chan archivedLedger, 2)}
	controller := app.NewSessionController(&stubGrader{})
	controller.SetArchiver(archiver)

	firstID, err := controller.StartQuestion(ctx, "first", "python", 0, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := controller.SubmitAnswer(ctx, "u1", "first answer"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Ending before the replacement must not lose the ledger.
	controller.EndQuestion()
	if _, err := controller.StartQuestion(ctx, "second", "python", 0, 0); err != nil {
		t.Fatalf("restart: %v", err)
	}

	select {
	case got := <-archiver.calls:
		if got.question.ID != firstID {
			t.Fatalf("archived wrong question: got %s, want %s", got.question.ID, firstID)
		}
		if len(got.records) != 1 || got.records[0].RespondentID != "u1" {
			t.Fatalf("expected u1's record archived, got %+v", got.records)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("ended question's ledger was not archived on replacement")
	}

	// The superseded ledger is archived exactly once.
	if _, err := controller.StartQuestion(ctx, "third", "python", 0, 0); err != nil {
		t.Fatalf("restart: %v", err)
	}
	select {
	case got := <-archiver.calls:
		t.Fatalf("unexpected second archive: %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	ctx := context.Background()
	controller := app.NewSessionController(&stubGrader{})

	updates, cancel := controller.Subscribe()
	defer cancel()

	initial := <-updates
	if initial.Active {
		t.Fatalf("expected inactive initial snapshot, got %+v", initial)
	}

	if _, err := controller.StartQuestion(ctx, "prompt", "python", 0, 0); err != nil {
		t.Fatalf("start: %v", err)
	}
	update := <-updates
	if !update.Active {
		t.Fatalf("expected active status after start, got %+v", update)
	}
}

func TestSubscribeSnapshotNeverTrailsBroadcast(t *testing.T) {
	ctx := context.Background()

	// With a single start and no end, activeness only moves forward. An
	// inactive status after an active one means the registration snapshot
	// was delivered behind a later broadcast.
	for i := 0; i < 50; i++ {
		controller := app.NewSessionController(&stubGrader{})

		started := make(chan struct{})
		go func() {
			defer close(started)
			if _, err := controller.StartQuestion(ctx, "prompt", "python", 0, 0); err != nil {
				t.Errorf("start: %v", err)
			}
		}()

		updates, cancel := controller.Subscribe()
		first := <-updates
		if first.Active {
			select {
			case second := <-updates:
				if !second.Active {
					t.Fatalf("initial snapshot arrived after a broadcast: %+v then %+v", first, second)
				}
			case <-time.After(20 * time.Millisecond):
			}
		}
		<-started
		cancel()
	}
}
