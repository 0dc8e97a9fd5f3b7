package domain

import "time"

// Question is one classroom prompt open for student submissions.
// Immutable once posted; replaced wholesale by the next StartQuestion.
type Question struct {
	ID        string
	Prompt    string
	Language  string
	Duration  time.Duration // 0 means no time limit
	Expected  int           // expected respondents; 0 means unknown
	StartedAt time.Time
}

// Feedback is the structured grading result produced by the AI pipeline.
type Feedback struct {
	Problems []string          `json:"problems"`
	Skills   map[string]string `json:"skills"`
	Raw      string            `json:"raw,omitempty"`
}

// AnswerRecord holds one respondent's submission for the active question.
// Resubmission by the same respondent overwrites the prior record.
type AnswerRecord struct {
	RespondentID string
	Submission   string
	Feedback     *Feedback // nil while pending or when grading was unavailable
	Unavailable  bool      // grading failed; the submission itself is retained
	ReceivedAt   time.Time
}

// Status is a read-only snapshot of the active question.
type Status struct {
	Active        bool     `json:"active"`
	QuestionID    string   `json:"questionId,omitempty"`
	Duration      *float64 `json:"duration,omitempty"`      // seconds
	TimeRemaining *float64 `json:"timeRemaining,omitempty"` // seconds, nil when unbounded
	Responses     int      `json:"responsesReceived"`
	Expected      int      `json:"expectedRespondents"`
	AllResponded  bool     `json:"allResponded"`
}

// Problem is a reusable practice problem from the bank.
type Problem struct {
	ID       string `json:"id"`
	Prompt   string `json:"prompt"`
	Language string `json:"language"`
}

// ProblemMessage is the queue payload distributing a prompt to students.
type ProblemMessage struct {
	QuestionID string `json:"questionId"`
	Prompt     string `json:"prompt"`
	Language   string `json:"language,omitempty"`
}

// AnswerMessage is the queue payload carrying a student answer back.
type AnswerMessage struct {
	RespondentID string `json:"respondentId"`
	Answer       string `json:"answer"`
}

// RunResult captures the outcome of executing a student code submission.
type RunResult struct {
	Stdout string `json:"out"`
	Stderr string `json:"err"`
}
