package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/EfrenHaskell/Cosi166Project/internal/app"
	"github.com/EfrenHaskell/Cosi166Project/internal/domain"
	"github.com/EfrenHaskell/Cosi166Project/internal/runner"
)

// Queue list names used by the classroom flow.
const (
	problemList = "problems"
	answerList  = "answers"
)

// Handler exposes the session controller, the failover queue, the problem
// bank, and the code runner over JSON endpoints.
type Handler struct {
	controller *app.SessionController
	queue      *app.FailoverQueue
	problems   app.ProblemRepository
	runner     *runner.Runner
}

func NewHandler(controller *app.SessionController, queue *app.FailoverQueue, problems app.ProblemRepository, codeRunner *runner.Runner) *Handler {
	return &Handler{
		controller: controller,
		queue:      queue,
		problems:   problems,
		runner:     codeRunner,
	}
}

// Register wires all routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("PUT /api/createProblem", h.createProblem)
	mux.HandleFunc("GET /api/getProblem", h.getProblem)
	mux.HandleFunc("POST /api/studentAnswers", h.studentAnswers)
	mux.HandleFunc("GET /api/getStudentAnswers", h.getStudentAnswers)
	mux.HandleFunc("PUT /api/submitCode", h.submitCode)
	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("POST /api/endQuestion", h.endQuestion)
	mux.HandleFunc("GET /api/answers", h.answers)
	mux.HandleFunc("GET /api/problems/{id}", h.problemByID)
	mux.HandleFunc("POST /api/queue/{name}", h.enqueue)
	mux.HandleFunc("DELETE /api/queue/{name}", h.dequeue)
	mux.HandleFunc("GET /api/queue/{name}/peek", h.peek)
	mux.HandleFunc("GET /api/queue/{name}/length", h.length)
}

type createProblemRequest struct {
	Prompt    string `json:"prompt"`
	ProblemID string `json:"problemId"`
	Language  string `json:"language"`
	Duration  int    `json:"duration"` // seconds; 0 means unbounded
	Expected  int    `json:"expectedRespondents"`
}

func (h *Handler) createProblem(w http.ResponseWriter, r *http.Request) {
	var req createProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prompt, language := req.Prompt, req.Language
	if req.ProblemID != "" {
		problem, err := h.problems.GetProblem(r.Context(), req.ProblemID)
		if errors.Is(err, domain.ErrProblemNotFound) {
			writeError(w, http.StatusNotFound, "problem not found")
			return
		}
		if err != nil {
			log.Printf("load problem %s: %v", req.ProblemID, err)
			writeError(w, http.StatusInternalServerError, "problem bank unavailable")
			return
		}
		prompt, language = problem.Prompt, problem.Language
	}
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt or problemId required")
		return
	}
	if language == "" {
		language = "python"
	}

	questionID, err := h.controller.StartQuestion(r.Context(), prompt, language, time.Duration(req.Duration)*time.Second, req.Expected)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload, _ := json.Marshal(domain.ProblemMessage{QuestionID: questionID, Prompt: prompt, Language: language})
	h.queue.Push(r.Context(), problemList, string(payload))

	writeJSON(w, http.StatusOK, map[string]any{"status": "received", "questionId": questionID})
}

func (h *Handler) getProblem(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.queue.Pop(r.Context(), problemList)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"status": "queue empty"})
		return
	}
	var msg domain.ProblemMessage
	if err := json.Unmarshal([]byte(entry), &msg); err != nil {
		log.Printf("malformed problem entry dropped: %v", err)
		writeJSON(w, http.StatusOK, map[string]any{"status": "queue empty"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "queue has element", "problem": msg})
}

type studentAnswerRequest struct {
	RespondentID string `json:"respondentId"`
	Answer       string `json:"studentAnswers"`
}

func (h *Handler) studentAnswers(w http.ResponseWriter, r *http.Request) {
	var req studentAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RespondentID == "" {
		writeError(w, http.StatusBadRequest, "respondentId required")
		return
	}

	feedback, err := h.controller.SubmitAnswer(r.Context(), req.RespondentID, req.Answer)
	if errors.Is(err, domain.ErrNoActiveQuestion) {
		writeError(w, http.StatusConflict, "no active question")
		return
	}

	payload, _ := json.Marshal(domain.AnswerMessage{RespondentID: req.RespondentID, Answer: req.Answer})
	h.queue.Push(r.Context(), answerList, string(payload))

	resp := map[string]any{"status": "received"}
	if errors.Is(err, domain.ErrGradingUnavailable) {
		resp["grading"] = "unavailable"
	} else {
		resp["grading"] = feedback
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getStudentAnswers(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.queue.Pop(r.Context(), answerList)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"status": "answer not found"})
		return
	}
	var msg domain.AnswerMessage
	if err := json.Unmarshal([]byte(entry), &msg); err != nil {
		log.Printf("malformed answer entry dropped: %v", err)
		writeJSON(w, http.StatusOK, map[string]any{"status": "answer not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "answers found", "answer": msg})
}

type submitCodeRequest struct {
	CodeSample struct {
		Code string `json:"code"`
	} `json:"codeSample"`
	Language string `json:"language"`
}

func (h *Handler) submitCode(w http.ResponseWriter, r *http.Request) {
	var req submitCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	language := req.Language
	if language == "" {
		language = "python"
	}

	result, err := h.runner.Run(r.Context(), req.CodeSample.Code, language)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "received", "out": result.Stdout, "err": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "received", "out": result.Stdout, "err": result.Stderr})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Status())
}

func (h *Handler) endQuestion(w http.ResponseWriter, r *http.Request) {
	h.controller.EndQuestion()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ended"})
}

func (h *Handler) answers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"answers": h.controller.Answers()})
}

func (h *Handler) problemByID(w http.ResponseWriter, r *http.Request) {
	problem, err := h.problems.GetProblem(r.Context(), r.PathValue("id"))
	if errors.Is(err, domain.ErrProblemNotFound) {
		writeError(w, http.StatusNotFound, "problem not found")
		return
	}
	if err != nil {
		log.Printf("load problem %s: %v", r.PathValue("id"), err)
		writeError(w, http.StatusInternalServerError, "problem bank unavailable")
		return
	}
	writeJSON(w, http.StatusOK, problem)
}

type enqueueRequest struct {
	Payload string `json:"payload"`
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.queue.Push(r.Context(), r.PathValue("name"), req.Payload)
	writeJSON(w, http.StatusOK, map[string]any{"status": "received"})
}

func (h *Handler) dequeue(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.queue.Pop(r.Context(), r.PathValue("name"))
	writeJSON(w, http.StatusOK, map[string]any{"payload": entry, "found": ok})
}

func (h *Handler) peek(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.queue.Peek(r.Context(), r.PathValue("name"))
	writeJSON(w, http.StatusOK, map[string]any{"payload": entry, "found": ok})
}

func (h *Handler) length(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"length": h.queue.Len(r.Context(), r.PathValue("name"))})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
