package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"lawlink-quiz-service/internal/app"
	"lawlink-quiz-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const maxBodyBytes = 1 << 20

// Handler exposes the quiz use cases over REST.
type Handler struct {
	service *app.QuizService
	log     *slog.Logger
	now     func() time.Time
}

func NewHandler(service *app.QuizService, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log, now: defaultClock}
}

// RouterOptions configures the middleware stack around the handler.
type RouterOptions struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Router builds the chi router with every route and middleware.
func (h *Handler) Router(opts RouterOptions) http.Handler {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(h.log), middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Get("/quizzes", h.listQuizzes)
	r.Route("/quiz/{quizId}", func(r chi.Router) {
		r.Get("/", h.getQuiz)
		r.Post("/submit", h.submit)
		r.Post("/validate-answer", h.validateAnswer)
		r.Get("/stats", h.stats)
	})
	r.Get("/user/{userId}/history", h.history)
	r.Get("/leaderboard", h.leaderboard)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Service is healthy",
		"timestamp": h.timestamp(),
	})
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListQuizzes(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch quizzes")
		return
	}
	h.ok(w, payload{"quizzes": quizzes, "count": len(quizzes)})
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	includeAnswers := r.URL.Query().Get("includeAnswers") == "true"
	quiz, err := h.service.GetQuiz(r.Context(), chi.URLParam(r, "quizId"), includeAnswers)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch quiz")
		return
	}
	h.ok(w, payload{"quiz": quiz})
}

type submitRequest struct {
	UserID   string          `json:"userId"`
	Answers  []answerRequest `json:"answers"`
	Duration *float64        `json:"duration"`
}

type answerRequest struct {
	QuestionID       string   `json:"questionId"`
	SelectedOptionID string   `json:"selectedOptionId"`
	TimeSpent        *float64 `json:"timeSpent"`
}

// submission converts the request body. Absent numbers become NaN so that
// app.ValidateSubmission reports them in its usual order.
func (req submitRequest) submission(quizID string) domain.Submission {
	sub := domain.Submission{
		UserID:   req.UserID,
		QuizID:   quizID,
		Duration: orNaN(req.Duration),
		Answers:  make([]domain.SubmittedAnswer, 0, len(req.Answers)),
	}
	for _, a := range req.Answers {
		sub.Answers = append(sub.Answers, domain.SubmittedAnswer{
			QuestionID:       a.QuestionID,
			SelectedOptionID: a.SelectedOptionID,
			TimeSpent:        orNaN(a.TimeSpent),
		})
	}
	return sub
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Submit(r.Context(), req.submission(chi.URLParam(r, "quizId")))
	if err != nil {
		h.fail(w, r, err, "Failed to submit quiz")
		return
	}

	message := "Quiz completed. Keep studying!"
	if result.Passed {
		message = "Quiz completed successfully!"
	}
	h.ok(w, payload{"result": result, "message": message})
}

type validateAnswerRequest struct {
	QuestionID       string `json:"questionId"`
	SelectedOptionID string `json:"selectedOptionId"`
}

func (h *Handler) validateAnswer(w http.ResponseWriter, r *http.Request) {
	var req validateAnswerRequest
	if !h.decode(w, r, &req) {
		return
	}

	check, err := h.service.ValidateAnswer(r.Context(), chi.URLParam(r, "quizId"), req.QuestionID, req.SelectedOptionID)
	if err != nil {
		h.fail(w, r, err, "Failed to validate answer")
		return
	}
	h.ok(w, payload{
		"isCorrect":       check.IsCorrect,
		"explanation":     check.Explanation,
		"points":          check.Points,
		"correctOptionId": check.CorrectOptionID,
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), chi.URLParam(r, "quizId"))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch quiz statistics")
		return
	}
	h.ok(w, payload{"stats": stats})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	limit := parseLimit(r.URL.Query().Get("limit"), app.DefaultHistoryLimit)

	history, err := h.service.History(r.Context(), userID, limit)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch user quiz history")
		return
	}
	h.ok(w, payload{"history": history, "count": len(history), "userId": userID})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		quizID = app.AllQuizzes
	}
	limit := parseLimit(r.URL.Query().Get("limit"), app.DefaultLeaderboardLimit)

	entries, err := h.service.Leaderboard(r.Context(), quizID, limit)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch leaderboard")
		return
	}
	h.ok(w, payload{"leaderboard": entries, "count": len(entries), "quizId": quizID})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && err != io.EOF {
		h.log.Warn("invalid request body", slog.String("path", r.URL.Path), slog.Any("error", err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// parseLimit treats a missing, malformed or zero limit as the default.
// Negative and oversized values are passed on to be rejected.
func parseLimit(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n == 0 {
		return fallback
	}
	return n
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
