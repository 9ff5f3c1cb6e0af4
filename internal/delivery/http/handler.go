package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/makini/pay-ledger/internal/domain/entity"
	"github.com/makini/pay-ledger/internal/domain/event"
	"github.com/makini/pay-ledger/internal/domain/repository"
	"github.com/makini/pay-ledger/internal/usecase/ingest"
	"github.com/makini/pay-ledger/internal/usecase/status"
	"github.com/makini/pay-ledger/internal/usecase/student"
)

type Handler struct {
	ingestUC  *ingest.UseCase
	statusUC  *status.UseCase
	studentUC *student.UseCase
	logger    *slog.Logger
}

func NewHandler(ingestUC *ingest.UseCase, statusUC *status.UseCase, studentUC *student.UseCase, logger *slog.Logger) *Handler {
	return &Handler{
		ingestUC:  ingestUC,
		statusUC:  statusUC,
		studentUC: studentUC,
		logger:    logger,
	}
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

type paymentReceipt struct {
	PaymentID     string    `json:"paymentId"`
	TransactionID string    `json:"transactionId"`
	Status        string    `json:"status"`
	ProcessedAt   time.Time `json:"processedAt"`
}

type duplicateReceipt struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

type paymentView struct {
	ID                string    `json:"id"`
	TransactionID     string    `json:"transactionId"`
	StudentID         string    `json:"studentId"`
	Amount            float64   `json:"amount"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	PaymentMethod     string    `json:"paymentMethod"`
	MerchantReference string    `json:"merchantReference,omitempty"`
	Message           string    `json:"message,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type studentView struct {
	StudentID string    `json:"studentId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Year      int       `json:"year,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HandlePaymentWebhook ingests one provider delivery. Retries of the same
// transaction ID always get a 200 with the duplicate payload, never an error.
func (h *Handler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Status: "error", Message: "Invalid JSON payload"})
		return
	}

	resp, err := h.ingestUC.Execute(r.Context(), payload)
	if err != nil {
		var vErr *event.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeJSON(w, http.StatusBadRequest, envelope{
				Status:  "error",
				Message: "Validation failed",
				Errors:  vErr.Fields,
			})
		case errors.Is(err, ingest.ErrStudentNotFound):
			writeJSON(w, http.StatusBadRequest, envelope{Status: "error", Message: "Student not found"})
		default:
			h.logger.Error("payment webhook failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, envelope{Status: "error", Message: "Internal Server Error"})
		}
		return
	}

	if resp.Duplicate {
		writeJSON(w, http.StatusOK, envelope{
			Status:  "success",
			Message: "Payment already processed",
			Data: duplicateReceipt{
				TransactionID: resp.TransactionID,
				Status:        resp.Status,
			},
		})
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Status: "success",
		Data: paymentReceipt{
			PaymentID:     resp.PaymentID,
			TransactionID: resp.TransactionID,
			Status:        resp.Status,
			ProcessedAt:   resp.ProcessedAt,
		},
	})
}

func (h *Handler) HandlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	p, err := h.statusUC.Execute(r.Context(), transactionID)
	if err != nil {
		var vErr *event.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeJSON(w, http.StatusBadRequest, envelope{Status: "error", Message: "Validation failed", Errors: vErr.Fields})
		case errors.Is(err, repository.ErrNotFound):
			writeJSON(w, http.StatusNotFound, envelope{Status: "error", Message: "Payment not found"})
		default:
			h.logger.Error("payment status lookup failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, envelope{Status: "error", Message: "Internal Server Error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: toPaymentView(p)})
}

func (h *Handler) HandleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.studentUC.List(r.Context())
	if err != nil {
		h.logger.Error("student list failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Status: "error", Message: "Internal Server Error"})
		return
	}

	views := make([]studentView, 0, len(students))
	for _, s := range students {
		views = append(views, toStudentView(s))
	}
	count := len(views)
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: views, Count: &count})
}

func (h *Handler) HandleGetStudent(w http.ResponseWriter, r *http.Request) {
	h.respondStudent(w, r, chi.URLParam(r, "studentID"), false)
}

// HandleValidateStudent answers exists-style checks shaped for payment UIs.
func (h *Handler) HandleValidateStudent(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("student_id")
	if studentID == "" {
		studentID = r.URL.Query().Get("studentId")
	}
	h.respondStudent(w, r, studentID, true)
}

func (h *Handler) respondStudent(w http.ResponseWriter, r *http.Request, studentID string, validate bool) {
	if studentID == "" {
		writeJSON(w, http.StatusBadRequest, envelope{
			Status:  "error",
			Message: "Validation failed",
			Errors:  map[string]string{"studentId": "Student ID is required"},
		})
		return
	}

	s, err := h.studentUC.Get(r.Context(), studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			body := envelope{Status: "error", Message: "Student not found"}
			if validate {
				body.Data = map[string]any{"isValid": false}
			}
			writeJSON(w, http.StatusNotFound, body)
			return
		}
		h.logger.Error("student lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Status: "error", Message: "Internal Server Error"})
		return
	}

	if validate {
		writeJSON(w, http.StatusOK, envelope{
			Status: "success",
			Data:   map[string]any{"isValid": true, "student": toStudentView(s)},
		})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: toStudentView(s)})
}

func (h *Handler) HandleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Status: "error", Message: "Invalid JSON payload"})
		return
	}

	req := student.RegisterRequest{
		StudentID: stringField(body, "student_id", "studentId"),
		FirstName: stringField(body, "first_name", "firstName"),
		LastName:  stringField(body, "last_name", "lastName"),
		Gender:    stringField(body, "gender"),
	}
	if y, ok := body["year"].(float64); ok {
		req.Year = int(y)
	}

	s, err := h.studentUC.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, student.ErrMissingFields), errors.Is(err, student.ErrAlreadyExists):
			writeJSON(w, http.StatusBadRequest, envelope{Status: "error", Message: err.Error()})
		default:
			h.logger.Error("student registration failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, envelope{Status: "error", Message: "Internal Server Error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, envelope{Status: "success", Message: "Student created", Data: toStudentView(s)})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: map[string]string{"status": "ok"}})
}

func toPaymentView(p *entity.Payment) paymentView {
	return paymentView{
		ID:                p.ID().String(),
		TransactionID:     p.TransactionID(),
		StudentID:         p.StudentID(),
		Amount:            p.Amount(),
		Currency:          p.Currency(),
		Status:            p.Status(),
		PaymentMethod:     p.PaymentMethod(),
		MerchantReference: p.MerchantReference(),
		Message:           p.Message(),
		CreatedAt:         p.CreatedAt(),
		UpdatedAt:         p.UpdatedAt(),
	}
}

func toStudentView(s *entity.Student) studentView {
	return studentView{
		StudentID: s.StudentID(),
		FirstName: s.FirstName(),
		LastName:  s.LastName(),
		Year:      s.Year(),
		Gender:    s.Gender(),
		Balance:   s.Balance(),
		CreatedAt: s.CreatedAt(),
		UpdatedAt: s.UpdatedAt(),
	}
}

func stringField(body map[string]any, aliases ...string) string {
	for _, key := range aliases {
		if v, ok := body[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
