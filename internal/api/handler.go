// Package api provides HTTP handlers for the audit ledger REST API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ehrledger/internal/domain"
	"ehrledger/internal/ledger"
	"ehrledger/internal/service"
)

// Handler implements the client-facing REST contract.
type Handler struct {
	lifecycle *service.LifecycleService
	analytics *service.AnalyticsService
	chat      *service.ChatService
	auth      *service.AuthService
	store     *ledger.Store
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required service dependencies.
func NewHandler(
	lifecycle *service.LifecycleService,
	analytics *service.AnalyticsService,
	chat *service.ChatService,
	auth *service.AuthService,
	store *ledger.Store,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		analytics: analytics,
		chat:      chat,
		auth:      auth,
		store:     store,
		logger:    logger,
	}
}

// Routes mounts all endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)

	r.Route("/api/audit", func(r chi.Router) {
		r.Get("/logs", h.ListLogs)
		r.Post("/add-log", h.AddLog)
		r.Put("/modify-log/{id}", h.ModifyLog)
		r.Delete("/delete-log/{id}", h.DeleteLog)
		r.Post("/chat", h.Chat)
		r.Get("/validate", h.Validate)
	})
}

// --- request/response shapes (field names match the observed client) ---

type entryJSON struct {
	ID          int64  `json:"id"`
	Timestamp   string `json:"timestamp"`
	UserID      string `json:"user_id"`
	PatientID   string `json:"patient_id"`
	Action      string `json:"action"`
	PatientName string `json:"patient_name,omitempty"`
	Age         *int   `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Diagnosis   string `json:"diagnosis,omitempty"`
	Medication  string `json:"medication,omitempty"`
	Notes       string `json:"notes,omitempty"`
	VisitDate   string `json:"visit_date,omitempty"`
	Vitals      string `json:"vitals,omitempty"`
	PrevHash    string `json:"prev_hash"`
	EntryHash   string `json:"entry_hash"`
}

func entryToJSON(e domain.Entry) entryJSON {
	return entryJSON{
		ID:          e.SequenceID,
		Timestamp:   e.Timestamp.Format(timeFormat),
		UserID:      e.ActorID,
		PatientID:   e.PatientID,
		Action:      string(e.Action),
		PatientName: e.Payload.PatientName,
		Age:         e.Payload.Age,
		Gender:      e.Payload.Gender,
		Diagnosis:   e.Payload.Diagnosis,
		Medication:  e.Payload.Medication,
		Notes:       e.Payload.Notes,
		VisitDate:   e.Payload.VisitDate,
		Vitals:      e.Payload.Vitals,
		PrevHash:    e.PrevHash,
		EntryHash:   e.EntryHash,
	}
}

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

type clinicalFields struct {
	PatientName string `json:"patient_name"`
	Age         *int   `json:"age"`
	Gender      string `json:"gender"`
	Diagnosis   string `json:"diagnosis"`
	Medication  string `json:"medication"`
	Data        string `json:"data"` // client name for free-text notes
	Notes       string `json:"notes"`
	VisitDate   string `json:"visit_date"`
	Vitals      string `json:"vitals"`
}

func (c clinicalFields) payload() domain.Payload {
	notes := c.Notes
	if notes == "" {
		notes = c.Data
	}
	return domain.Payload{
		PatientName: c.PatientName,
		Age:         c.Age,
		Gender:      c.Gender,
		Diagnosis:   c.Diagnosis,
		Medication:  c.Medication,
		Notes:       notes,
		VisitDate:   c.VisitDate,
		Vitals:      c.Vitals,
	}
}

// --- handlers ---

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Register creates a new user.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"user_id"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	u, err := h.auth.Register(r.Context(), req.UserID, req.Password, req.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "User " + u.ID + " registered successfully.",
	})
}

// Login verifies credentials and returns the caller identity plus a token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"user_id"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	caller, token, err := h.auth.Login(r.Context(), req.UserID, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// The stored role is authoritative; a client-claimed role never widens it.
	if req.Role != "" && req.Role != string(caller.Role) {
		h.writeError(w, r, domain.ErrAccessDenied("invalid credentials"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id": caller.ID,
		"role":    string(caller.Role),
		"token":   token,
	})
}

// ListLogs returns the caller's visible entries, optionally narrowed by
// patient id or patient name.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r, r.URL.Query().Get("user_id"), r.URL.Query().Get("role"))
	if !ok {
		h.unauthorized(w)
		return
	}

	requested := domain.EntryFilter{
		PatientID:   r.URL.Query().Get("patient_id"),
		PatientName: r.URL.Query().Get("patient_name"),
	}
	entries, err := h.analytics.List(r.Context(), caller, requested)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	logs := make([]entryJSON, len(entries))
	for i, e := range entries {
		logs[i] = entryToJSON(e)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}

// AddLog submits a create/modify/delete action through the lifecycle manager.
func (h *Handler) AddLog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string `json:"user_id"`
		Role      string `json:"role"`
		PatientID string `json:"patient_id"`
		Action    string `json:"action"`
		clinicalFields
	}
	if !readJSON(w, r, &req) {
		return
	}

	caller, ok := h.caller(r, req.UserID, req.Role)
	if !ok {
		h.unauthorized(w)
		return
	}

	action, ok := domain.ParseAction(req.Action)
	if !ok {
		h.writeError(w, r, domain.ErrValidation("invalid action", "action"))
		return
	}

	entry, err := h.lifecycle.Submit(r.Context(), caller.ID, req.PatientID, action, req.payload())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Log securely recorded.",
		"entry":   entryToJSON(entry),
	})
}

// ModifyLog appends a modify entry for the patient in the URL. The path keeps
// the client's modify-log/{id} name, but nothing is edited in place: the
// ledger gains a new entry carrying the merged state.
func (h *Handler) ModifyLog(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "id")

	var req struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
		clinicalFields
	}
	if !readJSON(w, r, &req) {
		return
	}

	caller, ok := h.caller(r, req.UserID, req.Role)
	if !ok {
		h.unauthorized(w)
		return
	}

	entry, err := h.lifecycle.Submit(r.Context(), caller.ID, patientID, domain.ActionModify, req.payload())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Record updated successfully",
		"entry":   entryToJSON(entry),
	})
}

// DeleteLog appends a tombstone entry for the patient in the URL.
func (h *Handler) DeleteLog(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "id")

	caller, ok := h.caller(r, r.URL.Query().Get("user_id"), r.URL.Query().Get("role"))
	if !ok {
		h.unauthorized(w)
		return
	}

	entry, err := h.lifecycle.Submit(r.Context(), caller.ID, patientID, domain.ActionDelete, domain.Payload{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Record deleted successfully",
		"entry":   entryToJSON(entry),
	})
}

// Chat routes a free-text question through the chat gateway.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"user_id"`
		Role        string `json:"role"`
		Question    string `json:"question"`
		PatientID   string `json:"patient_id"`
		PatientName string `json:"patient_name"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	caller, ok := h.caller(r, req.UserID, req.Role)
	if !ok {
		h.unauthorized(w)
		return
	}

	hint := req.PatientID
	if hint == "" && req.PatientName != "" {
		hint = h.resolvePatientByName(r, caller, req.PatientName)
	}

	answer := h.chat.Route(r.Context(), caller, req.Question, hint)

	resp := map[string]interface{}{"answer": answer.Answer}
	if len(answer.Stats) > 0 {
		resp["stats"] = answer.Stats
	}
	if len(answer.Rows) > 0 {
		rows := make([]entryJSON, len(answer.Rows))
		for i, e := range answer.Rows {
			rows[i] = entryToJSON(e)
		}
		resp["rows"] = rows
	}
	writeJSON(w, http.StatusOK, resp)
}

// Validate runs a full chain verification and reports the result. A broken
// chain is reported, never repaired.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	result, err := h.store.VerifyChain(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- helpers ---

// caller resolves the request identity: a validated bearer token in the
// context wins; otherwise the request's own user_id/role parameters are used.
func (h *Handler) caller(r *http.Request, userID, role string) (domain.Caller, bool) {
	if c, ok := domain.CallerFromContext(r.Context()); ok {
		return c, true
	}
	parsed, ok := domain.ParseRole(role)
	if userID == "" || !ok {
		return domain.Caller{}, false
	}
	return domain.Caller{ID: userID, Role: parsed}, true
}

// resolvePatientByName maps a patient-name hint onto a patient id using only
// the caller's visible entries, so the hint cannot widen visibility.
func (h *Handler) resolvePatientByName(r *http.Request, caller domain.Caller, name string) string {
	entries, err := h.analytics.List(r.Context(), caller, domain.EntryFilter{PatientName: name})
	if err != nil || len(entries) == 0 {
		return ""
	}
	return entries[len(entries)-1].PatientID
}

func (h *Handler) unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
		"code":    http.StatusUnauthorized,
		"message": "unauthorized: provide a bearer token or user_id and role",
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}

	body := map[string]interface{}{
		"code":    status,
		"message": err.Error(),
	}
	var validation *domain.ValidationError
	if errors.As(err, &validation) && len(validation.Fields) > 0 {
		body["fields"] = validation.Fields
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"code":    http.StatusBadRequest,
			"message": "invalid JSON body: " + err.Error(),
		})
		return false
	}
	return true
}
