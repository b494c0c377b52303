// Package dashboard is the HTTP surface for the two out-of-process
// collaborators of the sync engine: the read-mostly attendance dashboard and
// the staff registration kiosk. It reads the stores the engine writes and
// writes the registry only through the registration service.
package dashboard

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tapsync/internal/attendance"
	"tapsync/internal/auth"
	"tapsync/internal/platform/config"
	"tapsync/internal/platform/middleware"
	"tapsync/internal/students"
)

// Handler handles dashboard and registration endpoints.
type Handler struct {
	logger       *slog.Logger
	log          attendance.Store
	roster       students.Store
	registration *students.Service
	tokens       *auth.TokenService
	authCfg      config.AuthConfig
	location     *time.Location
}

// New creates a dashboard Handler. An unknown timezone falls back to UTC so
// a misconfigured kiosk still serves, just with UTC "today" boundaries.
func New(
	log attendance.Store,
	roster students.Store,
	registration *students.Service,
	tokens *auth.TokenService,
	authCfg config.AuthConfig,
	timezone string,
	logger *slog.Logger,
) *Handler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("unknown timezone, using UTC", "timezone", timezone)
		loc = time.UTC
	}
	return &Handler{
		logger:       logger,
		log:          log,
		roster:       roster,
		registration: registration,
		tokens:       tokens,
		authCfg:      authCfg,
		location:     loc,
	}
}

// Register registers all routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))

	router.Post("/auth/login", h.handleLogin)
	router.Get("/attendance", h.handleListAttendance)
	router.Get("/attendance/export", h.handleExportAttendance)
	router.Get("/students", h.handleListStudents)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens, h.logger))
		r.Get("/students/{rfid}", h.handleLookupStudent)
		r.Put("/students/{rfid}", h.handleRegisterStudent)
	})

	r.Mount("/", router)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if h.authCfg.StaffPasswordHash == "" ||
		req.Username != h.authCfg.StaffUser ||
		auth.VerifyPassword(req.Password, h.authCfg.StaffPasswordHash) != nil {
		h.logger.WarnContext(ctx, "failed staff login",
			"username", req.Username,
			"client_ip", middleware.GetClientIP(ctx),
			"request_id", middleware.GetRequestID(ctx),
		)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.GenerateToken(req.Username)
	if err != nil {
		h.logger.ErrorContext(ctx, "token generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// collectRows resolves query filters against both stores. Date filtering is
// pushed into the store; name/time-part filtering needs the roster join so
// it happens here.
func (h *Handler) collectRows(r *http.Request) ([]Row, error) {
	q := r.URL.Query()

	date := q.Get("date")
	if q.Get("today") != "" {
		date = time.Now().In(h.location).Format("2006-01-02")
	}

	records, err := h.log.List(r.Context(), attendance.Filter{
		Date: date,
		RFID: q.Get("rfid"),
	})
	if err != nil {
		return nil, err
	}
	roster, err := h.roster.List(r.Context())
	if err != nil {
		return nil, err
	}

	return buildRows(records, roster, rowFilter{
		text:     strings.ToLower(strings.TrimSpace(q.Get("search"))),
		hour:     q.Get("hour"),
		minute:   q.Get("minute"),
		meridiem: strings.ToUpper(q.Get("meridiem")),
	}), nil
}

func (h *Handler) handleListAttendance(w http.ResponseWriter, r *http.Request) {
	rows, err := h.collectRows(r)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "attendance listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":  rows,
		"count": len(rows),
	})
}

func (h *Handler) handleExportAttendance(w http.ResponseWriter, r *http.Request) {
	rows, err := h.collectRows(r)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "attendance export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="attendance.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"key", "rfid", "name", "date", "time", "recorded_at"})
	for _, row := range rows {
		_ = cw.Write([]string{
			row.Key,
			row.RFID,
			row.Name,
			row.Date,
			row.Time,
			row.RecordedAt.Format(time.RFC3339),
		})
	}
	cw.Flush()
}

func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	roster, err := h.roster.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "student listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"students": roster,
		"count":    len(roster),
	})
}

type lookupResponse struct {
	Student    students.Student `json:"student"`
	Registered bool             `json:"registered"`
}

func (h *Handler) handleLookupStudent(w http.ResponseWriter, r *http.Request) {
	st, registered, err := h.registration.Lookup(r.Context(), chi.URLParam(r, "rfid"))
	if errors.Is(err, students.ErrMissingRFID) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "student lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{Student: *st, Registered: registered})
}

type registerRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st, err := h.registration.Register(r.Context(), chi.URLParam(r, "rfid"), req.Name)
	if errors.Is(err, students.ErrMissingRFID) || errors.Is(err, students.ErrMissingName) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{Student: *st, Registered: true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
