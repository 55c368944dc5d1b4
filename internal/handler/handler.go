package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"grant-match-api/internal/models"
	"grant-match-api/internal/service"
	"grant-match-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// Options holds options for creating a handler.
type Options struct {
	MaxBodySize int64
}

// DefaultOptions returns default handler options.
func DefaultOptions() Options {
	return Options{
		MaxBodySize: 10 << 20, // 10MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts Options) *Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultOptions().MaxBodySize
	}
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// CreateProgram handles POST /programs
func (h *Handler) CreateProgram(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var program models.FundingProgram
	if err := json.NewDecoder(r.Body).Decode(&program); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	sanitizeProgram(&program)

	if err := h.service.CreateProgram(r.Context(), program); err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, program)
}

// SaveProfile handles PUT /users/{user_id}/profile
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	userID := validation.SanitizeString(chi.URLParam(r, "user_id"))
	if userID == "" {
		h.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	var profile models.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	profile.Province = validation.SanitizeString(profile.Province)
	for i := range profile.Industries {
		profile.Industries[i] = validation.SanitizeString(profile.Industries[i])
	}

	if err := h.service.SaveProfile(r.Context(), userID, profile); err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, models.SaveProfileResponse{UserID: userID, Saved: true})
}

// GetMatches handles GET /users/{user_id}/matches
func (h *Handler) GetMatches(w http.ResponseWriter, r *http.Request) {
	h.serveMatches(w, r, nil)
}

// ComputeMatches handles POST /users/{user_id}/matches. The body is a partial
// profile override merged field-by-field over the stored profile.
func (h *Handler) ComputeMatches(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var override models.ProfileOverride
	if err := json.NewDecoder(r.Body).Decode(&override); err != nil && err != io.EOF {
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	if override.Province != nil {
		p := validation.SanitizeString(*override.Province)
		override.Province = &p
	}
	for i := range override.Industries {
		override.Industries[i] = validation.SanitizeString(override.Industries[i])
	}

	h.serveMatches(w, r, &override)
}

func (h *Handler) serveMatches(w http.ResponseWriter, r *http.Request, override *models.ProfileOverride) {
	userID := validation.SanitizeString(chi.URLParam(r, "user_id"))
	if userID == "" {
		h.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	now := time.Now().UTC()
	if nowParam := r.URL.Query().Get("now"); nowParam != "" {
		parsed, err := validation.ValidateTimeString(validation.SanitizeString(nowParam))
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid 'now' parameter, must be RFC3339 format")
			return
		}
		now = parsed.UTC()
	}

	limit := 0
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 0 {
			h.respondError(w, http.StatusBadRequest, "invalid 'limit' parameter, must be a non-negative integer")
			return
		}
		limit = parsed
	}

	days := 0
	if daysParam := r.URL.Query().Get("days"); daysParam != "" {
		parsed, err := strconv.Atoi(daysParam)
		if err != nil || parsed <= 0 {
			h.respondError(w, http.StatusBadRequest, "invalid 'days' parameter, must be a positive integer")
			return
		}
		days = parsed
	}

	var (
		resp models.MatchesResponse
		err  error
	)

	switch view := r.URL.Query().Get("view"); view {
	case "", service.ViewAll:
		resp, err = h.service.GetMatches(r.Context(), userID, override, now)
	case service.ViewTop:
		resp, err = h.service.GetTopMatches(r.Context(), userID, override, now, limit)
	case service.ViewHighPriority:
		resp, err = h.service.GetHighPriorityMatches(r.Context(), userID, override, now)
	case service.ViewDeadlines:
		resp, err = h.service.GetUpcomingDeadlineMatches(r.Context(), userID, override, now, days)
	default:
		h.respondError(w, http.StatusBadRequest, "invalid 'view' parameter")
		return
	}

	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func sanitizeProgram(program *models.FundingProgram) {
	program.ID = validation.SanitizeString(program.ID)
	program.Name = validation.SanitizeString(program.Name)
	program.URL = validation.SanitizeString(program.URL)
	if program.Province != nil {
		p := validation.SanitizeString(*program.Province)
		program.Province = &p
	}
	for i := range program.Industries {
		program.Industries[i] = validation.SanitizeString(program.Industries[i])
	}
}

// respondServiceError maps validation failures to 400 and everything else to
// 500 without leaking internals.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		h.respondError(w, http.StatusBadRequest, verr.Error())
		return
	}
	h.respondError(w, http.StatusInternalServerError, "internal server error")
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
