// Package handlers provides HTTP handlers for the suggestion REST API
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/platewise/v2/internal/domain/meal"
	"github.com/platewise/v2/internal/ports/inbound"
	"github.com/platewise/v2/pkg/errors"
)

// SuggestionHandlers handles the suggestion API requests
type SuggestionHandlers struct {
	service inbound.SuggestionService
	logger  *zap.Logger
}

// NewSuggestionHandlers creates a new suggestion handlers instance
func NewSuggestionHandlers(service inbound.SuggestionService, logger *zap.Logger) *SuggestionHandlers {
	return &SuggestionHandlers{
		service: service,
		logger:  logger.Named("handlers"),
	}
}

// GenerateSuggestions handles POST /api/v2/suggestions
func (h *SuggestionHandlers) GenerateSuggestions(w http.ResponseWriter, r *http.Request) {
	var req inbound.SuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.NewBadRequestError("Malformed JSON body"))
		return
	}

	resp, err := h.service.GenerateSuggestions(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetRandomMeals handles POST /api/v2/suggestions/random
func (h *SuggestionHandlers) GetRandomMeals(w http.ResponseWriter, r *http.Request) {
	var req inbound.RandomMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.NewBadRequestError("Malformed JSON body"))
		return
	}

	resp, err := h.service.GetRandomMeals(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetPantrySuggestions handles GET /api/v2/suggestions/pantry
func (h *SuggestionHandlers) GetPantrySuggestions(w http.ResponseWriter, r *http.Request) {
	req, err := pantryRequestFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.service.GetPantryBasedSuggestions(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// RecordFeedback handles POST /api/v2/suggestions/feedback
func (h *SuggestionHandlers) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	var feedback inbound.SuggestionFeedback
	if err := json.NewDecoder(r.Body).Decode(&feedback); err != nil {
		h.writeError(w, r, errors.NewBadRequestError("Malformed JSON body"))
		return
	}

	if err := h.service.RecordSuggestionFeedback(r.Context(), feedback); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

// pantryRequestFromQuery builds the pantry view request from query
// parameters. user_id is required; the rest narrow the catalog.
func pantryRequestFromQuery(r *http.Request) (inbound.PantryBasedSuggestionRequest, error) {
	var req inbound.PantryBasedSuggestionRequest

	q := r.URL.Query()
	userID, err := uuid.Parse(q.Get("user_id"))
	if err != nil {
		return req, errors.NewInvalidFilterError("user_id must be a valid UUID")
	}
	req.UserID = userID

	if raw := q.Get("kitchen_id"); raw != "" {
		kitchenID, err := uuid.Parse(raw)
		if err != nil {
			return req, errors.NewInvalidFilterError("kitchen_id must be a valid UUID")
		}
		req.Filters.KitchenID = &kitchenID
	}

	if raw := q.Get("meal_type"); raw != "" {
		req.Filters.MealType = meal.MealType(raw)
	}

	if raw := q.Get("preferred_kitchens"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				return req, errors.NewInvalidFilterError("preferred_kitchens must be comma-separated UUIDs")
			}
			req.Filters.PreferredKitchens = append(req.Filters.PreferredKitchens, id)
		}
	}

	req.Filters.IncludePrivate = q.Get("include_private") == "true"

	return req, nil
}

// writeJSON writes a JSON response
func (h *SuggestionHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeError maps an error onto the API error envelope. Unknown error
// types become INTERNAL_ERROR without leaking their details.
func (h *SuggestionHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.Wrap(err, "request failed")
	requestID := chimiddleware.GetReqID(r.Context())

	if appErr.StatusCode() >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("request_id", requestID),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
	}

	h.writeJSON(w, appErr.StatusCode(), errors.ToErrorResponse(appErr, requestID))
}
