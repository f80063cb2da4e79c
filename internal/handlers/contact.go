package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lungscan/apiserver/internal/services"
	"github.com/lungscan/apiserver/internal/store"
)

// ContactHandler persists contact-form messages.
type ContactHandler struct {
	contactService *services.ContactService
	userService    *services.UserService
}

// ContactRouter registers contact routes on the given router.
func ContactRouter(r chi.Router, contactService *services.ContactService, userService *services.UserService, jwtSecret string) {
	handler := &ContactHandler{
		contactService: contactService,
		userService:    userService,
	}

	r.With(RequireAuth(jwtSecret)).Post("/", handler.Create)
}

type ContactRequest struct {
	Message string `json:"message"`
	SentAt  string `json:"sentAt"`
}

// Create stores a message from an authenticated user.
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.userService.GetByID(r.Context(), int(userID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error saving message")
		return
	}

	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// An unparseable sentAt falls back to the server clock.
	var sentAt time.Time
	if req.SentAt != "" {
		if parsed, err := time.Parse(time.RFC3339, req.SentAt); err == nil {
			sentAt = parsed
		}
	}

	msg, err := h.contactService.Save(r.Context(), user, req.Message, sentAt, r.RemoteAddr, r.UserAgent())
	if err != nil {
		if errors.Is(err, services.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "Message is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error saving message")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Thanks — your message was received.",
		"id":      msg.ID,
	})
}
