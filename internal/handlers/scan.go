package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lungscan/apiserver/internal/services"
)

// ScanHandler provides the doctor-only scan endpoints.
type ScanHandler struct{}

// ScanRouter registers scan routes on the given router.
func ScanRouter(r chi.Router, userService *services.UserService, jwtSecret string) {
	handler := &ScanHandler{}

	r.With(RequireAuth(jwtSecret), RequireDoctor(userService)).Post("/analyze", handler.Analyze)
}

// Analyze confirms the caller is an authorized doctor and echoes their
// identity.
func (h *ScanHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Doctor authorized. Lung scan access granted.",
		"doctor": map[string]any{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}
