package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lungscan/apiserver/internal/relay"
	"github.com/lungscan/apiserver/internal/services"
	"github.com/lungscan/apiserver/internal/storage"
	"github.com/lungscan/apiserver/types"
)

const (
	maxMultipartMemory = 32 << 20

	formFieldPredictFile  = "file"
	formFieldPredictImage = "image"
)

// mockSymptomsResult is the canned answer of the symptoms endpoint; the
// symptoms model is not deployed yet.
var mockSymptomsResult = json.RawMessage(`{"label":"low_risk","confidence":0.62}`)

// PredictHandler provides the image-prediction relay endpoints.
type PredictHandler struct {
	predictionService *services.PredictionService
	relayClient       *relay.Client
	storage           *storage.Storage
}

// NewPredictHandler constructs a handler with the provided dependencies.
func NewPredictHandler(predictionService *services.PredictionService, relayClient *relay.Client, store *storage.Storage) *PredictHandler {
	return &PredictHandler{
		predictionService: predictionService,
		relayClient:       relayClient,
		storage:           store,
	}
}

// PredictRouter registers prediction routes on the given router.
func PredictRouter(r chi.Router, predictionService *services.PredictionService, relayClient *relay.Client, store *storage.Storage, jwtSecret string) {
	handler := NewPredictHandler(predictionService, relayClient, store)
	optional := OptionalAuth(jwtSecret)

	r.With(optional).Post("/", handler.PredictFile)
	r.With(optional).Post("/image", handler.PredictImage)
	r.Post("/symptoms", handler.PredictSymptoms)
	r.With(RequireAuth(jwtSecret)).Get("/history", handler.History)
}

// PredictFile accepts a scan in the multipart field "file".
func (h *PredictHandler) PredictFile(w http.ResponseWriter, r *http.Request) {
	h.handleImagePrediction(w, r, formFieldPredictFile)
}

// PredictImage accepts a scan in the multipart field "image".
func (h *PredictHandler) PredictImage(w http.ResponseWriter, r *http.Request) {
	h.handleImagePrediction(w, r, formFieldPredictImage)
}

// handleImagePrediction runs one request through the pipeline: validate
// the upload, store it durably, relay it to the inference service,
// record the attempt, answer with the service's verdict. The image is
// stored before the record is written so a record can never reference a
// missing file.
func (h *PredictHandler) handleImagePrediction(w http.ResponseWriter, r *http.Request, field string) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	upload, err := parseImageUpload(r.MultipartForm, field, maxPredictImageBytes)
	if err != nil {
		switch {
		case errors.Is(err, errNoFile):
			writeError(w, http.StatusBadRequest, "No file uploaded")
		case errors.Is(err, errNotImage):
			writeError(w, http.StatusBadRequest, "Only images allowed")
		case errors.Is(err, errFileTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "Uploaded file too large")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	key := storageKey(upload.Filename)
	if err := h.storage.Put(r.Context(), key, bytes.NewReader(upload.Data), int64(len(upload.Data)), upload.ContentType); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store image")
		return
	}

	resp, err := h.relayClient.Predict(r.Context(), upload.Filename, upload.Data, r.Header.Get("Authorization"))
	if err != nil {
		// No prediction record: the service never answered.
		if errors.Is(err, relay.ErrUnreachable) {
			writeError(w, http.StatusBadGateway, "Inference service unreachable")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error during image prediction")
		return
	}

	var userID *int64
	if id := identityFromContext(r.Context()); id.state == identityAuthenticated {
		userID = &id.userID
	}

	inputData, _ := json.Marshal(map[string]string{
		"originalName": upload.Filename,
		"mimeType":     upload.ContentType,
	})

	pred, err := h.predictionService.Record(r.Context(), types.Prediction{
		UserID:    userID,
		ImagePath: "/uploads/" + key,
		InputData: inputData,
		Result:    resp.ResultJSON(),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save prediction")
		return
	}

	if resp.OK() {
		if resp.IsStructured() {
			body := make(map[string]any, len(resp.Structured)+3)
			for k, v := range resp.Structured {
				body[k] = v
			}
			body["success"] = true
			body["id"] = pred.ID
			body["imageUrl"] = pred.ImagePath
			writeJSON(w, http.StatusOK, body)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"id":       pred.ID,
			"imageUrl": pred.ImagePath,
			"data":     resp.Raw,
		})
		return
	}

	var errBody any = resp.Raw
	if resp.IsStructured() {
		errBody = resp.Structured
	}
	writeJSON(w, resp.Status, map[string]any{
		"success":  false,
		"error":    errBody,
		"id":       pred.ID,
		"imageUrl": pred.ImagePath,
	})
}

// PredictSymptoms records a symptoms questionnaire with a mock result.
func (h *PredictHandler) PredictSymptoms(w http.ResponseWriter, r *http.Request) {
	input, err := io.ReadAll(io.LimitReader(r.Body, maxMultipartMemory))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(input) == 0 {
		input = []byte(`{}`)
	}
	if !json.Valid(input) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pred, err := h.predictionService.Record(r.Context(), types.Prediction{
		InputData: input,
		Result:    mockSymptomsResult,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error during symptoms prediction")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Prediction saved",
		"id":      pred.ID,
		"result":  mockSymptomsResult,
	})
}

// History returns the caller's prediction records, newest first.
func (h *PredictHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	preds, err := h.predictionService.History(r.Context(), userID, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error fetching history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    preds,
	})
}
