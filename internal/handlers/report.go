package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lungscan/apiserver/internal/services"
	"github.com/lungscan/apiserver/internal/storage"
)

const (
	formFieldScanImage   = "scanImage"
	formFieldResNet50    = "ResNet50"
	formFieldVGG16       = "VGG16"
	formFieldInceptionV3 = "InceptionV3"
	formFieldFinalCase   = "finalCase"
)

// ReportHandler persists doctor-confirmed diagnostic reports.
type ReportHandler struct {
	reportService *services.ReportService
	storage       *storage.Storage
}

// NewReportHandler constructs a handler with the provided dependencies.
func NewReportHandler(reportService *services.ReportService, store *storage.Storage) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		storage:       store,
	}
}

// ReportRouter registers report routes on the given router. Saving a
// report requires the doctor role.
func ReportRouter(r chi.Router, reportService *services.ReportService, userService *services.UserService, store *storage.Storage, jwtSecret string) {
	handler := NewReportHandler(reportService, store)

	r.With(RequireAuth(jwtSecret), RequireDoctor(userService)).Post("/save", handler.Save)
}

// Save validates a doctor's confirmation and writes exactly one report.
// The optional scan image is stored first so the report never
// references a file that does not exist.
func (h *ReportHandler) Save(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	resnet := strings.TrimSpace(r.FormValue(formFieldResNet50))
	vgg := strings.TrimSpace(r.FormValue(formFieldVGG16))
	inception := strings.TrimSpace(r.FormValue(formFieldInceptionV3))
	finalCase := strings.TrimSpace(r.FormValue(formFieldFinalCase))
	if resnet == "" || vgg == "" || inception == "" || finalCase == "" {
		writeError(w, http.StatusBadRequest, "Missing model results or final case")
		return
	}

	// scanImage stays the empty string when no image was supplied.
	scanImagePath := ""
	upload, err := parseImageUpload(r.MultipartForm, formFieldScanImage, maxReportImageBytes)
	switch {
	case err == nil:
		key := storageKey(upload.Filename)
		if err := h.storage.Put(r.Context(), key, bytes.NewReader(upload.Data), int64(len(upload.Data)), upload.ContentType); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save report")
			return
		}
		scanImagePath = "/uploads/" + key
	case errors.Is(err, errNoFile):
		// optional
	case errors.Is(err, errNotImage):
		writeError(w, http.StatusBadRequest, "Only images allowed")
		return
	case errors.Is(err, errFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "Uploaded file too large")
		return
	default:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err = h.reportService.Save(r.Context(), services.SaveRequest{
		PatientName:  r.FormValue("patientName"),
		MobileNumber: r.FormValue("mobileNumber"),
		Address:      r.FormValue("address"),
		ResNet50:     resnet,
		VGG16:        vgg,
		InceptionV3:  inception,
		FinalCase:    finalCase,
		ScanImage:    scanImagePath,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidReport) {
			writeError(w, http.StatusBadRequest, "Missing model results or final case")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save report")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Report and image saved successfully",
	})
}
