package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/lungscan/apiserver/types"
)

// ErrInvalidReport is returned when the report is missing a model
// result or the final case, or a model payload is malformed. Nothing is
// written when it is returned.
var ErrInvalidReport = errors.New("missing model results or final case")

// ReportRepository defines persistence operations for reports.
type ReportRepository interface {
	Create(ctx context.Context, report types.Report) (types.Report, error)
	GetByID(ctx context.Context, id int64) (types.Report, error)
}

// ReportService encapsulates report use-cases.
type ReportService struct {
	repo ReportRepository
}

func NewReportService(repo ReportRepository) *ReportService {
	return &ReportService{repo: repo}
}

// SaveRequest carries a doctor's confirmation of a diagnosis. The model
// fields are JSON strings as submitted by the client, e.g.
// {"case":"Malignant","confidence":91.2}.
type SaveRequest struct {
	PatientName  string
	MobileNumber string
	Address      string
	ResNet50     string
	VGG16        string
	InceptionV3  string
	FinalCase    string
	ScanImage    string
}

// Save validates and persists a report. All three model payloads and
// the final case are required; validation happens before any write.
func (s *ReportService) Save(ctx context.Context, req SaveRequest) (types.Report, error) {
	if strings.TrimSpace(req.FinalCase) == "" {
		return types.Report{}, ErrInvalidReport
	}

	resnet, err := parseModelResult(req.ResNet50)
	if err != nil {
		return types.Report{}, ErrInvalidReport
	}
	vgg, err := parseModelResult(req.VGG16)
	if err != nil {
		return types.Report{}, ErrInvalidReport
	}
	inception, err := parseModelResult(req.InceptionV3)
	if err != nil {
		return types.Report{}, ErrInvalidReport
	}

	report := types.Report{
		PatientName:  req.PatientName,
		MobileNumber: req.MobileNumber,
		Address:      req.Address,
		ResNet50:     resnet,
		VGG16:        vgg,
		InceptionV3:  inception,
		FinalCase:    req.FinalCase,
		ScanImage:    req.ScanImage,
	}
	return s.repo.Create(ctx, report)
}

func (s *ReportService) Get(ctx context.Context, id int64) (types.Report, error) {
	return s.repo.GetByID(ctx, id)
}

func parseModelResult(raw string) (types.ModelResult, error) {
	if strings.TrimSpace(raw) == "" {
		return types.ModelResult{}, errors.New("empty model result")
	}

	var payload struct {
		Case       *string  `json:"case"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return types.ModelResult{}, err
	}
	if payload.Case == nil || payload.Confidence == nil {
		return types.ModelResult{}, errors.New("model result must have case and confidence")
	}
	return types.ModelResult{Case: *payload.Case, Confidence: *payload.Confidence}, nil
}
