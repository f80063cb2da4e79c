package types

import "time"

// ModelResult is a single classifier's verdict for a scan.
type ModelResult struct {
	// Case is the predicted diagnosis label, e.g. "Malignant".
	Case string `json:"case"`

	// Confidence is the classifier's confidence for Case, in percent.
	Confidence float64 `json:"confidence"`
}

// Report is a doctor-confirmed, patient-attributed final diagnosis
// combining the three model outputs. Reports are written exactly once
// and have no update or delete path.
type Report struct {
	// ID is the unique identifier of the report.
	ID int64 `json:"id" db:"id"`

	// PatientName, MobileNumber and Address identify the patient.
	PatientName  string `json:"patientName" db:"patient_name"`
	MobileNumber string `json:"mobileNumber" db:"mobile_number"`
	Address      string `json:"address" db:"address"`

	// Per-model verdicts. All three are required.
	ResNet50    ModelResult `json:"resnet50"`
	VGG16       ModelResult `json:"vgg16"`
	InceptionV3 ModelResult `json:"inceptionv3"`

	// FinalCase is the diagnosis the doctor settled on.
	FinalCase string `json:"finalCase" db:"final_case"`

	// ScanImage is the retrieval path of the associated scan image,
	// or the empty string when no image was supplied.
	ScanImage string `json:"scanImage" db:"scan_image"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
