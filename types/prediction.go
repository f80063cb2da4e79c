package types

import (
	"encoding/json"
	"time"
)

// Prediction is the audit record of one relay attempt against the
// external inference service. Records are written once the service has
// answered (with any status) and are never mutated afterwards.
type Prediction struct {
	// ID is the unique identifier of the prediction record.
	ID int64 `json:"id" db:"id"`

	// UserID identifies the owning user, when the request carried a
	// valid token. Nil for anonymous predictions.
	UserID *int64 `json:"user,omitempty" db:"user_id"`

	// ImagePath is the server-relative retrieval path of the stored
	// scan image, e.g. "/uploads/169...-abc.png". Empty when the
	// prediction had no image input.
	ImagePath string `json:"imagePath,omitempty" db:"image_path"`

	// InputData describes the input as submitted (original filename,
	// mime type, or the raw symptoms payload).
	InputData json.RawMessage `json:"inputData" db:"input_data"`

	// Result is the normalized response of the inference service:
	// either its JSON body verbatim or {"raw": "<text>"}.
	Result json.RawMessage `json:"result" db:"result"`

	// CreatedAt is the timestamp when the record was written.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
