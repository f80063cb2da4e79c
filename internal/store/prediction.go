package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lungscan/apiserver/types"
)

// PredictionRepository handles persistence for prediction records.
type PredictionRepository struct {
	db *sql.DB
}

func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Create(ctx context.Context, pred types.Prediction) (types.Prediction, error) {
	pred.CreatedAt = time.Now()
	if pred.InputData == nil {
		pred.InputData = json.RawMessage(`{}`)
	}
	if pred.Result == nil {
		pred.Result = json.RawMessage(`{}`)
	}

	const query = `
		INSERT INTO predictions (user_id, image_path, input_data, result, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		pred.UserID,
		pred.ImagePath,
		[]byte(pred.InputData),
		[]byte(pred.Result),
		pred.CreatedAt,
	).Scan(&pred.ID); err != nil {
		return types.Prediction{}, err
	}
	return pred, nil
}

// ListByUser returns a user's prediction records, newest first, capped
// at limit.
func (r *PredictionRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]types.Prediction, error) {
	const query = `
		SELECT id, user_id, image_path, input_data, result, created_at
		FROM predictions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	preds := make([]types.Prediction, 0, limit)
	for rows.Next() {
		var pred types.Prediction
		var inputData, result []byte
		if err := rows.Scan(
			&pred.ID,
			&pred.UserID,
			&pred.ImagePath,
			&inputData,
			&result,
			&pred.CreatedAt,
		); err != nil {
			return nil, err
		}
		pred.InputData = json.RawMessage(inputData)
		pred.Result = json.RawMessage(result)
		preds = append(preds, pred)
	}
	return preds, rows.Err()
}
