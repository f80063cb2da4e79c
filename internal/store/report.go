package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lungscan/apiserver/types"
)

// ReportRepository handles persistence for doctor reports.
type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, report types.Report) (types.Report, error) {
	now := time.Now()
	report.CreatedAt = now
	report.UpdatedAt = now

	const query = `
		INSERT INTO reports (
			patient_name, mobile_number, address,
			resnet50_case, resnet50_confidence,
			vgg16_case, vgg16_confidence,
			inceptionv3_case, inceptionv3_confidence,
			final_case, scan_image, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		report.PatientName,
		report.MobileNumber,
		report.Address,
		report.ResNet50.Case,
		report.ResNet50.Confidence,
		report.VGG16.Case,
		report.VGG16.Confidence,
		report.InceptionV3.Case,
		report.InceptionV3.Confidence,
		report.FinalCase,
		report.ScanImage,
		report.CreatedAt,
		report.UpdatedAt,
	).Scan(&report.ID); err != nil {
		return types.Report{}, err
	}
	return report, nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id int64) (types.Report, error) {
	const query = `
		SELECT id, patient_name, mobile_number, address,
			resnet50_case, resnet50_confidence,
			vgg16_case, vgg16_confidence,
			inceptionv3_case, inceptionv3_confidence,
			final_case, scan_image, created_at, updated_at
		FROM reports
		WHERE id = $1`
	var report types.Report
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&report.ID,
		&report.PatientName,
		&report.MobileNumber,
		&report.Address,
		&report.ResNet50.Case,
		&report.ResNet50.Confidence,
		&report.VGG16.Case,
		&report.VGG16.Confidence,
		&report.InceptionV3.Case,
		&report.InceptionV3.Confidence,
		&report.FinalCase,
		&report.ScanImage,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Report{}, ErrNotFound
		}
		return types.Report{}, err
	}
	return report, nil
}
