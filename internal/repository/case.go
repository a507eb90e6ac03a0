package repository

import (
	"context"
	"database/sql"
	"fmt"

	"safemama-triage/internal/models"

	"go.uber.org/zap"
)

// CaseRepository 临床病例仓库（triage_cases 表）
type CaseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCaseRepository 创建病例仓库
func NewCaseRepository(db *sql.DB, logger *zap.Logger) *CaseRepository {
	return &CaseRepository{
		db:     db,
		logger: logger,
	}
}

// CreateCase 写入病例
func (r *CaseRepository) CreateCase(ctx context.Context, c *models.Case) error {
	if c.CaseID == "" {
		return fmt.Errorf("case_id is required")
	}
	if c.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	if c.Status == "" {
		c.Status = "open"
	}

	var lat, lng sql.NullFloat64
	if c.Location != nil {
		lat = sql.NullFloat64{Float64: c.Location.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: c.Location.Longitude, Valid: true}
	}

	query := `
		INSERT INTO triage_cases (
			case_id,
			report_id,
			patient_id,
			pregnancy_id,
			tier,
			summary,
			latitude,
			longitude,
			status,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		c.CaseID,
		nullString(c.ReportID),
		c.PatientID,
		nullString(c.PregnancyID),
		int(c.Tier),
		c.Summary,
		lat,
		lng,
		c.Status,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create triage case: %w", err)
	}

	r.logger.Info("Triage case opened",
		zap.String("case_id", c.CaseID),
		zap.String("patient_id", c.PatientID),
		zap.Int("tier", int(c.Tier)),
	)
	return nil
}
