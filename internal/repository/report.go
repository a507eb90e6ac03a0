package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"safemama-triage/internal/models"

	"go.uber.org/zap"
)

// ReportRepository 分诊报告仓库（triage_reports 表）
type ReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportRepository 创建分诊报告仓库
func NewReportRepository(db *sql.DB, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

const reportColumns = `
		report_id,
		patient_id,
		pregnancy_id,
		tier,
		reasons,
		action,
		labels,
		systolic,
		diastolic,
		temperature_c,
		gestational_weeks,
		latitude,
		longitude,
		created_at`

// CreateReport 写入分诊报告
func (r *ReportRepository) CreateReport(ctx context.Context, report *models.TriageReport) error {
	if report.ReportID == "" {
		return fmt.Errorf("report_id is required")
	}
	if report.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}

	reasons := report.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return fmt.Errorf("failed to marshal reasons: %w", err)
	}
	labels := report.Labels
	if labels == nil {
		labels = []models.Label{}
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("failed to marshal labels: %w", err)
	}

	var systolic, diastolic sql.NullInt64
	if report.BloodPressure != nil {
		systolic = sql.NullInt64{Int64: int64(report.BloodPressure.Systolic), Valid: true}
		diastolic = sql.NullInt64{Int64: int64(report.BloodPressure.Diastolic), Valid: true}
	}
	var temperature sql.NullFloat64
	if report.TemperatureC != nil {
		temperature = sql.NullFloat64{Float64: *report.TemperatureC, Valid: true}
	}
	var weeks sql.NullInt64
	if report.GestationalWeeks != nil {
		weeks = sql.NullInt64{Int64: int64(*report.GestationalWeeks), Valid: true}
	}
	var lat, lng sql.NullFloat64
	if report.Location != nil {
		lat = sql.NullFloat64{Float64: report.Location.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: report.Location.Longitude, Valid: true}
	}

	query := `
		INSERT INTO triage_reports (` + reportColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.ExecContext(ctx, query,
		report.ReportID,
		report.PatientID,
		nullString(report.PregnancyID),
		int(report.Tier),
		string(reasonsJSON),
		report.Action,
		string(labelsJSON),
		systolic,
		diastolic,
		temperature,
		weeks,
		lat,
		lng,
		report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create triage report: %w", err)
	}

	r.logger.Debug("Triage report created",
		zap.String("report_id", report.ReportID),
		zap.Int("tier", int(report.Tier)),
	)
	return nil
}

// GetReport 根据 report_id 获取报告
func (r *ReportRepository) GetReport(ctx context.Context, reportID string) (*models.TriageReport, error) {
	if reportID == "" {
		return nil, fmt.Errorf("report_id is required")
	}

	query := `SELECT` + reportColumns + `
		FROM triage_reports
		WHERE report_id = $1
	`

	report, err := scanReport(r.db.QueryRowContext(ctx, query, reportID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("triage report %s: %w", reportID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get triage report: %w", err)
	}
	return report, nil
}

// ListReportsByPatient 按时间倒序列出患者的报告
func (r *ReportRepository) ListReportsByPatient(ctx context.Context, patientID string, limit int) ([]*models.TriageReport, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT` + reportColumns + `
		FROM triage_reports
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list triage reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.TriageReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan triage report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate triage reports: %w", err)
	}
	return reports, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*models.TriageReport, error) {
	var report models.TriageReport
	var pregnancyID sql.NullString
	var tier int
	var reasonsJSON, labelsJSON []byte
	var systolic, diastolic, weeks sql.NullInt64
	var temperature, lat, lng sql.NullFloat64

	err := row.Scan(
		&report.ReportID,
		&report.PatientID,
		&pregnancyID,
		&tier,
		&reasonsJSON,
		&report.Action,
		&labelsJSON,
		&systolic,
		&diastolic,
		&temperature,
		&weeks,
		&lat,
		&lng,
		&report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	report.PregnancyID = pregnancyID.String
	report.Tier = models.Tier(tier)

	report.Reasons = []string{}
	if len(reasonsJSON) > 0 {
		if err := json.Unmarshal(reasonsJSON, &report.Reasons); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reasons: %w", err)
		}
	}
	var rawLabels []string
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &rawLabels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal labels: %w", err)
		}
	}
	report.Labels = make([]models.Label, 0, len(rawLabels))
	for _, s := range rawLabels {
		if l, ok := models.ParseLabel(s); ok {
			report.Labels = append(report.Labels, l)
		}
	}

	if systolic.Valid && diastolic.Valid {
		report.BloodPressure = &models.BloodPressure{
			Systolic:  int(systolic.Int64),
			Diastolic: int(diastolic.Int64),
		}
	}
	if temperature.Valid {
		t := temperature.Float64
		report.TemperatureC = &t
	}
	if weeks.Valid {
		w := int(weeks.Int64)
		report.GestationalWeeks = &w
	}
	if lat.Valid && lng.Valid {
		report.Location = &models.GeoPoint{Latitude: lat.Float64, Longitude: lng.Float64}
	}

	return &report, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
