package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ConsentTypeDataSharing 与临床人员共享健康数据的同意类型
const ConsentTypeDataSharing = "data_sharing"

// ConsentRepository 同意记录仓库（consents 表）
type ConsentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewConsentRepository 创建同意记录仓库
func NewConsentRepository(db *sql.DB, logger *zap.Logger) *ConsentRepository {
	return &ConsentRepository{
		db:     db,
		logger: logger,
	}
}

// HasSharingConsent 以最近一条记录为准；无记录视为未同意
func (r *ConsentRepository) HasSharingConsent(ctx context.Context, patientID string) (bool, error) {
	if patientID == "" {
		return false, fmt.Errorf("patient_id is required")
	}

	query := `
		SELECT granted
		FROM consents
		WHERE patient_id = $1
		  AND consent_type = $2
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	var granted bool
	err := r.db.QueryRowContext(ctx, query, patientID, ConsentTypeDataSharing).Scan(&granted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get sharing consent: %w", err)
	}
	return granted, nil
}
