package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"safemama-triage/internal/models"

	"go.uber.org/zap"
)

// ProfileRepository 妊娠档案仓库（pregnancies / pregnancy_risk_profiles 表）
type ProfileRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProfileRepository 创建妊娠档案仓库
func NewProfileRepository(db *sql.DB, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// GetRiskFlags 读取妊娠风险因素；档案不存在时返回空集合
func (r *ProfileRepository) GetRiskFlags(ctx context.Context, pregnancyID string) (models.RiskFlags, error) {
	if pregnancyID == "" {
		return nil, fmt.Errorf("pregnancy_id is required")
	}

	query := `
		SELECT risk_flags
		FROM pregnancy_risk_profiles
		WHERE pregnancy_id = $1
	`

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, pregnancyID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RiskFlags{}, nil
		}
		return nil, fmt.Errorf("failed to get risk flags: %w", err)
	}

	flags := models.RiskFlags{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &flags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal risk flags: %w", err)
		}
	}
	return flags, nil
}

// GetLMP 读取末次月经日期；未记录时返回 nil
func (r *ProfileRepository) GetLMP(ctx context.Context, pregnancyID string) (*time.Time, error) {
	if pregnancyID == "" {
		return nil, fmt.Errorf("pregnancy_id is required")
	}

	query := `
		SELECT lmp_date
		FROM pregnancies
		WHERE pregnancy_id = $1
	`

	var lmp sql.NullTime
	err := r.db.QueryRowContext(ctx, query, pregnancyID).Scan(&lmp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lmp date: %w", err)
	}
	if !lmp.Valid {
		return nil, nil
	}
	return &lmp.Time, nil
}
