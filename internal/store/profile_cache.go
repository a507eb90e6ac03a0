package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"safemama-triage/internal/models"

	"go.uber.org/zap"
)

// noLMP 缓存中表示“档案无 LMP”
const noLMP = "none"

// ProfileSource 妊娠档案数据源（通常为 PostgreSQL 仓库）
type ProfileSource interface {
	GetRiskFlags(ctx context.Context, pregnancyID string) (models.RiskFlags, error)
	GetLMP(ctx context.Context, pregnancyID string) (*time.Time, error)
}

// CachedProfiles 妊娠档案读穿缓存
// 缓存故障只记录日志并回源，不影响调用方
type CachedProfiles struct {
	source ProfileSource
	kv     KV
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProfiles 创建档案缓存
func NewCachedProfiles(source ProfileSource, kv KV, ttl time.Duration, logger *zap.Logger) *CachedProfiles {
	return &CachedProfiles{
		source: source,
		kv:     kv,
		ttl:    ttl,
		logger: logger,
	}
}

func riskFlagsKey(pregnancyID string) string {
	return "triage:profile:" + pregnancyID + ":risk_flags"
}

func lmpKey(pregnancyID string) string {
	return "triage:profile:" + pregnancyID + ":lmp"
}

// GetRiskFlags 读取风险因素
func (c *CachedProfiles) GetRiskFlags(ctx context.Context, pregnancyID string) (models.RiskFlags, error) {
	key := riskFlagsKey(pregnancyID)
	if raw, ok := c.lookup(ctx, key); ok {
		var flags models.RiskFlags
		if err := json.Unmarshal([]byte(raw), &flags); err == nil {
			return flags, nil
		}
		c.logger.Warn("Discarding corrupt cached risk flags", zap.String("key", key))
	}

	flags, err := c.source.GetRiskFlags(ctx, pregnancyID)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(flags); err == nil {
		c.store(ctx, key, string(raw))
	}
	return flags, nil
}

// GetLMP 读取末次月经日期
func (c *CachedProfiles) GetLMP(ctx context.Context, pregnancyID string) (*time.Time, error) {
	key := lmpKey(pregnancyID)
	if raw, ok := c.lookup(ctx, key); ok {
		if raw == noLMP {
			return nil, nil
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return &t, nil
		}
		c.logger.Warn("Discarding corrupt cached lmp", zap.String("key", key))
	}

	lmp, err := c.source.GetLMP(ctx, pregnancyID)
	if err != nil {
		return nil, err
	}
	value := noLMP
	if lmp != nil {
		value = lmp.Format(time.RFC3339)
	}
	c.store(ctx, key, value)
	return lmp, nil
}

// Invalidate 档案变更后清除缓存
func (c *CachedProfiles) Invalidate(ctx context.Context, pregnancyID string) error {
	return c.kv.Del(ctx, riskFlagsKey(pregnancyID), lmpKey(pregnancyID))
}

func (c *CachedProfiles) lookup(ctx context.Context, key string) (string, bool) {
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("Profile cache read failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return raw, true
}

func (c *CachedProfiles) store(ctx context.Context, key, value string) {
	if err := c.kv.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("Profile cache write failed", zap.String("key", key), zap.Error(err))
	}
}
