package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"safemama-triage/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSource struct {
	flags      models.RiskFlags
	lmp        *time.Time
	err        error
	flagsCalls int
	lmpCalls   int
}

func (s *countingSource) GetRiskFlags(context.Context, string) (models.RiskFlags, error) {
	s.flagsCalls++
	return s.flags, s.err
}

func (s *countingSource) GetLMP(context.Context, string) (*time.Time, error) {
	s.lmpCalls++
	return s.lmp, s.err
}

func setupCache(t *testing.T, source ProfileSource) (*CachedProfiles, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCachedProfiles(source, NewRedisKV(client), time.Minute, zap.NewNop()), mr
}

func TestCachedProfiles_RiskFlagsReadThrough(t *testing.T) {
	source := &countingSource{flags: models.RiskFlags{"diabetes": true}}
	cache, mr := setupCache(t, source)
	ctx := context.Background()

	first, err := cache.GetRiskFlags(ctx, "preg-1")
	require.NoError(t, err)
	second, err := cache.GetRiskFlags(ctx, "preg-1")
	require.NoError(t, err)

	assert.Equal(t, models.RiskFlags{"diabetes": true}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.flagsCalls)
	assert.True(t, mr.Exists("triage:profile:preg-1:risk_flags"))
	assert.Equal(t, time.Minute, mr.TTL("triage:profile:preg-1:risk_flags"))
}

func TestCachedProfiles_LMPCachesAbsence(t *testing.T) {
	source := &countingSource{}
	cache, mr := setupCache(t, source)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		lmp, err := cache.GetLMP(ctx, "preg-1")
		require.NoError(t, err)
		assert.Nil(t, lmp)
	}
	assert.Equal(t, 1, source.lmpCalls)

	v, err := mr.Get("triage:profile:preg-1:lmp")
	require.NoError(t, err)
	assert.Equal(t, noLMP, v)
}

func TestCachedProfiles_LMPRoundTrip(t *testing.T) {
	lmp := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	source := &countingSource{lmp: &lmp}
	cache, _ := setupCache(t, source)
	ctx := context.Background()

	_, err := cache.GetLMP(ctx, "preg-1")
	require.NoError(t, err)
	got, err := cache.GetLMP(ctx, "preg-1")
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.True(t, lmp.Equal(*got))
	assert.Equal(t, 1, source.lmpCalls)
}

func TestCachedProfiles_SourceErrorNotCached(t *testing.T) {
	source := &countingSource{err: errors.New("db down")}
	cache, mr := setupCache(t, source)

	_, err := cache.GetRiskFlags(context.Background(), "preg-1")

	assert.Error(t, err)
	assert.False(t, mr.Exists("triage:profile:preg-1:risk_flags"))
}

func TestCachedProfiles_CorruptEntryFallsBack(t *testing.T) {
	source := &countingSource{flags: models.RiskFlags{"hypertension": true}}
	cache, mr := setupCache(t, source)
	require.NoError(t, mr.Set("triage:profile:preg-1:risk_flags", "{not json"))

	flags, err := cache.GetRiskFlags(context.Background(), "preg-1")

	require.NoError(t, err)
	assert.True(t, flags["hypertension"])
	assert.Equal(t, 1, source.flagsCalls)
}

func TestCachedProfiles_RedisDownFallsBack(t *testing.T) {
	source := &countingSource{flags: models.RiskFlags{"diabetes": true}}
	cache, mr := setupCache(t, source)
	mr.Close()

	flags, err := cache.GetRiskFlags(context.Background(), "preg-1")

	require.NoError(t, err)
	assert.True(t, flags["diabetes"])
}

func TestCachedProfiles_Invalidate(t *testing.T) {
	source := &countingSource{flags: models.RiskFlags{}}
	cache, mr := setupCache(t, source)
	ctx := context.Background()

	_, err := cache.GetRiskFlags(ctx, "preg-1")
	require.NoError(t, err)
	_, err = cache.GetLMP(ctx, "preg-1")
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(ctx, "preg-1"))
	assert.False(t, mr.Exists("triage:profile:preg-1:risk_flags"))
	assert.False(t, mr.Exists("triage:profile:preg-1:lmp"))
}
