package escalation

import (
	"testing"

	"safemama-triage/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestShouldOpenCase(t *testing.T) {
	tests := []struct {
		tier    models.Tier
		consent bool
		want    bool
	}{
		{models.TierHigh, false, true},
		{models.TierHigh, true, true},
		{models.TierModerate, false, false},
		{models.TierModerate, true, true},
		{models.TierLow, false, false},
		{models.TierLow, true, false},
		// 超出范围的值
		{models.Tier(0), true, false},
		{models.Tier(7), false, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShouldOpenCase(tt.tier, tt.consent), "tier=%d consent=%v", tt.tier, tt.consent)
	}
}

func TestNotifyClinician(t *testing.T) {
	assert.False(t, NotifyClinician(models.TierLow))
	assert.True(t, NotifyClinician(models.TierModerate))
	assert.True(t, NotifyClinician(models.TierHigh))
}
