// Package escalation 决定分诊结果是否需要开立临床病例
package escalation

import "safemama-triage/internal/models"

// ShouldOpenCase 是否开立病例
//   - tier 3：始终开立（紧急情况覆盖共享同意）
//   - tier 2：仅在患者已同意共享数据时开立
//   - tier 1：从不开立
//
// 超出 1..3 的等级先收敛到范围内
func ShouldOpenCase(tier models.Tier, consent bool) bool {
	switch tier.Clamp() {
	case models.TierHigh:
		return true
	case models.TierModerate:
		return consent
	default:
		return false
	}
}

// NotifyClinician 是否需要通知临床人员（tier >= 2）
func NotifyClinician(tier models.Tier) bool {
	return tier.Clamp() >= models.TierModerate
}
