package evaluator

import "safemama-triage/internal/models"

const (
	ActionSelfCare    = "Continue self-care at home and keep monitoring your symptoms."
	ActionVisitClinic = "Visit a clinic or contact your health provider within 24 hours."
	ActionGoNow       = "Go to the nearest health facility now."
)

// ActionFor 根据最终等级返回建议动作（仅与等级有关）
func ActionFor(tier models.Tier) string {
	switch tier.Clamp() {
	case models.TierHigh:
		return ActionGoNow
	case models.TierModerate:
		return ActionVisitClinic
	default:
		return ActionSelfCare
	}
}
