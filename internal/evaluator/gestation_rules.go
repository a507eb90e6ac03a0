package evaluator

import "safemama-triage/internal/models"

const (
	earlyPregnancyWeeks = 20
	termWeeks           = 37
)

const (
	ReasonEarlyHeavyBleeding = "Heavy bleeding before 20 weeks of pregnancy"
	ReasonPretermPain        = "Abdominal pain in the preterm period (20-36 weeks)"
)

// evaluateGestationalAge 孕周相关规则；孕周缺失时整体跳过（不按 0 处理）
func evaluateGestationalAge(in models.TriageInput, v *verdict) {
	if in.GestationalWeeks == nil {
		return
	}
	weeks := *in.GestationalWeeks

	if weeks < earlyPregnancyWeeks && hasLabel(in.Labels, models.LabelHeavyBleeding) {
		v.raise(models.TierHigh, ReasonEarlyHeavyBleeding)
	}

	if weeks >= earlyPregnancyWeeks && weeks < termWeeks &&
		(hasLabel(in.Labels, models.LabelAbdominalPain) || hasLabel(in.Labels, models.LabelSevereAbdominalPain)) {
		v.raise(models.TierModerate, ReasonPretermPain)
	}
}

func hasLabel(labels []models.Label, want models.Label) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}
