package evaluator

import (
	"fmt"

	"safemama-triage/internal/models"
)

// labelSeverity 词表内每个标签的固有等级（对词表是全映射）
var labelSeverity = map[models.Label]models.Tier{
	models.LabelHeavyBleeding:                   models.TierHigh,
	models.LabelSevereAbdominalPain:             models.TierHigh,
	models.LabelSevereHeadacheWithVisionChanges: models.TierHigh,
	models.LabelShortnessOfBreath:               models.TierHigh,
	models.LabelChestPain:                       models.TierHigh,

	// 单独出现为 2 级；与头痛同时出现时由组合规则提升为 3 级
	models.LabelBlurredVision:        models.TierModerate,
	models.LabelReducedFetalMovement: models.TierModerate,
	models.LabelFever:                models.TierModerate,
	models.LabelMildBleeding:         models.TierModerate,
	models.LabelAbdominalPain:        models.TierModerate,
	models.LabelSwelling:             models.TierModerate,
	models.LabelDizziness:            models.TierModerate,
	models.LabelVomiting:             models.TierModerate,

	models.LabelHeadache: models.TierLow,
	models.LabelDiarrhea: models.TierLow,
}

// dangerousPairs 同时出现即强制为高等级的标签组合
var dangerousPairs = [][2]models.Label{
	{models.LabelHeadache, models.LabelBlurredVision},
	{models.LabelHeadache, models.LabelSwelling},
	{models.LabelFever, models.LabelAbdominalPain},
	{models.LabelShortnessOfBreath, models.LabelChestPain},
}

// Severity 返回标签的固有等级；词表外标签返回 false
func Severity(l models.Label) (models.Tier, bool) {
	t, ok := labelSeverity[l]
	return t, ok
}

// SymptomReason 单标签理由文本
func SymptomReason(l models.Label) string {
	return "Reported symptom: " + l.Display()
}

// CombinationReason 危险组合理由文本
func CombinationReason(a, b models.Label) string {
	return fmt.Sprintf("Dangerous symptom combination: %s + %s", a.Display(), b.Display())
}

func evaluateLabelSeverity(in models.TriageInput, v *verdict) {
	for _, l := range in.Labels {
		tier, ok := labelSeverity[l]
		if !ok {
			// 词表外标签不参与评估
			continue
		}
		if tier >= models.TierModerate {
			v.raise(tier, SymptomReason(l))
		} else {
			v.raise(tier, "")
		}
	}
}

func evaluateCombinations(in models.TriageInput, v *verdict) {
	if len(in.Labels) < 2 {
		return
	}
	for _, pair := range dangerousPairs {
		if hasLabel(in.Labels, pair[0]) && hasLabel(in.Labels, pair[1]) {
			v.raise(models.TierHigh, CombinationReason(pair[0], pair[1]))
		}
	}
}
