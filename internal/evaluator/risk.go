package evaluator

import "safemama-triage/internal/models"

const ReasonHighRiskFactors = "High-risk pregnancy factors present"

// evaluateRiskFlags 任一白名单内的风险因素为 true 时，等级下限为 2
func (e *Evaluator) evaluateRiskFlags(in models.TriageInput, v *verdict) {
	if len(in.RiskFlags) == 0 {
		return
	}
	for _, factor := range e.riskFactors {
		if in.RiskFlags[factor] {
			v.raise(models.TierModerate, ReasonHighRiskFactors)
			return
		}
	}
}
