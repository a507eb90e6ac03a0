package evaluator

import (
	"safemama-triage/internal/models"
)

// DefaultRiskFactors 默认高风险因素白名单
var DefaultRiskFactors = []string{
	"preeclampsia_history",
	"diabetes",
	"hypertension",
	"multiple_pregnancy",
	"advanced_maternal_age",
}

// FallbackReason 等级 > 1 但无任何规则给出说明时使用
const FallbackReason = "Clinical assessment recommended"

// verdict 单次评估的累积状态：等级只升不降，理由只追加
type verdict struct {
	tier    models.Tier
	reasons []string
}

func (v *verdict) raise(tier models.Tier, reason string) {
	if tier > v.tier {
		v.tier = tier
	}
	if reason != "" {
		v.reasons = append(v.reasons, reason)
	}
}

// rule 单个证据来源
type rule func(in models.TriageInput, v *verdict)

// Evaluator 分诊规则评估器
// 无状态、无 I/O，可被任意多个调用方并发使用
type Evaluator struct {
	riskFactors []string
	rules       []rule
}

// NewEvaluator 创建评估器；riskFactors 为空时使用 DefaultRiskFactors
func NewEvaluator(riskFactors []string) *Evaluator {
	if len(riskFactors) == 0 {
		riskFactors = DefaultRiskFactors
	}
	factors := make([]string, len(riskFactors))
	copy(factors, riskFactors)

	e := &Evaluator{riskFactors: factors}

	// 评估顺序即理由顺序；组合规则必须排在单标签规则之后
	e.rules = []rule{
		evaluateBloodPressure,
		evaluateTemperature,
		evaluateGestationalAge,
		evaluateLabelSeverity,
		evaluateCombinations,
		e.evaluateRiskFlags,
	}
	return e
}

// RiskFactors 当前生效的高风险因素白名单
func (e *Evaluator) RiskFactors() []string {
	out := make([]string, len(e.riskFactors))
	copy(out, e.riskFactors)
	return out
}

// Evaluate 评估分诊输入
// 所有规则无条件执行（不提前返回），最终等级取各规则候选等级的最大值
func (e *Evaluator) Evaluate(in models.TriageInput) models.TriageResult {
	v := &verdict{tier: models.TierLow, reasons: []string{}}

	for _, r := range e.rules {
		r(in, v)
	}

	if v.tier > models.TierLow && len(v.reasons) == 0 {
		v.reasons = append(v.reasons, FallbackReason)
	}

	return models.TriageResult{
		Tier:    v.tier,
		Reasons: v.reasons,
		Action:  ActionFor(v.tier),
	}
}
