package evaluator

import "safemama-triage/internal/models"

// 血压阈值（mmHg），均为闭区间比较
const (
	severeSystolic    = 160
	severeDiastolic   = 110
	elevatedSystolic  = 140
	elevatedDiastolic = 90
	lowSystolic       = 90
	lowDiastolic      = 60
)

// 体温阈值（摄氏度）
const (
	highFeverC = 38.5
	feverC     = 37.5
)

const (
	ReasonSevereHypertension = "Severe high blood pressure detected"
	ReasonElevatedBP         = "Elevated blood pressure"
	ReasonSevereHypotension  = "Very low blood pressure"
	ReasonHighFever          = "High fever detected"
	ReasonFever              = "Fever detected"
)

func evaluateBloodPressure(in models.TriageInput, v *verdict) {
	bp := in.BloodPressure
	if bp == nil {
		return
	}

	switch {
	case bp.Systolic >= severeSystolic || bp.Diastolic >= severeDiastolic:
		v.raise(models.TierHigh, ReasonSevereHypertension)
	case bp.Systolic >= elevatedSystolic || bp.Diastolic >= elevatedDiastolic:
		v.raise(models.TierModerate, ReasonElevatedBP)
	}

	// 低血压独立判断
	if bp.Systolic < lowSystolic && bp.Diastolic < lowDiastolic {
		v.raise(models.TierHigh, ReasonSevereHypotension)
	}
}

func evaluateTemperature(in models.TriageInput, v *verdict) {
	if in.TemperatureC == nil {
		return
	}
	t := *in.TemperatureC

	switch {
	case t >= highFeverC:
		v.raise(models.TierHigh, ReasonHighFever)
	case t >= feverC:
		v.raise(models.TierModerate, ReasonFever)
	}
}
