package models

import (
	"strings"
	"time"
)

// Tier 分诊等级（1=低，2=中，3=高）
type Tier int

const (
	TierLow      Tier = 1
	TierModerate Tier = 2
	TierHigh     Tier = 3
)

// Clamp 将任意整数收敛到 1..3
func (t Tier) Clamp() Tier {
	if t < TierLow {
		return TierLow
	}
	if t > TierHigh {
		return TierHigh
	}
	return t
}

// BloodPressure 血压（mmHg）
type BloodPressure struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
}

// GeoPoint 地理位置（引擎本身不使用，仅透传给病例流程）
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// RiskFlags 妊娠风险因素（开放式键集合）
type RiskFlags map[string]bool

// TriageInput 分诊输入，所有字段均可缺省
type TriageInput struct {
	Text             string         `json:"text,omitempty"`
	Labels           []Label        `json:"labels,omitempty"`
	BloodPressure    *BloodPressure `json:"bp,omitempty"`
	TemperatureC     *float64       `json:"temp_c,omitempty"`
	GestationalWeeks *int           `json:"gestational_weeks,omitempty"`
	RiskFlags        RiskFlags      `json:"risk_flags,omitempty"`
	Location         *GeoPoint      `json:"location,omitempty"`
}

// TriageResult 分诊结果
// Reasons 按触发顺序追加，不去重；Action 仅由 Tier 决定
type TriageResult struct {
	Tier    Tier     `json:"tier"`
	Reasons []string `json:"reasons"`
	Action  string   `json:"action"`
}

// Summary 病例摘要：action 与 reasons（逗号连接）之间以 " | " 分隔
func (r TriageResult) Summary() string {
	if len(r.Reasons) == 0 {
		return r.Action
	}
	return r.Action + " | " + strings.Join(r.Reasons, ", ")
}

// TriageReport 分诊报告（对应 triage_reports 表）
type TriageReport struct {
	ReportID         string         `json:"report_id" db:"report_id"`
	PatientID        string         `json:"patient_id" db:"patient_id"`
	PregnancyID      string         `json:"pregnancy_id,omitempty" db:"pregnancy_id"`
	Tier             Tier           `json:"tier" db:"tier"`
	Reasons          []string       `json:"reasons" db:"reasons"` // JSONB
	Action           string         `json:"action" db:"action"`
	Labels           []Label        `json:"labels" db:"labels"` // JSONB
	BloodPressure    *BloodPressure `json:"bp,omitempty"`
	TemperatureC     *float64       `json:"temp_c,omitempty" db:"temperature_c"`
	GestationalWeeks *int           `json:"gestational_weeks,omitempty" db:"gestational_weeks"`
	Location         *GeoPoint      `json:"location,omitempty"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
}

// Case 临床升级病例（对应 triage_cases 表）
type Case struct {
	CaseID      string    `json:"case_id" db:"case_id"`
	ReportID    string    `json:"report_id" db:"report_id"`
	PatientID   string    `json:"patient_id" db:"patient_id"`
	PregnancyID string    `json:"pregnancy_id,omitempty" db:"pregnancy_id"`
	Tier        Tier      `json:"tier" db:"tier"`
	Summary     string    `json:"summary" db:"summary"`
	Location    *GeoPoint `json:"location,omitempty"`
	Status      string    `json:"status" db:"status"` // open, closed
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ClinicianAlert 发送给临床通知层的告警（tier >= 2）
type ClinicianAlert struct {
	ReportID    string    `json:"report_id"`
	PatientID   string    `json:"patient_id"`
	PregnancyID string    `json:"pregnancy_id,omitempty"`
	Tier        Tier      `json:"tier"`
	Reasons     []string  `json:"reasons"`
	Action      string    `json:"action"`
	CaseID      string    `json:"case_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
