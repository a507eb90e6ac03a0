package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"safemama-triage/internal/models"
	"safemama-triage/internal/repository"
	"safemama-triage/internal/service"

	"go.uber.org/zap"
)

// Assessor 分诊服务（由 service.TriageService 实现）
type Assessor interface {
	Assess(ctx context.Context, req service.AssessRequest) (*service.Assessment, error)
	Evaluate(input models.TriageInput) models.TriageResult
}

// ReportReader 历史报告查询
type ReportReader interface {
	GetReport(ctx context.Context, reportID string) (*models.TriageReport, error)
	ListReportsByPatient(ctx context.Context, patientID string, limit int) ([]*models.TriageReport, error)
}

// TriageHandler 分诊 API Handler
type TriageHandler struct {
	assessor Assessor
	reports  ReportReader   // 可为 nil（无数据库时）
	location *time.Location // LMP 日期所在时区，与服务器时钟一致
	logger   *zap.Logger
}

// NewTriageHandler 创建 TriageHandler
func NewTriageHandler(assessor Assessor, reports ReportReader, logger *zap.Logger) *TriageHandler {
	return &TriageHandler{
		assessor: assessor,
		reports:  reports,
		location: time.Local,
		logger:   logger,
	}
}

// triageInputBody 输入体；标签以字符串接收，词表外的值直接丢弃
type triageInputBody struct {
	Text             string                `json:"text"`
	Labels           []string              `json:"labels"`
	BloodPressure    *models.BloodPressure `json:"bp"`
	TemperatureC     *float64              `json:"temp_c"`
	GestationalWeeks *int                  `json:"gestational_weeks"`
	RiskFlags        models.RiskFlags      `json:"risk_flags"`
	Location         *models.GeoPoint      `json:"location"`
}

func (b triageInputBody) toInput() models.TriageInput {
	in := models.TriageInput{
		Text:             b.Text,
		BloodPressure:    b.BloodPressure,
		TemperatureC:     b.TemperatureC,
		GestationalWeeks: b.GestationalWeeks,
		RiskFlags:        b.RiskFlags,
		Location:         b.Location,
	}
	for _, s := range b.Labels {
		if l, ok := models.ParseLabel(s); ok {
			in.Labels = append(in.Labels, l)
		}
	}
	return in
}

type assessBody struct {
	PatientID   string `json:"patient_id"`
	PregnancyID string `json:"pregnancy_id"`
	LMP         string `json:"lmp"` // YYYY-MM-DD
	triageInputBody
}

// Assess 完整分诊
// POST /triage/api/v1/assess
func (h *TriageHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var body assessBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body: "+err.Error()))
		return
	}

	req := service.AssessRequest{
		PatientID:   body.PatientID,
		PregnancyID: body.PregnancyID,
		Input:       body.toInput(),
	}
	if body.LMP != "" {
		// 按服务器本地时区解析：孕周按 LMP 所在时区的日历日计算
		lmp, err := time.ParseInLocation(time.DateOnly, body.LMP, h.location)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid lmp, expected YYYY-MM-DD"))
			return
		}
		req.LMP = &lmp
	}

	assessment, err := h.assessor.Assess(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(assessment))
}

// Evaluate 纯评估（不分类文本、不落库、不告警）
// POST /triage/api/v1/evaluate
func (h *TriageHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var body triageInputBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body: "+err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.assessor.Evaluate(body.toInput())))
}

// GetLabels 症状标签词表
// GET /triage/api/v1/labels
func (h *TriageHandler) GetLabels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(models.AllLabels()))
}

// GetReport 查询单个报告
// GET /triage/api/v1/reports/:id
func (h *TriageHandler) GetReport(w http.ResponseWriter, r *http.Request, reportID string) {
	if h.reports == nil {
		writeJSON(w, http.StatusServiceUnavailable, Fail("report storage is not configured"))
		return
	}
	report, err := h.reports.GetReport(r.Context(), reportID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("report not found"))
			return
		}
		h.logger.Error("Failed to get triage report", zap.String("report_id", reportID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to get report"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

// ListPatientReports 患者最近的报告
// GET /triage/api/v1/patients/:id/reports?limit=20
func (h *TriageHandler) ListPatientReports(w http.ResponseWriter, r *http.Request, patientID string) {
	if h.reports == nil {
		writeJSON(w, http.StatusServiceUnavailable, Fail("report storage is not configured"))
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 20)
	reports, err := h.reports.ListReportsByPatient(r.Context(), patientID, limit)
	if err != nil {
		h.logger.Error("Failed to list triage reports", zap.String("patient_id", patientID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list reports"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(reports))
}
