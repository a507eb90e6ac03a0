package service

import (
	"context"
	"fmt"
	"time"

	"safemama-triage/internal/classifier"
	"safemama-triage/internal/escalation"
	"safemama-triage/internal/evaluator"
	"safemama-triage/internal/gestation"
	"safemama-triage/internal/models"
	"safemama-triage/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReportStore 分诊报告持久化
type ReportStore interface {
	CreateReport(ctx context.Context, report *models.TriageReport) error
}

// CaseStore 病例持久化
type CaseStore interface {
	CreateCase(ctx context.Context, c *models.Case) error
}

// ProfileStore 妊娠档案读取
type ProfileStore interface {
	GetRiskFlags(ctx context.Context, pregnancyID string) (models.RiskFlags, error)
	GetLMP(ctx context.Context, pregnancyID string) (*time.Time, error)
}

// ConsentStore 同意记录读取
type ConsentStore interface {
	HasSharingConsent(ctx context.Context, patientID string) (bool, error)
}

// Deps TriageService 的外部协作者；为 nil 的协作者对应步骤被跳过
type Deps struct {
	Classifier classifier.Classifier
	Evaluator  *evaluator.Evaluator
	Clock      gestation.Clock
	Reports    ReportStore
	Cases      CaseStore
	Profiles   ProfileStore
	Consents   ConsentStore
	Publisher  notify.Publisher
}

// Options 业务参数
type Options struct {
	MinPlausibleWeeks int
	MaxPlausibleWeeks int
}

// AssessRequest 完整分诊请求
type AssessRequest struct {
	PatientID   string             `json:"patient_id"`
	PregnancyID string             `json:"pregnancy_id,omitempty"`
	Input       models.TriageInput `json:"input"`
	LMP         *time.Time         `json:"lmp,omitempty"`
}

// Assessment 分诊结果及下游处理情况
// Errors 仅记录下游失败，不影响 Result
type Assessment struct {
	ReportID         string              `json:"report_id"`
	Result           models.TriageResult `json:"result"`
	Labels           []models.Label      `json:"labels"`
	GestationalWeeks *int                `json:"gestational_weeks,omitempty"`
	OpenCase         bool                `json:"open_case"`
	CaseID           string              `json:"case_id,omitempty"`
	Errors           []string            `json:"errors,omitempty"`
}

// TriageService 分诊服务（编排分类、评估、升级与下游协作者）
type TriageService struct {
	classifier classifier.Classifier
	evaluator  *evaluator.Evaluator
	calculator *gestation.Calculator
	clock      gestation.Clock
	reports    ReportStore
	cases      CaseStore
	profiles   ProfileStore
	consents   ConsentStore
	publisher  notify.Publisher
	opts       Options
	logger     *zap.Logger
}

// NewTriageService 创建分诊服务
func NewTriageService(deps Deps, opts Options, logger *zap.Logger) *TriageService {
	if deps.Classifier == nil {
		deps.Classifier = classifier.Noop{}
	}
	if deps.Evaluator == nil {
		deps.Evaluator = evaluator.NewEvaluator(nil)
	}
	if deps.Clock == nil {
		deps.Clock = gestation.SystemClock{}
	}
	if deps.Publisher == nil {
		deps.Publisher = notify.Noop{}
	}
	if opts.MaxPlausibleWeeks <= 0 {
		opts.MaxPlausibleWeeks = 45
	}

	return &TriageService{
		classifier: deps.Classifier,
		evaluator:  deps.Evaluator,
		calculator: gestation.NewCalculator(deps.Clock),
		clock:      deps.Clock,
		reports:    deps.Reports,
		cases:      deps.Cases,
		profiles:   deps.Profiles,
		consents:   deps.Consents,
		publisher:  deps.Publisher,
		opts:       opts,
		logger:     logger,
	}
}

// Evaluate 纯评估路径：仅使用结构化输入，无任何副作用
func (s *TriageService) Evaluate(input models.TriageInput) models.TriageResult {
	return s.evaluator.Evaluate(input)
}

// Assess 完整分诊流程
func (s *TriageService) Assess(ctx context.Context, req AssessRequest) (*Assessment, error) {
	if req.PatientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	a := &Assessment{ReportID: uuid.New().String()}
	input := req.Input

	// 1. 文本分类（失败时分类器返回空列表）
	input.Labels = s.mergeLabels(ctx, input)
	a.Labels = input.Labels

	// 2. 孕周
	if input.GestationalWeeks == nil {
		input.GestationalWeeks = s.deriveWeeks(ctx, req, a)
	}
	a.GestationalWeeks = input.GestationalWeeks

	// 3. 风险因素
	if input.RiskFlags == nil && req.PregnancyID != "" && s.profiles != nil {
		flags, err := s.profiles.GetRiskFlags(ctx, req.PregnancyID)
		if err != nil {
			s.recordError(a, "load risk flags", err)
		} else {
			input.RiskFlags = flags
		}
	}

	// 4. 评估（此后的任何步骤都不能修改结果）
	a.Result = s.evaluator.Evaluate(input)
	now := s.clock.Now()

	s.logger.Info("Triage evaluated",
		zap.String("report_id", a.ReportID),
		zap.String("patient_id", req.PatientID),
		zap.Int("tier", int(a.Result.Tier)),
		zap.Int("label_count", len(input.Labels)),
		zap.Int("reason_count", len(a.Result.Reasons)),
	)

	// 5. 持久化报告
	if s.reports != nil {
		report := &models.TriageReport{
			ReportID:         a.ReportID,
			PatientID:        req.PatientID,
			PregnancyID:      req.PregnancyID,
			Tier:             a.Result.Tier,
			Reasons:          a.Result.Reasons,
			Action:           a.Result.Action,
			Labels:           input.Labels,
			BloodPressure:    input.BloodPressure,
			TemperatureC:     input.TemperatureC,
			GestationalWeeks: input.GestationalWeeks,
			Location:         input.Location,
			CreatedAt:        now,
		}
		if err := s.reports.CreateReport(ctx, report); err != nil {
			s.recordError(a, "persist report", err)
		}
	}

	// 6. 升级判定与开立病例
	if escalation.ShouldOpenCase(a.Result.Tier, s.sharingConsent(ctx, req.PatientID, a)) {
		s.openCase(ctx, req, input, now, a)
	}

	// 7. 临床告警
	if escalation.NotifyClinician(a.Result.Tier) {
		alert := models.ClinicianAlert{
			ReportID:    a.ReportID,
			PatientID:   req.PatientID,
			PregnancyID: req.PregnancyID,
			Tier:        a.Result.Tier,
			Reasons:     a.Result.Reasons,
			Action:      a.Result.Action,
			CaseID:      a.CaseID,
			CreatedAt:   now,
		}
		if err := s.publisher.PublishAlert(ctx, alert); err != nil {
			s.recordError(a, "publish clinician alert", err)
		}
	}

	return a, nil
}

// mergeLabels 合并调用方提供的标签与文本分类结果
// 调用方标签原样保留（含重复，仅丢弃词表外的值）；分类结果只追加尚未出现的标签
func (s *TriageService) mergeLabels(ctx context.Context, input models.TriageInput) []models.Label {
	merged := make([]models.Label, 0, len(input.Labels))
	seen := make(map[models.Label]struct{})
	for _, l := range input.Labels {
		if !l.Valid() {
			continue
		}
		seen[l] = struct{}{}
		merged = append(merged, l)
	}

	if input.Text != "" {
		for _, l := range s.classifier.Classify(ctx, input.Text) {
			if _, ok := seen[l]; ok || !l.Valid() {
				continue
			}
			seen[l] = struct{}{}
			merged = append(merged, l)
		}
	}
	return merged
}

// deriveWeeks 根据 LMP（请求优先，其次档案）推算孕周；结果不合理时丢弃
func (s *TriageService) deriveWeeks(ctx context.Context, req AssessRequest, a *Assessment) *int {
	lmp := req.LMP
	if lmp == nil && req.PregnancyID != "" && s.profiles != nil {
		stored, err := s.profiles.GetLMP(ctx, req.PregnancyID)
		if err != nil {
			s.recordError(a, "load lmp", err)
			return nil
		}
		lmp = stored
	}
	if lmp == nil {
		return nil
	}

	weeks := s.calculator.WeeksSince(*lmp)
	if weeks < s.opts.MinPlausibleWeeks || weeks > s.opts.MaxPlausibleWeeks {
		s.logger.Warn("Discarding implausible gestational age",
			zap.String("patient_id", req.PatientID),
			zap.Int("weeks", weeks),
		)
		return nil
	}
	return &weeks
}

// sharingConsent 仅 tier 2 需要查询同意记录；查询失败按未同意处理
func (s *TriageService) sharingConsent(ctx context.Context, patientID string, a *Assessment) bool {
	if a.Result.Tier != models.TierModerate || s.consents == nil {
		return false
	}
	consent, err := s.consents.HasSharingConsent(ctx, patientID)
	if err != nil {
		s.recordError(a, "load sharing consent", err)
		return false
	}
	return consent
}

func (s *TriageService) openCase(ctx context.Context, req AssessRequest, input models.TriageInput, now time.Time, a *Assessment) {
	a.OpenCase = true
	if s.cases == nil {
		return
	}

	c := &models.Case{
		CaseID:      uuid.New().String(),
		ReportID:    a.ReportID,
		PatientID:   req.PatientID,
		PregnancyID: req.PregnancyID,
		Tier:        a.Result.Tier,
		Summary:     a.Result.Summary(),
		Location:    input.Location,
		Status:      "open",
		CreatedAt:   now,
	}
	if err := s.cases.CreateCase(ctx, c); err != nil {
		s.recordError(a, "open case", err)
		return
	}
	a.CaseID = c.CaseID
}

func (s *TriageService) recordError(a *Assessment, step string, err error) {
	s.logger.Error("Triage collaborator failed",
		zap.String("report_id", a.ReportID),
		zap.String("step", step),
		zap.Error(err),
	)
	a.Errors = append(a.Errors, fmt.Sprintf("%s: %v", step, err))
}
