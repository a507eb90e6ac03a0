package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"safemama-triage/internal/evaluator"
	"safemama-triage/internal/gestation"
	"safemama-triage/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClassifier struct {
	labels []models.Label
	calls  int
}

func (f *fakeClassifier) Classify(context.Context, string) []models.Label {
	f.calls++
	return f.labels
}

type fakeReports struct {
	err     error
	created []*models.TriageReport
}

func (f *fakeReports) CreateReport(_ context.Context, r *models.TriageReport) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, r)
	return nil
}

type fakeCases struct {
	err     error
	created []*models.Case
}

func (f *fakeCases) CreateCase(_ context.Context, c *models.Case) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, c)
	return nil
}

type fakeProfiles struct {
	flags    models.RiskFlags
	lmp      *time.Time
	flagsErr error
	lmpErr   error
}

func (f *fakeProfiles) GetRiskFlags(context.Context, string) (models.RiskFlags, error) {
	return f.flags, f.flagsErr
}

func (f *fakeProfiles) GetLMP(context.Context, string) (*time.Time, error) {
	return f.lmp, f.lmpErr
}

type fakeConsents struct {
	consent bool
	err     error
	calls   int
}

func (f *fakeConsents) HasSharingConsent(context.Context, string) (bool, error) {
	f.calls++
	return f.consent, f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	alerts []models.ClinicianAlert
}

func (f *fakePublisher) PublishAlert(_ context.Context, a models.ClinicianAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, a)
	return nil
}

var testNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

type harness struct {
	classifier *fakeClassifier
	reports    *fakeReports
	cases      *fakeCases
	profiles   *fakeProfiles
	consents   *fakeConsents
	publisher  *fakePublisher
	svc        *TriageService
}

func newHarness() *harness {
	h := &harness{
		classifier: &fakeClassifier{},
		reports:    &fakeReports{},
		cases:      &fakeCases{},
		profiles:   &fakeProfiles{},
		consents:   &fakeConsents{},
		publisher:  &fakePublisher{},
	}
	h.build()
	return h
}

func (h *harness) build() {
	h.svc = NewTriageService(Deps{
		Classifier: h.classifier,
		Evaluator:  evaluator.NewEvaluator(nil),
		Clock:      gestation.ClockFunc(func() time.Time { return testNow }),
		Reports:    h.reports,
		Cases:      h.cases,
		Profiles:   h.profiles,
		Consents:   h.consents,
		Publisher:  h.publisher,
	}, Options{MinPlausibleWeeks: 0, MaxPlausibleWeeks: 45}, zap.NewNop())
}

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

func TestAssess_RequiresPatient(t *testing.T) {
	h := newHarness()

	_, err := h.svc.Assess(context.Background(), AssessRequest{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "patient_id is required")
}

func TestAssess_LowTierNoEscalation(t *testing.T) {
	h := newHarness()

	a, err := h.svc.Assess(context.Background(), AssessRequest{PatientID: "p-1"})

	require.NoError(t, err)
	assert.Equal(t, models.TierLow, a.Result.Tier)
	assert.Equal(t, evaluator.ActionSelfCare, a.Result.Action)
	assert.False(t, a.OpenCase)
	assert.Empty(t, a.CaseID)
	assert.Empty(t, a.Errors)
	require.Len(t, h.reports.created, 1)
	assert.Equal(t, a.ReportID, h.reports.created[0].ReportID)
	assert.Equal(t, testNow, h.reports.created[0].CreatedAt)
	assert.Empty(t, h.publisher.alerts)
	assert.Zero(t, h.consents.calls)
}

func TestAssess_TextIsClassifiedAndMerged(t *testing.T) {
	h := newHarness()
	h.classifier.labels = []models.Label{models.LabelBlurredVision, models.LabelHeadache}

	a, err := h.svc.Assess(context.Background(), AssessRequest{
		PatientID: "p-1",
		Input: models.TriageInput{
			Text:   "pounding headache, vision is blurry",
			Labels: []models.Label{models.LabelHeadache, "not_a_label"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, h.classifier.calls)
	assert.Equal(t, []models.Label{models.LabelHeadache, models.LabelBlurredVision}, a.Labels)
	assert.Equal(t, models.TierHigh, a.Result.Tier)
	assert.Contains(t, a.Result.Reasons, "Dangerous symptom combination: headache + blurred vision")
}

func TestAssess_SuppliedDuplicatesKeptLikeEvaluate(t *testing.T) {
	h := newHarness()
	h.classifier.labels = []models.Label{models.LabelFever, models.LabelVomiting, models.LabelVomiting}
	input := models.TriageInput{
		Text:   "fever and vomiting",
		Labels: []models.Label{models.LabelFever, models.LabelFever},
	}

	a, err := h.svc.Assess(context.Background(), AssessRequest{PatientID: "p-1", Input: input})

	require.NoError(t, err)
	assert.Equal(t, []models.Label{models.LabelFever, models.LabelFever, models.LabelVomiting}, a.Labels)
	assert.Equal(t, []string{
		"Reported symptom: fever",
		"Reported symptom: fever",
		"Reported symptom: vomiting",
	}, a.Result.Reasons)

	structured := h.svc.Evaluate(models.TriageInput{Labels: a.Labels})
	assert.Equal(t, structured, a.Result)
}

func TestAssess_ClassifierSkippedWithoutText(t *testing.T) {
	h := newHarness()

	_, err := h.svc.Assess(context.Background(), AssessRequest{
		PatientID: "p-1",
		Input:     models.TriageInput{Labels: []models.Label{models.LabelFever}},
	})

	require.NoError(t, err)
	assert.Zero(t, h.classifier.calls)
}

func TestAssess_WeeksDerivedFromRequestLMP(t *testing.T) {
	h := newHarness()
	lmp := testNow.AddDate(0, 0, -168)

	a, err := h.svc.Assess(context.Background(), AssessRequest{
		PatientID: "p-1",
		Input:     models.TriageInput{Labels: []models.Label{models.LabelAbdominalPain}},
		LMP:       &lmp,
	})

	require.NoError(t, err)
	require.NotNil(t, a.GestationalWeeks)
	assert.Equal(t, 24, *a.GestationalWeeks)
	assert.Contains(t, a.Result.Reasons, evaluator.ReasonPretermPain)
}

func TestAssess_WeeksDerivedFromProfileLMP(t *testing.T) {
	h := newHarness()
	lmp := testNow.AddDate(0, 0, -70)
	h.profiles.lmp = &lmp

	a, err := h.svc.Assess(context.Background(), AssessRequest{
		PatientID:   "p-1",
		PregnancyID: "preg-1",
		Input:       models.TriageInput{Labels: []models.Label{models.LabelHeavyBleeding}},
	})

	require.NoError(t, err)
	assert.Equal(t, intPtr(10), a.GestationalWeeks)
	assert.Contains(t, a.Result.Reasons, evaluator.ReasonEarlyHeavyBleeding)
}

func TestAssess_SuppliedWeeksWin(t *testing.T) {
	h := newHarness()
	lmp := testNow.AddDate(0, 0, -70)

	a, err := h.svc.Assess(context.Background(), AssessRequest{
		PatientID: "p-1",
		Input:     models.TriageInput{GestationalWeeks: intPtr(30)},
		LMP:       &lmp,
	})

	require.NoError(t, err)
	assert.Equal(t, intPtr(30), a.GestationalWeeks)
}

func TestAssess_ImplausibleWeeksDiscarded(t *testing.T) {
	h := newHarness()
	lmp := testNow.AddDate(-2, 0, 0)

	a, err := h.svc.Assess(context.Background(), AssessRequest{
		PatientID: "p-1",
		Input:     models.TriageInput{Labels: []models.Label{models.LabelHeavyBleeding}},
		LMP:       &lmp,
	})

	require.NoError(t, err)
	assert.Nil(t, a.GestationalWeeks)
	assert.NotContains(t, a.Result.Reasons, evaluator.ReasonEarlyHeavyBleeding)

	future := testNow.AddDate(0, 0, 30)
	a, err = h.svc.Assess(context.Background(), AssessRequest{PatientID: "p-1", LMP: &future})
	require.NoError(t, err)
	assert.Nil(t, a.GestationalWeeks)
}

func TestAssess_RiskFlagsLoadedFromProfile(t *testing.T) {
	h := newHarness()
	h.profiles.flags = models.RiskFlags{"diabetes": true}

	a, err := h.svc.Assess(context.Background(), AssessRequest{PatientID: "p-1", PregnancyID: "preg-1"})

	require.NoError(t, err)
	assert.Equal(t, models.TierModerate, a.Result.Tier)
	assert.Equal(t, []string{evaluator.ReasonHighRiskFactors}, a.Result.Reasons)
}

func TestAssess_SuppliedRiskFlagsNotOverridden(t *testing.T) {
	h := newHarness()
	h.profiles.flags = models.RiskFlags{"diabetes": true}

	a, err := h.svc.Assess(context.Background(), AssessRequest{
		PatientID:   "p-1",
		PregnancyID: "preg-1",
		Input:       models.TriageInput{RiskFlags: models.RiskFlags{}},
	})

	require.NoError(t, err)
	assert.Equal(t, models.TierLow, a.Result.Tier)
}

func TestAssess_ModerateTierFollowsConsent(t *testing.T) {
	for _, consent := range []bool{false, true} {
		h := newHarness()
		h.consents.consent = consent

		a, err := h.svc.Assess(context.Background(), AssessRequest{
			PatientID: "p-1",
			Input:     models.TriageInput{TemperatureC: floatPtr(38.0)},
		})

		require.NoError(t, err)
		assert.Equal(t, models.TierModerate, a.Result.Tier)
		assert.Equal(t, consent, a.OpenCase)
		assert.Equal(t, 1, h.consents.calls)
		require.Len(t, h.publisher.alerts, 1, "tier 2 always alerts a clinician")
		if consent {
			require.Len(t, h.cases.created, 1)
			assert.Equal(t, a.CaseID, h.cases.created[0].CaseID)
			assert.Equal(t, a.CaseID, h.publisher.alerts[0].CaseID)
		} else {
			assert.Empty(t, h.cases.created)
			assert.Empty(t, a.CaseID)
		}
	}
}

func TestAssess_HighTierOverridesConsent(t *testing.T) {
	h := newHarness()
	h.consents.consent = false
	loc := &models.GeoPoint{Latitude: -1.29, Longitude: 36.82}

	a, err := h.svc.Assess(context.Background(), AssessRequest{
		PatientID:   "p-1",
		PregnancyID: "preg-1",
		Input: models.TriageInput{
			BloodPressure: &models.BloodPressure{Systolic: 160, Diastolic: 109},
			Location:      loc,
			RiskFlags:     models.RiskFlags{},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, models.TierHigh, a.Result.Tier)
	assert.True(t, a.OpenCase)
	assert.Zero(t, h.consents.calls)
	require.Len(t, h.cases.created, 1)

	c := h.cases.created[0]
	assert.Equal(t, a.ReportID, c.ReportID)
	assert.Equal(t, "preg-1", c.PregnancyID)
	assert.Equal(t, models.TierHigh, c.Tier)
	assert.Equal(t, loc, c.Location)
	assert.Equal(t, evaluator.ActionGoNow+" | "+evaluator.ReasonSevereHypertension, c.Summary)
}

func TestAssess_CollaboratorFailuresDoNotAlterResult(t *testing.T) {
	input := models.TriageInput{
		Labels:    []models.Label{models.LabelFever, models.LabelAbdominalPain},
		RiskFlags: models.RiskFlags{},
	}

	clean := newHarness()
	want, err := clean.svc.Assess(context.Background(), AssessRequest{PatientID: "p-1", Input: input})
	require.NoError(t, err)

	h := newHarness()
	h.reports.err = errors.New("db down")
	h.cases.err = errors.New("db down")
	h.publisher.err = errors.New("redis down")

	got, err := h.svc.Assess(context.Background(), AssessRequest{PatientID: "p-1", Input: input})

	require.NoError(t, err)
	assert.Equal(t, want.Result, got.Result)
	assert.True(t, got.OpenCase)
	assert.Empty(t, got.CaseID)
	assert.Len(t, got.Errors, 3)
	assert.Contains(t, got.Errors[0], "persist report")
	assert.Contains(t, got.Errors[1], "open case")
	assert.Contains(t, got.Errors[2], "publish clinician alert")
}

func TestAssess_ProfileFailuresDegrade(t *testing.T) {
	h := newHarness()
	h.profiles.flagsErr = errors.New("timeout")
	h.profiles.lmpErr = errors.New("timeout")

	a, err := h.svc.Assess(context.Background(), AssessRequest{PatientID: "p-1", PregnancyID: "preg-1"})

	require.NoError(t, err)
	assert.Equal(t, models.TierLow, a.Result.Tier)
	assert.Nil(t, a.GestationalWeeks)
	assert.Len(t, a.Errors, 2)
}

func TestAssess_ConsentFailureMeansNoCase(t *testing.T) {
	h := newHarness()
	h.consents.err = errors.New("timeout")

	a, err := h.svc.Assess(context.Background(), AssessRequest{
		PatientID: "p-1",
		Input:     models.TriageInput{Labels: []models.Label{models.LabelVomiting}},
	})

	require.NoError(t, err)
	assert.Equal(t, models.TierModerate, a.Result.Tier)
	assert.False(t, a.OpenCase)
	assert.Len(t, a.Errors, 1)
}

func TestAssess_NilCollaborators(t *testing.T) {
	svc := NewTriageService(Deps{}, Options{}, zap.NewNop())

	a, err := svc.Assess(context.Background(), AssessRequest{
		PatientID: "p-1",
		Input:     models.TriageInput{Text: "heavy bleeding", Labels: []models.Label{models.LabelChestPain}},
	})

	require.NoError(t, err)
	assert.Equal(t, models.TierHigh, a.Result.Tier)
	assert.True(t, a.OpenCase)
	assert.Empty(t, a.CaseID)
	assert.Empty(t, a.Errors)
}

func TestEvaluate_PurePath(t *testing.T) {
	h := newHarness()

	res := h.svc.Evaluate(models.TriageInput{Text: "heavy bleeding"})

	assert.Equal(t, models.TierLow, res.Tier)
	assert.Zero(t, h.classifier.calls)
	assert.Empty(t, h.reports.created)
}
