package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"carewatch-alert/internal/engine"
	"carewatch-alert/internal/models"
	"carewatch-alert/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRuleRepo struct {
	rules map[string]*models.AlertRule
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: make(map[string]*models.AlertRule)}
}

func (r *fakeRuleRepo) FindApplicableRules(_ context.Context, _ string, _ models.VitalSignType) ([]models.AlertRule, error) {
	return nil, nil
}

func (r *fakeRuleRepo) CountRules(_ context.Context) (int, error) {
	return len(r.rules), nil
}

func (r *fakeRuleRepo) GetRule(_ context.Context, ruleID string) (*models.AlertRule, error) {
	rule, ok := r.rules[ruleID]
	if !ok {
		return nil, fmt.Errorf("%w: rule_id=%s", repository.ErrRuleNotFound, ruleID)
	}
	copy := *rule
	return &copy, nil
}

func (r *fakeRuleRepo) CreateRule(_ context.Context, rule *models.AlertRule) error {
	copy := *rule
	r.rules[rule.RuleID] = &copy
	return nil
}

func (r *fakeRuleRepo) CreateRules(_ context.Context, rules []models.AlertRule) error {
	for i := range rules {
		copy := rules[i]
		r.rules[copy.RuleID] = &copy
	}
	return nil
}

func (r *fakeRuleRepo) UpdateRule(_ context.Context, rule *models.AlertRule) error {
	if _, ok := r.rules[rule.RuleID]; !ok {
		return fmt.Errorf("%w: rule_id=%s", repository.ErrRuleNotFound, rule.RuleID)
	}
	copy := *rule
	r.rules[rule.RuleID] = &copy
	return nil
}

func (r *fakeRuleRepo) SetRuleActive(_ context.Context, ruleID string, active bool) error {
	rule, ok := r.rules[ruleID]
	if !ok {
		return fmt.Errorf("%w: rule_id=%s", repository.ErrRuleNotFound, ruleID)
	}
	rule.Active = active
	return nil
}

func (r *fakeRuleRepo) DeleteRule(_ context.Context, ruleID string) error {
	if _, ok := r.rules[ruleID]; !ok {
		return fmt.Errorf("%w: rule_id=%s", repository.ErrRuleNotFound, ruleID)
	}
	delete(r.rules, ruleID)
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func validRequest() CreateRuleRequest {
	return CreateRuleRequest{
		VitalSignType:   models.VitalHeartRate,
		Severity:        models.SeverityCritical,
		Comparator:      models.CompareGreaterThan,
		Threshold:       140,
		MessageTemplate: "Critical high heart rate: %.0f bpm",
		CooldownMinutes: 10,
		CreatedBy:       "admin-1",
	}
}

func TestCreateRule_Valid(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newFakeRuleRepo()
	svc := NewRuleService(repo, fakeClock{now: now}, zap.NewNop())

	rule, err := svc.CreateRule(context.Background(), validRequest())

	require.NoError(t, err)
	assert.NotEmpty(t, rule.RuleID)
	assert.True(t, rule.Active)
	assert.Equal(t, now, rule.CreatedAt)
	assert.Equal(t, "admin-1", rule.CreatedBy)
	assert.Len(t, repo.rules, 1)
}

func TestCreateRule_PatientScoped(t *testing.T) {
	repo := newFakeRuleRepo()
	svc := NewRuleService(repo, fakeClock{now: time.Now()}, zap.NewNop())

	patientID := "patient-1"
	req := validRequest()
	req.PatientID = &patientID

	rule, err := svc.CreateRule(context.Background(), req)

	require.NoError(t, err)
	require.NotNil(t, rule.PatientID)
	assert.Equal(t, "patient-1", *rule.PatientID)
	assert.False(t, rule.IsGlobal())
}

func TestCreateRule_RejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRuleRequest)
	}{
		{"unknown vital sign type", func(r *CreateRuleRequest) { r.VitalSignType = "PULSE" }},
		{"unknown severity", func(r *CreateRuleRequest) { r.Severity = "FATAL" }},
		{"unknown comparator", func(r *CreateRuleRequest) { r.Comparator = "NEAR" }},
		{"empty message template", func(r *CreateRuleRequest) { r.MessageTemplate = "" }},
		{"negative cooldown", func(r *CreateRuleRequest) { r.CooldownMinutes = -5 }},
		{"between without max", func(r *CreateRuleRequest) {
			r.Comparator = models.CompareBetween
			r.ThresholdMax = nil
		}},
		{"between with swapped bounds", func(r *CreateRuleRequest) {
			r.Comparator = models.CompareBetween
			r.Threshold = 140
			r.ThresholdMax = floatPtr(120)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRuleRepo()
			svc := NewRuleService(repo, fakeClock{now: time.Now()}, zap.NewNop())

			req := validRequest()
			tt.mutate(&req)

			_, err := svc.CreateRule(context.Background(), req)

			require.Error(t, err)
			assert.ErrorIs(t, err, engine.ErrInvalidRule)
			assert.Empty(t, repo.rules, "invalid rule must not be stored")
		})
	}
}

func TestUpdateRule_RewritesStoredRule(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newFakeRuleRepo()
	svc := NewRuleService(repo, fakeClock{now: now}, zap.NewNop())

	created, err := svc.CreateRule(context.Background(), validRequest())
	require.NoError(t, err)

	later := now.Add(time.Hour)
	svc = NewRuleService(repo, fakeClock{now: later}, zap.NewNop())

	updated := *created
	updated.Threshold = 150
	result, err := svc.UpdateRule(context.Background(), updated)

	require.NoError(t, err)
	assert.Equal(t, 150.0, result.Threshold)
	assert.Equal(t, later, result.UpdatedAt)

	stored, err := svc.GetRule(context.Background(), created.RuleID)
	require.NoError(t, err)
	assert.Equal(t, 150.0, stored.Threshold)
}

func TestUpdateRule_RejectsInvalid(t *testing.T) {
	repo := newFakeRuleRepo()
	svc := NewRuleService(repo, fakeClock{now: time.Now()}, zap.NewNop())

	created, err := svc.CreateRule(context.Background(), validRequest())
	require.NoError(t, err)

	updated := *created
	updated.Comparator = models.CompareBetween
	updated.ThresholdMax = nil

	_, err = svc.UpdateRule(context.Background(), updated)

	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrInvalidRule)
}

func TestDeactivateRule(t *testing.T) {
	repo := newFakeRuleRepo()
	svc := NewRuleService(repo, fakeClock{now: time.Now()}, zap.NewNop())

	created, err := svc.CreateRule(context.Background(), validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateRule(context.Background(), created.RuleID))

	stored, err := svc.GetRule(context.Background(), created.RuleID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestDeleteRule_Unknown(t *testing.T) {
	repo := newFakeRuleRepo()
	svc := NewRuleService(repo, fakeClock{now: time.Now()}, zap.NewNop())

	err := svc.DeleteRule(context.Background(), "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrRuleNotFound)
}
