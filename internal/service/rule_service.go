package service

import (
	"context"
	"fmt"

	"carewatch-alert/internal/clock"
	"carewatch-alert/internal/engine"
	"carewatch-alert/internal/models"
	"carewatch-alert/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RuleService is the alert-rule CRUD pass-through. It owns write-time
// validation: the evaluation path must never see an unknown comparator kind
// or a BETWEEN rule with swapped bounds.
type RuleService struct {
	rules  repository.RuleRepository
	clock  clock.Clock
	logger *zap.Logger
}

// NewRuleService creates the rule service.
func NewRuleService(rules repository.RuleRepository, clk clock.Clock, logger *zap.Logger) *RuleService {
	return &RuleService{
		rules:  rules,
		clock:  clk,
		logger: logger,
	}
}

// CreateRuleRequest carries the writable fields of a new rule.
type CreateRuleRequest struct {
	PatientID       *string
	VitalSignType   models.VitalSignType
	Severity        models.Severity
	Comparator      models.ComparatorKind
	Threshold       float64
	ThresholdMax    *float64
	MessageTemplate string
	CooldownMinutes int
	CreatedBy       string
}

// CreateRule validates and inserts one rule.
func (s *RuleService) CreateRule(ctx context.Context, req CreateRuleRequest) (*models.AlertRule, error) {
	now := s.clock.Now()
	rule := models.AlertRule{
		RuleID:          uuid.New().String(),
		PatientID:       req.PatientID,
		VitalSignType:   req.VitalSignType,
		Severity:        req.Severity,
		Comparator:      req.Comparator,
		Threshold:       req.Threshold,
		ThresholdMax:    req.ThresholdMax,
		MessageTemplate: req.MessageTemplate,
		Active:          true,
		CooldownMinutes: req.CooldownMinutes,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := validateRule(&rule); err != nil {
		return nil, err
	}
	if err := s.rules.CreateRule(ctx, &rule); err != nil {
		return nil, err
	}

	s.logger.Info("Alert rule created",
		zap.String("rule_id", rule.RuleID),
		zap.String("vital_sign_type", string(rule.VitalSignType)),
		zap.String("severity", string(rule.Severity)),
	)
	return &rule, nil
}

// UpdateRule validates and rewrites an existing rule.
func (s *RuleService) UpdateRule(ctx context.Context, rule models.AlertRule) (*models.AlertRule, error) {
	if err := validateRule(&rule); err != nil {
		return nil, err
	}

	rule.UpdatedAt = s.clock.Now()
	if err := s.rules.UpdateRule(ctx, &rule); err != nil {
		return nil, err
	}

	s.logger.Info("Alert rule updated",
		zap.String("rule_id", rule.RuleID),
	)
	return &rule, nil
}

// GetRule fetches one rule by id.
func (s *RuleService) GetRule(ctx context.Context, ruleID string) (*models.AlertRule, error) {
	return s.rules.GetRule(ctx, ruleID)
}

// DeactivateRule retires a rule from matching without deleting it.
func (s *RuleService) DeactivateRule(ctx context.Context, ruleID string) error {
	if err := s.rules.SetRuleActive(ctx, ruleID, false); err != nil {
		return err
	}
	s.logger.Info("Alert rule deactivated",
		zap.String("rule_id", ruleID),
	)
	return nil
}

// DeleteRule removes a rule permanently.
func (s *RuleService) DeleteRule(ctx context.Context, ruleID string) error {
	if err := s.rules.DeleteRule(ctx, ruleID); err != nil {
		return err
	}
	s.logger.Info("Alert rule deleted",
		zap.String("rule_id", ruleID),
	)
	return nil
}

// validateRule rejects rule definitions the engine would refuse to evaluate.
func validateRule(rule *models.AlertRule) error {
	if !models.IsValidVitalSignType(rule.VitalSignType) {
		return fmt.Errorf("%w: unknown vital sign type %q", engine.ErrInvalidRule, rule.VitalSignType)
	}
	if !models.IsValidSeverity(rule.Severity) {
		return fmt.Errorf("%w: unknown severity %q", engine.ErrInvalidRule, rule.Severity)
	}
	if rule.MessageTemplate == "" {
		return fmt.Errorf("%w: message template is required", engine.ErrInvalidRule)
	}
	if rule.CooldownMinutes < 0 {
		return fmt.Errorf("%w: cooldown must not be negative", engine.ErrInvalidRule)
	}
	// Covers unknown comparator kinds and the BETWEEN bound invariant.
	if _, err := engine.CompileComparator(*rule); err != nil {
		return err
	}
	return nil
}
