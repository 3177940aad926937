package repository

import (
	"context"
	"errors"

	"carewatch-alert/internal/models"
)

// ErrRuleNotFound is returned when a rule id does not exist.
var ErrRuleNotFound = errors.New("alert rule not found")

// RuleRepository is the alert-rule store contract.
type RuleRepository interface {
	// FindApplicableRules returns active rules for (patient, vital-sign type):
	// rules scoped to the patient plus global rules, patient-specific first.
	FindApplicableRules(ctx context.Context, patientID string, vitalType models.VitalSignType) ([]models.AlertRule, error)

	// CountRules counts all rules, active or not (seeder guard).
	CountRules(ctx context.Context) (int, error)

	// GetRule fetches one rule by id.
	GetRule(ctx context.Context, ruleID string) (*models.AlertRule, error)

	// CreateRule inserts one rule.
	CreateRule(ctx context.Context, rule *models.AlertRule) error

	// CreateRules inserts a batch of rules in a single transaction
	// (all-or-nothing; used by the default-rule seeder).
	CreateRules(ctx context.Context, rules []models.AlertRule) error

	// UpdateRule rewrites the mutable fields of an existing rule.
	UpdateRule(ctx context.Context, rule *models.AlertRule) error

	// SetRuleActive toggles a rule without deleting it.
	SetRuleActive(ctx context.Context, ruleID string, active bool) error

	// DeleteRule removes a rule permanently.
	DeleteRule(ctx context.Context, ruleID string) error
}
