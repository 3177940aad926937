package seeder

import (
	"context"
	"fmt"
	"time"

	"carewatch-alert/internal/clock"
	"carewatch-alert/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// seededBy is the audit author of the baseline rule set.
const seededBy = "system"

// RuleStore is the rule-store capability the seeder depends on.
type RuleStore interface {
	CountRules(ctx context.Context) (int, error)
	// CreateRules must be all-or-nothing: a partial baseline set would pass
	// the count guard on the next boot and never be completed.
	CreateRules(ctx context.Context, rules []models.AlertRule) error
}

// Seeder bootstraps the baseline global rule set. It is an explicit step
// invoked once by the process entry point, not a migration: it never runs
// when any rule already exists.
type Seeder struct {
	rules  RuleStore
	clock  clock.Clock
	logger *zap.Logger
}

// NewSeeder creates the default-rule seeder.
func NewSeeder(rules RuleStore, clk clock.Clock, logger *zap.Logger) *Seeder {
	return &Seeder{
		rules:  rules,
		clock:  clk,
		logger: logger,
	}
}

// Seed inserts the baseline rules when the store is empty.
func (s *Seeder) Seed(ctx context.Context) error {
	count, err := s.rules.CountRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to count alert rules: %w", err)
	}
	if count > 0 {
		s.logger.Info("Alert rules already present, skipping default seed",
			zap.Int("count", count),
		)
		return nil
	}

	defaults := DefaultRules(s.clock.Now())
	if err := s.rules.CreateRules(ctx, defaults); err != nil {
		return fmt.Errorf("failed to seed default alert rules: %w", err)
	}

	s.logger.Info("Seeded default alert rules",
		zap.Int("count", len(defaults)),
	)
	return nil
}

// DefaultRules returns the clinically-derived baseline: global CRITICAL and
// WARNING bands for each of the five channels. CRITICAL rules carry shorter
// cooldowns than WARNING rules.
func DefaultRules(now time.Time) []models.AlertRule {
	builder := func(vitalType models.VitalSignType, severity models.Severity, comparator models.ComparatorKind,
		threshold float64, thresholdMax *float64, cooldownMinutes int, template string) models.AlertRule {
		return models.AlertRule{
			RuleID:          uuid.New().String(),
			PatientID:       nil,
			VitalSignType:   vitalType,
			Severity:        severity,
			Comparator:      comparator,
			Threshold:       threshold,
			ThresholdMax:    thresholdMax,
			MessageTemplate: template,
			Active:          true,
			CooldownMinutes: cooldownMinutes,
			CreatedBy:       seededBy,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}
	maxOf := func(v float64) *float64 { return &v }

	return []models.AlertRule{
		// Blood pressure (systolic, mmHg).
		builder(models.VitalBloodPressure, models.SeverityCritical, models.CompareGreaterThan,
			180, nil, 15, "Critical high systolic blood pressure: %.0f mmHg"),
		builder(models.VitalBloodPressure, models.SeverityWarning, models.CompareBetween,
			160, maxOf(180), 25, "Elevated systolic blood pressure: %.0f mmHg"),
		builder(models.VitalBloodPressure, models.SeverityCritical, models.CompareLessThan,
			90, nil, 15, "Critical low systolic blood pressure: %.0f mmHg"),
		builder(models.VitalBloodPressure, models.SeverityWarning, models.CompareBetween,
			90, maxOf(100), 25, "Low systolic blood pressure: %.0f mmHg"),

		// Heart rate (bpm).
		builder(models.VitalHeartRate, models.SeverityCritical, models.CompareGreaterThan,
			140, nil, 10, "Critical high heart rate: %.0f bpm"),
		builder(models.VitalHeartRate, models.SeverityWarning, models.CompareBetween,
			120, maxOf(140), 30, "Elevated heart rate: %.0f bpm"),
		builder(models.VitalHeartRate, models.SeverityCritical, models.CompareLessThan,
			40, nil, 10, "Critical low heart rate: %.0f bpm"),
		builder(models.VitalHeartRate, models.SeverityWarning, models.CompareBetween,
			40, maxOf(50), 30, "Low heart rate: %.0f bpm"),

		// Body temperature (degrees Celsius).
		builder(models.VitalTemperature, models.SeverityCritical, models.CompareGreaterThan,
			39.5, nil, 15, "Critical high temperature: %.1f C"),
		builder(models.VitalTemperature, models.SeverityWarning, models.CompareBetween,
			38.0, maxOf(39.5), 30, "Fever: %.1f C"),
		builder(models.VitalTemperature, models.SeverityCritical, models.CompareLessThan,
			35.0, nil, 15, "Hypothermia risk, temperature: %.1f C"),

		// Respiratory rate (breaths/min).
		builder(models.VitalRespiratoryRate, models.SeverityCritical, models.CompareGreaterThan,
			30, nil, 10, "Critical high respiratory rate: %.0f breaths/min"),
		builder(models.VitalRespiratoryRate, models.SeverityWarning, models.CompareBetween,
			24, maxOf(30), 25, "Elevated respiratory rate: %.0f breaths/min"),
		builder(models.VitalRespiratoryRate, models.SeverityCritical, models.CompareLessThan,
			8, nil, 10, "Critical low respiratory rate: %.0f breaths/min"),
		builder(models.VitalRespiratoryRate, models.SeverityWarning, models.CompareBetween,
			8, maxOf(11), 25, "Low respiratory rate: %.0f breaths/min"),

		// Oxygen saturation (%).
		builder(models.VitalOxygenSaturation, models.SeverityCritical, models.CompareLessThan,
			88, nil, 10, "Critical low oxygen saturation: %.0f%%"),
		builder(models.VitalOxygenSaturation, models.SeverityWarning, models.CompareBetween,
			88, maxOf(92), 20, "Low oxygen saturation: %.0f%%"),
	}
}
