package engine

import (
	"context"
	"fmt"

	"carewatch-alert/internal/clock"
	"carewatch-alert/internal/models"

	"go.uber.org/zap"
)

// RuleSource is the rule-store read capability the evaluator depends on.
type RuleSource interface {
	// FindApplicableRules returns the active rules for (patient, channel):
	// rules scoped to the patient plus global rules.
	FindApplicableRules(ctx context.Context, patientID string, vitalType models.VitalSignType) ([]models.AlertRule, error)
}

// AlertSink is the alert-store capability the evaluator depends on.
type AlertSink interface {
	RecentAlertSource

	// CreateAlerts persists all alerts of one evaluation in a single
	// transaction and returns the alerts actually inserted. An alert that
	// collides with an existing (reading, rule) row is skipped, which keeps
	// concurrent duplicate evaluation of one reading benign.
	CreateAlerts(ctx context.Context, alerts []models.Alert) ([]models.Alert, error)
}

// Evaluator runs one vital-sign reading through the configured rule set and
// raises alerts. Each call is stateless beyond what it reads from the rule
// store and writes to the alert store, so concurrent evaluation of different
// readings is safe.
type Evaluator struct {
	rules   RuleSource
	alerts  AlertSink
	dedup   *Deduplicator
	builder *AlertBuilder
	logger  *zap.Logger
}

// NewEvaluator creates the evaluation orchestrator.
func NewEvaluator(rules RuleSource, alerts AlertSink, clk clock.Clock, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		rules:   rules,
		alerts:  alerts,
		dedup:   NewDeduplicator(alerts, clk),
		builder: NewAlertBuilder(clk),
		logger:  logger,
	}
}

// Evaluate matches every present channel of the reading against the
// applicable rules and returns the newly created alerts (possibly none).
// Alerts are persisted in one transaction: on a store error the whole
// evaluation fails and no partial alert set is kept. Re-evaluating the same
// reading is safe: the cooldown deduplicator and the (reading, rule)
// uniqueness constraint prevent duplicates.
func (e *Evaluator) Evaluate(ctx context.Context, reading models.VitalSignReading) ([]models.Alert, error) {
	var candidates []models.Alert

	for _, channel := range reading.Channels() {
		applicable, err := e.rules.FindApplicableRules(ctx, reading.PatientID, channel.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules for %s: %w", channel.Type, err)
		}

		for _, rule := range MatchRules(applicable, reading.PatientID, channel.Type) {
			comparator, err := CompileComparator(rule)
			if err != nil {
				// Rule writes are validated, so this is an invariant breach,
				// not a condition to recover from. Skip the rule and keep
				// the reading's evaluation going.
				e.logger.Error("Skipping rule with invalid definition",
					zap.String("rule_id", rule.RuleID),
					zap.Error(err),
				)
				continue
			}
			if !comparator.Triggers(channel.Value) {
				continue
			}

			suppress, err := e.dedup.ShouldSuppress(ctx, reading.ReadingID, rule)
			if err != nil {
				return nil, err
			}
			if suppress {
				e.logger.Debug("Alert suppressed by cooldown",
					zap.String("reading_id", reading.ReadingID),
					zap.String("rule_id", rule.RuleID),
				)
				continue
			}

			candidates = append(candidates, e.builder.Build(reading, rule, channel.Value))
		}
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	created, err := e.alerts.CreateAlerts(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to persist alerts: %w", err)
	}

	for _, alert := range created {
		e.logger.Info("Alert created",
			zap.String("alert_id", alert.AlertID),
			zap.String("patient_id", alert.PatientID),
			zap.String("rule_id", alert.RuleID),
			zap.String("severity", string(alert.Severity)),
			zap.String("reading_id", alert.VitalSignReadingID),
		)
	}
	return created, nil
}
