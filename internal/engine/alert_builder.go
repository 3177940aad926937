package engine

import (
	"fmt"
	"strings"

	"carewatch-alert/internal/clock"
	"carewatch-alert/internal/models"

	"github.com/google/uuid"
)

// AlertBuilder constructs new alerts from a triggering rule and reading.
type AlertBuilder struct {
	clock clock.Clock
}

// NewAlertBuilder creates an alert builder.
func NewAlertBuilder(clk clock.Clock) *AlertBuilder {
	return &AlertBuilder{clock: clk}
}

// Build creates a NEW alert for the rule that fired on the given value.
// Severity is copied from the rule; the message is the rule template
// rendered with the triggering value.
func (b *AlertBuilder) Build(reading models.VitalSignReading, rule models.AlertRule, value float64) models.Alert {
	now := b.clock.Now()
	return models.Alert{
		AlertID:            uuid.New().String(),
		PatientID:          reading.PatientID,
		VitalSignReadingID: reading.ReadingID,
		RuleID:             rule.RuleID,
		Severity:           rule.Severity,
		Message:            RenderMessage(rule.MessageTemplate, value),
		TriggeredAt:        now,
		Status:             models.AlertStatusNew,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// RenderMessage formats a rule message template with the triggering value.
// Templates carry one numeric fmt verb (e.g. "%.0f" for counts, "%.1f" for
// temperature); a template without a verb is returned as-is.
func RenderMessage(template string, value float64) string {
	if !strings.Contains(template, "%") {
		return template
	}
	return fmt.Sprintf(template, value)
}
