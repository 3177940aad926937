package engine

import (
	"context"
	"fmt"
	"time"

	"carewatch-alert/internal/clock"
	"carewatch-alert/internal/models"
)

// RecentAlertSource is the alert-store read capability the cooldown check
// depends on.
type RecentAlertSource interface {
	// FindRecentSimilar returns alerts already raised for the
	// (reading, rule) pair with triggered_at >= since.
	FindRecentSimilar(ctx context.Context, readingID, ruleID string, since time.Time) ([]models.Alert, error)
}

// Deduplicator suppresses a rule that would re-fire for the same reading
// inside the rule's cooldown window. The cooldown key is (reading, rule),
// not the rule alone: a different reading for the same patient is not
// suppressed by this check. It deduplicates retried or re-processed
// submissions of one reading, it is not flood control across readings.
type Deduplicator struct {
	alerts RecentAlertSource
	clock  clock.Clock
}

// NewDeduplicator creates a cooldown deduplicator.
func NewDeduplicator(alerts RecentAlertSource, clk clock.Clock) *Deduplicator {
	return &Deduplicator{alerts: alerts, clock: clk}
}

// ShouldSuppress reports whether an alert for (reading, rule) was already
// raised inside the rule's cooldown window.
func (d *Deduplicator) ShouldSuppress(ctx context.Context, readingID string, rule models.AlertRule) (bool, error) {
	if rule.CooldownMinutes <= 0 {
		return false, nil
	}

	since := d.clock.Now().Add(-rule.Cooldown())
	recent, err := d.alerts.FindRecentSimilar(ctx, readingID, rule.RuleID, since)
	if err != nil {
		return false, fmt.Errorf("failed to check recent alerts: %w", err)
	}
	return len(recent) > 0, nil
}
