package repository

import (
	"context"
	"errors"
	"time"

	"carewatch-alert/internal/models"
)

// ErrAlertNotFound is returned when an alert id does not exist.
var ErrAlertNotFound = errors.New("alert not found")

// AlertFilters are the query conditions for alert list queries used by
// downstream reporting.
type AlertFilters struct {
	PatientID *string
	Status    *models.AlertStatus
	Severity  *models.Severity
	RuleID    *string

	// Time range on triggered_at.
	StartTime *time.Time
	EndTime   *time.Time
}

// AlertRepository is the alert store contract.
type AlertRepository interface {
	// CreateAlerts inserts all alerts of one evaluation in a single
	// transaction. Rows colliding on (vital_sign_reading_id, rule_id) are
	// skipped, not duplicated; the alerts actually inserted are returned.
	CreateAlerts(ctx context.Context, alerts []models.Alert) ([]models.Alert, error)

	// FindRecentSimilar returns alerts for the (reading, rule) pair with
	// triggered_at >= since (cooldown deduplication).
	FindRecentSimilar(ctx context.Context, readingID, ruleID string, since time.Time) ([]models.Alert, error)

	// GetAlert fetches one alert by id.
	GetAlert(ctx context.Context, alertID string) (*models.Alert, error)

	// UpdateAlertStatus writes the lifecycle fields (status, acknowledged-*,
	// resolved-*, notes, updated_at) of an existing alert.
	UpdateAlertStatus(ctx context.Context, alert *models.Alert) error

	// ListAlerts queries alerts by filters, newest first, paginated.
	// Returns the page and the total match count.
	ListAlerts(ctx context.Context, filters AlertFilters, page, size int) ([]*models.Alert, int, error)
}
