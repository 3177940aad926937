package service

import (
	"context"
	"errors"
	"fmt"

	"carewatch-alert/internal/clock"
	"carewatch-alert/internal/models"
	"carewatch-alert/internal/repository"

	"go.uber.org/zap"
)

// ErrAlertResolved is returned for lifecycle operations on an alert that is
// already RESOLVED. RESOLVED is terminal: no transition leaves it, and the
// stored resolution fields are never overwritten.
var ErrAlertResolved = errors.New("alert already resolved")

// AlertLifecycleService drives alerts through NEW -> ACKNOWLEDGED -> RESOLVED.
// Acknowledge and resolve are independent operations: an alert may be
// resolved straight from NEW without being acknowledged first.
type AlertLifecycleService struct {
	alerts repository.AlertRepository
	clock  clock.Clock
	logger *zap.Logger
}

// NewAlertLifecycleService creates the lifecycle service.
func NewAlertLifecycleService(alerts repository.AlertRepository, clk clock.Clock, logger *zap.Logger) *AlertLifecycleService {
	return &AlertLifecycleService{
		alerts: alerts,
		clock:  clk,
		logger: logger,
	}
}

// Acknowledge marks an alert as seen by the given actor. Re-acknowledging an
// already ACKNOWLEDGED alert is a no-op returning the stored alert; the
// original acknowledged-at/by fields are kept.
func (s *AlertLifecycleService) Acknowledge(ctx context.Context, alertID, actorID string) (*models.Alert, error) {
	if actorID == "" {
		return nil, fmt.Errorf("actor_id is required")
	}

	alert, err := s.alerts.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	switch alert.Status {
	case models.AlertStatusResolved:
		return nil, fmt.Errorf("%w: alert_id=%s", ErrAlertResolved, alertID)
	case models.AlertStatusAcknowledged:
		return alert, nil
	}

	now := s.clock.Now()
	alert.Status = models.AlertStatusAcknowledged
	alert.AcknowledgedAt = &now
	alert.AcknowledgedBy = &actorID
	alert.UpdatedAt = now

	if err := s.alerts.UpdateAlertStatus(ctx, alert); err != nil {
		return nil, err
	}

	s.logger.Info("Alert acknowledged",
		zap.String("alert_id", alert.AlertID),
		zap.String("acknowledged_by", actorID),
	)
	return alert, nil
}

// Resolve closes an alert. Allowed from NEW or ACKNOWLEDGED; prior
// acknowledged fields are left untouched. Notes are stored only when given.
func (s *AlertLifecycleService) Resolve(ctx context.Context, alertID, actorID string, notes *string) (*models.Alert, error) {
	if actorID == "" {
		return nil, fmt.Errorf("actor_id is required")
	}

	alert, err := s.alerts.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if alert.Status == models.AlertStatusResolved {
		return nil, fmt.Errorf("%w: alert_id=%s", ErrAlertResolved, alertID)
	}

	now := s.clock.Now()
	alert.Status = models.AlertStatusResolved
	alert.ResolvedAt = &now
	alert.ResolvedBy = &actorID
	if notes != nil {
		alert.Notes = notes
	}
	alert.UpdatedAt = now

	if err := s.alerts.UpdateAlertStatus(ctx, alert); err != nil {
		return nil, err
	}

	s.logger.Info("Alert resolved",
		zap.String("alert_id", alert.AlertID),
		zap.String("resolved_by", actorID),
	)
	return alert, nil
}

// GetAlert fetches one alert by id.
func (s *AlertLifecycleService) GetAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	return s.alerts.GetAlert(ctx, alertID)
}

// ListAlerts queries alerts for downstream reporting.
func (s *AlertLifecycleService) ListAlerts(ctx context.Context, filters repository.AlertFilters, page, size int) ([]*models.Alert, int, error) {
	return s.alerts.ListAlerts(ctx, filters, page, size)
}
