package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"carewatch-alert/internal/models"

	"go.uber.org/zap"
)

// PostgresAlertRepository implements AlertRepository over the alerts table.
// The table carries a UNIQUE constraint on (vital_sign_reading_id, rule_id);
// CreateAlerts relies on it to keep the cooldown check-then-create race
// benign under concurrent evaluation of the same reading.
type PostgresAlertRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresAlertRepository creates the Postgres alert repository.
func NewPostgresAlertRepository(db *sql.DB, logger *zap.Logger) *PostgresAlertRepository {
	return &PostgresAlertRepository{
		db:     db,
		logger: logger,
	}
}

const alertColumns = `
	alert_id,
	patient_id,
	vital_sign_reading_id,
	rule_id,
	severity,
	message,
	triggered_at,
	status,
	acknowledged_at,
	acknowledged_by,
	resolved_at,
	resolved_by,
	notes,
	created_at,
	updated_at
`

// CreateAlerts inserts all alerts of one evaluation in a single transaction.
// An alert colliding with an existing (reading, rule) row is skipped via
// ON CONFLICT DO NOTHING; the returned slice holds only the rows actually
// inserted.
func (r *PostgresAlertRepository) CreateAlerts(ctx context.Context, alerts []models.Alert) ([]models.Alert, error) {
	if len(alerts) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO alerts (
			alert_id,
			patient_id,
			vital_sign_reading_id,
			rule_id,
			severity,
			message,
			triggered_at,
			status,
			notes,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		ON CONFLICT (vital_sign_reading_id, rule_id) DO NOTHING
	`

	created := make([]models.Alert, 0, len(alerts))
	for _, alert := range alerts {
		result, err := tx.ExecContext(ctx, query,
			alert.AlertID,
			alert.PatientID,
			alert.VitalSignReadingID,
			alert.RuleID,
			string(alert.Severity),
			alert.Message,
			alert.TriggeredAt,
			string(alert.Status),
			alert.Notes,
			alert.CreatedAt,
			alert.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert alert: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			// Lost the race against a concurrent evaluation of the same
			// reading; the existing alert wins.
			r.logger.Debug("Alert insert skipped on conflict",
				zap.String("reading_id", alert.VitalSignReadingID),
				zap.String("rule_id", alert.RuleID),
			)
			continue
		}
		created = append(created, alert)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit alerts: %w", err)
	}
	return created, nil
}

// FindRecentSimilar returns alerts for the (reading, rule) pair with
// triggered_at >= since.
func (r *PostgresAlertRepository) FindRecentSimilar(ctx context.Context, readingID, ruleID string, since time.Time) ([]models.Alert, error) {
	if readingID == "" {
		return nil, fmt.Errorf("reading_id is required")
	}
	if ruleID == "" {
		return nil, fmt.Errorf("rule_id is required")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM alerts
		WHERE vital_sign_reading_id = $1
		  AND rule_id = $2
		  AND triggered_at >= $3
		ORDER BY triggered_at DESC
	`, alertColumns)

	rows, err := r.db.QueryContext(ctx, query, readingID, ruleID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

// GetAlert fetches one alert by id.
func (r *PostgresAlertRepository) GetAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}

	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE alert_id = $1`, alertColumns)

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, alertID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: alert_id=%s", ErrAlertNotFound, alertID)
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// UpdateAlertStatus writes the lifecycle fields of an existing alert.
func (r *PostgresAlertRepository) UpdateAlertStatus(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	if alert.AlertID == "" {
		return fmt.Errorf("alert_id is required")
	}

	query := `
		UPDATE alerts
		SET status = $1,
		    acknowledged_at = $2,
		    acknowledged_by = $3,
		    resolved_at = $4,
		    resolved_by = $5,
		    notes = $6,
		    updated_at = $7
		WHERE alert_id = $8
	`

	result, err := r.db.ExecContext(ctx, query,
		string(alert.Status),
		alert.AcknowledgedAt,
		alert.AcknowledgedBy,
		alert.ResolvedAt,
		alert.ResolvedBy,
		alert.Notes,
		alert.UpdatedAt,
		alert.AlertID,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: alert_id=%s", ErrAlertNotFound, alert.AlertID)
	}
	return nil
}

// ListAlerts queries alerts by filters, newest first, paginated.
func (r *PostgresAlertRepository) ListAlerts(ctx context.Context, filters AlertFilters, page, size int) ([]*models.Alert, int, error) {
	where := []string{}
	args := []interface{}{}
	argN := 1

	addFilter := func(condition string, value interface{}) {
		where = append(where, fmt.Sprintf(condition, argN))
		args = append(args, value)
		argN++
	}

	if filters.PatientID != nil {
		addFilter("patient_id = $%d", *filters.PatientID)
	}
	if filters.Status != nil {
		addFilter("status = $%d", string(*filters.Status))
	}
	if filters.Severity != nil {
		addFilter("severity = $%d", string(*filters.Severity))
	}
	if filters.RuleID != nil {
		addFilter("rule_id = $%d", *filters.RuleID)
	}
	if filters.StartTime != nil {
		addFilter("triggered_at >= $%d", *filters.StartTime)
	}
	if filters.EndTime != nil {
		addFilter("triggered_at <= $%d", *filters.EndTime)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	queryCount := fmt.Sprintf(`SELECT COUNT(*) FROM alerts %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`
		SELECT %s
		FROM alerts
		%s
		ORDER BY triggered_at DESC
		LIMIT $%d OFFSET $%d
	`, alertColumns, whereClause, argN, argN+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, total, nil
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var alert models.Alert
	var acknowledgedAt, resolvedAt sql.NullTime
	var acknowledgedBy, resolvedBy, notes sql.NullString

	err := row.Scan(
		&alert.AlertID,
		&alert.PatientID,
		&alert.VitalSignReadingID,
		&alert.RuleID,
		&alert.Severity,
		&alert.Message,
		&alert.TriggeredAt,
		&alert.Status,
		&acknowledgedAt,
		&acknowledgedBy,
		&resolvedAt,
		&resolvedBy,
		&notes,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if acknowledgedAt.Valid {
		alert.AcknowledgedAt = &acknowledgedAt.Time
	}
	if acknowledgedBy.Valid {
		alert.AcknowledgedBy = &acknowledgedBy.String
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}
	if resolvedBy.Valid {
		alert.ResolvedBy = &resolvedBy.String
	}
	if notes.Valid {
		alert.Notes = &notes.String
	}
	return &alert, nil
}
