package repository

import (
	"context"
	"database/sql"
	"fmt"

	"carewatch-alert/internal/models"

	"go.uber.org/zap"
)

// PostgresRuleRepository implements RuleRepository over the alert_rules table.
type PostgresRuleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresRuleRepository creates the Postgres rule repository.
func NewPostgresRuleRepository(db *sql.DB, logger *zap.Logger) *PostgresRuleRepository {
	return &PostgresRuleRepository{
		db:     db,
		logger: logger,
	}
}

const ruleColumns = `
	rule_id,
	patient_id,
	vital_sign_type,
	severity,
	comparator,
	threshold,
	threshold_max,
	message_template,
	active,
	cooldown_minutes,
	created_by,
	created_at,
	updated_at
`

// FindApplicableRules returns active rules for (patient, vital-sign type).
// Patient-specific rules sort before global ones; both stay armed.
func (r *PostgresRuleRepository) FindApplicableRules(ctx context.Context, patientID string, vitalType models.VitalSignType) ([]models.AlertRule, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM alert_rules
		WHERE active = TRUE
		  AND vital_sign_type = $1
		  AND (patient_id IS NULL OR patient_id = $2)
		ORDER BY patient_id IS NULL, created_at
	`, ruleColumns)

	rows, err := r.db.QueryContext(ctx, query, string(vitalType), patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query applicable rules: %w", err)
	}
	defer rows.Close()

	rules := []models.AlertRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert rules: %w", err)
	}

	return rules, nil
}

// CountRules counts all rules (the seeder guard).
func (r *PostgresRuleRepository) CountRules(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alert_rules`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count alert rules: %w", err)
	}
	return count, nil
}

// GetRule fetches one rule by id.
func (r *PostgresRuleRepository) GetRule(ctx context.Context, ruleID string) (*models.AlertRule, error) {
	if ruleID == "" {
		return nil, fmt.Errorf("rule_id is required")
	}

	query := fmt.Sprintf(`SELECT %s FROM alert_rules WHERE rule_id = $1`, ruleColumns)

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, ruleID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: rule_id=%s", ErrRuleNotFound, ruleID)
		}
		return nil, fmt.Errorf("failed to get alert rule: %w", err)
	}
	return rule, nil
}

// CreateRule inserts one rule.
func (r *PostgresRuleRepository) CreateRule(ctx context.Context, rule *models.AlertRule) error {
	if rule == nil {
		return fmt.Errorf("rule is required")
	}
	return insertRule(ctx, r.db, rule)
}

// CreateRules inserts a batch of rules in one transaction. Used by the
// seeder: a partial baseline set must never survive a failed bootstrap.
func (r *PostgresRuleRepository) CreateRules(ctx context.Context, rules []models.AlertRule) error {
	if len(rules) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range rules {
		if err := insertRule(ctx, tx, &rules[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rules: %w", err)
	}
	return nil
}

// UpdateRule rewrites the mutable fields of an existing rule.
func (r *PostgresRuleRepository) UpdateRule(ctx context.Context, rule *models.AlertRule) error {
	if rule == nil {
		return fmt.Errorf("rule is required")
	}
	if rule.RuleID == "" {
		return fmt.Errorf("rule_id is required")
	}

	query := `
		UPDATE alert_rules
		SET patient_id = $1,
		    vital_sign_type = $2,
		    severity = $3,
		    comparator = $4,
		    threshold = $5,
		    threshold_max = $6,
		    message_template = $7,
		    active = $8,
		    cooldown_minutes = $9,
		    updated_at = $10
		WHERE rule_id = $11
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.PatientID,
		string(rule.VitalSignType),
		string(rule.Severity),
		string(rule.Comparator),
		rule.Threshold,
		rule.ThresholdMax,
		rule.MessageTemplate,
		rule.Active,
		rule.CooldownMinutes,
		rule.UpdatedAt,
		rule.RuleID,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert rule: %w", err)
	}
	return requireRuleRow(result, rule.RuleID)
}

// SetRuleActive toggles a rule without deleting it.
func (r *PostgresRuleRepository) SetRuleActive(ctx context.Context, ruleID string, active bool) error {
	if ruleID == "" {
		return fmt.Errorf("rule_id is required")
	}

	query := `
		UPDATE alert_rules
		SET active = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE rule_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, active, ruleID)
	if err != nil {
		return fmt.Errorf("failed to set rule active: %w", err)
	}
	return requireRuleRow(result, ruleID)
}

// DeleteRule removes a rule permanently.
func (r *PostgresRuleRepository) DeleteRule(ctx context.Context, ruleID string) error {
	if ruleID == "" {
		return fmt.Errorf("rule_id is required")
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE rule_id = $1`, ruleID)
	if err != nil {
		return fmt.Errorf("failed to delete alert rule: %w", err)
	}
	return requireRuleRow(result, ruleID)
}

// execer covers *sql.DB and *sql.Tx for shared insert code.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertRule(ctx context.Context, db execer, rule *models.AlertRule) error {
	query := `
		INSERT INTO alert_rules (
			rule_id,
			patient_id,
			vital_sign_type,
			severity,
			comparator,
			threshold,
			threshold_max,
			message_template,
			active,
			cooldown_minutes,
			created_by,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	_, err := db.ExecContext(ctx, query,
		rule.RuleID,
		rule.PatientID,
		string(rule.VitalSignType),
		string(rule.Severity),
		string(rule.Comparator),
		rule.Threshold,
		rule.ThresholdMax,
		rule.MessageTemplate,
		rule.Active,
		rule.CooldownMinutes,
		rule.CreatedBy,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert rule: %w", err)
	}
	return nil
}

func requireRuleRow(result sql.Result, ruleID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: rule_id=%s", ErrRuleNotFound, ruleID)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*models.AlertRule, error) {
	var rule models.AlertRule
	var patientID sql.NullString
	var thresholdMax sql.NullFloat64

	err := row.Scan(
		&rule.RuleID,
		&patientID,
		&rule.VitalSignType,
		&rule.Severity,
		&rule.Comparator,
		&rule.Threshold,
		&thresholdMax,
		&rule.MessageTemplate,
		&rule.Active,
		&rule.CooldownMinutes,
		&rule.CreatedBy,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if patientID.Valid {
		rule.PatientID = &patientID.String
	}
	if thresholdMax.Valid {
		rule.ThresholdMax = &thresholdMax.Float64
	}
	return &rule, nil
}
