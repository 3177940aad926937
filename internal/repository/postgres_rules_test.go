package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"carewatch-alert/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRuleMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresRuleRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresRuleRepository(db, zap.NewNop())
	return db, mock, repo
}

var ruleColumnNames = []string{
	"rule_id", "patient_id", "vital_sign_type", "severity", "comparator",
	"threshold", "threshold_max", "message_template", "active",
	"cooldown_minutes", "created_by", "created_at", "updated_at",
}

func TestFindApplicableRules_PatientSpecificAndGlobal(t *testing.T) {
	db, mock, repo := setupRuleMockDB(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(ruleColumnNames).
		AddRow("rule-patient", "patient-1", "HEART_RATE", "WARNING", "GREATER_THAN",
			110.0, nil, "Heart rate above personal limit: %.0f bpm", true, 25, "nurse-1", now, now).
		AddRow("rule-global", nil, "HEART_RATE", "CRITICAL", "GREATER_THAN",
			140.0, nil, "Critical high heart rate: %.0f bpm", true, 10, "system", now, now)

	mock.ExpectQuery(`SELECT`).
		WithArgs("HEART_RATE", "patient-1").
		WillReturnRows(rows)

	rules, err := repo.FindApplicableRules(context.Background(), "patient-1", models.VitalHeartRate)

	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "rule-patient", rules[0].RuleID)
	require.NotNil(t, rules[0].PatientID)
	assert.Equal(t, "patient-1", *rules[0].PatientID)
	assert.Equal(t, "rule-global", rules[1].RuleID)
	assert.Nil(t, rules[1].PatientID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindApplicableRules_BetweenRuleCarriesMax(t *testing.T) {
	db, mock, repo := setupRuleMockDB(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(ruleColumnNames).
		AddRow("rule-spo2", nil, "OXYGEN_SATURATION", "WARNING", "BETWEEN",
			88.0, 92.0, "Low oxygen saturation: %.0f%%", true, 20, "system", now, now)

	mock.ExpectQuery(`SELECT`).
		WithArgs("OXYGEN_SATURATION", "patient-1").
		WillReturnRows(rows)

	rules, err := repo.FindApplicableRules(context.Background(), "patient-1", models.VitalOxygenSaturation)

	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.NotNil(t, rules[0].ThresholdMax)
	assert.Equal(t, 92.0, *rules[0].ThresholdMax)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindApplicableRules_RequiresPatientID(t *testing.T) {
	db, _, repo := setupRuleMockDB(t)
	defer db.Close()

	_, err := repo.FindApplicableRules(context.Background(), "", models.VitalHeartRate)
	assert.Error(t, err)
}

func TestCountRules(t *testing.T) {
	db, mock, repo := setupRuleMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))

	count, err := repo.CountRules(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 17, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRule_NotFound(t *testing.T) {
	db, mock, repo := setupRuleMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetRule(context.Background(), "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRuleNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRules_TransactionCommits(t *testing.T) {
	db, mock, repo := setupRuleMockDB(t)
	defer db.Close()

	now := time.Now()
	rules := []models.AlertRule{
		{
			RuleID:          "rule-1",
			VitalSignType:   models.VitalHeartRate,
			Severity:        models.SeverityCritical,
			Comparator:      models.CompareGreaterThan,
			Threshold:       140,
			MessageTemplate: "Critical high heart rate: %.0f bpm",
			Active:          true,
			CooldownMinutes: 10,
			CreatedBy:       "system",
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		{
			RuleID:          "rule-2",
			VitalSignType:   models.VitalHeartRate,
			Severity:        models.SeverityCritical,
			Comparator:      models.CompareLessThan,
			Threshold:       40,
			MessageTemplate: "Critical low heart rate: %.0f bpm",
			Active:          true,
			CooldownMinutes: 10,
			CreatedBy:       "system",
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO alert_rules`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO alert_rules`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CreateRules(context.Background(), rules)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRules_FailureRollsBack(t *testing.T) {
	db, mock, repo := setupRuleMockDB(t)
	defer db.Close()

	now := time.Now()
	rules := []models.AlertRule{
		{RuleID: "rule-1", VitalSignType: models.VitalHeartRate, Severity: models.SeverityCritical,
			Comparator: models.CompareGreaterThan, Threshold: 140, MessageTemplate: "m",
			Active: true, CooldownMinutes: 10, CreatedBy: "system", CreatedAt: now, UpdatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO alert_rules`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.CreateRules(context.Background(), rules)

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRuleActive_NotFound(t *testing.T) {
	db, mock, repo := setupRuleMockDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE alert_rules`).
		WithArgs(false, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetRuleActive(context.Background(), "missing", false)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRuleNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRule_Success(t *testing.T) {
	db, mock, repo := setupRuleMockDB(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM alert_rules`).
		WithArgs("rule-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DeleteRule(context.Background(), "rule-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
