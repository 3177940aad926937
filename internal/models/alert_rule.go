package models

import (
	"time"
)

// Severity is the clinical weight of a rule and of the alerts it raises.
// CRITICAL outranks WARNING.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities (higher is more severe).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// IsValidSeverity reports whether s is a known severity.
func IsValidSeverity(s Severity) bool {
	return s == SeverityWarning || s == SeverityCritical
}

// ComparatorKind selects how a rule threshold is compared against a value.
type ComparatorKind string

const (
	CompareGreaterThan ComparatorKind = "GREATER_THAN"
	CompareLessThan    ComparatorKind = "LESS_THAN"
	CompareBetween     ComparatorKind = "BETWEEN"
	CompareEquals      ComparatorKind = "EQUALS"
)

// AlertRule is one configured threshold rule.
// PatientID == nil means a global rule applicable to every patient.
// ThresholdMax is required for BETWEEN and ignored by every other comparator.
type AlertRule struct {
	RuleID          string         `json:"rule_id"`
	PatientID       *string        `json:"patient_id,omitempty"`
	VitalSignType   VitalSignType  `json:"vital_sign_type"`
	Severity        Severity       `json:"severity"`
	Comparator      ComparatorKind `json:"comparator"`
	Threshold       float64        `json:"threshold"`
	ThresholdMax    *float64       `json:"threshold_max,omitempty"`
	MessageTemplate string         `json:"message_template"`
	Active          bool           `json:"active"`
	CooldownMinutes int            `json:"cooldown_minutes"`
	CreatedBy       string         `json:"created_by"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// IsGlobal reports whether the rule applies to every patient.
func (r *AlertRule) IsGlobal() bool {
	return r.PatientID == nil
}

// AppliesTo reports whether the rule is in scope for the given patient.
func (r *AlertRule) AppliesTo(patientID string) bool {
	return r.PatientID == nil || *r.PatientID == patientID
}

// Cooldown returns the rule cooldown as a duration.
func (r *AlertRule) Cooldown() time.Duration {
	return time.Duration(r.CooldownMinutes) * time.Minute
}
