package models

import (
	"time"
)

// AlertStatus is the lifecycle state of an alert.
// NEW -> ACKNOWLEDGED -> RESOLVED; RESOLVED is terminal. Resolve is also
// allowed straight from NEW (acknowledge and resolve are independent
// operations). Alerts are never hard-deleted.
type AlertStatus string

const (
	AlertStatusNew          AlertStatus = "NEW"
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertStatusResolved     AlertStatus = "RESOLVED"
)

// Alert is one raised vital-sign alert.
// Severity is copied from the triggering rule at trigger time and never
// re-derived afterwards.
type Alert struct {
	AlertID            string      `json:"alert_id"`
	PatientID          string      `json:"patient_id"`
	VitalSignReadingID string      `json:"vital_sign_reading_id"`
	RuleID             string      `json:"rule_id"`
	Severity           Severity    `json:"severity"`
	Message            string      `json:"message"`
	TriggeredAt        time.Time   `json:"triggered_at"`
	Status             AlertStatus `json:"status"`
	AcknowledgedAt     *time.Time  `json:"acknowledged_at,omitempty"`
	AcknowledgedBy     *string     `json:"acknowledged_by,omitempty"`
	ResolvedAt         *time.Time  `json:"resolved_at,omitempty"`
	ResolvedBy         *string     `json:"resolved_by,omitempty"`
	Notes              *string     `json:"notes,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}
