package engine

import (
	"sort"

	"carewatch-alert/internal/models"
)

// MatchRules selects the active rules applicable to one patient and channel:
// vital-sign type matches and the rule is either global or scoped to the
// patient. Every matching rule stays armed. A patient-specific rule does
// NOT suppress the global rule for the same channel; both are evaluated
// independently. Patient-specific rules are ordered before global ones so
// the evaluator's output order is stable.
func MatchRules(rules []models.AlertRule, patientID string, vitalType models.VitalSignType) []models.AlertRule {
	matched := make([]models.AlertRule, 0, len(rules))
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		if rule.VitalSignType != vitalType {
			continue
		}
		if !rule.AppliesTo(patientID) {
			continue
		}
		matched = append(matched, rule)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return !matched[i].IsGlobal() && matched[j].IsGlobal()
	})
	return matched
}
