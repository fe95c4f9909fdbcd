package compliance

import (
	"fmt"
	"time"

	"herbtrace/internal/model"
)

// Verdict is the outcome of a compliance check.
type Verdict struct {
	IsCompliant bool                   `json:"isCompliant"`
	Status      model.ComplianceStatus `json:"status"`
	Message     string                 `json:"message"`
}

const noRulesMessage = "Compliance rules not found for this plant."

// Evaluate checks plant against the rule set at coord and now.
//
// Order matters: an unknown plant is NO_RULES, then the protected zone is
// checked before the season, so a harvest inside a reserve is PROTECTED_ZONE
// even when in season. The month is taken from now in its own location.
func (rs *RuleSet) Evaluate(plant string, coord model.Coordinate, now time.Time) Verdict {
	rule, ok := rs.rules[plant]
	if !ok {
		return Verdict{
			IsCompliant: false,
			Status:      model.StatusNoRules,
			Message:     noRulesMessage,
		}
	}

	if z := rule.ProtectedZone; z != nil && z.StrictlyContains(coord.Latitude, coord.Longitude) {
		return Verdict{
			IsCompliant: false,
			Status:      model.StatusProtectedZone,
			Message:     fmt.Sprintf("WARNING: You are in a Protected Bio-Reserve for %s. Harvesting is Prohibited.", plant),
		}
	}

	month := int(now.Month()) - 1
	if !rule.Season.Contains(month) {
		return Verdict{
			IsCompliant: false,
			Status:      model.StatusOutOfSeason,
			Message: fmt.Sprintf("Halted: %s is out of its harvest season (Current: %s). Please consult NMPB guidelines.",
				plant, now.Month()),
		}
	}

	return Verdict{
		IsCompliant: true,
		Status:      model.StatusCompliant,
		Message:     fmt.Sprintf("NMPB Compliant Zone for %s. Ready to commit to the ledger.", plant),
	}
}
