package evaluator

import "github.com/justy6674/comply/model"

// riskLevel derives the report risk tier from the violation/warning tallies.
// The ladder only ever upgrades: a later step can never lower a level an
// earlier step established.
func riskLevel(violations, warnings []*model.Finding) model.RiskLevel {
	level := model.RiskLow

	for _, v := range violations {
		if v.Severity == model.SeverityCritical {
			return model.RiskCritical
		}
	}

	switch {
	case len(violations) >= 3:
		level = model.MaxRisk(level, model.RiskCritical)
	case len(violations) >= 2:
		level = model.MaxRisk(level, model.RiskHigh)
	case len(violations) >= 1 || len(warnings) >= 4:
		level = model.MaxRisk(level, model.RiskMedium)
	}

	return level
}

// clampScore bounds a raw score to [0,100]. Applied once after all penalties
// so rule ordering cannot produce clamping artifacts.
func clampScore(raw int) int {
	if raw < 0 {
		return 0
	}
	if raw > 100 {
		return 100
	}
	return raw
}
