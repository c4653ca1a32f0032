package service

import (
	"github.com/medguard-interaction-server/internal/domain"
)

// Weight of each finding category in the overall risk score. Allergy and
// contraindication findings outweigh any single interaction because they are
// per-patient absolutes rather than probabilistic conflicts.
const (
	allergyFindingWeight          = 10
	contraindicationFindingWeight = 8
)

// Overall risk tier thresholds over the aggregate score.
const (
	criticalThreshold = 15
	highThreshold     = 8
	moderateThreshold = 4
	lowThreshold      = 1
)

// RiskAggregator folds findings into a single score and tier. Stateless.
type RiskAggregator struct{}

// NewRiskAggregator creates a risk aggregator.
func NewRiskAggregator() *RiskAggregator {
	return &RiskAggregator{}
}

// Score sums interaction risk scores with weighted allergy and
// contraindication counts. Adding a finding never lowers the score.
func (a *RiskAggregator) Score(
	interactions []domain.InteractionFinding,
	allergies []domain.AllergyFinding,
	contraindications []domain.ContraindicationFinding,
) int {
	score := 0
	for _, finding := range interactions {
		score += finding.RiskScore
	}
	score += len(allergies) * allergyFindingWeight
	score += len(contraindications) * contraindicationFindingWeight
	return score
}

// Tier maps an aggregate score to its risk tier.
func (a *RiskAggregator) Tier(score int) domain.RiskTier {
	switch {
	case score >= criticalThreshold:
		return domain.RiskTierCritical
	case score >= highThreshold:
		return domain.RiskTierHigh
	case score >= moderateThreshold:
		return domain.RiskTierModerate
	case score >= lowThreshold:
		return domain.RiskTierLow
	default:
		return domain.RiskTierMinimal
	}
}
