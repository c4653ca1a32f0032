package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/medguard-interaction-server/internal/domain"
)

// Recommender turns findings into prioritized human-actionable instructions.
// Stateless; output order is deterministic for identical input.
type Recommender struct{}

// NewRecommender creates a recommender.
func NewRecommender() *Recommender {
	return &Recommender{}
}

// Build generates recommendations for every finding plus a monitoring
// instruction when anything at all was found. The result is sorted by
// priority, high first, with ties keeping generation order.
func (r *Recommender) Build(result *domain.EvaluationResult) []domain.Recommendation {
	var recs []domain.Recommendation

	for _, finding := range result.Interactions {
		message := finding.Recommendation
		if message == "" {
			message = fmt.Sprintf("Review combination of %s and %s: %s", finding.DrugA, finding.DrugB, finding.Description)
		}
		recs = append(recs, domain.Recommendation{
			Type:         domain.RecommendationInteraction,
			Priority:     interactionPriority(finding.Severity),
			Message:      message,
			RelatedDrugs: relatedDrugs(finding),
		})
	}

	for _, finding := range result.Allergies {
		message := fmt.Sprintf("Do not administer %s: patient has a declared %s allergy", finding.Drug, finding.Allergen)
		if len(finding.Alternatives) > 0 {
			message += "; consider " + strings.Join(finding.Alternatives, " or ")
		}
		recs = append(recs, domain.Recommendation{
			Type:         domain.RecommendationAllergy,
			Priority:     domain.PriorityHigh,
			Message:      message,
			RelatedDrugs: []string{finding.Drug},
		})
	}

	for _, finding := range result.Contraindications {
		recs = append(recs, domain.Recommendation{
			Type:         domain.RecommendationContraindication,
			Priority:     domain.PriorityHigh,
			Message:      fmt.Sprintf("Avoid %s: contraindicated with %s", finding.Drug, finding.Condition),
			RelatedDrugs: []string{finding.Drug},
		})
	}

	// Unresolved names get an explicit verification instruction. Silence here
	// would read as "checked and safe".
	for _, med := range result.Medications {
		if med.Resolved {
			continue
		}
		recs = append(recs, domain.Recommendation{
			Type:         domain.RecommendationVerifyDrug,
			Priority:     domain.PriorityMedium,
			Message:      fmt.Sprintf("Verify medication name %q: it could not be matched to a known drug and was not checked for interactions", med.OriginalName),
			RelatedDrugs: []string{med.OriginalName},
		})
	}

	if result.OverallRiskScore > 0 {
		recs = append(recs, domain.Recommendation{
			Type:     domain.RecommendationMonitoring,
			Priority: domain.PriorityMedium,
			Message:  "Monitor the patient for adverse effects while on this medication regimen",
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() > recs[j].Priority.Rank()
	})

	return recs
}

// interactionPriority maps a finding severity to recommendation urgency.
func interactionPriority(severity domain.Severity) domain.Priority {
	switch severity {
	case domain.SeverityContraindicated, domain.SeverityMajor:
		return domain.PriorityHigh
	case domain.SeverityModerate:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

func relatedDrugs(finding domain.InteractionFinding) []string {
	if finding.DrugB == "" {
		return []string{finding.DrugA}
	}
	return []string{finding.DrugA, finding.DrugB}
}
