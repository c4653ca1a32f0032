package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/medguard-interaction-server/internal/domain"
)

// EvaluationEngine implements domain.Evaluator. It sequences resolution,
// interaction lookup, safety checks, aggregation and recommendation. The
// engine is stateless between calls except for the pair lookup cache.
type EvaluationEngine struct {
	resolver    domain.DrugResolver
	rules       *RuleStore
	safety      domain.SafetyMatcher
	aggregator  *RiskAggregator
	recommender *Recommender

	// pairCache memoizes pairwise rule lookups keyed by canonical id pair and
	// rule set version, so repeat evaluations of common combinations skip the
	// rule scan.
	pairCache *lru.Cache[string, *domain.InteractionFinding]

	logger *logrus.Logger
}

// NewEvaluationEngine creates the evaluation orchestrator.
func NewEvaluationEngine(
	resolver domain.DrugResolver,
	rules *RuleStore,
	safety domain.SafetyMatcher,
	logger *logrus.Logger,
) (*EvaluationEngine, error) {
	pairCache, err := lru.New[string, *domain.InteractionFinding](4096)
	if err != nil {
		return nil, fmt.Errorf("failed to create pair cache: %w", err)
	}

	return &EvaluationEngine{
		resolver:    resolver,
		rules:       rules,
		safety:      safety,
		aggregator:  NewRiskAggregator(),
		recommender: NewRecommender(),
		pairCache:   pairCache,
		logger:      logger,
	}, nil
}

// Evaluate runs the full pipeline over one medication list. Unresolved names
// degrade to explicit unknown findings; only invalid input or a cancelled
// context produce an error.
func (e *EvaluationEngine) Evaluate(ctx context.Context, req *domain.EvaluationRequest) (*domain.EvaluationResult, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	names := make([]string, len(req.Medications))
	for i, med := range req.Medications {
		names[i] = med.Name
	}

	e.logger.WithFields(logrus.Fields{
		"medication_count": len(names),
		"allergy_count":    len(req.Profile.Allergies),
		"condition_count":  len(req.Profile.Conditions),
	}).Info("Starting medication evaluation")

	identities, err := e.resolver.ResolveAll(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("drug resolution failed: %w", err)
	}

	result := &domain.EvaluationResult{
		ID:             uuid.New().String(),
		Medications:    buildEntries(req.Medications, identities),
		RuleSetVersion: e.rules.Version(),
		EvaluatedAt:    start.UTC(),
	}

	result.Interactions = e.findInteractions(identities)
	result.Allergies = e.safety.CheckAllergies(identities, req.Profile.Allergies)
	result.Contraindications = e.safety.CheckContraindications(identities, req.Profile.Conditions)

	result.OverallRiskScore = e.aggregator.Score(result.Interactions, result.Allergies, result.Contraindications)
	result.OverallRisk = e.aggregator.Tier(result.OverallRiskScore)
	result.Recommendations = e.recommender.Build(result)

	e.logger.WithFields(logrus.Fields{
		"evaluation_id":      result.ID,
		"interaction_count":  len(result.Interactions),
		"allergy_count":      len(result.Allergies),
		"contraindications":  len(result.Contraindications),
		"unresolved_count":   result.UnresolvedCount(),
		"overall_risk_score": result.OverallRiskScore,
		"overall_risk":       result.OverallRisk.String(),
		"duration_ms":        time.Since(start).Milliseconds(),
	}).Info("Completed medication evaluation")

	return result, nil
}

// findInteractions combines cached pairwise lookups, same-class duplication
// checks and unknown findings for unresolved drugs.
func (e *EvaluationEngine) findInteractions(identities []*domain.DrugIdentity) []domain.InteractionFinding {
	var findings []domain.InteractionFinding

	for i := 0; i < len(identities); i++ {
		for j := i + 1; j < len(identities); j++ {
			if finding := e.findPairwiseCached(identities[i], identities[j]); finding != nil {
				findings = append(findings, *finding)
			}
		}
	}

	findings = append(findings, e.rules.FindSameClass(identities)...)

	// Unresolved drugs are flagged instead of skipped. "Could not check" must
	// never read as "checked and safe".
	for _, identity := range identities {
		if identity.Resolved {
			continue
		}
		findings = append(findings, domain.InteractionFinding{
			DrugA:       identity.DisplayName,
			Severity:    domain.SeverityUnknown,
			Description: fmt.Sprintf("%q could not be resolved to a known drug; interactions were not checked", identity.DisplayName),
			RiskScore:   1,
		})
	}

	sortFindings(findings)
	return findings
}

// findPairwiseCached wraps RuleStore.FindPairwise with the pair cache. Only
// resolved dictionary and terminology identities are cacheable.
func (e *EvaluationEngine) findPairwiseCached(a, b *domain.DrugIdentity) *domain.InteractionFinding {
	if a == nil || b == nil || !a.Resolved || !b.Resolved {
		return nil
	}

	key := pairKey(a.CanonicalID, b.CanonicalID, e.rules.Version())
	if finding, ok := e.pairCache.Get(key); ok {
		return finding
	}

	finding := e.rules.FindPairwise(a, b)
	e.pairCache.Add(key, finding)
	return finding
}

// pairKey builds an order-independent cache key. The rule set version is part
// of the key so a reload invalidates every cached lookup.
func pairKey(idA, idB, version string) string {
	if idA > idB {
		idA, idB = idB, idA
	}
	return version + "|" + idA + "|" + idB
}

// buildEntries joins the caller's inputs with their resolution outcomes,
// preserving input order.
func buildEntries(inputs []domain.MedicationInput, identities []*domain.DrugIdentity) []domain.MedicationEntry {
	entries := make([]domain.MedicationEntry, len(inputs))
	for i, input := range inputs {
		identity := identities[i]
		entry := domain.MedicationEntry{
			OriginalName: input.Name,
			Dosage:       input.Dosage,
			Frequency:    input.Frequency,
			Route:        input.Route,
			Identity:     identity,
			Resolved:     identity != nil && identity.Resolved,
		}
		if !entry.Resolved {
			entry.Warning = fmt.Sprintf("%q could not be matched to a known drug; it was not evaluated", input.Name)
		}
		entries[i] = entry
	}
	return entries
}
