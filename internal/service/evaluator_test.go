package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medguard-interaction-server/internal/dataset"
	"github.com/medguard-interaction-server/internal/domain"
)

func createTestEngine(t *testing.T) *EvaluationEngine {
	t.Helper()
	logger := testLogger()
	ds := dataset.Default()

	resolver, err := NewCachedDrugResolver(ds, ResolverConfig{}, nil, nil, logger)
	require.NoError(t, err)
	store, err := NewRuleStore(ds, logger)
	require.NoError(t, err)
	matcher := NewPatientSafetyMatcher(ds, logger)

	engine, err := NewEvaluationEngine(resolver, store, matcher, logger)
	require.NoError(t, err)
	return engine
}

func medications(names ...string) []domain.MedicationInput {
	meds := make([]domain.MedicationInput, len(names))
	for i, name := range names {
		meds[i] = domain.MedicationInput{Name: name}
	}
	return meds
}

func TestEvaluate_KnownInteractionPair(t *testing.T) {
	engine := createTestEngine(t)

	result, err := engine.Evaluate(context.Background(), &domain.EvaluationRequest{
		Medications: medications("warfarin", "aspirin"),
	})
	require.NoError(t, err)

	require.Len(t, result.Interactions, 1)
	assert.Equal(t, domain.SeverityMajor, result.Interactions[0].Severity)
	assert.Equal(t, 8, result.OverallRiskScore)
	assert.Equal(t, domain.RiskTierHigh, result.OverallRisk)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "2024.1-builtin", result.RuleSetVersion)

	require.NotEmpty(t, result.Recommendations)
	assert.Equal(t, domain.PriorityHigh, result.Recommendations[0].Priority)
	assert.Contains(t, result.Recommendations[0].Message, "bleeding")
}

func TestEvaluate_ContraindicatedByCondition(t *testing.T) {
	engine := createTestEngine(t)

	result, err := engine.Evaluate(context.Background(), &domain.EvaluationRequest{
		Medications: medications("metformin"),
		Profile:     domain.PatientProfile{Conditions: []string{"kidney disease"}},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Interactions)
	require.NotEmpty(t, result.Contraindications)
	assert.Equal(t, "metformin", result.Contraindications[0].Drug)
	assert.Equal(t, 8, result.OverallRiskScore)
	assert.Equal(t, domain.RiskTierHigh, result.OverallRisk)
}

func TestEvaluate_SameClassDuplication(t *testing.T) {
	engine := createTestEngine(t)

	result, err := engine.Evaluate(context.Background(), &domain.EvaluationRequest{
		Medications: medications("ibuprofen", "naproxen"),
	})
	require.NoError(t, err)

	require.Len(t, result.Interactions, 1)
	assert.Equal(t, "same-class duplication", result.Interactions[0].Mechanism)
	assert.Equal(t, domain.SeverityModerate, result.Interactions[0].Severity)
	assert.Equal(t, 4, result.OverallRiskScore)
	assert.Equal(t, domain.RiskTierModerate, result.OverallRisk)
}

func TestEvaluate_AllergyConflict(t *testing.T) {
	engine := createTestEngine(t)

	result, err := engine.Evaluate(context.Background(), &domain.EvaluationRequest{
		Medications: medications("amoxicillin"),
		Profile:     domain.PatientProfile{Allergies: []string{"penicillin"}},
	})
	require.NoError(t, err)

	require.Len(t, result.Allergies, 1)
	assert.Equal(t, "amoxicillin", result.Allergies[0].Drug)
	assert.Equal(t, 10, result.OverallRiskScore)
	assert.Equal(t, domain.RiskTierHigh, result.OverallRisk)

	require.NotEmpty(t, result.Recommendations)
	assert.Equal(t, domain.RecommendationAllergy, result.Recommendations[0].Type)
}

func TestEvaluate_MinorInteractionIsLowRisk(t *testing.T) {
	engine := createTestEngine(t)

	result, err := engine.Evaluate(context.Background(), &domain.EvaluationRequest{
		Medications: medications("omeprazole", "aspirin"),
	})
	require.NoError(t, err)

	require.Len(t, result.Interactions, 1)
	assert.Equal(t, domain.SeverityMinor, result.Interactions[0].Severity)
	assert.Equal(t, 1, result.OverallRiskScore)
	assert.Equal(t, domain.RiskTierLow, result.OverallRisk)

	for _, rec := range result.Recommendations {
		assert.NotEqual(t, domain.PriorityHigh, rec.Priority)
	}
}

func TestEvaluate_UnresolvedDrugIsNeverSilentlySafe(t *testing.T) {
	engine := createTestEngine(t)

	result, err := engine.Evaluate(context.Background(), &domain.EvaluationRequest{
		Medications: medications("warfarin", "totallymadeupdrug"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.UnresolvedCount())

	require.Len(t, result.Medications, 2)
	assert.True(t, result.Medications[0].Resolved)
	assert.False(t, result.Medications[1].Resolved)
	assert.NotEmpty(t, result.Medications[1].Warning)

	// The unresolved drug contributes an unknown finding, not silence.
	require.Len(t, result.Interactions, 1)
	assert.Equal(t, domain.SeverityUnknown, result.Interactions[0].Severity)
	assert.Equal(t, 1, result.Interactions[0].RiskScore)
	assert.Equal(t, domain.RiskTierLow, result.OverallRisk)

	var verifyRec *domain.Recommendation
	for i := range result.Recommendations {
		if result.Recommendations[i].Type == domain.RecommendationVerifyDrug {
			verifyRec = &result.Recommendations[i]
		}
	}
	require.NotNil(t, verifyRec, "unresolved drug must produce a verification recommendation")
	assert.Contains(t, verifyRec.Message, "totallymadeupdrug")
}

func TestEvaluate_EmptyMedicationList(t *testing.T) {
	engine := createTestEngine(t)

	_, err := engine.Evaluate(context.Background(), &domain.EvaluationRequest{})
	require.Error(t, err)
	assert.True(t, domain.IsInvalidInput(err))
}

func TestEvaluate_BlankMedicationName(t *testing.T) {
	engine := createTestEngine(t)

	_, err := engine.Evaluate(context.Background(), &domain.EvaluationRequest{
		Medications: medications("warfarin", "  "),
	})
	require.Error(t, err)
	assert.True(t, domain.IsInvalidInput(err))
}

func TestEvaluate_Deterministic(t *testing.T) {
	engine := createTestEngine(t)

	req := &domain.EvaluationRequest{
		Medications: medications("warfarin", "aspirin", "ibuprofen", "sertraline", "metformin"),
		Profile: domain.PatientProfile{
			Allergies:  []string{"sulfa"},
			Conditions: []string{"kidney disease"},
		},
	}

	first, err := engine.Evaluate(context.Background(), req)
	require.NoError(t, err)
	second, err := engine.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Interactions, second.Interactions)
	assert.Equal(t, first.Allergies, second.Allergies)
	assert.Equal(t, first.Contraindications, second.Contraindications)
	assert.Equal(t, first.OverallRiskScore, second.OverallRiskScore)
	assert.Equal(t, first.OverallRisk, second.OverallRisk)
	assert.Equal(t, first.Recommendations, second.Recommendations)
}

func TestEvaluate_ScoreMonotonicity(t *testing.T) {
	engine := createTestEngine(t)

	smaller, err := engine.Evaluate(context.Background(), &domain.EvaluationRequest{
		Medications: medications("warfarin", "aspirin"),
	})
	require.NoError(t, err)

	larger, err := engine.Evaluate(context.Background(), &domain.EvaluationRequest{
		Medications: medications("warfarin", "aspirin", "ibuprofen"),
	})
	require.NoError(t, err)

	assert.Greater(t, larger.OverallRiskScore, smaller.OverallRiskScore,
		"adding an interacting drug must not lower the overall score")
}

func TestEvaluate_PairCacheSurvivesRepeatCalls(t *testing.T) {
	engine := createTestEngine(t)
	req := &domain.EvaluationRequest{Medications: medications("warfarin", "aspirin")}

	for i := 0; i < 3; i++ {
		result, err := engine.Evaluate(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, result.Interactions, 1)
		assert.Equal(t, 8, result.Interactions[0].RiskScore)
	}
}

func TestEvaluate_DosageEchoedBack(t *testing.T) {
	engine := createTestEngine(t)

	result, err := engine.Evaluate(context.Background(), &domain.EvaluationRequest{
		Medications: []domain.MedicationInput{
			{Name: "warfarin", Dosage: "5mg", Frequency: "daily", Route: "oral"},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Medications, 1)
	assert.Equal(t, "5mg", result.Medications[0].Dosage)
	assert.Equal(t, "daily", result.Medications[0].Frequency)
	assert.Equal(t, "oral", result.Medications[0].Route)
}
