package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medguard-interaction-server/internal/domain"
)

func TestRecommender_Build(t *testing.T) {
	recommender := NewRecommender()

	t.Run("Interaction_Priorities_Follow_Severity", func(t *testing.T) {
		result := &domain.EvaluationResult{
			Interactions: []domain.InteractionFinding{
				{DrugA: "a", DrugB: "b", Severity: domain.SeverityContraindicated, Recommendation: "do not combine"},
				{DrugA: "c", DrugB: "d", Severity: domain.SeverityModerate, Recommendation: "review"},
				{DrugA: "e", DrugB: "f", Severity: domain.SeverityMinor, Recommendation: "note"},
			},
			OverallRiskScore: 15,
		}

		recs := recommender.Build(result)
		require.Len(t, recs, 4) // 3 interactions + monitoring

		assert.Equal(t, domain.PriorityHigh, recs[0].Priority)
		assert.Equal(t, domain.PriorityMedium, recs[1].Priority)
		// Monitoring is medium priority and generated last, so the stable
		// sort places it after the moderate interaction.
		assert.Equal(t, domain.RecommendationMonitoring, recs[2].Type)
		assert.Equal(t, domain.PriorityMedium, recs[2].Priority)
		assert.Equal(t, domain.PriorityLow, recs[3].Priority)
	})

	t.Run("Allergy_And_Contraindication_Are_High_Priority", func(t *testing.T) {
		result := &domain.EvaluationResult{
			Allergies: []domain.AllergyFinding{
				{Drug: "amoxicillin", Allergen: "penicillin", Alternatives: []string{"azithromycin"}},
			},
			Contraindications: []domain.ContraindicationFinding{
				{Drug: "metformin", Condition: "kidney disease"},
			},
			OverallRiskScore: 18,
		}

		recs := recommender.Build(result)
		require.Len(t, recs, 3)

		assert.Equal(t, domain.RecommendationAllergy, recs[0].Type)
		assert.Equal(t, domain.PriorityHigh, recs[0].Priority)
		assert.Contains(t, recs[0].Message, "azithromycin")

		assert.Equal(t, domain.RecommendationContraindication, recs[1].Type)
		assert.Equal(t, domain.PriorityHigh, recs[1].Priority)
	})

	t.Run("Unresolved_Drug_Gets_Verification_Instruction", func(t *testing.T) {
		result := &domain.EvaluationResult{
			Medications: []domain.MedicationEntry{
				{OriginalName: "aspirin", Resolved: true},
				{OriginalName: "aspirinn", Resolved: false},
			},
			OverallRiskScore: 1,
		}

		recs := recommender.Build(result)
		require.Len(t, recs, 2)

		assert.Equal(t, domain.RecommendationVerifyDrug, recs[0].Type)
		assert.Equal(t, domain.PriorityMedium, recs[0].Priority)
		assert.Contains(t, recs[0].Message, "aspirinn")
		assert.Contains(t, recs[0].Message, "not checked")
	})

	t.Run("No_Findings_No_Recommendations", func(t *testing.T) {
		result := &domain.EvaluationResult{
			Medications: []domain.MedicationEntry{
				{OriginalName: "metformin", Resolved: true},
			},
		}
		assert.Empty(t, recommender.Build(result))
	})

	t.Run("Sort_Is_Stable_Within_Priority", func(t *testing.T) {
		result := &domain.EvaluationResult{
			Interactions: []domain.InteractionFinding{
				{DrugA: "first", DrugB: "x", Severity: domain.SeverityMajor, Recommendation: "one"},
				{DrugA: "second", DrugB: "y", Severity: domain.SeverityMajor, Recommendation: "two"},
			},
			OverallRiskScore: 15,
		}

		recs := recommender.Build(result)
		require.GreaterOrEqual(t, len(recs), 2)
		assert.Equal(t, "one", recs[0].Message)
		assert.Equal(t, "two", recs[1].Message)
	})

	t.Run("Fallback_Message_When_Rule_Has_No_Recommendation", func(t *testing.T) {
		result := &domain.EvaluationResult{
			Interactions: []domain.InteractionFinding{
				{DrugA: "digoxin", DrugB: "furosemide", Severity: domain.SeverityModerate, Description: "potassium loss"},
			},
			OverallRiskScore: 5,
		}

		recs := recommender.Build(result)
		require.NotEmpty(t, recs)
		assert.Contains(t, recs[0].Message, "digoxin")
		assert.Contains(t, recs[0].Message, "potassium loss")
	})
}
