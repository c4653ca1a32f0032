package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medguard-interaction-server/internal/domain"
)

func TestRiskAggregator_Score(t *testing.T) {
	aggregator := NewRiskAggregator()

	tests := []struct {
		name              string
		interactions      []domain.InteractionFinding
		allergies         []domain.AllergyFinding
		contraindications []domain.ContraindicationFinding
		expected          int
	}{
		{
			name:     "no findings",
			expected: 0,
		},
		{
			name: "interaction scores sum",
			interactions: []domain.InteractionFinding{
				{RiskScore: 8},
				{RiskScore: 4},
			},
			expected: 12,
		},
		{
			name:      "allergy weight",
			allergies: []domain.AllergyFinding{{Drug: "amoxicillin"}},
			expected:  10,
		},
		{
			name:              "contraindication weight",
			contraindications: []domain.ContraindicationFinding{{Drug: "metformin"}},
			expected:          8,
		},
		{
			name: "all categories combine",
			interactions: []domain.InteractionFinding{
				{RiskScore: 8},
			},
			allergies:         []domain.AllergyFinding{{Drug: "a"}},
			contraindications: []domain.ContraindicationFinding{{Drug: "b"}},
			expected:          26,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := aggregator.Score(tt.interactions, tt.allergies, tt.contraindications)
			assert.Equal(t, tt.expected, score)
		})
	}
}

func TestRiskAggregator_Tier(t *testing.T) {
	aggregator := NewRiskAggregator()

	tests := []struct {
		score    int
		expected domain.RiskTier
	}{
		{0, domain.RiskTierMinimal},
		{1, domain.RiskTierLow},
		{3, domain.RiskTierLow},
		{4, domain.RiskTierModerate},
		{7, domain.RiskTierModerate},
		{8, domain.RiskTierHigh},
		{14, domain.RiskTierHigh},
		{15, domain.RiskTierCritical},
		{40, domain.RiskTierCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, aggregator.Tier(tt.score), "score %d", tt.score)
	}
}

func TestRiskAggregator_ScoreMonotonicity(t *testing.T) {
	aggregator := NewRiskAggregator()

	base := []domain.InteractionFinding{{RiskScore: 5}}
	withExtra := append([]domain.InteractionFinding{{RiskScore: 3}}, base...)

	assert.Greater(t,
		aggregator.Score(withExtra, nil, nil),
		aggregator.Score(base, nil, nil),
		"adding a finding must never lower the score")
}
