package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityOrder(t *testing.T) {
	ordered := []Severity{
		SeverityUnknown,
		SeverityMinor,
		SeverityModerate,
		SeverityMajor,
		SeverityContraindicated,
	}

	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank(),
			"%s must outrank %s", ordered[i], ordered[i-1])
	}
}

func TestSeverityIsValid(t *testing.T) {
	assert.True(t, SeverityContraindicated.IsValid())
	assert.True(t, SeverityUnknown.IsValid())
	assert.False(t, Severity("severe").IsValid())
	assert.False(t, Severity("").IsValid())
}

func TestRiskTierRequiresClinicalAction(t *testing.T) {
	assert.True(t, RiskTierCritical.RequiresClinicalAction())
	assert.True(t, RiskTierHigh.RequiresClinicalAction())
	assert.True(t, RiskTierModerate.RequiresClinicalAction())
	assert.False(t, RiskTierLow.RequiresClinicalAction())
	assert.False(t, RiskTierMinimal.RequiresClinicalAction())

	// Unknown tiers are conservative.
	assert.True(t, RiskTier("mystery").RequiresClinicalAction())
}

func TestPriorityRank(t *testing.T) {
	assert.Greater(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Greater(t, PriorityMedium.Rank(), PriorityLow.Rank())
}

func TestEvaluationRequestValidate(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		req := &EvaluationRequest{
			Medications: []MedicationInput{{Name: "warfarin"}},
		}
		assert.NoError(t, req.Validate())
	})

	t.Run("empty medication list", func(t *testing.T) {
		req := &EvaluationRequest{}
		err := req.Validate()
		require.Error(t, err)
		assert.True(t, IsInvalidInput(err))
	})

	t.Run("blank medication name", func(t *testing.T) {
		req := &EvaluationRequest{
			Medications: []MedicationInput{{Name: "warfarin"}, {Name: "  "}},
		}
		err := req.Validate()
		require.Error(t, err)

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "medications[1].name", ve.Field)
	})
}

func TestInteractionRuleValidate(t *testing.T) {
	valid := InteractionRule{
		Members:       []string{"11289", "1191"},
		Severity:      SeverityMajor,
		Description:   "bleeding risk",
		BaseRiskScore: 8,
	}
	assert.NoError(t, valid.Validate())

	tooFewMembers := valid
	tooFewMembers.Members = []string{"11289"}
	assert.Error(t, tooFewMembers.Validate())

	badSeverity := valid
	badSeverity.Severity = "terrible"
	assert.ErrorIs(t, badSeverity.Validate(), ErrInvalidSeverity)

	zeroScore := valid
	zeroScore.BaseRiskScore = 0
	assert.Error(t, zeroScore.Validate())

	noDescription := valid
	noDescription.Description = ""
	assert.Error(t, noDescription.Validate())
}

func TestIsInvalidInput(t *testing.T) {
	assert.True(t, IsInvalidInput(NewValidationError("field", "bad", nil)))
	assert.True(t, IsInvalidInput(NewEngineError(CodeInvalidInput, "bad input", "")))
	assert.False(t, IsInvalidInput(NewEngineError(CodeInternalServer, "boom", "")))
	assert.False(t, IsInvalidInput(errors.New("plain error")))
}

func TestUnresolvedCount(t *testing.T) {
	result := &EvaluationResult{
		Medications: []MedicationEntry{
			{OriginalName: "warfarin", Resolved: true},
			{OriginalName: "mystery", Resolved: false},
			{OriginalName: "another", Resolved: false},
		},
	}
	assert.Equal(t, 2, result.UnresolvedCount())
}
