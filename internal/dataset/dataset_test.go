package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medguard-interaction-server/internal/domain"
)

func TestDefaultDatasetIsValid(t *testing.T) {
	ds := Default()
	require.NoError(t, ds.Validate())
	assert.Equal(t, "2024.1-builtin", ds.Version)
	assert.NotEmpty(t, ds.Drugs)
	assert.NotEmpty(t, ds.Rules)
	assert.NotEmpty(t, ds.Allergies)
}

func TestDefaultDatasetRuleMembersResolve(t *testing.T) {
	ds := Default()

	ids := make(map[string]bool)
	classes := make(map[string]bool)
	for _, entry := range ds.Drugs {
		ids[entry.Identity.CanonicalID] = true
		if entry.Identity.PharmacologicClass != "" {
			classes[entry.Identity.PharmacologicClass] = true
		}
	}

	for _, rule := range ds.Rules {
		for _, member := range rule.Members {
			if class, ok := strings.CutPrefix(member, ClassPrefix); ok {
				assert.True(t, classes[class], "rule class token %q has no dictionary member", member)
			} else {
				assert.True(t, ids[member], "rule member %q is not a dictionary canonical id", member)
			}
		}
	}
}

func TestValidateRejectsDefects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(ds *Dataset)
		wantErr string
	}{
		{
			name:    "missing version",
			mutate:  func(ds *Dataset) { ds.Version = "" },
			wantErr: "version",
		},
		{
			name:    "blank generic name",
			mutate:  func(ds *Dataset) { ds.Drugs[0].GenericName = " " },
			wantErr: "generic name",
		},
		{
			name:    "duplicate generic name",
			mutate:  func(ds *Dataset) { ds.Drugs[1].GenericName = ds.Drugs[0].GenericName },
			wantErr: "duplicate",
		},
		{
			name:    "unresolved dictionary identity",
			mutate:  func(ds *Dataset) { ds.Drugs[0].Identity.Resolved = false },
			wantErr: "resolved",
		},
		{
			name:    "rule with one member",
			mutate:  func(ds *Dataset) { ds.Rules[0].Members = ds.Rules[0].Members[:1] },
			wantErr: "rule 0 is malformed",
		},
		{
			name:    "rule with invalid severity",
			mutate:  func(ds *Dataset) { ds.Rules[0].Severity = "catastrophic" },
			wantErr: "rule 0 is malformed",
		},
		{
			name:    "rule with zero score",
			mutate:  func(ds *Dataset) { ds.Rules[0].BaseRiskScore = 0 },
			wantErr: "rule 0 is malformed",
		},
		{
			name:    "allergy record without allergen",
			mutate:  func(ds *Dataset) { ds.Allergies[0].Allergen = "" },
			wantErr: "record 0 is malformed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := Default()
			tt.mutate(ds)

			err := ds.Validate()
			require.Error(t, err)

			var engineErr *domain.EngineError
			require.ErrorAs(t, err, &engineErr)
			assert.Equal(t, domain.CodeRuleStoreLoad, engineErr.Code)
			assert.Contains(t, strings.ToLower(err.Error()), tt.wantErr)
		})
	}
}

func TestScenarioPairsHaveRules(t *testing.T) {
	ds := Default()

	// Clinically load-bearing pairs that must stay in the built-in rule set.
	pairs := [][2]string{
		{"11289", "1191"},  // warfarin + aspirin
		{"36567", "21212"}, // simvastatin + clarithromycin
		{"7646", "1191"},   // omeprazole + aspirin
	}

	for _, pair := range pairs {
		found := false
		for _, rule := range ds.Rules {
			if len(rule.Members) == 2 &&
				((rule.Members[0] == pair[0] && rule.Members[1] == pair[1]) ||
					(rule.Members[0] == pair[1] && rule.Members[1] == pair[0])) {
				found = true
				break
			}
		}
		assert.True(t, found, "no rule for pair %v", pair)
	}
}
