package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medguard-interaction-server/internal/dataset"
	"github.com/medguard-interaction-server/internal/domain"
)

// PatientSafetyMatcher implements domain.SafetyMatcher over the dataset's
// allergy records and the per-drug contraindication lists. Matching is
// case-insensitive throughout; unresolved drugs are skipped because they have
// no identity to match against.
type PatientSafetyMatcher struct {
	records []domain.AllergyRecord
	logger  *logrus.Logger
}

// NewPatientSafetyMatcher creates a safety matcher from a validated dataset.
func NewPatientSafetyMatcher(ds *dataset.Dataset, logger *logrus.Logger) *PatientSafetyMatcher {
	records := make([]domain.AllergyRecord, len(ds.Allergies))
	copy(records, ds.Allergies)
	return &PatientSafetyMatcher{
		records: records,
		logger:  logger,
	}
}

// CheckAllergies cross-references resolved drugs against the patient's
// declared allergies. A drug hits when its canonical id or display name
// appears in the allergen's cross-reactive set, or when the declared allergy
// names the drug directly.
func (m *PatientSafetyMatcher) CheckAllergies(drugs []*domain.DrugIdentity, allergies []string) []domain.AllergyFinding {
	if len(allergies) == 0 {
		return nil
	}

	var findings []domain.AllergyFinding
	for _, drug := range drugs {
		if drug == nil || !drug.Resolved {
			continue
		}
		for _, declared := range allergies {
			declared = strings.TrimSpace(strings.ToLower(declared))
			if declared == "" {
				continue
			}

			if record := m.findRecord(declared); record != nil {
				if crossReacts(record, drug) {
					findings = append(findings, domain.AllergyFinding{
						Drug:         drug.DisplayName,
						Allergen:     record.Allergen,
						Severity:     record.Severity,
						Symptoms:     record.Symptoms,
						Alternatives: record.Alternatives,
					})
					continue
				}
			}

			// A declared allergy naming the drug itself always hits, even
			// without a curated record.
			if declared == strings.ToLower(drug.DisplayName) || declared == strings.ToLower(drug.CanonicalID) {
				findings = append(findings, domain.AllergyFinding{
					Drug:     drug.DisplayName,
					Allergen: declared,
					Severity: domain.SeverityMajor,
				})
			}
		}
	}

	if len(findings) > 0 {
		m.logger.WithFields(logrus.Fields{
			"allergy_findings": len(findings),
		}).Info("Allergy conflicts detected")
	}
	return findings
}

// CheckContraindications cross-references resolved drugs against the
// patient's conditions using bidirectional substring matching, so "kidney
// disease" hits both "chronic kidney disease" and "kidney" entries.
func (m *PatientSafetyMatcher) CheckContraindications(drugs []*domain.DrugIdentity, conditions []string) []domain.ContraindicationFinding {
	if len(conditions) == 0 {
		return nil
	}

	var findings []domain.ContraindicationFinding
	for _, drug := range drugs {
		if drug == nil || !drug.Resolved {
			continue
		}
		for _, contraindication := range drug.Contraindications {
			for _, condition := range conditions {
				condition = strings.TrimSpace(condition)
				if condition == "" {
					continue
				}
				if conditionMatches(condition, contraindication) {
					findings = append(findings, domain.ContraindicationFinding{
						Drug:             drug.DisplayName,
						Condition:        condition,
						Contraindication: contraindication,
						Description:      drug.DisplayName + " is contraindicated in patients with " + contraindication,
					})
				}
			}
		}
	}

	if len(findings) > 0 {
		m.logger.WithFields(logrus.Fields{
			"contraindication_findings": len(findings),
		}).Info("Contraindications detected")
	}
	return findings
}

// findRecord returns the allergy record for a declared allergen, or nil.
func (m *PatientSafetyMatcher) findRecord(declared string) *domain.AllergyRecord {
	for i := range m.records {
		if strings.ToLower(m.records[i].Allergen) == declared {
			return &m.records[i]
		}
	}
	return nil
}

// crossReacts reports whether a drug appears in a record's cross-reactive
// set, by canonical id or display name.
func crossReacts(record *domain.AllergyRecord, drug *domain.DrugIdentity) bool {
	for _, member := range record.CrossReactive {
		if member == drug.CanonicalID || strings.EqualFold(member, drug.DisplayName) {
			return true
		}
	}
	return false
}

// conditionMatches reports whether a declared condition and a
// contraindication entry refer to the same condition. Substring containment
// runs both directions.
func conditionMatches(condition, contraindication string) bool {
	c := strings.ToLower(condition)
	ci := strings.ToLower(contraindication)
	return strings.Contains(c, ci) || strings.Contains(ci, c)
}
