package domain

import (
	"fmt"
	"strings"
	"time"
)

// DrugIdentity is the canonical representation of a drug, independent of
// brand name. It is created during resolution and never mutated afterwards;
// resolver caches hand out the same value to every caller.
type DrugIdentity struct {
	// CanonicalID is the terminology-system concept id. Empty when the drug
	// could not be resolved.
	CanonicalID        string         `json:"canonical_id,omitempty"`
	DisplayName        string         `json:"display_name"`
	PharmacologicClass string         `json:"pharmacologic_class,omitempty"`
	RiskLevel          RiskLevel      `json:"risk_level,omitempty"`
	DoseForms          []string       `json:"dose_forms,omitempty"`
	Contraindications  []string       `json:"contraindications,omitempty"`
	Resolved           bool           `json:"resolved"`
	Source             IdentitySource `json:"source"`
}

// MedicationInput is one item of the caller's medication list. Dosage,
// frequency and route are echoed back but never used in evaluation logic.
type MedicationInput struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Route     string `json:"route,omitempty"`
}

// MedicationEntry is a MedicationInput joined with its resolution outcome.
// Owned by a single evaluation request.
type MedicationEntry struct {
	OriginalName string        `json:"original_name"`
	Dosage       string        `json:"dosage,omitempty"`
	Frequency    string        `json:"frequency,omitempty"`
	Route        string        `json:"route,omitempty"`
	Identity     *DrugIdentity `json:"identity,omitempty"`
	Resolved     bool          `json:"resolved"`
	// Warning carries the resolution warning when the name could not be
	// canonicalized. Callers must surface it; "could not check" is never
	// allowed to read as "checked and safe".
	Warning string `json:"warning,omitempty"`
}

// PatientProfile carries the patient facts evaluated alongside the
// medication list.
type PatientProfile struct {
	Allergies  []string `json:"allergies,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
}

// EvaluationRequest is the orchestrator's input.
type EvaluationRequest struct {
	Medications []MedicationInput `json:"medications"`
	Profile     PatientProfile    `json:"profile"`
}

// Validate rejects invalid input before any evaluation stage runs.
func (r *EvaluationRequest) Validate() error {
	if len(r.Medications) == 0 {
		return NewValidationError("medications", "at least one medication is required", len(r.Medications))
	}
	for i, med := range r.Medications {
		if strings.TrimSpace(med.Name) == "" {
			return NewValidationError(fmt.Sprintf("medications[%d].name", i), "medication name must not be blank", med.Name)
		}
	}
	return nil
}

// InteractionRule is a severity-classified rule over a set of canonical drug
// identities or pharmacologic-class tokens. Rules are static: loaded once at
// startup, validated, and immutable afterwards.
type InteractionRule struct {
	// Members holds 2+ canonical ids or class tokens (prefixed "class:").
	// The rule fires when the evaluated pair is a superset of this set.
	Members        []string `json:"members"`
	Severity       Severity `json:"severity"`
	Mechanism      string   `json:"mechanism"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
	Monitoring     string   `json:"monitoring,omitempty"`
	BaseRiskScore  int      `json:"base_risk_score"`
}

// Validate ensures a rule is safe to apply. A malformed rule is a fatal
// load error, never a runtime condition.
func (r *InteractionRule) Validate() error {
	if len(r.Members) < 2 {
		return fmt.Errorf("interaction rule validation: rule requires at least 2 members, got %d", len(r.Members))
	}
	if !r.Severity.IsValid() {
		return fmt.Errorf("interaction rule validation: %w: %q", ErrInvalidSeverity, r.Severity)
	}
	if r.BaseRiskScore <= 0 {
		return fmt.Errorf("interaction rule validation: base risk score must be positive, got %d", r.BaseRiskScore)
	}
	if r.Description == "" {
		return fmt.Errorf("interaction rule validation: description is required")
	}
	return nil
}

// AllergyRecord is static reference data describing a declared allergen and
// the drugs that cross-react with it.
type AllergyRecord struct {
	Allergen      string   `json:"allergen"`
	CrossReactive []string `json:"cross_reactive"`
	Severity      Severity `json:"severity"`
	Symptoms      []string `json:"symptoms,omitempty"`
	Alternatives  []string `json:"alternatives,omitempty"`
}

// Validate ensures the allergy record is usable for matching.
func (a *AllergyRecord) Validate() error {
	if a.Allergen == "" {
		return fmt.Errorf("allergy record validation: allergen is required")
	}
	if !a.Severity.IsValid() {
		return fmt.Errorf("allergy record validation: %w: %q", ErrInvalidSeverity, a.Severity)
	}
	return nil
}

// InteractionFinding is one detected pairwise or same-class conflict.
type InteractionFinding struct {
	DrugA          string   `json:"drug_a"`
	DrugB          string   `json:"drug_b,omitempty"`
	Severity       Severity `json:"severity"`
	Mechanism      string   `json:"mechanism,omitempty"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation,omitempty"`
	RiskScore      int      `json:"risk_score"`
}

// AllergyFinding is a per-drug hit against the patient's declared allergies.
type AllergyFinding struct {
	Drug         string   `json:"drug"`
	Allergen     string   `json:"allergen"`
	Severity     Severity `json:"severity"`
	Symptoms     []string `json:"symptoms,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// ContraindicationFinding is a per-drug hit against the patient's conditions.
type ContraindicationFinding struct {
	Drug             string `json:"drug"`
	Condition        string `json:"condition"`
	Contraindication string `json:"contraindication"`
	Description      string `json:"description,omitempty"`
}

// Recommendation is one prioritized, human-actionable instruction derived
// from the findings.
type Recommendation struct {
	Type         RecommendationType `json:"type"`
	Priority     Priority           `json:"priority"`
	Message      string             `json:"message"`
	RelatedDrugs []string           `json:"related_drugs,omitempty"`
}

// EvaluationResult aggregates every finding for one medication list. It is
// produced fresh per call and never mutated after construction.
type EvaluationResult struct {
	ID                string                    `json:"id"`
	Medications       []MedicationEntry         `json:"medications"`
	Interactions      []InteractionFinding      `json:"interactions"`
	Allergies         []AllergyFinding          `json:"allergies"`
	Contraindications []ContraindicationFinding `json:"contraindications"`
	OverallRiskScore  int                       `json:"overall_risk_score"`
	OverallRisk       RiskTier                  `json:"overall_risk"`
	Recommendations   []Recommendation          `json:"recommendations"`
	RuleSetVersion    string                    `json:"rule_set_version"`
	EvaluatedAt       time.Time                 `json:"evaluated_at"`
}

// UnresolvedCount returns how many medications in the result failed identity
// resolution.
func (r *EvaluationResult) UnresolvedCount() int {
	count := 0
	for _, med := range r.Medications {
		if !med.Resolved {
			count++
		}
	}
	return count
}
