// Package dataset holds the static reference data the evaluation engine is
// loaded with: the local drug dictionary, the pairwise interaction rule set
// and the allergy cross-reactivity records. The built-in tables are
// illustrative placeholder data at clinical-demo scale; a production
// deployment swaps them for a vetted pharmaceutical knowledge base through
// the same Dataset type without code changes.
package dataset

import (
	"fmt"
	"strings"

	"github.com/medguard-interaction-server/internal/domain"
)

// ClassPrefix marks a rule member that matches a pharmacologic class rather
// than a canonical drug id.
const ClassPrefix = "class:"

// DictionaryEntry maps a generic drug name and its brand aliases to a
// canonical identity.
type DictionaryEntry struct {
	GenericName string              `json:"generic_name"`
	Brands      []string            `json:"brands,omitempty"`
	Identity    domain.DrugIdentity `json:"identity"`
}

// Dataset is one immutable, versioned snapshot of reference data.
type Dataset struct {
	Version   string                   `json:"version"`
	Drugs     []DictionaryEntry        `json:"drugs"`
	Rules     []domain.InteractionRule `json:"rules"`
	Allergies []domain.AllergyRecord   `json:"allergies"`
}

// Validate checks the whole dataset before it is ever applied. Any defect is
// a fatal load error: rules are never partially applied.
func (d *Dataset) Validate() error {
	if d.Version == "" {
		return domain.NewEngineError(domain.CodeRuleStoreLoad, "dataset version is required", "")
	}
	seen := make(map[string]bool, len(d.Drugs))
	for i, entry := range d.Drugs {
		if strings.TrimSpace(entry.GenericName) == "" {
			return domain.NewEngineError(domain.CodeRuleStoreLoad,
				fmt.Sprintf("dictionary entry %d has no generic name", i), "")
		}
		if entry.Identity.CanonicalID == "" || !entry.Identity.Resolved {
			return domain.NewEngineError(domain.CodeRuleStoreLoad,
				fmt.Sprintf("dictionary entry %q has no resolved canonical identity", entry.GenericName), "")
		}
		key := strings.ToLower(entry.GenericName)
		if seen[key] {
			return domain.NewEngineError(domain.CodeRuleStoreLoad,
				fmt.Sprintf("duplicate dictionary entry %q", entry.GenericName), "")
		}
		seen[key] = true
	}
	for i, rule := range d.Rules {
		if err := rule.Validate(); err != nil {
			return domain.NewEngineError(domain.CodeRuleStoreLoad,
				fmt.Sprintf("interaction rule %d is malformed", i), err.Error())
		}
	}
	for i, record := range d.Allergies {
		if err := record.Validate(); err != nil {
			return domain.NewEngineError(domain.CodeRuleStoreLoad,
				fmt.Sprintf("allergy record %d is malformed", i), err.Error())
		}
	}
	return nil
}

// drug is a construction helper for the built-in dictionary.
func drug(id, generic, class string, risk domain.RiskLevel, brands, doseForms, contraindications []string) DictionaryEntry {
	return DictionaryEntry{
		GenericName: generic,
		Brands:      brands,
		Identity: domain.DrugIdentity{
			CanonicalID:        id,
			DisplayName:        generic,
			PharmacologicClass: class,
			RiskLevel:          risk,
			DoseForms:          doseForms,
			Contraindications:  contraindications,
			Resolved:           true,
			Source:             domain.SourceDictionary,
		},
	}
}

// Default returns the built-in reference dataset. Canonical ids follow the
// RxNorm concept id scheme.
func Default() *Dataset {
	return &Dataset{
		Version: "2024.1-builtin",
		Drugs: []DictionaryEntry{
			drug("11289", "warfarin", "anticoagulant", domain.RiskLevelHigh,
				[]string{"coumadin", "jantoven"},
				[]string{"tablet"},
				[]string{"active bleeding", "peptic ulcer disease"}),
			drug("1191", "aspirin", "nsaid", domain.RiskLevelMedium,
				[]string{"bayer", "ecotrin", "bufferin"},
				[]string{"tablet", "chewable tablet"},
				[]string{"active bleeding", "peptic ulcer disease"}),
			drug("5640", "ibuprofen", "nsaid", domain.RiskLevelMedium,
				[]string{"advil", "motrin"},
				[]string{"tablet", "suspension"},
				[]string{"peptic ulcer disease", "kidney disease"}),
			drug("7258", "naproxen", "nsaid", domain.RiskLevelMedium,
				[]string{"aleve", "naprosyn"},
				[]string{"tablet"},
				[]string{"peptic ulcer disease", "kidney disease"}),
			drug("6809", "metformin", "biguanide", domain.RiskLevelLow,
				[]string{"glucophage", "fortamet"},
				[]string{"tablet", "extended-release tablet"},
				[]string{"kidney disease", "renal impairment", "metabolic acidosis"}),
			drug("7646", "omeprazole", "proton pump inhibitor", domain.RiskLevelLow,
				[]string{"prilosec"},
				[]string{"capsule"},
				nil),
			drug("29046", "lisinopril", "ace inhibitor", domain.RiskLevelMedium,
				[]string{"zestril", "prinivil"},
				[]string{"tablet"},
				[]string{"pregnancy", "angioedema", "hyperkalemia"}),
			drug("723", "amoxicillin", "penicillin antibiotic", domain.RiskLevelLow,
				[]string{"amoxil"},
				[]string{"capsule", "suspension"},
				nil),
			drug("2231", "cephalexin", "cephalosporin antibiotic", domain.RiskLevelLow,
				[]string{"keflex"},
				[]string{"capsule"},
				nil),
			drug("36437", "sertraline", "ssri", domain.RiskLevelMedium,
				[]string{"zoloft"},
				[]string{"tablet"},
				nil),
			drug("10689", "tramadol", "opioid analgesic", domain.RiskLevelHigh,
				[]string{"ultram"},
				[]string{"tablet"},
				[]string{"seizure disorder"}),
			drug("36567", "simvastatin", "statin", domain.RiskLevelMedium,
				[]string{"zocor"},
				[]string{"tablet"},
				[]string{"liver disease"}),
			drug("21212", "clarithromycin", "macrolide antibiotic", domain.RiskLevelMedium,
				[]string{"biaxin"},
				[]string{"tablet"},
				nil),
			drug("9997", "spironolactone", "potassium-sparing diuretic", domain.RiskLevelMedium,
				[]string{"aldactone"},
				[]string{"tablet"},
				[]string{"hyperkalemia", "kidney disease"}),
			drug("3407", "digoxin", "cardiac glycoside", domain.RiskLevelHigh,
				[]string{"lanoxin"},
				[]string{"tablet"},
				[]string{"ventricular fibrillation"}),
			drug("4603", "furosemide", "loop diuretic", domain.RiskLevelMedium,
				[]string{"lasix"},
				[]string{"tablet", "injection"},
				[]string{"anuria"}),
			drug("32968", "clopidogrel", "antiplatelet", domain.RiskLevelHigh,
				[]string{"plavix"},
				[]string{"tablet"},
				[]string{"active bleeding"}),
		},
		Rules: []domain.InteractionRule{
			{
				Members:        []string{"11289", "1191"},
				Severity:       domain.SeverityMajor,
				Mechanism:      "additive anticoagulant and antiplatelet effect",
				Description:    "Warfarin combined with aspirin substantially increases bleeding risk.",
				Recommendation: "Avoid combination unless specifically indicated; significant bleeding risk.",
				Monitoring:     "Monitor INR closely and watch for signs of bleeding.",
				BaseRiskScore:  8,
			},
			{
				Members:        []string{"11289", "5640"},
				Severity:       domain.SeverityMajor,
				Mechanism:      "platelet inhibition plus anticoagulation",
				Description:    "Ibuprofen increases bleeding risk and may displace warfarin from protein binding.",
				Recommendation: "Avoid NSAIDs with warfarin; prefer acetaminophen for analgesia.",
				Monitoring:     "Monitor INR and hemoglobin if the combination is unavoidable.",
				BaseRiskScore:  7,
			},
			{
				Members:        []string{"7646", "32968"},
				Severity:       domain.SeverityMajor,
				Mechanism:      "CYP2C19 inhibition reduces clopidogrel activation",
				Description:    "Omeprazole can reduce the antiplatelet effect of clopidogrel.",
				Recommendation: "Consider pantoprazole or an H2 blocker instead of omeprazole.",
				Monitoring:     "Watch for reduced antiplatelet efficacy.",
				BaseRiskScore:  7,
			},
			{
				Members:        []string{"36567", "21212"},
				Severity:       domain.SeverityContraindicated,
				Mechanism:      "CYP3A4 inhibition raises statin exposure",
				Description:    "Clarithromycin markedly increases simvastatin levels; risk of rhabdomyolysis.",
				Recommendation: "Do not combine; suspend simvastatin during clarithromycin therapy.",
				Monitoring:     "Check creatine kinase if muscle symptoms occur.",
				BaseRiskScore:  10,
			},
			{
				Members:        []string{"29046", "9997"},
				Severity:       domain.SeverityMajor,
				Mechanism:      "additive potassium retention",
				Description:    "ACE inhibitors with potassium-sparing diuretics can cause severe hyperkalemia.",
				Recommendation: "Avoid combination or use the lowest effective doses.",
				Monitoring:     "Monitor serum potassium and renal function.",
				BaseRiskScore:  7,
			},
			{
				Members:        []string{"36437", "10689"},
				Severity:       domain.SeverityMajor,
				Mechanism:      "additive serotonergic activity",
				Description:    "Sertraline with tramadol increases the risk of serotonin syndrome and seizures.",
				Recommendation: "Avoid combination; choose a non-serotonergic analgesic.",
				Monitoring:     "Watch for agitation, hyperthermia, clonus.",
				BaseRiskScore:  8,
			},
			{
				Members:        []string{"3407", "4603"},
				Severity:       domain.SeverityModerate,
				Mechanism:      "diuretic-induced hypokalemia potentiates digoxin",
				Description:    "Furosemide-induced potassium loss increases digoxin toxicity risk.",
				Recommendation: "Monitor potassium and consider supplementation.",
				Monitoring:     "Check electrolytes and digoxin levels periodically.",
				BaseRiskScore:  5,
			},
			{
				Members:        []string{"7646", "1191"},
				Severity:       domain.SeverityMinor,
				Mechanism:      "altered gastric pH",
				Description:    "Omeprazole may slightly delay aspirin absorption; generally safe.",
				Recommendation: "No action needed; combination is commonly co-prescribed.",
				BaseRiskScore:  1,
			},
			{
				Members:        []string{ClassPrefix + "nsaid", ClassPrefix + "anticoagulant"},
				Severity:       domain.SeverityMajor,
				Mechanism:      "platelet inhibition plus anticoagulation",
				Description:    "Any NSAID combined with an anticoagulant increases bleeding risk.",
				Recommendation: "Avoid the combination; prefer acetaminophen for analgesia.",
				Monitoring:     "Monitor for bruising, GI bleeding, and anemia.",
				BaseRiskScore:  7,
			},
			{
				Members:        []string{ClassPrefix + "nsaid", ClassPrefix + "ssri"},
				Severity:       domain.SeverityModerate,
				Mechanism:      "impaired platelet serotonin uptake plus gastric irritation",
				Description:    "SSRIs with NSAIDs raise the risk of upper GI bleeding.",
				Recommendation: "Consider gastroprotection or an alternative analgesic.",
				Monitoring:     "Watch for melena and unexplained anemia.",
				BaseRiskScore:  4,
			},
		},
		Allergies: []domain.AllergyRecord{
			{
				Allergen:      "penicillin",
				CrossReactive: []string{"723", "amoxicillin", "2231", "cephalexin"},
				Severity:      domain.SeverityMajor,
				Symptoms:      []string{"rash", "hives", "anaphylaxis"},
				Alternatives:  []string{"azithromycin", "doxycycline"},
			},
			{
				Allergen:      "aspirin",
				CrossReactive: []string{"1191", "aspirin", "5640", "ibuprofen", "7258", "naproxen"},
				Severity:      domain.SeverityMajor,
				Symptoms:      []string{"bronchospasm", "hives", "angioedema"},
				Alternatives:  []string{"acetaminophen"},
			},
			{
				Allergen:      "sulfa",
				CrossReactive: []string{"4603", "furosemide"},
				Severity:      domain.SeverityModerate,
				Symptoms:      []string{"rash", "photosensitivity"},
				Alternatives:  []string{"ethacrynic acid"},
			},
		},
	}
}
