// Package domain contains core business entities and types for medication
// interaction and safety evaluation. A false "safe" result is a patient-safety
// bug, so every enum carries explicit validation and a fixed total order where
// the evaluation logic depends on one.
package domain

import (
	"errors"
)

// Severity represents the clinical danger of a single interaction finding.
// The set is fixed and totally ordered: contraindicated > major > moderate >
// minor > unknown. Any sorting of findings must respect this order.
type Severity string

const (
	SeverityContraindicated Severity = "contraindicated"
	SeverityMajor           Severity = "major"
	SeverityModerate        Severity = "moderate"
	SeverityMinor           Severity = "minor"
	SeverityUnknown         Severity = "unknown"
)

// RiskTier represents the aggregate classification of a whole medication
// list's combined risk.
type RiskTier string

const (
	RiskTierCritical RiskTier = "critical"
	RiskTierHigh     RiskTier = "high"
	RiskTierModerate RiskTier = "moderate"
	RiskTierLow      RiskTier = "low"
	RiskTierMinimal  RiskTier = "minimal"
)

// RiskLevel represents a drug's inherent risk classification, independent of
// any combination.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Priority represents how urgently a recommendation should be acted on.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// RecommendationType categorizes generated recommendations for callers that
// render or route them.
type RecommendationType string

const (
	RecommendationInteraction      RecommendationType = "interaction"
	RecommendationAllergy          RecommendationType = "allergy"
	RecommendationContraindication RecommendationType = "contraindication"
	RecommendationVerifyDrug       RecommendationType = "verify_medication"
	RecommendationMonitoring       RecommendationType = "monitoring"
)

// IdentitySource records where a drug identity was resolved from.
type IdentitySource string

const (
	SourceDictionary  IdentitySource = "dictionary"
	SourceTerminology IdentitySource = "terminology"
	SourceUnresolved  IdentitySource = "unresolved"
)

// Validation errors for medical data integrity
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidSeverity   = errors.New("invalid interaction severity")
	ErrInvalidRiskTier   = errors.New("invalid risk tier")
	ErrInvalidRiskLevel  = errors.New("invalid drug risk level")
	ErrInvalidPriority   = errors.New("invalid recommendation priority")
)

// severityRanks defines the fixed total order used for finding sorts.
var severityRanks = map[Severity]int{
	SeverityContraindicated: 4,
	SeverityMajor:           3,
	SeverityModerate:        2,
	SeverityMinor:           1,
	SeverityUnknown:         0,
}

// IsValid validates that the severity is one of the fixed ordered set.
// Rules with an unrecognized severity must be rejected at load time, never
// silently applied.
func (s Severity) IsValid() bool {
	_, ok := severityRanks[s]
	return ok
}

// Rank returns the severity's position in the fixed total order; higher is
// more dangerous.
func (s Severity) Rank() int {
	return severityRanks[s]
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid validates the aggregate risk tier.
func (rt RiskTier) IsValid() bool {
	switch rt {
	case RiskTierCritical, RiskTierHigh, RiskTierModerate, RiskTierLow, RiskTierMinimal:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk tier.
func (rt RiskTier) String() string {
	return string(rt)
}

// RequiresClinicalAction determines if the tier requires clinical follow-up.
// Conservative: unknown tiers are treated as actionable.
func (rt RiskTier) RequiresClinicalAction() bool {
	switch rt {
	case RiskTierLow, RiskTierMinimal:
		return false
	default:
		return true
	}
}

// IsValid validates a drug's inherent risk level.
func (rl RiskLevel) IsValid() bool {
	switch rl {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh:
		return true
	default:
		return false
	}
}

// IsValid validates the recommendation priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Rank returns the priority's sort weight; higher sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// String returns the string representation of the priority.
func (p Priority) String() string {
	return string(p)
}
