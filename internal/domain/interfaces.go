package domain

import (
	"context"
)

// DrugResolver normalizes free-text medication names into canonical drug
// identities. Resolution is best-effort: an unreachable terminology service
// or an unknown name yields an unresolved identity, never an error, so the
// rest of a medication list can still be evaluated.
type DrugResolver interface {
	// Resolve canonicalizes a single free-text drug name.
	Resolve(ctx context.Context, name string) (*DrugIdentity, error)

	// ResolveAll resolves a list concurrently, preserving input order.
	ResolveAll(ctx context.Context, names []string) ([]*DrugIdentity, error)
}

// InteractionRuleStore answers "do these canonical identities interact, and
// how badly". Reads are lock-free on an immutable snapshot; Reload swaps the
// snapshot atomically so in-flight evaluations stay consistent.
type InteractionRuleStore interface {
	// FindPairwise returns the matching rule finding for a resolved pair,
	// or nil when no rule fires.
	FindPairwise(a, b *DrugIdentity) *InteractionFinding

	// FindSameClass returns one moderate finding per pharmacologic class
	// with two or more resolved members.
	FindSameClass(drugs []*DrugIdentity) []InteractionFinding

	// FindAll combines pairwise and same-class checks over the whole list,
	// sorted by severity rank descending then risk score descending.
	FindAll(drugs []*DrugIdentity) []InteractionFinding

	// Version identifies the loaded rule set.
	Version() string
}

// SafetyMatcher cross-references resolved drugs against a patient's declared
// allergies and conditions. Independent of pairwise interactions.
type SafetyMatcher interface {
	CheckAllergies(drugs []*DrugIdentity, allergies []string) []AllergyFinding
	CheckContraindications(drugs []*DrugIdentity, conditions []string) []ContraindicationFinding
}

// Evaluator is the public entry point sequencing resolution, interaction
// lookup, safety checks, aggregation and recommendation.
type Evaluator interface {
	Evaluate(ctx context.Context, req *EvaluationRequest) (*EvaluationResult, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetTerminologyConfig() *TerminologyConfig
	Validate() error
}
