package service

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/medguard-interaction-server/internal/dataset"
	"github.com/medguard-interaction-server/internal/domain"
)

// RuleStore implements domain.InteractionRuleStore over an immutable rule
// snapshot. Reads never take a lock; Reload swaps the whole snapshot
// atomically so evaluations in flight keep a consistent view.
type RuleStore struct {
	snapshot atomic.Pointer[ruleSnapshot]
	logger   *logrus.Logger
}

type ruleSnapshot struct {
	version string
	rules   []domain.InteractionRule
}

// NewRuleStore creates a rule store from a validated dataset.
func NewRuleStore(ds *dataset.Dataset, logger *logrus.Logger) (*RuleStore, error) {
	store := &RuleStore{logger: logger}
	if err := store.Reload(ds); err != nil {
		return nil, err
	}
	return store, nil
}

// Reload validates and installs a new rule set. On validation failure the
// previous snapshot stays in service.
func (s *RuleStore) Reload(ds *dataset.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}

	rules := make([]domain.InteractionRule, len(ds.Rules))
	copy(rules, ds.Rules)

	s.snapshot.Store(&ruleSnapshot{
		version: ds.Version,
		rules:   rules,
	})

	s.logger.WithFields(logrus.Fields{
		"rule_set_version": ds.Version,
		"rule_count":       len(rules),
	}).Info("Interaction rule set loaded")

	return nil
}

// Version identifies the loaded rule set.
func (s *RuleStore) Version() string {
	return s.snapshot.Load().version
}

// FindPairwise returns the finding for the single best-matching rule for a
// resolved pair, or nil when no rule fires. When several rules match the same
// pair, the highest severity wins, then the highest base risk score; a drug
// can match a rule by canonical id or by pharmacologic class token.
func (s *RuleStore) FindPairwise(a, b *domain.DrugIdentity) *domain.InteractionFinding {
	if a == nil || b == nil || !a.Resolved || !b.Resolved {
		return nil
	}

	snap := s.snapshot.Load()
	var best *domain.InteractionRule
	for i := range snap.rules {
		rule := &snap.rules[i]
		if !ruleMatchesPair(rule, a, b) {
			continue
		}
		if best == nil || ruleOutranks(rule, best) {
			best = rule
		}
	}
	if best == nil {
		return nil
	}

	return &domain.InteractionFinding{
		DrugA:          a.DisplayName,
		DrugB:          b.DisplayName,
		Severity:       best.Severity,
		Mechanism:      best.Mechanism,
		Description:    best.Description,
		Recommendation: best.Recommendation,
		RiskScore:      best.BaseRiskScore,
	}
}

// FindSameClass returns one moderate finding per pharmacologic class that has
// two or more resolved members in the list. Therapeutic duplication is a risk
// of its own even when no explicit pair rule exists.
func (s *RuleStore) FindSameClass(drugs []*domain.DrugIdentity) []domain.InteractionFinding {
	byClass := make(map[string][]string)
	classOrder := make([]string, 0)
	for _, drug := range drugs {
		if drug == nil || !drug.Resolved || drug.PharmacologicClass == "" {
			continue
		}
		class := strings.ToLower(drug.PharmacologicClass)
		if len(byClass[class]) == 0 {
			classOrder = append(classOrder, class)
		}
		byClass[class] = append(byClass[class], drug.DisplayName)
	}

	var findings []domain.InteractionFinding
	for _, class := range classOrder {
		members := byClass[class]
		if len(members) < 2 {
			continue
		}
		findings = append(findings, domain.InteractionFinding{
			DrugA:          members[0],
			DrugB:          members[1],
			Severity:       domain.SeverityModerate,
			Mechanism:      "same-class duplication",
			Description:    "Multiple medications from the " + class + " class: " + strings.Join(members, ", "),
			Recommendation: "Review whether more than one " + class + " agent is intended",
			RiskScore:      4,
		})
	}
	return findings
}

// FindAll combines pairwise and same-class checks over the whole list. The
// result is sorted by severity rank descending, then risk score descending;
// ties keep detection order so repeat evaluations are byte-identical.
func (s *RuleStore) FindAll(drugs []*domain.DrugIdentity) []domain.InteractionFinding {
	var findings []domain.InteractionFinding

	for i := 0; i < len(drugs); i++ {
		for j := i + 1; j < len(drugs); j++ {
			if finding := s.FindPairwise(drugs[i], drugs[j]); finding != nil {
				findings = append(findings, *finding)
			}
		}
	}

	findings = append(findings, s.FindSameClass(drugs)...)
	sortFindings(findings)
	return findings
}

// sortFindings orders findings by severity rank descending, then risk score
// descending. Stable, so ties keep detection order.
func sortFindings(findings []domain.InteractionFinding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity.Rank() != findings[j].Severity.Rank() {
			return findings[i].Severity.Rank() > findings[j].Severity.Rank()
		}
		return findings[i].RiskScore > findings[j].RiskScore
	})
}

// ruleMatchesPair reports whether the pair covers the rule's member set, with
// each drug consumed by a distinct member.
func ruleMatchesPair(rule *domain.InteractionRule, a, b *domain.DrugIdentity) bool {
	if len(rule.Members) != 2 {
		// Multi-drug rules need every member covered by some drug of the pair.
		for _, member := range rule.Members {
			if !memberMatches(member, a) && !memberMatches(member, b) {
				return false
			}
		}
		return true
	}
	return (memberMatches(rule.Members[0], a) && memberMatches(rule.Members[1], b)) ||
		(memberMatches(rule.Members[0], b) && memberMatches(rule.Members[1], a))
}

// memberMatches reports whether a drug satisfies one rule member, by
// canonical id or by class token.
func memberMatches(member string, drug *domain.DrugIdentity) bool {
	if class, ok := strings.CutPrefix(member, dataset.ClassPrefix); ok {
		return drug.PharmacologicClass != "" && strings.EqualFold(drug.PharmacologicClass, class)
	}
	return member == drug.CanonicalID
}

// ruleOutranks reports whether candidate should replace current as the best
// rule for a pair.
func ruleOutranks(candidate, current *domain.InteractionRule) bool {
	if candidate.Severity.Rank() != current.Severity.Rank() {
		return candidate.Severity.Rank() > current.Severity.Rank()
	}
	return candidate.BaseRiskScore > current.BaseRiskScore
}
