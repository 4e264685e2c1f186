/*
requirement.go - Resource requirements, allocation rules and matching

PURPOSE:
  A service declares an ordered list of requirements, one per role it needs
  filled. Each requirement is one of three kinds:

    AnySuitableResource        any resource of a type ("a stylist")
    SpecificResource           exactly one resource ("Mike")
    ComplexResourceRequirement any resource of a type whose metadata
                               satisfies every predicate ("a van with
                               seats > 6 and colour = white")

  Every requirement carries a stable RequirementID. Fixed commitments on a
  booking refer to requirements by id, and UnresourceableBooking reports the
  original requirement objects that failed.

ALLOCATION RULES:
  Only AnySuitableResource carries a rule:
    AnyAllocation    - no constraint (default; a nil rule means any)
    UniqueAllocation - must not reuse a resource of the same type already
                       committed to an earlier role of the same booking
    SameAsAllocation, DifferentFromAllocation
                     - declared for service authors; not consulted by the
                       allocator

SEALED TYPES:
  ResourceRequirement and AllocationRule are closed: the unexported marker
  methods keep other packages from adding variants, so a type switch over
  the listed variants is exhaustive.
*/
package generic

import "strings"

// =============================================================================
// REQUIREMENT
// =============================================================================

type RequirementID string

type ResourceRequirement interface {
	RequirementID() RequirementID
	isResourceRequirement()
}

type AnySuitableResource struct {
	ID           RequirementID
	ResourceType ResourceType
	Rule         AllocationRule
}

type SpecificResource struct {
	ID       RequirementID
	Resource Resource
}

type ComplexResourceRequirement struct {
	ID           RequirementID
	ResourceType ResourceType
	Predicates   []MetadataPredicate
}

func (r AnySuitableResource) RequirementID() RequirementID        { return r.ID }
func (r SpecificResource) RequirementID() RequirementID           { return r.ID }
func (r ComplexResourceRequirement) RequirementID() RequirementID { return r.ID }

func (AnySuitableResource) isResourceRequirement()        {}
func (SpecificResource) isResourceRequirement()           {}
func (ComplexResourceRequirement) isResourceRequirement() {}

// AllocationRuleOf returns the rule that governs a requirement.
// Only AnySuitableResource carries one; everything else behaves as any.
func AllocationRuleOf(req ResourceRequirement) AllocationRule {
	if suitable, ok := req.(AnySuitableResource); ok && suitable.Rule != nil {
		return suitable.Rule
	}
	return AnyAllocation{}
}

// =============================================================================
// ALLOCATION RULE
// =============================================================================

type AllocationRule interface {
	RuleName() string
	isAllocationRule()
}

type AnyAllocation struct{}
type UniqueAllocation struct{}

type SameAsAllocation struct {
	Requirement RequirementID
}

type DifferentFromAllocation struct {
	Requirement RequirementID
}

func (AnyAllocation) RuleName() string           { return "any" }
func (UniqueAllocation) RuleName() string        { return "unique" }
func (SameAsAllocation) RuleName() string        { return "same_as" }
func (DifferentFromAllocation) RuleName() string { return "different_from" }

func (AnyAllocation) isAllocationRule()           {}
func (UniqueAllocation) isAllocationRule()        {}
func (SameAsAllocation) isAllocationRule()        {}
func (DifferentFromAllocation) isAllocationRule() {}

// =============================================================================
// METADATA PREDICATES
// =============================================================================

type PredicateOp string

const (
	OpEquals      PredicateOp = "equals"
	OpGreaterThan PredicateOp = "greaterThan"
	OpLessThan    PredicateOp = "lessThan"
	OpContains    PredicateOp = "contains"
)

type MetadataPredicate struct {
	Key   string
	Op    PredicateOp
	Value MetadataValue
}

func Equals(key string, v MetadataValue) MetadataPredicate {
	return MetadataPredicate{Key: key, Op: OpEquals, Value: v}
}

func GreaterThan(key string, v MetadataValue) MetadataPredicate {
	return MetadataPredicate{Key: key, Op: OpGreaterThan, Value: v}
}

func LessThan(key string, v MetadataValue) MetadataPredicate {
	return MetadataPredicate{Key: key, Op: OpLessThan, Value: v}
}

func Contains(key string, v MetadataValue) MetadataPredicate {
	return MetadataPredicate{Key: key, Op: OpContains, Value: v}
}

// Holds evaluates the predicate against a resource's metadata.
// A missing key or an op/kind combination that makes no sense fails closed.
func (p MetadataPredicate) Holds(metadata map[string]MetadataValue) bool {
	actual, ok := metadata[p.Key]
	if !ok {
		return false
	}
	switch p.Op {
	case OpEquals:
		return actual.Equal(p.Value)
	case OpGreaterThan, OpLessThan:
		a, aok := actual.Number()
		b, bok := p.Value.Number()
		if !aok || !bok {
			return false
		}
		if p.Op == OpGreaterThan {
			return a.GreaterThan(b)
		}
		return a.LessThan(b)
	case OpContains:
		a, aok := actual.Str()
		b, bok := p.Value.Str()
		return aok && bok && strings.Contains(a, b)
	default:
		return false
	}
}

// =============================================================================
// MATCHING
// =============================================================================

// ResourceMatchesRequirement reports whether the resource could fill the
// requirement, ignoring time and current usage.
func ResourceMatchesRequirement(resource Resource, requirement ResourceRequirement) bool {
	switch req := requirement.(type) {
	case AnySuitableResource:
		return resource.Type == req.ResourceType
	case SpecificResource:
		return resource.ID == req.Resource.ID
	case ComplexResourceRequirement:
		if resource.Type != req.ResourceType {
			return false
		}
		for _, p := range req.Predicates {
			if !p.Holds(resource.Metadata) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
