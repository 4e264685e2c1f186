/*
Package factory provides JSON/YAML to Go conversion for the engine's inputs.

PURPOSE:
  Converts service, resource and booking definitions written as JSON (API,
  database) or YAML (scenario files) into generic types, and back. Service
  definitions are validated here so an invalid service is rejected when it
  is authored, not when the first booking hits it.

JSON SCHEMA (service):
  {
    "id": "haircut-colour",
    "name": "Cut and colour",
    "pool_capacity": 10,
    "requirements": [
      {"id": "stylist", "kind": "any_suitable", "resource_type": "staff", "rule": "unique"},
      {"id": "chair",   "kind": "specific",     "resource_id": "chair-1"},
      {"id": "van",     "kind": "complex",      "resource_type": "vehicle",
       "predicates": [{"key": "seats", "op": "greaterThan", "value": 6}]}
    ]
  }

  kind:  any_suitable (default) | specific | complex
  rule:  any (default) | unique | same_as | different_from
         same_as/different_from name the other requirement in rule_ref
  op:    equals | greaterThan | lessThan | contains

USAGE:
  f := factory.NewServiceFactory()
  svc, err := f.ParseService(jsonString)
  sj := f.ToJSON(svc)

SEE ALSO:
  - generic/service.go: Service type and validation
  - factory/scenario.go: Resources, bookings and whole scenarios
  - catalog/services.go: Preset service definitions
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/slot-engine/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ServiceJSON is the JSON representation of a service.
type ServiceJSON struct {
	ID           string            `json:"id" yaml:"id"`
	Name         string            `json:"name" yaml:"name"`
	PoolCapacity *int              `json:"pool_capacity,omitempty" yaml:"pool_capacity,omitempty"`
	Requirements []RequirementJSON `json:"requirements" yaml:"requirements"`
}

// RequirementJSON represents one role of a service.
type RequirementJSON struct {
	ID           string          `json:"id" yaml:"id"`
	Kind         string          `json:"kind,omitempty" yaml:"kind,omitempty"`
	ResourceType string          `json:"resource_type,omitempty" yaml:"resource_type,omitempty"`
	ResourceID   string          `json:"resource_id,omitempty" yaml:"resource_id,omitempty"`
	Rule         string          `json:"rule,omitempty" yaml:"rule,omitempty"`
	RuleRef      string          `json:"rule_ref,omitempty" yaml:"rule_ref,omitempty"`
	Predicates   []PredicateJSON `json:"predicates,omitempty" yaml:"predicates,omitempty"`
}

// PredicateJSON is a metadata test. Value is a string, number or boolean.
type PredicateJSON struct {
	Key   string `json:"key" yaml:"key"`
	Op    string `json:"op" yaml:"op"`
	Value any    `json:"value" yaml:"value"`
}

const (
	KindAnySuitable = "any_suitable"
	KindSpecific    = "specific"
	KindComplex     = "complex"
)

// =============================================================================
// SERVICE FACTORY
// =============================================================================

// ServiceFactory converts JSON services to Go structs.
type ServiceFactory struct{}

// NewServiceFactory creates a new service factory.
func NewServiceFactory() *ServiceFactory {
	return &ServiceFactory{}
}

// ParseService parses a JSON string into a validated Service.
func (f *ServiceFactory) ParseService(jsonStr string) (generic.Service, error) {
	var sj ServiceJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return generic.Service{}, fmt.Errorf("failed to parse service JSON: %w", err)
	}
	return f.FromJSON(sj)
}

// FromJSON converts ServiceJSON to a validated generic.Service.
func (f *ServiceFactory) FromJSON(sj ServiceJSON) (generic.Service, error) {
	if sj.ID == "" {
		return generic.Service{}, fmt.Errorf("service id is required")
	}

	reqs := make([]generic.ResourceRequirement, 0, len(sj.Requirements))
	for _, rj := range sj.Requirements {
		req, err := parseRequirement(rj)
		if err != nil {
			return generic.Service{}, fmt.Errorf("service %s: %w", sj.ID, err)
		}
		reqs = append(reqs, req)
	}

	name := sj.Name
	if name == "" {
		name = sj.ID
	}
	if sj.PoolCapacity != nil {
		return generic.NewPooledService(generic.ServiceID(sj.ID), name, generic.Capacity(*sj.PoolCapacity), reqs...)
	}
	return generic.NewService(generic.ServiceID(sj.ID), name, reqs...)
}

// ToJSON converts a Service to ServiceJSON.
func (f *ServiceFactory) ToJSON(s generic.Service) ServiceJSON {
	sj := ServiceJSON{
		ID:           string(s.ID),
		Name:         s.Name,
		Requirements: make([]RequirementJSON, 0, len(s.Requirements)),
	}
	if s.IsPooled() {
		pool := int(s.PoolCapacity())
		sj.PoolCapacity = &pool
	}
	for _, req := range s.Requirements {
		sj.Requirements = append(sj.Requirements, requirementToJSON(req))
	}
	return sj
}

// Marshal encodes a service for storage.
func (f *ServiceFactory) Marshal(s generic.Service) (string, error) {
	data, err := json.Marshal(f.ToJSON(s))
	if err != nil {
		return "", fmt.Errorf("failed to encode service %s: %w", s.ID, err)
	}
	return string(data), nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseRequirement(rj RequirementJSON) (generic.ResourceRequirement, error) {
	if rj.ID == "" {
		return nil, fmt.Errorf("requirement id is required")
	}
	id := generic.RequirementID(rj.ID)

	switch rj.Kind {
	case "", KindAnySuitable:
		if rj.ResourceType == "" {
			return nil, fmt.Errorf("requirement %s: resource_type is required", rj.ID)
		}
		rule, err := parseRule(rj.Rule, rj.RuleRef)
		if err != nil {
			return nil, fmt.Errorf("requirement %s: %w", rj.ID, err)
		}
		return generic.AnySuitableResource{ID: id, ResourceType: generic.ResourceType(rj.ResourceType), Rule: rule}, nil

	case KindSpecific:
		if rj.ResourceID == "" {
			return nil, fmt.Errorf("requirement %s: resource_id is required", rj.ID)
		}
		// Only the id of a pinned resource is consulted when matching.
		return generic.SpecificResource{
			ID:       id,
			Resource: generic.Resource{ID: generic.ResourceID(rj.ResourceID), Type: generic.ResourceType(rj.ResourceType)},
		}, nil

	case KindComplex:
		if rj.ResourceType == "" {
			return nil, fmt.Errorf("requirement %s: resource_type is required", rj.ID)
		}
		preds := make([]generic.MetadataPredicate, 0, len(rj.Predicates))
		for _, pj := range rj.Predicates {
			p, err := parsePredicate(pj)
			if err != nil {
				return nil, fmt.Errorf("requirement %s: %w", rj.ID, err)
			}
			preds = append(preds, p)
		}
		return generic.ComplexResourceRequirement{ID: id, ResourceType: generic.ResourceType(rj.ResourceType), Predicates: preds}, nil

	default:
		return nil, fmt.Errorf("requirement %s: unknown kind %q", rj.ID, rj.Kind)
	}
}

func parseRule(rule, ref string) (generic.AllocationRule, error) {
	switch rule {
	case "", "any":
		return generic.AnyAllocation{}, nil
	case "unique":
		return generic.UniqueAllocation{}, nil
	case "same_as":
		if ref == "" {
			return nil, fmt.Errorf("rule same_as requires rule_ref")
		}
		return generic.SameAsAllocation{Requirement: generic.RequirementID(ref)}, nil
	case "different_from":
		if ref == "" {
			return nil, fmt.Errorf("rule different_from requires rule_ref")
		}
		return generic.DifferentFromAllocation{Requirement: generic.RequirementID(ref)}, nil
	default:
		return nil, fmt.Errorf("unknown allocation rule %q", rule)
	}
}

func parsePredicate(pj PredicateJSON) (generic.MetadataPredicate, error) {
	if pj.Key == "" {
		return generic.MetadataPredicate{}, fmt.Errorf("predicate key is required")
	}
	value, err := generic.MetadataValueOf(pj.Value)
	if err != nil {
		return generic.MetadataPredicate{}, fmt.Errorf("predicate %s: %w", pj.Key, err)
	}
	switch op := generic.PredicateOp(pj.Op); op {
	case generic.OpEquals, generic.OpGreaterThan, generic.OpLessThan, generic.OpContains:
		return generic.MetadataPredicate{Key: pj.Key, Op: op, Value: value}, nil
	default:
		return generic.MetadataPredicate{}, fmt.Errorf("predicate %s: unknown op %q", pj.Key, pj.Op)
	}
}

func requirementToJSON(req generic.ResourceRequirement) RequirementJSON {
	switch r := req.(type) {
	case generic.AnySuitableResource:
		rj := RequirementJSON{ID: string(r.ID), Kind: KindAnySuitable, ResourceType: string(r.ResourceType)}
		switch rule := r.Rule.(type) {
		case generic.UniqueAllocation:
			rj.Rule = rule.RuleName()
		case generic.SameAsAllocation:
			rj.Rule, rj.RuleRef = rule.RuleName(), string(rule.Requirement)
		case generic.DifferentFromAllocation:
			rj.Rule, rj.RuleRef = rule.RuleName(), string(rule.Requirement)
		}
		return rj
	case generic.SpecificResource:
		return RequirementJSON{
			ID:           string(r.ID),
			Kind:         KindSpecific,
			ResourceID:   string(r.Resource.ID),
			ResourceType: string(r.Resource.Type),
		}
	case generic.ComplexResourceRequirement:
		rj := RequirementJSON{ID: string(r.ID), Kind: KindComplex, ResourceType: string(r.ResourceType)}
		for _, p := range r.Predicates {
			rj.Predicates = append(rj.Predicates, PredicateJSON{Key: p.Key, Op: string(p.Op), Value: metadataRaw(p.Value)})
		}
		return rj
	default:
		return RequirementJSON{ID: string(req.RequirementID())}
	}
}

// metadataRaw turns a metadata value back into a plain scalar so it encodes
// identically in JSON and YAML.
func metadataRaw(v generic.MetadataValue) any {
	switch v.Kind() {
	case generic.MetadataString:
		s, _ := v.Str()
		return s
	case generic.MetadataBool:
		b, _ := v.Bool()
		return b
	case generic.MetadataNumber:
		d, _ := v.Number()
		if d.IsInteger() {
			return d.IntPart()
		}
		f, _ := d.Float64()
		return f
	default:
		return nil
	}
}
