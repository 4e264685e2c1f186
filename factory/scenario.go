package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/warp/slot-engine/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SlotJSON is a timeslot on one date, times as "15:04".
type SlotJSON struct {
	Date string `json:"date" yaml:"date"`
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// ResourceJSON is the JSON representation of a resource.
type ResourceJSON struct {
	ID           string         `json:"id" yaml:"id"`
	Type         string         `json:"type" yaml:"type"`
	Availability []SlotJSON     `json:"availability" yaml:"availability"`
	Metadata     map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// FixedJSON pins a requirement to a resource.
type FixedJSON struct {
	RequirementID string `json:"requirement_id" yaml:"requirement_id"`
	ResourceID    string `json:"resource_id" yaml:"resource_id"`
}

// BookingJSON is the JSON representation of a booking.
type BookingJSON struct {
	ID        string      `json:"id" yaml:"id"`
	ServiceID string      `json:"service_id" yaml:"service_id"`
	Date      string      `json:"date" yaml:"date"`
	From      string      `json:"from" yaml:"from"`
	To        string      `json:"to" yaml:"to"`
	Capacity  int         `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	Fixed     []FixedJSON `json:"fixed,omitempty" yaml:"fixed,omitempty"`
}

// ScenarioJSON is a complete engine input: the resource pool, the services
// and the bookings in processing order.
type ScenarioJSON struct {
	Name      string         `json:"name,omitempty" yaml:"name,omitempty"`
	Resources []ResourceJSON `json:"resources" yaml:"resources"`
	Services  []ServiceJSON  `json:"services" yaml:"services"`
	Bookings  []BookingJSON  `json:"bookings" yaml:"bookings"`
}

// =============================================================================
// RESOURCES
// =============================================================================

func ParseSlot(sj SlotJSON) (generic.Timeslot, error) {
	return generic.ParseTimeslot(sj.Date, sj.From, sj.To)
}

func SlotToJSON(s generic.Timeslot) SlotJSON {
	return SlotJSON{Date: s.Date().String(), From: s.From.Time.String(), To: s.To.Time.String()}
}

// ResourceFromJSON converts ResourceJSON to generic.Resource.
func ResourceFromJSON(rj ResourceJSON) (generic.Resource, error) {
	if rj.ID == "" || rj.Type == "" {
		return generic.Resource{}, fmt.Errorf("resource id and type are required")
	}

	slots := make([]generic.Timeslot, 0, len(rj.Availability))
	for _, sj := range rj.Availability {
		slot, err := ParseSlot(sj)
		if err != nil {
			return generic.Resource{}, fmt.Errorf("resource %s: %w", rj.ID, err)
		}
		slots = append(slots, slot)
	}

	var meta map[string]generic.MetadataValue
	if len(rj.Metadata) > 0 {
		meta = make(map[string]generic.MetadataValue, len(rj.Metadata))
		for k, raw := range rj.Metadata {
			v, err := generic.MetadataValueOf(raw)
			if err != nil {
				return generic.Resource{}, fmt.Errorf("resource %s: metadata %s: %w", rj.ID, k, err)
			}
			meta[k] = v
		}
	}

	return generic.NewResource(generic.ResourceID(rj.ID), generic.ResourceType(rj.Type), slots, meta), nil
}

// ResourceToJSON converts a Resource to ResourceJSON.
func ResourceToJSON(r generic.Resource) ResourceJSON {
	rj := ResourceJSON{
		ID:           string(r.ID),
		Type:         string(r.Type),
		Availability: make([]SlotJSON, 0, len(r.Availability)),
	}
	for _, s := range r.Availability {
		rj.Availability = append(rj.Availability, SlotToJSON(s))
	}
	if len(r.Metadata) > 0 {
		rj.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			rj.Metadata[k] = metadataRaw(v)
		}
	}
	return rj
}

// =============================================================================
// BOOKINGS
// =============================================================================

// BookingFromJSON resolves the booking's service and fixed commitments.
// A fixed commitment naming a requirement the service does not declare is
// rejected with an UnknownReferenceError. Pinned resource ids are resolved
// against resources when known; the engine rejects ids outside its pool.
func BookingFromJSON(bj BookingJSON, services map[generic.ServiceID]generic.Service, resources map[generic.ResourceID]generic.Resource) (generic.Booking, error) {
	service, ok := services[generic.ServiceID(bj.ServiceID)]
	if !ok {
		return generic.Booking{}, fmt.Errorf("booking %s: %w: %s", bj.ID, generic.ErrServiceNotFound, bj.ServiceID)
	}
	if bj.Capacity < 0 {
		return generic.Booking{}, fmt.Errorf("booking %s: %w: %d", bj.ID, generic.ErrInvalidCapacity, bj.Capacity)
	}
	slot, err := generic.ParseTimeslot(bj.Date, bj.From, bj.To)
	if err != nil {
		return generic.Booking{}, fmt.Errorf("booking %s: %w", bj.ID, err)
	}

	spec := generic.BookingSpec{Service: service, BookedCapacity: generic.Capacity(bj.Capacity)}
	fixed, err := FixedCommitments(generic.BookingID(bj.ID), service, bj.Fixed, resources)
	if err != nil {
		return generic.Booking{}, err
	}
	spec.FixedCommitments = fixed
	return spec.At(generic.BookingID(bj.ID), slot), nil
}

// FixedCommitments converts pinned requirement/resource pairs for a service.
func FixedCommitments(id generic.BookingID, service generic.Service, fixed []FixedJSON, resources map[generic.ResourceID]generic.Resource) ([]generic.ResourceCommitment, error) {
	var out []generic.ResourceCommitment
	for _, fj := range fixed {
		req, ok := service.Requirement(generic.RequirementID(fj.RequirementID))
		if !ok {
			return nil, &generic.UnknownReferenceError{BookingID: id, Ref: fj.RequirementID, Err: generic.ErrUnknownRequirement}
		}
		resource, ok := resources[generic.ResourceID(fj.ResourceID)]
		if !ok {
			resource = generic.Resource{ID: generic.ResourceID(fj.ResourceID)}
		}
		out = append(out, generic.ResourceCommitment{Requirement: req, Resource: resource})
	}
	return out, nil
}

// BookingToJSON converts a Booking to BookingJSON. Fixed commitments are
// written out so a stored booking keeps its resources.
func BookingToJSON(b generic.Booking) BookingJSON {
	bj := BookingJSON{
		ID:        string(b.ID),
		ServiceID: string(b.Service().ID),
		Date:      b.Timeslot.Date().String(),
		From:      b.Timeslot.From.Time.String(),
		To:        b.Timeslot.To.Time.String(),
		Capacity:  int(b.Spec.BookedCapacity),
	}
	for _, fc := range b.Spec.FixedCommitments {
		bj.Fixed = append(bj.Fixed, FixedJSON{
			RequirementID: string(fc.Requirement.RequirementID()),
			ResourceID:    string(fc.Resource.ID),
		})
	}
	return bj
}

// =============================================================================
// SCENARIOS
// =============================================================================

// Scenario is a decoded, validated ScenarioJSON.
type Scenario struct {
	Name      string
	Resources []generic.Resource
	Services  []generic.Service
	Bookings  []generic.Booking
}

// ParseScenario decodes a JSON scenario.
func ParseScenario(jsonStr string) (Scenario, error) {
	var sj ScenarioJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario JSON: %w", err)
	}
	return ScenarioFromJSON(sj)
}

// DecodeScenarioYAML reads a YAML scenario file.
func DecodeScenarioYAML(r io.Reader) (Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Scenario{}, err
	}
	var sj ScenarioJSON
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sj); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	return ScenarioFromJSON(sj)
}

// EncodeScenarioYAML writes a scenario as YAML.
func EncodeScenarioYAML(w io.Writer, sj ScenarioJSON) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sj); err != nil {
		return err
	}
	return enc.Close()
}

// ScenarioFromJSON converts every part of a scenario, in order: resources,
// then services, then bookings referring to both.
func ScenarioFromJSON(sj ScenarioJSON) (Scenario, error) {
	sc := Scenario{Name: sj.Name}
	f := NewServiceFactory()

	resources := make(map[generic.ResourceID]generic.Resource, len(sj.Resources))
	for _, rj := range sj.Resources {
		r, err := ResourceFromJSON(rj)
		if err != nil {
			return Scenario{}, err
		}
		if _, dup := resources[r.ID]; dup {
			return Scenario{}, fmt.Errorf("%w: %s", generic.ErrDuplicateResource, r.ID)
		}
		resources[r.ID] = r
		sc.Resources = append(sc.Resources, r)
	}

	services := make(map[generic.ServiceID]generic.Service, len(sj.Services))
	for _, svj := range sj.Services {
		s, err := f.FromJSON(svj)
		if err != nil {
			return Scenario{}, err
		}
		services[s.ID] = s
		sc.Services = append(sc.Services, s)
	}

	for _, bj := range sj.Bookings {
		b, err := BookingFromJSON(bj, services, resources)
		if err != nil {
			return Scenario{}, err
		}
		sc.Bookings = append(sc.Bookings, b)
	}
	return sc, nil
}

// ScenarioToJSON is the inverse of ScenarioFromJSON.
func ScenarioToJSON(sc Scenario) ScenarioJSON {
	f := NewServiceFactory()
	sj := ScenarioJSON{Name: sc.Name}
	for _, r := range sc.Resources {
		sj.Resources = append(sj.Resources, ResourceToJSON(r))
	}
	for _, s := range sc.Services {
		sj.Services = append(sj.Services, f.ToJSON(s))
	}
	for _, b := range sc.Bookings {
		sj.Bookings = append(sj.Bookings, BookingToJSON(b))
	}
	return sj
}
