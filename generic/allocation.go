/*
allocation.go - Resolve one booking's requirements against the accumulator

PURPOSE:
  Given the current accumulator and one Booking, pick a concrete resource for
  every requirement of the booking's service, or report which requirements
  cannot be met. Single pass, requirements in declared order, no
  backtracking.

PER REQUIREMENT:
  1. Fixed commitment? Substitute a SpecificResource pinned to that resource
     for this step only.
  2. Build the candidate pool: resources that match the requirement, whose
     availability contains the booking's slot, that are not busy with an
     intersecting booking, and that satisfy the allocation rule against the
     roles already filled in this booking.
     Pooled services first try to pack onto a resource already serving an
     overlapping booking of the same service.
  3. Empty pool: record the requirement as unresourceable and keep going,
     so the failure report lists every unmet requirement.
  4. A pinned requirement must find its exact resource among the candidates.
  5. Otherwise take the least-used candidate, skipping candidates disfavored
     for an intersecting slot unless every candidate is disfavored.
  6. Remember the pick for the rule checks of later roles. Nothing is
     committed to the accumulator unless the whole booking succeeds.

POOLED CAPACITY:
  A pooled service's places are shared by every booking of that service that
  intersects in time. If those bookings plus this one would exceed the pool,
  no requirement can be met.

TIE BREAKING:
  Candidates are ranked by ascending booking count; equal counts keep the
  resource pool's order. Identical inputs always give identical picks.

SEE ALSO:
  - processor.go: Folds many bookings through this step
  - availability.go: Evaluates a candidate without keeping the result
*/
package generic

import (
	"fmt"
	"sort"
)

// =============================================================================
// OPTIONS
// =============================================================================

// DisfavoredResource is a soft hint: avoid the resource for bookings that
// intersect any of the slots, unless nothing else is left.
type DisfavoredResource struct {
	Resource  ResourceID
	Timeslots []Timeslot
}

type ResourceBookingsOptions struct {
	DisfavoredResources []DisfavoredResource
}

func (o ResourceBookingsOptions) isDisfavored(id ResourceID, slot Timeslot) bool {
	for _, d := range o.DisfavoredResources {
		if d.Resource != id {
			continue
		}
		for _, s := range d.Timeslots {
			if Intersects(s, slot) {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// ALLOCATION
// =============================================================================

// ResourceBooking resolves one booking and returns the accumulator with its
// outcome recorded. acc itself is left untouched.
//
// An error means the input is malformed (invalid service, unknown ids in
// fixed commitments, inverted slot). A booking that simply cannot be served
// is an UnresourceableBooking outcome with a nil error.
func ResourceBooking(acc ResourcingAccumulator, booking Booking, opts ResourceBookingsOptions) (ResourcingAccumulator, BookingOutcome, error) {
	outcome, err := resolveBooking(acc, booking, opts)
	if err != nil {
		return acc, nil, err
	}
	return acc.withOutcome(outcome), outcome, nil
}

func resolveBooking(acc ResourcingAccumulator, booking Booking, opts ResourceBookingsOptions) (BookingOutcome, error) {
	service := booking.Service()
	if err := service.Validate(); err != nil {
		return nil, err
	}
	if err := booking.Timeslot.Validate(); err != nil {
		return nil, err
	}
	if booking.Spec.BookedCapacity < 0 {
		return nil, fmt.Errorf("booking %s: %w: %d", booking.ID, ErrInvalidCapacity, booking.Spec.BookedCapacity)
	}
	pinned, err := resolveFixedCommitments(acc, booking)
	if err != nil {
		return nil, err
	}

	poolExhausted := service.IsPooled() &&
		pooledConsumption(acc, service.ID, booking.Timeslot)+booking.Spec.EffectiveCapacity() > service.PoolCapacity()

	var (
		picked []ResourceCommitment
		failed []ResourceRequirement
	)
	for _, declared := range service.Requirements {
		if poolExhausted {
			failed = append(failed, declared)
			continue
		}

		effective := declared
		if resource, ok := pinned[declared.RequirementID()]; ok {
			effective = SpecificResource{ID: declared.RequirementID(), Resource: resource}
		}

		candidates := candidatesFor(acc, booking, effective, picked)
		chosen, ok := choose(candidates, effective, booking.Timeslot, opts)
		if !ok {
			failed = append(failed, declared)
			continue
		}
		picked = append(picked, ResourceCommitment{Requirement: declared, Resource: chosen})
	}

	if len(failed) > 0 {
		return UnresourceableBooking{Booking: booking, Unresourceable: failed}, nil
	}
	return ResourcedBooking{Booking: booking, Commitments: picked}, nil
}

// resolveFixedCommitments maps requirement ids to the pool's copy of the
// pinned resource. Unknown ids are programmer errors.
func resolveFixedCommitments(acc ResourcingAccumulator, booking Booking) (map[RequirementID]Resource, error) {
	if len(booking.Spec.FixedCommitments) == 0 {
		return nil, nil
	}
	pinned := make(map[RequirementID]Resource, len(booking.Spec.FixedCommitments))
	for _, fc := range booking.Spec.FixedCommitments {
		id := fc.Requirement.RequirementID()
		if _, ok := booking.Service().Requirement(id); !ok {
			return nil, &UnknownReferenceError{BookingID: booking.ID, Ref: string(id), Err: ErrUnknownRequirement}
		}
		usage, ok := acc.Usage(fc.Resource.ID)
		if !ok {
			return nil, &UnknownReferenceError{BookingID: booking.ID, Ref: string(fc.Resource.ID), Err: ErrUnknownResource}
		}
		pinned[id] = usage.Resource
	}
	return pinned, nil
}

// =============================================================================
// CANDIDATES
// =============================================================================

func candidatesFor(acc ResourcingAccumulator, booking Booking, req ResourceRequirement, picked []ResourceCommitment) []ResourceUsage {
	if booking.Service().IsPooled() {
		if u, ok := pooledCandidate(acc, booking, req, picked); ok {
			return []ResourceUsage{u}
		}
	}

	var candidates []ResourceUsage
	for _, u := range acc.Resources {
		if eligible(u, booking, req, picked) && !conflicts(u, booking) {
			candidates = append(candidates, u)
		}
	}
	return candidates
}

// pooledCandidate finds the first eligible resource already serving an
// intersecting booking of the same service that still has room.
func pooledCandidate(acc ResourcingAccumulator, booking Booking, req ResourceRequirement, picked []ResourceCommitment) (ResourceUsage, bool) {
	service := booking.Service()
	for _, u := range acc.Resources {
		serving := Capacity(0)
		for _, b := range u.Bookings {
			if b.Booking.Service().ID == service.ID && Intersects(b.Booking.Timeslot, booking.Timeslot) {
				serving += b.Booking.Spec.EffectiveCapacity()
			}
		}
		if serving == 0 {
			continue
		}
		if serving+booking.Spec.EffectiveCapacity() > service.PoolCapacity() {
			continue
		}
		if eligible(u, booking, req, picked) && !conflicts(u, booking) {
			return u, true
		}
	}
	return ResourceUsage{}, false
}

func eligible(u ResourceUsage, booking Booking, req ResourceRequirement, picked []ResourceCommitment) bool {
	return ResourceMatchesRequirement(u.Resource, req) &&
		u.Resource.IsAvailableFor(booking.Timeslot) &&
		satisfiesRule(AllocationRuleOf(req), u.Resource, picked)
}

// conflicts reports a booking on the resource that intersects this one.
// For pooled services, bookings of the same service share the resource and
// are governed by the pool instead.
func conflicts(u ResourceUsage, booking Booking) bool {
	service := booking.Service()
	for _, b := range u.Bookings {
		if !Intersects(b.Booking.Timeslot, booking.Timeslot) {
			continue
		}
		if service.IsPooled() && b.Booking.Service().ID == service.ID {
			continue
		}
		return true
	}
	return false
}

func satisfiesRule(rule AllocationRule, resource Resource, picked []ResourceCommitment) bool {
	switch rule.(type) {
	case UniqueAllocation:
		for _, p := range picked {
			if p.Resource.Type == resource.Type && p.Resource.ID == resource.ID {
				return false
			}
		}
		return true
	case AnyAllocation, SameAsAllocation, DifferentFromAllocation:
		return true
	default:
		return true
	}
}

// pooledConsumption sums the places taken by resourced bookings of the
// service that intersect the slot.
func pooledConsumption(acc ResourcingAccumulator, serviceID ServiceID, slot Timeslot) Capacity {
	total := Capacity(0)
	for _, o := range acc.Resourced {
		rb, ok := o.(ResourcedBooking)
		if !ok {
			continue
		}
		if rb.Booking.Service().ID == serviceID && Intersects(rb.Booking.Timeslot, slot) {
			total += rb.Booking.Spec.EffectiveCapacity()
		}
	}
	return total
}

// =============================================================================
// CHOICE
// =============================================================================

func choose(candidates []ResourceUsage, req ResourceRequirement, slot Timeslot, opts ResourceBookingsOptions) (Resource, bool) {
	if len(candidates) == 0 {
		return Resource{}, false
	}

	if specific, ok := req.(SpecificResource); ok {
		for _, c := range candidates {
			if c.Resource.ID == specific.Resource.ID {
				return c.Resource, true
			}
		}
		return Resource{}, false
	}

	ranked := make([]ResourceUsage, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].BookingCount() < ranked[j].BookingCount()
	})

	for _, c := range ranked {
		if !opts.isDisfavored(c.Resource.ID, slot) {
			return c.Resource, true
		}
	}
	return ranked[0].Resource, true
}
