package generic

// =============================================================================
// BOOKING
// =============================================================================

type BookingID string

// ResourceCommitment binds a requirement to the resource that fills it.
// As a fixed commitment on a BookingSpec it pins the requirement instead.
type ResourceCommitment struct {
	Requirement ResourceRequirement
	Resource    Resource
}

// BookingSpec is a booking that has not been placed in time yet.
type BookingSpec struct {
	Service          Service
	BookedCapacity   Capacity // 0 means 1
	FixedCommitments []ResourceCommitment
}

// EffectiveCapacity returns the places this booking takes.
func (bs BookingSpec) EffectiveCapacity() Capacity {
	if bs.BookedCapacity <= 0 {
		return 1
	}
	return bs.BookedCapacity
}

// FixedFor returns the fixed commitment for a requirement, if any.
func (bs BookingSpec) FixedFor(id RequirementID) (ResourceCommitment, bool) {
	for _, fc := range bs.FixedCommitments {
		if fc.Requirement.RequirementID() == id {
			return fc, true
		}
	}
	return ResourceCommitment{}, false
}

// At schedules the spec into a concrete booking.
func (bs BookingSpec) At(id BookingID, slot Timeslot) Booking {
	return Booking{ID: id, Spec: bs, Timeslot: slot}
}

type Booking struct {
	ID       BookingID
	Spec     BookingSpec
	Timeslot Timeslot
}

func (b Booking) Service() Service { return b.Spec.Service }

// =============================================================================
// OUTCOMES
// =============================================================================

// BookingOutcome is either a ResourcedBooking or an UnresourceableBooking.
type BookingOutcome interface {
	OutcomeBooking() Booking
	IsResourced() bool
	isBookingOutcome()
}

// ResourcedBooking has exactly one commitment per service requirement, in
// requirement order.
type ResourcedBooking struct {
	Booking     Booking
	Commitments []ResourceCommitment
}

// UnresourceableBooking lists every requirement that could not be satisfied,
// as declared on the service (before any fixed-commitment substitution).
type UnresourceableBooking struct {
	Booking        Booking
	Unresourceable []ResourceRequirement
}

func (r ResourcedBooking) OutcomeBooking() Booking      { return r.Booking }
func (u UnresourceableBooking) OutcomeBooking() Booking { return u.Booking }
func (ResourcedBooking) IsResourced() bool              { return true }
func (UnresourceableBooking) IsResourced() bool         { return false }
func (ResourcedBooking) isBookingOutcome()              {}
func (UnresourceableBooking) isBookingOutcome()         {}

// CommitmentFor returns the resource committed to a requirement.
func (r ResourcedBooking) CommitmentFor(id RequirementID) (Resource, bool) {
	for _, c := range r.Commitments {
		if c.Requirement.RequirementID() == id {
			return c.Resource, true
		}
	}
	return Resource{}, false
}

// UsesResource reports whether any commitment is on the resource.
func (r ResourcedBooking) UsesResource(id ResourceID) bool {
	for _, c := range r.Commitments {
		if c.Resource.ID == id {
			return true
		}
	}
	return false
}

// RequirementIDs lists the ids of the failed requirements.
func (u UnresourceableBooking) RequirementIDs() []RequirementID {
	ids := make([]RequirementID, len(u.Unresourceable))
	for i, r := range u.Unresourceable {
		ids[i] = r.RequirementID()
	}
	return ids
}
