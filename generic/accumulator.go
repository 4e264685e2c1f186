/*
accumulator.go - The engine's working state

PURPOSE:
  ResourcingAccumulator is everything the allocator knows while it folds a
  booking list: one ResourceUsage per resource (the bookings already
  committed to it) and the outcome of every booking processed so far.

IMMUTABILITY:
  Each allocation step returns a NEW accumulator. Slices belonging to the
  receiver are never written: an update copies the usage list and the one
  bookings slice that changes, and shares everything else. Holding on to an
  earlier accumulator is therefore safe, which is what lets the availability
  layer evaluate many candidate slots against one shared baseline.

LIFETIME:
  Built fresh on every call from caller-supplied resources and bookings.
  Nothing persists between calls.

SEE ALSO:
  - allocation.go: Produces new accumulators
  - availability.go: Reads them without committing
*/
package generic

import "fmt"

// ResourceUsage is one resource and the bookings committed to it.
type ResourceUsage struct {
	Resource Resource
	Bookings []ResourcedBooking
}

// BookingCount is the least-used ranking key.
func (u ResourceUsage) BookingCount() int { return len(u.Bookings) }

type ResourcingAccumulator struct {
	Resources []ResourceUsage
	Resourced []BookingOutcome
}

// NewResourcingAccumulator starts an accumulator with no bookings.
func NewResourcingAccumulator(resources []Resource) (ResourcingAccumulator, error) {
	seen := make(map[ResourceID]bool, len(resources))
	usages := make([]ResourceUsage, 0, len(resources))
	for _, r := range resources {
		if seen[r.ID] {
			return ResourcingAccumulator{}, fmt.Errorf("%w: %s", ErrDuplicateResource, r.ID)
		}
		seen[r.ID] = true
		usages = append(usages, ResourceUsage{Resource: r})
	}
	return ResourcingAccumulator{Resources: usages}, nil
}

// Usage returns the usage entry for a resource.
func (a ResourcingAccumulator) Usage(id ResourceID) (ResourceUsage, bool) {
	for _, u := range a.Resources {
		if u.Resource.ID == id {
			return u, true
		}
	}
	return ResourceUsage{}, false
}

// ResourcedBookings returns the successful outcomes, in processing order.
func (a ResourcingAccumulator) ResourcedBookings() []ResourcedBooking {
	var out []ResourcedBooking
	for _, o := range a.Resourced {
		if rb, ok := o.(ResourcedBooking); ok {
			out = append(out, rb)
		}
	}
	return out
}

// Unresourceable returns the failed outcomes, in processing order.
func (a ResourcingAccumulator) Unresourceable() []UnresourceableBooking {
	var out []UnresourceableBooking
	for _, o := range a.Resourced {
		if ub, ok := o.(UnresourceableBooking); ok {
			out = append(out, ub)
		}
	}
	return out
}

// OutcomeFor finds the outcome recorded for a booking.
func (a ResourcingAccumulator) OutcomeFor(id BookingID) (BookingOutcome, bool) {
	for _, o := range a.Resourced {
		if o.OutcomeBooking().ID == id {
			return o, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the slice structure.
func (a ResourcingAccumulator) Clone() ResourcingAccumulator {
	usages := make([]ResourceUsage, len(a.Resources))
	for i, u := range a.Resources {
		usages[i] = ResourceUsage{Resource: u.Resource, Bookings: append([]ResourcedBooking(nil), u.Bookings...)}
	}
	return ResourcingAccumulator{
		Resources: usages,
		Resourced: append([]BookingOutcome(nil), a.Resourced...),
	}
}

// withOutcome returns a new accumulator that records the outcome and, for a
// resourced booking, adds it once to every distinct resource it uses.
func (a ResourcingAccumulator) withOutcome(outcome BookingOutcome) ResourcingAccumulator {
	next := ResourcingAccumulator{
		Resources: a.Resources,
		Resourced: appendCopy(a.Resourced, outcome),
	}

	rb, ok := outcome.(ResourcedBooking)
	if !ok {
		return next
	}

	usages := make([]ResourceUsage, len(a.Resources))
	copy(usages, a.Resources)
	for i, u := range usages {
		if rb.UsesResource(u.Resource.ID) {
			usages[i].Bookings = appendCopy(u.Bookings, rb)
		}
	}
	next.Resources = usages
	return next
}

// appendCopy appends without touching the backing array of s.
func appendCopy[T any](s []T, v T) []T {
	out := make([]T, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}
