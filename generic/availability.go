/*
availability.go - "What would happen if" queries over the accumulator

PURPOSE:
  Answers "could this booking be served, and how full is the slot?" for
  candidate time slots, without committing anything.

CAPACITY FIGURES:
  PotentialCapacity
    pooled:   the pool size
    unpooled: for each requirement, how many matching resources are
              available for the slot; the minimum across requirements.
              An upper bound that ignores current usage.
  ConsumedCapacity
    pooled:   places taken by resourced bookings of the same service that
              intersect the slot
    unpooled: for each requirement, how many distinct resourced bookings
              intersecting the slot use a resource matching it; the maximum
              across requirements.

INDEPENDENT CANDIDATES:
  ListAvailability resources the existing bookings once and evaluates every
  candidate slot against that same baseline. Candidate slots never compete:
  picking one does not consume anything from another's point of view.

SEE ALSO:
  - allocation.go: The allocation step reused here
*/
package generic

// =============================================================================
// RESULTS
// =============================================================================

// AvailabilityResult is either Available or Unavailable.
type AvailabilityResult interface {
	ResultBooking() Booking
	IsAvailable() bool
	isAvailabilityResult()
}

type Available struct {
	Booking           Booking
	PotentialCapacity Capacity
	ConsumedCapacity  Capacity
}

type Unavailable struct {
	Booking Booking
}

func (a Available) ResultBooking() Booking   { return a.Booking }
func (u Unavailable) ResultBooking() Booking { return u.Booking }
func (Available) IsAvailable() bool          { return true }
func (Unavailable) IsAvailable() bool        { return false }
func (Available) isAvailabilityResult()      {}
func (Unavailable) isAvailabilityResult()    {}

// RemainingCapacity is potential minus consumed, never negative.
func (a Available) RemainingCapacity() Capacity {
	if a.ConsumedCapacity >= a.PotentialCapacity {
		return 0
	}
	return a.PotentialCapacity - a.ConsumedCapacity
}

// =============================================================================
// QUERIES
// =============================================================================

// CheckAvailability runs the allocation step for candidate against acc and
// reports the outcome with capacity figures. acc is not modified.
func CheckAvailability(acc ResourcingAccumulator, candidate Booking) (AvailabilityResult, error) {
	_, outcome, err := ResourceBooking(acc, candidate, ResourceBookingsOptions{})
	if err != nil {
		return nil, err
	}
	if !outcome.IsResourced() {
		return Unavailable{Booking: candidate}, nil
	}
	return Available{
		Booking:           candidate,
		PotentialCapacity: potentialCapacity(acc, candidate),
		ConsumedCapacity:  consumedCapacity(acc, candidate),
	}, nil
}

// ListAvailability evaluates spec at every candidate slot.
//
// Existing bookings are resourced once, steering them away from the
// resources spec pins for any of the candidate slots, and each slot is then
// checked against that shared baseline. Results are in slot order.
func ListAvailability(resources []Resource, existing []Booking, spec BookingSpec, candidates []Timeslot) ([]AvailabilityResult, error) {
	var opts ResourceBookingsOptions
	for _, fc := range spec.FixedCommitments {
		opts.DisfavoredResources = append(opts.DisfavoredResources, DisfavoredResource{
			Resource:  fc.Resource.ID,
			Timeslots: candidates,
		})
	}

	baseline, err := ResourceBookings(resources, existing, opts)
	if err != nil {
		return nil, err
	}

	results := make([]AvailabilityResult, 0, len(candidates))
	for _, slot := range candidates {
		result, err := CheckAvailability(baseline, spec.At(CandidateBookingID(slot), slot))
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// CandidateBookingID names the hypothetical booking evaluated for a slot.
func CandidateBookingID(slot Timeslot) BookingID {
	return BookingID("candidate:" + slot.String())
}

// =============================================================================
// CAPACITY
// =============================================================================

func potentialCapacity(acc ResourcingAccumulator, candidate Booking) Capacity {
	service := candidate.Service()
	if service.IsPooled() {
		return service.PoolCapacity()
	}
	if len(service.Requirements) == 0 {
		return candidate.Spec.EffectiveCapacity()
	}

	potential := Capacity(-1)
	for _, req := range effectiveRequirements(acc, candidate) {
		count := Capacity(0)
		for _, u := range acc.Resources {
			if ResourceMatchesRequirement(u.Resource, req) && u.Resource.IsAvailableFor(candidate.Timeslot) {
				count++
			}
		}
		if potential < 0 || count < potential {
			potential = count
		}
	}
	return potential
}

func consumedCapacity(acc ResourcingAccumulator, candidate Booking) Capacity {
	service := candidate.Service()
	if service.IsPooled() {
		return pooledConsumption(acc, service.ID, candidate.Timeslot)
	}

	consumed := Capacity(0)
	resourced := acc.ResourcedBookings()
	for _, req := range effectiveRequirements(acc, candidate) {
		count := Capacity(0)
		for _, rb := range resourced {
			if !Intersects(rb.Booking.Timeslot, candidate.Timeslot) {
				continue
			}
			for _, c := range rb.Commitments {
				if ResourceMatchesRequirement(c.Resource, req) {
					count++
					break
				}
			}
		}
		if count > consumed {
			consumed = count
		}
	}
	return consumed
}

// effectiveRequirements applies the candidate's fixed commitments the same
// way the allocator does. Unknown ids were already rejected by allocation.
func effectiveRequirements(acc ResourcingAccumulator, candidate Booking) []ResourceRequirement {
	reqs := make([]ResourceRequirement, len(candidate.Service().Requirements))
	for i, req := range candidate.Service().Requirements {
		reqs[i] = req
		if fc, ok := candidate.Spec.FixedFor(req.RequirementID()); ok {
			if u, ok := acc.Usage(fc.Resource.ID); ok {
				reqs[i] = SpecificResource{ID: req.RequirementID(), Resource: u.Resource}
			}
		}
	}
	return reqs
}

// =============================================================================
// DAY BY DAY
// =============================================================================

// DayAvailability groups results that start on the same date.
type DayAvailability struct {
	Date    Date
	Results []AvailabilityResult
}

// GroupByDate groups results by start date, keeping first-seen date order
// and result order within a day.
func GroupByDate(results []AvailabilityResult) []DayAvailability {
	var days []DayAvailability
	index := make(map[Date]int)
	for _, r := range results {
		d := r.ResultBooking().Timeslot.Date()
		i, ok := index[d]
		if !ok {
			i = len(days)
			index[d] = i
			days = append(days, DayAvailability{Date: d})
		}
		days[i].Results = append(days[i].Results, r)
	}
	return days
}
