/*
allocation_test.go - Behavior tests for the allocator and sequential processor

ORGANIZATION:
  1. Outcome shape - one commitment per requirement, complete failure reports
  2. Conflicts - no double booking, back-to-back is fine, availability windows
  3. Ranking - least-used round robin, disfavored resources
  4. Allocation rules - any vs unique
  5. Pooled services - shared quota, packing onto one resource
  6. Fixed commitments - pinning and unknown ids
  7. Configuration errors
  8. Accumulator immutability and determinism

Each test has GIVEN/WHEN/THEN comments. checkNoDoubleBooking is applied to
every successful run as a standing invariant.
*/
package generic_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/slot-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var day = generic.NewDate(2030, time.January, 7)

func slotOn(d generic.Date, from, to string) generic.Timeslot {
	s, err := generic.ParseTimeslot(d.String(), from, to)
	if err != nil {
		panic(err)
	}
	return s
}

func slot(from, to string) generic.Timeslot {
	return slotOn(day, from, to)
}

func allDay() []generic.Timeslot {
	return []generic.Timeslot{slot("08:00", "20:00")}
}

func staff(id string) generic.Resource {
	return generic.NewResource(generic.ResourceID(id), "staff", allDay(), nil)
}

func room(id string) generic.Resource {
	return generic.NewResource(generic.ResourceID(id), "room", allDay(), nil)
}

func needs(id string, resourceType generic.ResourceType) generic.AnySuitableResource {
	return generic.AnySuitableResource{ID: generic.RequirementID(id), ResourceType: resourceType}
}

func oneStaffService() generic.Service {
	return generic.MustService(generic.NewService("cut", "Haircut", needs("staff", "staff")))
}

func book(id string, svc generic.Service, s generic.Timeslot) generic.Booking {
	return generic.BookingSpec{Service: svc}.At(generic.BookingID(id), s)
}

func pinned(id string, svc generic.Service, s generic.Timeslot, req generic.RequirementID, resource generic.ResourceID) generic.Booking {
	r, ok := svc.Requirement(req)
	if !ok {
		r = needs(string(req), "staff")
	}
	spec := generic.BookingSpec{
		Service:          svc,
		FixedCommitments: []generic.ResourceCommitment{{Requirement: r, Resource: generic.Resource{ID: resource}}},
	}
	return spec.At(generic.BookingID(id), s)
}

func run(t *testing.T, resources []generic.Resource, bookings ...generic.Booking) generic.ResourcingAccumulator {
	t.Helper()
	acc, err := generic.ResourceBookings(resources, bookings, generic.ResourceBookingsOptions{})
	require.NoError(t, err)
	require.Len(t, acc.Resourced, len(bookings), "one outcome per booking")
	checkNoDoubleBooking(t, acc)
	return acc
}

func resourced(t *testing.T, acc generic.ResourcingAccumulator, id generic.BookingID) generic.ResourcedBooking {
	t.Helper()
	o, ok := acc.OutcomeFor(id)
	require.True(t, ok, "no outcome for %s", id)
	rb, ok := o.(generic.ResourcedBooking)
	require.True(t, ok, "%s should be resourced, got %#v", id, o)
	return rb
}

func unresourceable(t *testing.T, acc generic.ResourcingAccumulator, id generic.BookingID) generic.UnresourceableBooking {
	t.Helper()
	o, ok := acc.OutcomeFor(id)
	require.True(t, ok, "no outcome for %s", id)
	ub, ok := o.(generic.UnresourceableBooking)
	require.True(t, ok, "%s should be unresourceable, got %#v", id, o)
	return ub
}

func committed(t *testing.T, acc generic.ResourcingAccumulator, id generic.BookingID, req generic.RequirementID) generic.ResourceID {
	t.Helper()
	r, ok := resourced(t, acc, id).CommitmentFor(req)
	require.True(t, ok, "%s has no commitment for %s", id, req)
	return r.ID
}

// checkNoDoubleBooking asserts that resourced bookings sharing a resource do
// not intersect, unless they belong to the same pooled service and their
// combined capacity fits the pool.
func checkNoDoubleBooking(t *testing.T, acc generic.ResourcingAccumulator) {
	t.Helper()
	for _, u := range acc.Resources {
		for i, a := range u.Bookings {
			for _, b := range u.Bookings[i+1:] {
				if !generic.Intersects(a.Booking.Timeslot, b.Booking.Timeslot) {
					continue
				}
				svc := a.Booking.Service()
				if svc.IsPooled() && svc.ID == b.Booking.Service().ID {
					continue
				}
				t.Errorf("resource %s double booked by %s and %s", u.Resource.ID, a.Booking.ID, b.Booking.ID)
			}
		}
	}
	for _, rb := range acc.ResourcedBookings() {
		svc := rb.Booking.Service()
		if !svc.IsPooled() {
			continue
		}
		total := generic.Capacity(0)
		for _, other := range acc.ResourcedBookings() {
			if other.Booking.Service().ID == svc.ID && generic.Intersects(other.Booking.Timeslot, rb.Booking.Timeslot) {
				total += other.Booking.Spec.EffectiveCapacity()
			}
		}
		assert.LessOrEqual(t, int(total), int(svc.PoolCapacity()), "pool of %s exceeded around %s", svc.ID, rb.Booking.ID)
	}
}

// =============================================================================
// 1. OUTCOME SHAPE
// =============================================================================

func TestResourceBookings_OneCommitmentPerRequirement(t *testing.T) {
	// GIVEN: a service needing a stylist, an assistant and a room
	svc := generic.MustService(generic.NewService("colour", "Colour",
		needs("stylist", "staff"),
		generic.AnySuitableResource{ID: "assistant", ResourceType: "staff", Rule: generic.UniqueAllocation{}},
		needs("room", "room"),
	))
	resources := []generic.Resource{staff("anna"), staff("ben"), room("room-1")}

	// WHEN: one booking is placed
	acc := run(t, resources, book("b1", svc, slot("10:00", "11:00")))

	// THEN: every requirement has exactly one commitment, in declared order
	rb := resourced(t, acc, "b1")
	require.Len(t, rb.Commitments, len(svc.Requirements))
	for i, c := range rb.Commitments {
		assert.Equal(t, svc.Requirements[i].RequirementID(), c.Requirement.RequirementID())
	}
	assert.Equal(t, generic.ResourceID("anna"), committed(t, acc, "b1", "stylist"))
	assert.Equal(t, generic.ResourceID("ben"), committed(t, acc, "b1", "assistant"))
	assert.Equal(t, generic.ResourceID("room-1"), committed(t, acc, "b1", "room"))
}

func TestResourceBookings_FailureReportIsComplete(t *testing.T) {
	// GIVEN: a service needing staff, a room and a vehicle; only a room exists
	svc := generic.MustService(generic.NewService("tour", "Tour",
		needs("guide", "staff"), needs("room", "room"), needs("bus", "vehicle")))

	// WHEN: a booking is placed
	acc := run(t, []generic.Resource{room("room-1")}, book("b1", svc, slot("10:00", "11:00")))

	// THEN: every unmet requirement is reported, not just the first
	ub := unresourceable(t, acc, "b1")
	assert.Equal(t, []generic.RequirementID{"guide", "bus"}, ub.RequirementIDs())

	// AND: nothing was committed to the room
	usage, ok := acc.Usage("room-1")
	require.True(t, ok)
	assert.Empty(t, usage.Bookings)
}

func TestResourceBookings_ComplexPredicateUnmet(t *testing.T) {
	// GIVEN: vans with 3 and 7 seats, and a requirement for more than 8
	vans := []generic.Resource{
		generic.NewResource("van-small", "vehicle", allDay(), map[string]generic.MetadataValue{"seats": generic.IntValue(3)}),
		generic.NewResource("van-crew", "vehicle", allDay(), map[string]generic.MetadataValue{"seats": generic.IntValue(7)}),
	}
	req := generic.ComplexResourceRequirement{ID: "vehicle", ResourceType: "vehicle", Predicates: []generic.MetadataPredicate{
		generic.GreaterThan("seats", generic.IntValue(8)),
	}}
	svc := generic.MustService(generic.NewService("minibus", "Minibus", req))

	// WHEN: a booking is placed
	acc := run(t, vans, book("b1", svc, slot("10:00", "11:00")))

	// THEN: the outcome names that exact requirement
	ub := unresourceable(t, acc, "b1")
	require.Len(t, ub.Unresourceable, 1)
	assert.Equal(t, generic.ResourceRequirement(req), ub.Unresourceable[0])
}

func TestResourceBookings_ComplexPredicateMatch(t *testing.T) {
	// GIVEN: a white 7 seater listed after a blue 12 seater
	vans := []generic.Resource{
		generic.NewResource("minibus", "vehicle", allDay(), map[string]generic.MetadataValue{
			"seats": generic.IntValue(12), "colour": generic.StringValue("blue"),
		}),
		generic.NewResource("van-crew", "vehicle", allDay(), map[string]generic.MetadataValue{
			"seats": generic.IntValue(7), "colour": generic.StringValue("white"),
		}),
	}
	svc := generic.MustService(generic.NewService("crew-van", "Crew van", generic.ComplexResourceRequirement{
		ID: "vehicle", ResourceType: "vehicle", Predicates: []generic.MetadataPredicate{
			generic.GreaterThan("seats", generic.IntValue(5)),
			generic.Equals("colour", generic.StringValue("white")),
		},
	}))

	// WHEN / THEN: every predicate must hold, so the white van is picked
	acc := run(t, vans, book("b1", svc, slot("10:00", "11:00")))
	assert.Equal(t, generic.ResourceID("van-crew"), committed(t, acc, "b1", "vehicle"))
}

// =============================================================================
// 2. CONFLICTS
// =============================================================================

func TestResourceBookings_NoDoubleBooking(t *testing.T) {
	// GIVEN: one stylist and two overlapping bookings
	svc := oneStaffService()

	// WHEN: both are placed
	acc := run(t, []generic.Resource{staff("anna")},
		book("b1", svc, slot("10:00", "11:00")),
		book("b2", svc, slot("10:30", "11:30")),
	)

	// THEN: the first claims the stylist, the second cannot be resourced
	assert.Equal(t, generic.ResourceID("anna"), committed(t, acc, "b1", "staff"))
	assert.Equal(t, []generic.RequirementID{"staff"}, unresourceable(t, acc, "b2").RequirementIDs())
}

func TestResourceBookings_BackToBackShareResource(t *testing.T) {
	// GIVEN: one stylist and two bookings that touch at 10:00
	svc := oneStaffService()

	// WHEN: both are placed
	acc := run(t, []generic.Resource{staff("anna")},
		book("b1", svc, slot("09:00", "10:00")),
		book("b2", svc, slot("10:00", "11:00")),
	)

	// THEN: both get the same stylist
	assert.Equal(t, generic.ResourceID("anna"), committed(t, acc, "b1", "staff"))
	assert.Equal(t, generic.ResourceID("anna"), committed(t, acc, "b2", "staff"))
}

func TestResourceBookings_AvailabilityWindowMustContainSlot(t *testing.T) {
	// GIVEN: a stylist available 09:00-12:00 only
	part := generic.NewResource("anna", "staff", []generic.Timeslot{slot("09:00", "12:00")}, nil)
	svc := oneStaffService()

	// WHEN: bookings inside, straddling and outside the window are placed
	acc := run(t, []generic.Resource{part},
		book("inside", svc, slot("09:00", "10:00")),
		book("straddle", svc, slot("11:30", "12:30")),
		book("outside", svc, slot("13:00", "14:00")),
		book("next-day", svc, slotOn(day.AddDays(1), "09:00", "10:00")),
	)

	// THEN: only the contained one is resourced
	resourced(t, acc, "inside")
	unresourceable(t, acc, "straddle")
	unresourceable(t, acc, "outside")
	unresourceable(t, acc, "next-day")
}

func TestResourceBookings_OrderIsSignificant(t *testing.T) {
	// GIVEN: one stylist and two overlapping bookings
	svc := oneStaffService()
	first := book("early", svc, slot("10:00", "11:00"))
	second := book("late", svc, slot("10:30", "11:30"))

	// WHEN: processed in either order
	ab := run(t, []generic.Resource{staff("anna")}, first, second)
	ba := run(t, []generic.Resource{staff("anna")}, second, first)

	// THEN: whichever comes first wins, and nothing is reassigned
	resourced(t, ab, "early")
	unresourceable(t, ab, "late")
	resourced(t, ba, "late")
	unresourceable(t, ba, "early")
	assert.Equal(t, generic.BookingID("late"), ba.Resourced[0].OutcomeBooking().ID, "outcomes keep input order")
}

// =============================================================================
// 3. RANKING
// =============================================================================

func TestResourceBookings_LeastUsedRoundRobin(t *testing.T) {
	// GIVEN: two rooms open 09:00-12:00 and three back-to-back hour bookings
	window := []generic.Timeslot{slot("09:00", "12:00")}
	rooms := []generic.Resource{
		generic.NewResource("room1", "room", window, nil),
		generic.NewResource("room2", "room", window, nil),
	}
	svc := generic.MustService(generic.NewService("meeting", "Meeting", needs("room", "room")))

	// WHEN: they are placed in order
	acc := run(t, rooms,
		book("b1", svc, slot("09:00", "10:00")),
		book("b2", svc, slot("10:00", "11:00")),
		book("b3", svc, slot("11:00", "12:00")),
	)

	// THEN: rooms alternate by booking count, ties going to pool order
	assert.Equal(t, generic.ResourceID("room1"), committed(t, acc, "b1", "room"))
	assert.Equal(t, generic.ResourceID("room2"), committed(t, acc, "b2", "room"))
	assert.Equal(t, generic.ResourceID("room1"), committed(t, acc, "b3", "room"))
}

func TestResourceBookings_DisfavoredIsSoft(t *testing.T) {
	svc := oneStaffService()
	b := book("b1", svc, slot("10:00", "11:00"))
	opts := generic.ResourceBookingsOptions{DisfavoredResources: []generic.DisfavoredResource{
		{Resource: "anna", Timeslots: []generic.Timeslot{slot("10:30", "12:00")}},
	}}

	t.Run("avoided when an alternative exists", func(t *testing.T) {
		// GIVEN: anna is disfavored around the booking, ben is free
		acc, err := generic.ResourceBookings([]generic.Resource{staff("anna"), staff("ben")}, []generic.Booking{b}, opts)
		require.NoError(t, err)

		// THEN: ben is picked despite anna winning the tie on pool order
		assert.Equal(t, generic.ResourceID("ben"), committed(t, acc, "b1", "staff"))
	})

	t.Run("used when nothing else is left", func(t *testing.T) {
		// GIVEN: anna is the only stylist
		acc, err := generic.ResourceBookings([]generic.Resource{staff("anna")}, []generic.Booking{b}, opts)
		require.NoError(t, err)

		// THEN: the hint never blocks a booking
		assert.Equal(t, generic.ResourceID("anna"), committed(t, acc, "b1", "staff"))
	})

	t.Run("ignored for non-intersecting slots", func(t *testing.T) {
		later := book("b2", svc, slot("12:00", "13:00"))
		acc, err := generic.ResourceBookings([]generic.Resource{staff("anna"), staff("ben")}, []generic.Booking{later}, opts)
		require.NoError(t, err)
		assert.Equal(t, generic.ResourceID("anna"), committed(t, acc, "b2", "staff"))
	})
}

// =============================================================================
// 4. ALLOCATION RULES
// =============================================================================

func TestResourceBookings_AnyRuleMayReuseResource(t *testing.T) {
	// GIVEN: two staff roles under rule any, one staff member
	svc := generic.MustService(generic.NewService("double", "Double",
		needs("lead", "staff"), needs("assistant", "staff")))

	// WHEN: a booking is placed
	acc := run(t, []generic.Resource{staff("anna")}, book("b1", svc, slot("10:00", "11:00")))

	// THEN: both roles resolve to the same person
	assert.Equal(t, generic.ResourceID("anna"), committed(t, acc, "b1", "lead"))
	assert.Equal(t, generic.ResourceID("anna"), committed(t, acc, "b1", "assistant"))
}

func TestResourceBookings_UniqueRuleNeedsDistinctResource(t *testing.T) {
	svc := generic.MustService(generic.NewService("double", "Double",
		needs("lead", "staff"),
		generic.AnySuitableResource{ID: "assistant", ResourceType: "staff", Rule: generic.UniqueAllocation{}},
	))

	t.Run("one staff member", func(t *testing.T) {
		// WHEN: only anna exists
		acc := run(t, []generic.Resource{staff("anna")}, book("b1", svc, slot("10:00", "11:00")))

		// THEN: the second role cannot reuse her
		assert.Equal(t, []generic.RequirementID{"assistant"}, unresourceable(t, acc, "b1").RequirementIDs())
	})

	t.Run("two staff members", func(t *testing.T) {
		acc := run(t, []generic.Resource{staff("anna"), staff("ben")}, book("b1", svc, slot("10:00", "11:00")))
		assert.Equal(t, generic.ResourceID("anna"), committed(t, acc, "b1", "lead"))
		assert.Equal(t, generic.ResourceID("ben"), committed(t, acc, "b1", "assistant"))
	})
}

// =============================================================================
// 5. POOLED SERVICES
// =============================================================================

func TestResourceBookings_PooledQuota(t *testing.T) {
	// GIVEN: a class of 10 places and two rooms
	svc := generic.MustService(generic.NewPooledService("yoga", "Yoga", 10, needs("room", "room")))
	rooms := []generic.Resource{room("studio-a"), room("studio-b")}

	var bookings []generic.Booking
	for i := 1; i <= 11; i++ {
		bookings = append(bookings, book(fmt.Sprintf("b%d", i), svc, slot("08:30", "09:30")))
	}

	// WHEN: 11 identical bookings are placed
	acc := run(t, rooms, bookings...)

	// THEN: the first 10 are packed into one room, the 11th is refused
	for i := 1; i <= 10; i++ {
		assert.Equal(t, generic.ResourceID("studio-a"), committed(t, acc, generic.BookingID(fmt.Sprintf("b%d", i)), "room"))
	}
	unresourceable(t, acc, "b11")

	usage, _ := acc.Usage("studio-b")
	assert.Empty(t, usage.Bookings, "second room stays free")
}

func TestResourceBookings_PooledCapacityCountsPlaces(t *testing.T) {
	// GIVEN: a pool of 10 and bookings of 4 places each
	svc := generic.MustService(generic.NewPooledService("tour", "Tour", 10, needs("guide", "staff")))
	group := func(id string, s generic.Timeslot) generic.Booking {
		return generic.BookingSpec{Service: svc, BookedCapacity: 4}.At(generic.BookingID(id), s)
	}

	// WHEN: three overlapping groups and one later group are placed
	acc := run(t, []generic.Resource{staff("anna"), staff("ben")},
		group("g1", slot("10:00", "11:00")),
		group("g2", slot("10:30", "11:30")),
		group("g3", slot("10:00", "11:00")),
		group("g4", slot("12:00", "13:00")),
	)

	// THEN: 4+4 fit, a third 4 would make 12, the later slot has its own quota
	assert.Equal(t, generic.ResourceID("anna"), committed(t, acc, "g1", "guide"))
	assert.Equal(t, generic.ResourceID("anna"), committed(t, acc, "g2", "guide"))
	assert.Equal(t, []generic.RequirementID{"guide"}, unresourceable(t, acc, "g3").RequirementIDs())
	resourced(t, acc, "g4")
}

func TestResourceBookings_PooledServiceDoesNotShareWithOthers(t *testing.T) {
	// GIVEN: a pooled class on anna and a private session at the same time
	class := generic.MustService(generic.NewPooledService("class", "Class", 5, needs("instructor", "staff")))
	private := oneStaffService()

	// WHEN: both are placed
	acc := run(t, []generic.Resource{staff("anna"), staff("ben")},
		book("c1", class, slot("10:00", "11:00")),
		book("p1", private, slot("10:00", "11:00")),
		book("c2", class, slot("10:00", "11:00")),
	)

	// THEN: the private session goes elsewhere and the class keeps packing
	assert.Equal(t, generic.ResourceID("anna"), committed(t, acc, "c1", "instructor"))
	assert.Equal(t, generic.ResourceID("ben"), committed(t, acc, "p1", "staff"))
	assert.Equal(t, generic.ResourceID("anna"), committed(t, acc, "c2", "instructor"))
}

// =============================================================================
// 6. FIXED COMMITMENTS
// =============================================================================

func TestResourceBookings_FixedCommitmentPins(t *testing.T) {
	// GIVEN: anna and ben, with the booking pinned to ben
	svc := oneStaffService()

	// WHEN: placed
	acc := run(t, []generic.Resource{staff("anna"), staff("ben")},
		pinned("b1", svc, slot("10:00", "11:00"), "staff", "ben"))

	// THEN: ben is used even though anna ranks first
	assert.Equal(t, generic.ResourceID("ben"), committed(t, acc, "b1", "staff"))
}

func TestResourceBookings_FixedCommitmentBusy(t *testing.T) {
	// GIVEN: ben is already booked, and a second booking is pinned to him
	svc := oneStaffService()

	// WHEN: placed
	acc := run(t, []generic.Resource{staff("anna"), staff("ben")},
		pinned("b1", svc, slot("10:00", "11:00"), "staff", "ben"),
		pinned("b2", svc, slot("10:00", "11:00"), "staff", "ben"),
	)

	// THEN: the pin is not relaxed to anna; the original requirement is reported
	ub := unresourceable(t, acc, "b2")
	require.Len(t, ub.Unresourceable, 1)
	assert.Equal(t, generic.ResourceRequirement(needs("staff", "staff")), ub.Unresourceable[0])
}

func TestResourceBookings_FixedCommitmentUnknownIDs(t *testing.T) {
	svc := oneStaffService()
	resources := []generic.Resource{staff("anna")}

	t.Run("unknown requirement", func(t *testing.T) {
		b := pinned("b1", svc, slot("10:00", "11:00"), "driver", "anna")
		_, err := generic.ResourceBookings(resources, []generic.Booking{b}, generic.ResourceBookingsOptions{})

		require.Error(t, err)
		assert.ErrorIs(t, err, generic.ErrUnknownRequirement)
		var ref *generic.UnknownReferenceError
		require.True(t, errors.As(err, &ref))
		assert.Equal(t, generic.BookingID("b1"), ref.BookingID)
		assert.Equal(t, "driver", ref.Ref)
	})

	t.Run("unknown resource", func(t *testing.T) {
		b := pinned("b1", svc, slot("10:00", "11:00"), "staff", "zoe")
		_, err := generic.ResourceBookings(resources, []generic.Booking{b}, generic.ResourceBookingsOptions{})

		assert.ErrorIs(t, err, generic.ErrUnknownResource)
		assert.True(t, generic.IsClientError(err))
	})
}

// =============================================================================
// 7. CONFIGURATION ERRORS
// =============================================================================

func TestResourceBookings_TwoComplexRequirementsSameTypeIsFatal(t *testing.T) {
	// GIVEN: a service built without the validating constructor
	seats := generic.ComplexResourceRequirement{ID: "a", ResourceType: "vehicle", Predicates: []generic.MetadataPredicate{
		generic.GreaterThan("seats", generic.IntValue(2)),
	}}
	colour := generic.ComplexResourceRequirement{ID: "b", ResourceType: "vehicle", Predicates: []generic.MetadataPredicate{
		generic.Equals("colour", generic.StringValue("white")),
	}}
	bad := generic.Service{ID: "bad", Requirements: []generic.ResourceRequirement{seats, colour}}
	good := oneStaffService()

	// WHEN: it appears anywhere in the booking list
	_, err := generic.ResourceBookings([]generic.Resource{staff("anna")}, []generic.Booking{
		book("b1", good, slot("09:00", "10:00")),
		book("b2", bad, slot("10:00", "11:00")),
	}, generic.ResourceBookingsOptions{})

	// THEN: the whole call fails with a configuration error
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrMultipleComplexRequirements)
	assert.True(t, generic.IsConfigError(err))

	var cfgErr *generic.ServiceConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, generic.ServiceID("bad"), cfgErr.ServiceID)
	assert.Equal(t, generic.ResourceType("vehicle"), cfgErr.ResourceType)
}

func TestResourceBookings_InputErrors(t *testing.T) {
	svc := oneStaffService()

	t.Run("duplicate resource id", func(t *testing.T) {
		_, err := generic.ResourceBookings([]generic.Resource{staff("anna"), staff("anna")}, nil, generic.ResourceBookingsOptions{})
		assert.ErrorIs(t, err, generic.ErrDuplicateResource)
	})

	t.Run("negative capacity", func(t *testing.T) {
		b := generic.BookingSpec{Service: svc, BookedCapacity: -1}.At("b1", slot("10:00", "11:00"))
		_, err := generic.ResourceBookings([]generic.Resource{staff("anna")}, []generic.Booking{b}, generic.ResourceBookingsOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, generic.ErrInvalidCapacity)
		assert.Equal(t, "booking b1: invalid capacity: -1", err.Error())

		var ref *generic.UnknownReferenceError
		assert.False(t, errors.As(err, &ref), "a bad capacity is not an unknown reference")
	})

	t.Run("inverted slot", func(t *testing.T) {
		inverted := generic.NewTimeslot(day, generic.NewTimeOfDay(11, 0), generic.NewTimeOfDay(10, 0))
		_, err := generic.ResourceBookings([]generic.Resource{staff("anna")}, []generic.Booking{book("b1", svc, inverted)}, generic.ResourceBookingsOptions{})
		assert.ErrorIs(t, err, generic.ErrInvalidTimeslot)
	})
}

// =============================================================================
// 8. IMMUTABILITY AND DETERMINISM
// =============================================================================

func TestResourceBooking_DoesNotModifyAccumulator(t *testing.T) {
	// GIVEN: an accumulator holding one booking
	svc := oneStaffService()
	acc := run(t, []generic.Resource{staff("anna"), staff("ben")}, book("b1", svc, slot("09:00", "10:00")))
	before := acc.Clone()

	// WHEN: another booking is resolved against it
	next, outcome, err := generic.ResourceBooking(acc, book("b2", svc, slot("09:00", "10:00")), generic.ResourceBookingsOptions{})
	require.NoError(t, err)
	require.True(t, outcome.IsResourced())

	// THEN: the original is unchanged and the new one holds both
	assert.Equal(t, before, acc)
	assert.Len(t, acc.Resourced, 1)
	assert.Len(t, next.Resourced, 2)
}

func TestResourceBookings_Deterministic(t *testing.T) {
	svc := generic.MustService(generic.NewService("double", "Double",
		needs("lead", "staff"),
		generic.AnySuitableResource{ID: "assistant", ResourceType: "staff", Rule: generic.UniqueAllocation{}},
	))
	resources := []generic.Resource{staff("anna"), staff("ben"), staff("chloe")}
	bookings := []generic.Booking{
		book("b1", svc, slot("09:00", "10:00")),
		book("b2", svc, slot("09:30", "10:30")),
		book("b3", svc, slot("10:00", "11:00")),
		book("b4", svc, slot("09:45", "10:15")),
	}

	first := run(t, resources, bookings...)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, run(t, resources, bookings...))
	}
}
