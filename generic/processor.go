package generic

// =============================================================================
// SEQUENTIAL PROCESSOR
// =============================================================================

// ResourceBookings folds bookings, in the order given, through a fresh
// accumulator built from resources. The result holds one outcome per booking
// in input order.
//
// Order matters: earlier bookings claim scarce resources first and nothing is
// ever reassigned. Callers that need fairness (first come, first served)
// sort bookings before calling.
//
// Every service is validated before any booking is processed, so an invalid
// definition fails the whole call rather than a single booking.
func ResourceBookings(resources []Resource, bookings []Booking, opts ResourceBookingsOptions) (ResourcingAccumulator, error) {
	acc, err := NewResourcingAccumulator(resources)
	if err != nil {
		return ResourcingAccumulator{}, err
	}

	for _, b := range bookings {
		if err := b.Service().Validate(); err != nil {
			return ResourcingAccumulator{}, err
		}
	}

	for _, b := range bookings {
		acc, _, err = ResourceBooking(acc, b, opts)
		if err != nil {
			return ResourcingAccumulator{}, err
		}
	}
	return acc, nil
}
