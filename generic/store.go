/*
store.go - Persistence interface for resources, services and bookings

PURPOSE:
  Defines the boundary between the engine's callers and the database. The
  engine itself never touches a Store: callers hydrate resources and
  bookings from it, run the engine, and write accepted commitments back.

KEY INTERFACES:
  Store:   Resources, services and bookings
  TxStore: Store plus atomic read-resource-write cycles

BOOKINGS ARE STORED RESOURCED:
  SaveBooking takes a ResourcedBooking. Its commitments are persisted and
  come back from ListBookings as fixed commitments, so the next run of the
  engine reproduces the same assignment instead of reshuffling it.

EDITS KEEP STORED BOOKINGS VALID:
  A resource or service edit that would leave a stored booking holding a
  commitment it can no longer use is rejected (CheckResourceEdit,
  CheckServiceEdit). Stores run these checks before writing.

SERIALIZATION:
  The engine performs no locking. Creating a booking must happen inside
  WithTx: read resources and bookings, run the engine, save the result.
  Two concurrent creators then cannot both claim the last resource.

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory for testing
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - processor.go: ResourceBookings, run between load and save
*/
package generic

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	SaveResource(ctx context.Context, r Resource) error
	GetResource(ctx context.Context, id ResourceID) (Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)

	SaveService(ctx context.Context, s Service) error
	GetService(ctx context.Context, id ServiceID) (Service, error)
	ListServices(ctx context.Context) ([]Service, error)

	// SaveBooking persists a resourced booking and its commitments.
	// Returns ErrDuplicateBooking if the id exists.
	SaveBooking(ctx context.Context, b ResourcedBooking) error

	// GetBooking returns a stored booking with its commitments as fixed
	// commitments.
	GetBooking(ctx context.Context, id BookingID) (StoredBooking, error)

	// ListBookings returns bookings whose slot starts in [from, to], ordered
	// by creation time (first come, first served).
	ListBookings(ctx context.Context, from, to Date) ([]StoredBooking, error)
}

// StoredBooking is a persisted booking plus its creation time.
type StoredBooking struct {
	Booking   Booking
	CreatedAt time.Time
}

// Bookings strips the stored metadata, keeping order.
func Bookings(stored []StoredBooking) []Booking {
	out := make([]Booking, len(stored))
	for i, s := range stored {
		out[i] = s.Booking
	}
	return out
}

// PinCommitments turns a resourced booking's commitments into fixed
// commitments, the form in which stores hand bookings back.
func PinCommitments(rb ResourcedBooking) Booking {
	b := rb.Booking
	b.Spec.FixedCommitments = append([]ResourceCommitment(nil), rb.Commitments...)
	return b
}

// =============================================================================
// GUARDING EDITS
// =============================================================================

// CheckResourceEdit returns ErrResourceCommitted if r, as edited, can no
// longer fill a commitment one of the stored bookings holds on it: the slot
// must stay inside an availability window and the requirement must still
// match.
func CheckResourceEdit(r Resource, stored []StoredBooking) error {
	for _, sb := range stored {
		b := sb.Booking
		for _, fc := range b.Spec.FixedCommitments {
			if fc.Resource.ID != r.ID {
				continue
			}
			if !r.IsAvailableFor(b.Timeslot) {
				return fmt.Errorf("resource %s: %w: booking %s at %s", r.ID, ErrResourceCommitted, b.ID, b.Timeslot)
			}
			if !ResourceMatchesRequirement(r, fc.Requirement) {
				return fmt.Errorf("resource %s: %w: booking %s requirement %s", r.ID, ErrResourceCommitted, b.ID, fc.Requirement.RequirementID())
			}
		}
	}
	return nil
}

// CheckServiceEdit returns ErrRequirementInUse if svc drops a requirement
// that a stored booking of the service holds a commitment for, or changes it
// so the committed resource no longer matches. Committed resources are
// looked up in resources; unknown ids keep the copy on the booking.
func CheckServiceEdit(svc Service, stored []StoredBooking, resources []Resource) error {
	current := make(map[ResourceID]Resource, len(resources))
	for _, r := range resources {
		current[r.ID] = r
	}
	for _, sb := range stored {
		b := sb.Booking
		if b.Service().ID != svc.ID {
			continue
		}
		for _, fc := range b.Spec.FixedCommitments {
			id := fc.Requirement.RequirementID()
			req, ok := svc.Requirement(id)
			if !ok {
				return &ServiceConfigError{ServiceID: svc.ID, Requirement: id, Err: fmt.Errorf("%w: dropped while booking %s holds it", ErrRequirementInUse, b.ID)}
			}
			r, ok := current[fc.Resource.ID]
			if !ok {
				r = fc.Resource
			}
			if !ResourceMatchesRequirement(r, req) {
				return &ServiceConfigError{ServiceID: svc.ID, Requirement: id, Err: fmt.Errorf("%w: booking %s holds %s", ErrRequirementInUse, b.ID, r.ID)}
			}
		}
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
