/*
errors.go - Centralized error types for the resourcing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (store, api, cmd) wrap these with additional context.

ERROR CATEGORIES:
  1. Configuration errors - An invalid Service definition. Fatal for every
     booking of that service; should be caught when the service is authored.
  2. Reference errors - Malformed input (unknown requirement or resource ids).
     These are programmer errors and are returned, never absorbed.
  3. Store errors - Missing records in persistence, and edits that would
     break bookings already accepted (conflicts).

NOT AN ERROR:
  A booking that cannot be resourced is an UnresourceableBooking outcome,
  not an error. See booking.go.

USAGE:
  if errors.Is(err, generic.ErrMultipleComplexRequirements) {
      // reject the service definition
  }

SEE ALSO:
  - service.go: Service.Validate produces configuration errors
  - allocation.go: Reference errors on fixed commitments
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMultipleComplexRequirements is returned when a service declares more
	// than one complex requirement against the same resource type.
	ErrMultipleComplexRequirements = errors.New("multiple complex requirements for the same resource type")

	// ErrDuplicateRequirementID is returned when two requirements of one
	// service share an id.
	ErrDuplicateRequirementID = errors.New("duplicate requirement id")

	// ErrInvalidCapacity is returned for a pooled service with a pool below 1
	// or a booking with a negative capacity.
	ErrInvalidCapacity = errors.New("invalid capacity")

	// ErrInvalidTime is returned when a date or clock time cannot be parsed.
	ErrInvalidTime = errors.New("invalid date or time")

	// ErrInvalidTimeslot is returned when a slot ends at or before its start.
	ErrInvalidTimeslot = errors.New("invalid timeslot: end not after start")

	// ErrUnknownRequirement is returned when a fixed commitment names a
	// requirement the service does not declare.
	ErrUnknownRequirement = errors.New("unknown requirement")

	// ErrUnknownResource is returned when a fixed commitment names a resource
	// that is not part of the resource pool.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrDuplicateResource is returned when the resource pool lists an id twice.
	ErrDuplicateResource = errors.New("duplicate resource id")

	// ErrResourceNotFound is returned by stores.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrServiceNotFound is returned by stores.
	ErrServiceNotFound = errors.New("service not found")

	// ErrBookingNotFound is returned by stores.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrDuplicateBooking is returned when a booking id already exists.
	ErrDuplicateBooking = errors.New("duplicate booking id")

	// ErrResourceCommitted is returned when a resource edit would leave a
	// stored booking holding a resource that can no longer serve it.
	ErrResourceCommitted = errors.New("resource committed to a booking it could no longer serve")

	// ErrRequirementInUse is returned when a service edit drops or narrows a
	// requirement that stored bookings hold commitments for.
	ErrRequirementInUse = errors.New("requirement in use by stored bookings")

	// ErrStoredBookingUnresourceable is returned when replaying the stored
	// bookings no longer resources one of them.
	ErrStoredBookingUnresourceable = errors.New("stored booking can no longer be resourced")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ServiceConfigError describes why a service definition was rejected.
type ServiceConfigError struct {
	ServiceID    ServiceID
	ResourceType ResourceType
	Requirement  RequirementID
	Err          error
}

func (e *ServiceConfigError) Error() string {
	switch {
	case e.ResourceType != "":
		return fmt.Sprintf("service %s: %v (resource type %s)", e.ServiceID, e.Err, e.ResourceType)
	case e.Requirement != "":
		return fmt.Sprintf("service %s: %v (requirement %s)", e.ServiceID, e.Err, e.Requirement)
	default:
		return fmt.Sprintf("service %s: %v", e.ServiceID, e.Err)
	}
}

func (e *ServiceConfigError) Unwrap() error { return e.Err }

// UnknownReferenceError names the booking and the id that could not be resolved.
type UnknownReferenceError struct {
	BookingID BookingID
	Ref       string
	Err       error
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("booking %s: %v: %s", e.BookingID, e.Err, e.Ref)
}

func (e *UnknownReferenceError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigError returns true if the error stems from an invalid service definition.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMultipleComplexRequirements) ||
		errors.Is(err, ErrDuplicateRequirementID) ||
		errors.Is(err, ErrInvalidCapacity)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return IsConfigError(err) ||
		errors.Is(err, ErrInvalidTime) ||
		errors.Is(err, ErrInvalidTimeslot) ||
		errors.Is(err, ErrUnknownRequirement) ||
		errors.Is(err, ErrUnknownResource) ||
		errors.Is(err, ErrDuplicateResource) ||
		errors.Is(err, ErrDuplicateBooking)
}

// IsConflict returns true if the request clashes with stored state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateBooking) ||
		errors.Is(err, ErrResourceCommitted) ||
		errors.Is(err, ErrRequirementInUse) ||
		errors.Is(err, ErrStoredBookingUnresourceable)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrResourceNotFound) ||
		errors.Is(err, ErrServiceNotFound) ||
		errors.Is(err, ErrBookingNotFound)
}
