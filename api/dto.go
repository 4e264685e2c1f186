/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Resources and services
  reuse the factory schema directly so what the API accepts is exactly what
  the database stores; bookings and availability get API-specific shapes.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Resources:    factory.ResourceJSON
  Services:     factory.ServiceJSON
  Bookings:     CreateBookingRequest, BookingDTO, CommitmentDTO,
                BookingConflictResponse
  Availability: AvailabilityRequest, AvailabilityResponse, DayDTO, SlotDTO
  Scenarios:    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers and the factory, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/service.go, factory/scenario.go: Shared schema
*/
package api

import (
	"time"

	"github.com/warp/slot-engine/factory"
	"github.com/warp/slot-engine/generic"
)

// =============================================================================
// BOOKINGS
// =============================================================================

// CreateBookingRequest is the request to place a booking. ID is optional;
// a UUID is generated when empty.
type CreateBookingRequest = factory.BookingJSON

// CommitmentDTO names the resource filling one requirement.
type CommitmentDTO struct {
	RequirementID string `json:"requirement_id"`
	ResourceID    string `json:"resource_id"`
	ResourceType  string `json:"resource_type,omitempty"`
}

// BookingDTO represents a stored or newly placed booking.
type BookingDTO struct {
	ID          string          `json:"id"`
	ServiceID   string          `json:"service_id"`
	Date        string          `json:"date"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Capacity    int             `json:"capacity"`
	Commitments []CommitmentDTO `json:"commitments"`
	CreatedAt   string          `json:"created_at,omitempty"`
}

// BookingConflictResponse is returned with 409 when a booking cannot be
// resourced. Unresourceable lists every requirement that found no resource.
type BookingConflictResponse struct {
	Error          string   `json:"error"`
	BookingID      string   `json:"booking_id"`
	Unresourceable []string `json:"unresourceable"`
}

func toBookingDTO(b generic.Booking, createdAt time.Time) BookingDTO {
	dto := BookingDTO{
		ID:          string(b.ID),
		ServiceID:   string(b.Service().ID),
		Date:        b.Timeslot.Date().String(),
		From:        b.Timeslot.From.Time.String(),
		To:          b.Timeslot.To.Time.String(),
		Capacity:    int(b.Spec.EffectiveCapacity()),
		Commitments: make([]CommitmentDTO, 0, len(b.Spec.FixedCommitments)),
	}
	for _, c := range b.Spec.FixedCommitments {
		dto.Commitments = append(dto.Commitments, toCommitmentDTO(c))
	}
	if !createdAt.IsZero() {
		dto.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toResourcedBookingDTO(rb generic.ResourcedBooking, createdAt time.Time) BookingDTO {
	return toBookingDTO(generic.PinCommitments(rb), createdAt)
}

func toCommitmentDTO(c generic.ResourceCommitment) CommitmentDTO {
	return CommitmentDTO{
		RequirementID: string(c.Requirement.RequirementID()),
		ResourceID:    string(c.Resource.ID),
		ResourceType:  string(c.Resource.Type),
	}
}

// =============================================================================
// AVAILABILITY
// =============================================================================

// AvailabilityRequest asks which slots in [From, To] could take a booking.
// SlotMinutes is the booking length; StepMinutes the distance between slot
// starts (defaults to SlotMinutes).
type AvailabilityRequest struct {
	ServiceID   string              `json:"service_id"`
	Capacity    int                 `json:"capacity,omitempty"`
	Fixed       []factory.FixedJSON `json:"fixed,omitempty"`
	From        string              `json:"from"`
	To          string              `json:"to"`
	SlotMinutes int                 `json:"slot_minutes"`
	StepMinutes int                 `json:"step_minutes,omitempty"`
}

// SlotDTO is the result for one candidate slot. Capacity figures are only
// set when the slot is available.
type SlotDTO struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Available bool   `json:"available"`
	Potential int    `json:"potential_capacity,omitempty"`
	Consumed  int    `json:"consumed_capacity,omitempty"`
	Remaining int    `json:"remaining_capacity,omitempty"`
}

type DayDTO struct {
	Date  string    `json:"date"`
	Slots []SlotDTO `json:"slots"`
}

type AvailabilityResponse struct {
	ServiceID string   `json:"service_id"`
	Days      []DayDTO `json:"days"`
}

func toAvailabilityResponse(serviceID generic.ServiceID, days []generic.DayAvailability) AvailabilityResponse {
	resp := AvailabilityResponse{ServiceID: string(serviceID), Days: make([]DayDTO, 0, len(days))}
	for _, d := range days {
		day := DayDTO{Date: d.Date.String(), Slots: make([]SlotDTO, 0, len(d.Results))}
		for _, r := range d.Results {
			slot := r.ResultBooking().Timeslot
			dto := SlotDTO{From: slot.From.Time.String(), To: slot.To.Time.String(), Available: r.IsAvailable()}
			if a, ok := r.(generic.Available); ok {
				dto.Potential = int(a.PotentialCapacity)
				dto.Consumed = int(a.ConsumedCapacity)
				dto.Remaining = int(a.RemainingCapacity())
			}
			day.Slots = append(day.Slots, dto)
		}
		resp.Days = append(resp.Days, day)
	}
	return resp
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response except 409 on
// bookings.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
