/*
handlers.go - HTTP API handlers for the slot resourcing engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates allocation and availability to generic/.

ENDPOINTS:
  Resources:
    GET    /api/resources              List the resource pool
    POST   /api/resources              Create or replace a resource
    GET    /api/resources/{id}         Get one resource

  Services:
    GET    /api/services               List services
    POST   /api/services               Create service from JSON
    GET    /api/services/{id}          Get one service

  Bookings:
    GET    /api/bookings?from&to       Bookings starting in a date range
    POST   /api/bookings               Place a booking
    GET    /api/bookings/{id}          Get one booking with its commitments

  Availability:
    POST   /api/availability           Day-by-day slot availability

PLACING A BOOKING:
  Inside one store transaction:
    1. Load the resource pool and the bookings near the requested slot,
       oldest first. Stored bookings carry their commitments as fixed
       commitments, so they keep their resources.
    2. Run ResourceBookings with the new booking last. Every stored
       booking must come out resourced again; if one does not, the
       transaction fails with 409 and nothing is written.
    3. Resourced: save it, 201. Unresourceable: 409 listing the unmet
       requirement ids; nothing is written.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, invalid service definitions
  - 404: Resource, service or booking not found
  - 409: Booking cannot be resourced, duplicate booking id, resource or
         service edits that would strand a stored booking
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/slot-engine/catalog"
	"github.com/warp/slot-engine/factory"
	"github.com/warp/slot-engine/generic"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Backend is the storage the API needs: transactional access plus a reset
// for demo scenarios.
type Backend interface {
	generic.TxStore
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store          Backend
	ServiceFactory *factory.ServiceFactory
	Logger         zerolog.Logger
	Metrics        *Metrics

	// Hours bounds the candidate slots of availability queries.
	Hours catalog.OpeningHours

	// Track currently loaded scenario
	mu              sync.RWMutex
	currentScenario string

	newID func() string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Backend, logger zerolog.Logger) *Handler {
	return &Handler{
		Store:          store,
		ServiceFactory: factory.NewServiceFactory(),
		Logger:         logger,
		Metrics:        NewMetrics(),
		Hours:          catalog.EveryDay(generic.NewTimeOfDay(9, 0), generic.NewTimeOfDay(17, 0)),
		newID:          uuid.NewString,
	}
}

// =============================================================================
// RESOURCE HANDLERS
// =============================================================================

// ListResources returns the resource pool in pool order.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.Store.ListResources(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list resources", err)
		return
	}

	dtos := make([]factory.ResourceJSON, len(resources))
	for i, res := range resources {
		dtos[i] = factory.ResourceToJSON(res)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetResource returns one resource.
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	res, err := h.Store.GetResource(r.Context(), generic.ResourceID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, "Failed to get resource", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ResourceToJSON(res))
}

// CreateResource creates or replaces a resource.
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req factory.ResourceJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := factory.ResourceFromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid resource", err)
		return
	}
	if err := h.Store.SaveResource(r.Context(), res); err != nil {
		writeStoreError(w, "Failed to save resource", err)
		return
	}

	h.Logger.Debug().Str("resource_id", string(res.ID)).Str("type", string(res.Type)).Msg("resource saved")
	writeJSON(w, http.StatusCreated, factory.ResourceToJSON(res))
}

// =============================================================================
// SERVICE HANDLERS
// =============================================================================

// ListServices returns all services.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.Store.ListServices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list services", err)
		return
	}

	dtos := make([]factory.ServiceJSON, len(services))
	for i, s := range services {
		dtos[i] = h.ServiceFactory.ToJSON(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateService validates and stores a service definition. Invalid
// definitions are rejected here, before any booking can reference them.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req factory.ServiceJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	svc, err := h.ServiceFactory.FromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid service", err)
		return
	}
	if err := h.Store.SaveService(r.Context(), svc); err != nil {
		writeStoreError(w, "Failed to save service", err)
		return
	}

	h.Logger.Debug().Str("service_id", string(svc.ID)).Bool("pooled", svc.IsPooled()).Msg("service saved")
	writeJSON(w, http.StatusCreated, h.ServiceFactory.ToJSON(svc))
}

// GetService returns one service.
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.Store.GetService(r.Context(), generic.ServiceID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, "Failed to get service", err)
		return
	}
	writeJSON(w, http.StatusOK, h.ServiceFactory.ToJSON(svc))
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// ListBookings returns bookings starting in [from, to]. Both default to today.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	stored, err := h.Store.ListBookings(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bookings", err)
		return
	}

	dtos := make([]BookingDTO, len(stored))
	for i, sb := range stored {
		dtos[i] = toBookingDTO(sb.Booking, sb.CreatedAt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBooking returns one booking with its commitments.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	sb, err := h.Store.GetBooking(r.Context(), generic.BookingID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, "Failed to get booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(sb.Booking, sb.CreatedAt))
}

// CreateBooking places a booking. See PLACING A BOOKING above.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = h.newID()
	}

	outcome, err := h.placeBooking(r.Context(), req)
	if err != nil {
		writeStoreError(w, "Failed to place booking", err)
		return
	}

	h.Metrics.observeOutcome(outcome.IsResourced())
	switch o := outcome.(type) {
	case generic.ResourcedBooking:
		h.Logger.Info().
			Str("booking_id", string(o.Booking.ID)).
			Str("service_id", string(o.Booking.Service().ID)).
			Str("slot", o.Booking.Timeslot.String()).
			Int("commitments", len(o.Commitments)).
			Msg("booking resourced")
		writeJSON(w, http.StatusCreated, toResourcedBookingDTO(o, time.Now()))
	case generic.UnresourceableBooking:
		ids := o.RequirementIDs()
		unmet := make([]string, len(ids))
		for i, id := range ids {
			unmet[i] = string(id)
		}
		h.Logger.Info().
			Str("booking_id", string(o.Booking.ID)).
			Str("slot", o.Booking.Timeslot.String()).
			Strs("unresourceable", unmet).
			Msg("booking unresourceable")
		writeJSON(w, http.StatusConflict, BookingConflictResponse{
			Error:          "Booking cannot be resourced",
			BookingID:      string(o.Booking.ID),
			Unresourceable: unmet,
		})
	}
}

// placeBooking runs the engine over the stored bookings plus the new one and
// saves the new booking if it was resourced.
func (h *Handler) placeBooking(ctx context.Context, req CreateBookingRequest) (generic.BookingOutcome, error) {
	var outcome generic.BookingOutcome
	err := h.Store.WithTx(ctx, func(store generic.Store) error {
		if _, err := store.GetBooking(ctx, generic.BookingID(req.ID)); err == nil {
			return generic.ErrDuplicateBooking
		} else if !errors.Is(err, generic.ErrBookingNotFound) {
			return err
		}

		booking, resources, existing, err := h.loadBookingInputs(ctx, store, req)
		if err != nil {
			return err
		}

		acc, err := generic.ResourceBookings(resources, append(existing, booking), generic.ResourceBookingsOptions{})
		if err != nil {
			return err
		}
		for _, u := range acc.Unresourceable() {
			if u.Booking.ID != booking.ID {
				return fmt.Errorf("booking %s: %w", u.Booking.ID, generic.ErrStoredBookingUnresourceable)
			}
		}
		o, ok := acc.OutcomeFor(booking.ID)
		if !ok {
			return errors.New("booking missing from allocation result")
		}
		outcome = o

		if rb, ok := o.(generic.ResourcedBooking); ok {
			return store.SaveBooking(ctx, rb)
		}
		return nil
	})
	return outcome, err
}

// loadBookingInputs resolves the request against the store and returns the
// new booking, the resource pool and the stored bookings that may intersect
// it, oldest first.
func (h *Handler) loadBookingInputs(ctx context.Context, store generic.Store, req CreateBookingRequest) (generic.Booking, []generic.Resource, []generic.Booking, error) {
	svc, err := store.GetService(ctx, generic.ServiceID(req.ServiceID))
	if err != nil {
		return generic.Booking{}, nil, nil, err
	}
	resources, err := store.ListResources(ctx)
	if err != nil {
		return generic.Booking{}, nil, nil, err
	}

	booking, err := factory.BookingFromJSON(req,
		map[generic.ServiceID]generic.Service{svc.ID: svc},
		indexResources(resources))
	if err != nil {
		return generic.Booking{}, nil, nil, err
	}

	stored, err := store.ListBookings(ctx, booking.Timeslot.Date().AddDays(-1), booking.Timeslot.To.Date)
	if err != nil {
		return generic.Booking{}, nil, nil, err
	}
	return booking, resources, generic.Bookings(stored), nil
}

// =============================================================================
// AVAILABILITY
// =============================================================================

// CheckAvailability answers, for every candidate slot of the requested
// length inside opening hours, whether the booking could be resourced there.
// Candidate slots are evaluated independently against the stored bookings.
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { h.Metrics.AvailabilityDuration.Observe(time.Since(start).Seconds()) }()

	var req AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	from, to, err := dateRange(req.From, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	candidates, err := h.Hours.Slots(from, to, req.SlotMinutes, req.StepMinutes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot length", err)
		return
	}
	if req.Capacity < 0 {
		writeError(w, http.StatusBadRequest, "Invalid capacity", generic.ErrInvalidCapacity)
		return
	}

	ctx := r.Context()
	svc, err := h.Store.GetService(ctx, generic.ServiceID(req.ServiceID))
	if err != nil {
		writeStoreError(w, "Failed to get service", err)
		return
	}
	resources, err := h.Store.ListResources(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list resources", err)
		return
	}
	stored, err := h.Store.ListBookings(ctx, from.AddDays(-1), to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bookings", err)
		return
	}

	fixed, err := factory.FixedCommitments("availability", svc, req.Fixed, indexResources(resources))
	if err != nil {
		writeStoreError(w, "Invalid fixed commitment", err)
		return
	}
	spec := generic.BookingSpec{Service: svc, BookedCapacity: generic.Capacity(req.Capacity), FixedCommitments: fixed}

	results, err := generic.ListAvailability(resources, generic.Bookings(stored), spec, candidates)
	if err != nil {
		writeStoreError(w, "Failed to check availability", err)
		return
	}
	h.Metrics.AvailabilitySlots.Add(float64(len(candidates)))

	writeJSON(w, http.StatusOK, toAvailabilityResponse(svc.ID, generic.GroupByDate(results)))
}

// =============================================================================
// ADMIN
// =============================================================================

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) setCurrentScenario(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = name
}

func (h *Handler) scenarioName() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.currentScenario
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeStoreError picks the status from the error kind.
func writeStoreError(w http.ResponseWriter, message string, err error) {
	writeError(w, errorStatus(err), message, err)
}

func errorStatus(err error) int {
	switch {
	case generic.IsConflict(err):
		return http.StatusConflict
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// dateRange parses an inclusive date range. An empty from means today, an
// empty to means from.
func dateRange(fromStr, toStr string) (generic.Date, generic.Date, error) {
	from := today()
	if fromStr != "" {
		d, err := generic.ParseDate(fromStr)
		if err != nil {
			return generic.Date{}, generic.Date{}, err
		}
		from = d
	}

	to := from
	if toStr != "" {
		d, err := generic.ParseDate(toStr)
		if err != nil {
			return generic.Date{}, generic.Date{}, err
		}
		to = d
	}
	if to.Before(from) {
		return generic.Date{}, generic.Date{}, errors.New("to is before from")
	}
	return from, to, nil
}

func indexResources(resources []generic.Resource) map[generic.ResourceID]generic.Resource {
	idx := make(map[generic.ResourceID]generic.Resource, len(resources))
	for _, r := range resources {
		idx[r.ID] = r
	}
	return idx
}
