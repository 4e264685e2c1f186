/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates resources, services
	and a few bookings that demonstrate specific engine behavior.

AVAILABLE SCENARIOS:

	salon:       Stylists, one pinned chair, a two-stylist service (unique rule)
	yoga-studio: Pooled group class sharing one instructor and one room
	van-hire:    Vehicles picked by metadata predicates (seats, colour)

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create resources with two weeks of availability from today
 3. Create services from catalog presets via the factory
 4. Place bookings through the same path as POST /api/bookings, so the
    stored commitments are exactly what the engine picked

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "yoga-studio"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: placeBooking
  - catalog/services.go: Preset service JSON
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/slot-engine/catalog"
	"github.com/warp/slot-engine/factory"
	"github.com/warp/slot-engine/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "salon",
		Name:        "Hair Salon",
		Description: "Three stylists, a pinned colour chair, and a two-stylist service",
		Category:    "staff",
	},
	{
		ID:          "yoga-studio",
		Name:        "Yoga Studio",
		Description: "Pooled class of 10 places sharing one instructor and one room",
		Category:    "pooled",
	},
	{
		ID:          "van-hire",
		Name:        "Van Hire",
		Description: "Vehicles matched by seats and colour",
		Category:    "metadata",
	},
}

// scenarioDays is how far ahead scenario resources are available.
const scenarioDays = 14

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.scenarioName()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          current,
		Name:        current,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("")

	start := today()
	var err error
	switch req.ScenarioID {
	case "salon":
		err = h.loadSalonScenario(ctx, start)
	case "yoga-studio":
		err = h.loadYogaStudioScenario(ctx, start)
	case "van-hire":
		err = h.loadVanHireScenario(ctx, start)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.setCurrentScenario(req.ScenarioID)
	h.Logger.Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadSalonScenario(ctx context.Context, start generic.Date) error {
	hours := catalog.WeekdayHours(generic.NewTimeOfDay(9, 0), generic.NewTimeOfDay(18, 0))
	windows := hours.Windows(start, start.AddDays(scenarioDays))

	resources := []generic.Resource{
		catalog.Staff("anna", "Anna", "cut,colour", windows),
		catalog.Staff("ben", "Ben", "cut", windows),
		catalog.Staff("chloe", "Chloe", "cut,colour,styling", windows),
		catalog.Unit("colour-chair", windows),
	}
	services := []string{
		catalog.OneToOneJSON("cut", "Haircut", string(catalog.TypeStaff)),
		catalog.TwoStaffJSON("bridal", "Bridal styling"),
		catalog.WithChairJSON("colour", "Colour treatment", "colour-chair"),
	}
	if err := h.seed(ctx, resources, services); err != nil {
		return err
	}

	day := nextWeekday(start)
	bookings := []factory.BookingJSON{
		{ID: "salon-1", ServiceID: "cut", Date: day.String(), From: "10:00", To: "10:45"},
		{ID: "salon-2", ServiceID: "colour", Date: day.String(), From: "10:00", To: "11:30"},
		{ID: "salon-3", ServiceID: "bridal", Date: day.String(), From: "14:00", To: "16:00"},
		{ID: "salon-4", ServiceID: "cut", Date: day.String(), From: "16:30", To: "17:15",
			Fixed: []factory.FixedJSON{{RequirementID: "staff", ResourceID: "chloe"}}},
	}
	return h.placeAll(ctx, bookings)
}

func (h *Handler) loadYogaStudioScenario(ctx context.Context, start generic.Date) error {
	hours := catalog.EveryDay(generic.NewTimeOfDay(7, 0), generic.NewTimeOfDay(21, 0))
	windows := hours.Windows(start, start.AddDays(scenarioDays))

	resources := []generic.Resource{
		catalog.Staff("priya", "Priya", "yoga,pilates", windows),
		catalog.Staff("tom", "Tom", "yoga", windows),
		catalog.Room("studio-a", 12, windows),
		catalog.Room("studio-b", 8, windows),
	}
	services := []string{
		catalog.GroupClassJSON("morning-flow", "Morning flow", 10),
		catalog.OneToOneJSON("private", "Private session", string(catalog.TypeStaff)),
	}
	if err := h.seed(ctx, resources, services); err != nil {
		return err
	}

	var bookings []factory.BookingJSON
	for i := 1; i <= 8; i++ {
		bookings = append(bookings, factory.BookingJSON{
			ID: fmt.Sprintf("yoga-%d", i), ServiceID: "morning-flow",
			Date: start.AddDays(1).String(), From: "07:30", To: "08:30",
		})
	}
	bookings = append(bookings, factory.BookingJSON{
		ID: "yoga-private", ServiceID: "private", Date: start.AddDays(1).String(), From: "07:30", To: "08:30",
	})
	return h.placeAll(ctx, bookings)
}

func (h *Handler) loadVanHireScenario(ctx context.Context, start generic.Date) error {
	hours := catalog.EveryDay(generic.NewTimeOfDay(8, 0), generic.NewTimeOfDay(20, 0))
	windows := hours.Windows(start, start.AddDays(scenarioDays))

	resources := []generic.Resource{
		catalog.Vehicle("van-small", 3, "white", false, windows),
		catalog.Vehicle("van-crew", 7, "white", true, windows),
		catalog.Vehicle("minibus", 12, "blue", false, windows),
	}
	services := []string{
		catalog.VehicleHireJSON("crew-van", "Crew van, 6+ seats", 6, "white"),
		catalog.VehicleHireJSON("people-carrier", "Any vehicle, 6+ seats", 6, ""),
		catalog.VehicleHireJSON("small-van", "Small van", 2, ""),
	}
	if err := h.seed(ctx, resources, services); err != nil {
		return err
	}

	day := start.AddDays(2).String()
	bookings := []factory.BookingJSON{
		{ID: "hire-1", ServiceID: "crew-van", Date: day, From: "09:00", To: "17:00"},
		{ID: "hire-2", ServiceID: "people-carrier", Date: day, From: "10:00", To: "12:00"},
		// Both 6+ seat vehicles are out; this one is expected to fail.
		{ID: "hire-3", ServiceID: "people-carrier", Date: day, From: "11:00", To: "13:00"},
	}
	return h.placeAll(ctx, bookings)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) seed(ctx context.Context, resources []generic.Resource, serviceJSON []string) error {
	for _, r := range resources {
		if err := h.Store.SaveResource(ctx, r); err != nil {
			return err
		}
	}
	for _, sj := range serviceJSON {
		svc, err := h.ServiceFactory.ParseService(sj)
		if err != nil {
			return err
		}
		if err := h.Store.SaveService(ctx, svc); err != nil {
			return err
		}
	}
	return nil
}

// placeAll places bookings in order. Unresourceable bookings are part of
// the demo and are logged, not treated as failures.
func (h *Handler) placeAll(ctx context.Context, bookings []factory.BookingJSON) error {
	for _, bj := range bookings {
		outcome, err := h.placeBooking(ctx, bj)
		if err != nil {
			return fmt.Errorf("booking %s: %w", bj.ID, err)
		}
		h.Metrics.observeOutcome(outcome.IsResourced())
		if !outcome.IsResourced() {
			h.Logger.Debug().Str("booking_id", bj.ID).Msg("scenario booking unresourceable")
		}
	}
	return nil
}

func today() generic.Date {
	now := time.Now().UTC()
	return generic.NewDate(now.Year(), now.Month(), now.Day())
}

// nextWeekday returns d, or the following Monday when d is a weekend day.
func nextWeekday(d generic.Date) generic.Date {
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDays(1)
	}
	return d
}
