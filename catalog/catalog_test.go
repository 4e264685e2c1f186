package catalog_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/slot-engine/catalog"
	"github.com/warp/slot-engine/factory"
	"github.com/warp/slot-engine/generic"
)

var monday = generic.NewDate(2030, time.January, 7)

func TestOpeningHours_Windows(t *testing.T) {
	h := catalog.WeekdayHours(generic.NewTimeOfDay(9, 0), generic.NewTimeOfDay(17, 0))

	// Monday to Sunday: five working days.
	windows := h.Windows(monday, monday.AddDays(6))
	require.Len(t, windows, 5)
	assert.Equal(t, "2030-01-07 09:00-17:00", windows[0].String())
	assert.Equal(t, "2030-01-11 09:00-17:00", windows[4].String())

	assert.Len(t, catalog.EveryDay(generic.NewTimeOfDay(9, 0), generic.NewTimeOfDay(17, 0)).Windows(monday, monday.AddDays(6)), 7)
}

func TestOpeningHours_Slots(t *testing.T) {
	h := catalog.OpeningHours{time.Monday: {{From: generic.NewTimeOfDay(9, 0), To: generic.NewTimeOfDay(11, 0)}}}

	t.Run("step defaults to length", func(t *testing.T) {
		slots, err := h.Slots(monday, monday, 60, 0)
		require.NoError(t, err)
		require.Len(t, slots, 2)
		assert.Equal(t, "2030-01-07 09:00-10:00", slots[0].String())
		assert.Equal(t, "2030-01-07 10:00-11:00", slots[1].String())
	})

	t.Run("overlapping candidates", func(t *testing.T) {
		slots, err := h.Slots(monday, monday.AddDays(1), 60, 30)
		require.NoError(t, err)
		assert.Len(t, slots, 3, "09:00 09:30 10:00, tuesday closed")
	})

	t.Run("errors", func(t *testing.T) {
		_, err := h.Slots(monday, monday, 0, 15)
		assert.Error(t, err)
		_, err = h.Slots(monday, monday.AddDays(-1), 60, 60)
		assert.Error(t, err)
	})
}

func TestPresetServicesParse(t *testing.T) {
	f := factory.NewServiceFactory()
	presets := map[string]string{
		"one to one":   catalog.OneToOneJSON("massage", "Massage", string(catalog.TypeStaff)),
		"two staff":    catalog.TwoStaffJSON("double", "Double"),
		"group class":  catalog.GroupClassJSON("yoga", "Yoga", 10),
		"vehicle hire": catalog.VehicleHireJSON("van", "Van", 7, "white"),
		"any colour":   catalog.VehicleHireJSON("van-any", "Van", 3, ""),
		"with chair":   catalog.WithChairJSON("cut", "Cut", "chair-1"),
	}
	for name, js := range presets {
		t.Run(name, func(t *testing.T) {
			svc, err := f.ParseService(js)
			require.NoError(t, err)
			assert.NotEmpty(t, svc.Requirements)
		})
	}
}

func TestPresets_MatchCatalogResources(t *testing.T) {
	f := factory.NewServiceFactory()
	hire, err := f.ParseService(catalog.VehicleHireJSON("van", "Van", 7, "white"))
	require.NoError(t, err)
	req := hire.Requirements[0]

	open := catalog.EveryDay(generic.NewTimeOfDay(8, 0), generic.NewTimeOfDay(18, 0)).Windows(monday, monday)
	assert.True(t, generic.ResourceMatchesRequirement(catalog.Vehicle("v1", 7, "white", false, open), req))
	assert.False(t, generic.ResourceMatchesRequirement(catalog.Vehicle("v2", 6, "white", false, open), req), "too few seats")
	assert.False(t, generic.ResourceMatchesRequirement(catalog.Vehicle("v3", 9, "red", true, open), req), "wrong colour")
	assert.False(t, generic.ResourceMatchesRequirement(catalog.Room("r1", 7, open), req), "wrong type")

	class, err := f.ParseService(catalog.GroupClassJSON("yoga", "Yoga", 10))
	require.NoError(t, err)
	assert.Equal(t, generic.Capacity(10), class.PoolCapacity())
	assert.True(t, generic.ResourceMatchesRequirement(catalog.Staff("anna", "Anna", "yoga", open), class.Requirements[0]))
}
