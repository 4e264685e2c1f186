package catalog

import (
	"fmt"
	"time"

	"github.com/warp/slot-engine/generic"
)

// =============================================================================
// OPENING HOURS
// =============================================================================

// OpeningHours lists the clock-time windows a business is open per weekday.
// Days without an entry are closed.
type OpeningHours map[time.Weekday][]generic.TimePeriod

// WeekdayHours opens Monday to Friday from opens to closes.
func WeekdayHours(opens, closes generic.TimeOfDay) OpeningHours {
	h := OpeningHours{}
	for d := time.Monday; d <= time.Friday; d++ {
		h[d] = []generic.TimePeriod{{From: opens, To: closes}}
	}
	return h
}

// EveryDay opens all seven days from opens to closes.
func EveryDay(opens, closes generic.TimeOfDay) OpeningHours {
	h := OpeningHours{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		h[d] = []generic.TimePeriod{{From: opens, To: closes}}
	}
	return h
}

// Windows returns one availability window per opening period for every day
// in [from, to]. Suitable as a resource's Availability.
func (h OpeningHours) Windows(from, to generic.Date) []generic.Timeslot {
	var out []generic.Timeslot
	for d := from; !d.After(to); d = d.AddDays(1) {
		for _, p := range h[d.Weekday()] {
			out = append(out, generic.NewTimeslot(d, p.From, p.To))
		}
	}
	return out
}

// Slots generates candidate booking slots of length minutes, starting every
// step minutes, inside the opening windows of every day in [from, to].
func (h OpeningHours) Slots(from, to generic.Date, length, step int) ([]generic.Timeslot, error) {
	if length <= 0 {
		return nil, fmt.Errorf("slot length must be positive, got %d", length)
	}
	if step <= 0 {
		step = length
	}
	if to.Before(from) {
		return nil, fmt.Errorf("date range %s..%s is inverted", from, to)
	}

	var out []generic.Timeslot
	for d := from; !d.After(to); d = d.AddDays(1) {
		for _, p := range h[d.Weekday()] {
			out = append(out, generic.SlotsBetween(d, p, length, step)...)
		}
	}
	return out, nil
}
