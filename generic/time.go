package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day without a time zone
// =============================================================================

type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses an ISO date ("2006-01-02").
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q: %v", ErrInvalidTime, s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) time() time.Time { return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC) }

func (d Date) String() string         { return d.time().Format("2006-01-02") }
func (d Date) Equal(other Date) bool  { return d == other }
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

func (d Date) AddDays(n int) Date {
	t := d.time().AddDate(0, 0, n)
	return Date{t.Year(), t.Month(), t.Day()}
}

func (d Date) Weekday() time.Weekday { return d.time().Weekday() }
func (d Date) IsZero() bool          { return d == Date{} }

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return compareInts(d.Year, other.Year)
	case d.Month != other.Month:
		return compareInts(int(d.Month), int(other.Month))
	default:
		return compareInts(d.Day, other.Day)
	}
}

// =============================================================================
// TIME OF DAY - 24 hour clock time, minute precision
// =============================================================================

type TimeOfDay struct {
	Hour   int
	Minute int
}

func NewTimeOfDay(hour, minute int) TimeOfDay { return TimeOfDay{Hour: hour, Minute: minute} }

// ParseTimeOfDay parses "15:04". "24:00" is accepted as end of day.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if s == "24:00" {
		return TimeOfDay{Hour: 24}, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: time of day %q: %v", ErrInvalidTime, s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) Minutes() int                { return t.Hour*60 + t.Minute }
func (t TimeOfDay) Compare(other TimeOfDay) int { return compareInts(t.Minutes(), other.Minutes()) }
func (t TimeOfDay) Before(other TimeOfDay) bool { return t.Compare(other) < 0 }
func (t TimeOfDay) After(other TimeOfDay) bool  { return t.Compare(other) > 0 }
func (t TimeOfDay) String() string              { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// Add shifts the time by the given number of minutes. The result is not
// wrapped past midnight; callers that generate slots stop at the period end.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	total := t.Minutes() + minutes
	return TimeOfDay{Hour: total / 60, Minute: total % 60}
}

// =============================================================================
// DATE TIME
// =============================================================================

type DateTime struct {
	Date Date
	Time TimeOfDay
}

func (dt DateTime) Compare(other DateTime) int {
	if c := dt.Date.Compare(other.Date); c != 0 {
		return c
	}
	return dt.Time.Compare(other.Time)
}

func (dt DateTime) String() string { return dt.Date.String() + "T" + dt.Time.String() }

// =============================================================================
// TIME PERIOD - A range of clock times, independent of date
// =============================================================================

type TimePeriod struct {
	From TimeOfDay
	To   TimeOfDay
}

// Contains reports whether other lies entirely within p.
func (p TimePeriod) Contains(other TimePeriod) bool {
	return p.From.Compare(other.From) <= 0 && p.To.Compare(other.To) >= 0
}

// Intersects reports a true overlap. Periods that only touch do not intersect.
func (p TimePeriod) Intersects(other TimePeriod) bool {
	return p.From.Before(other.To) && other.From.Before(p.To)
}

func (p TimePeriod) String() string { return p.From.String() + "-" + p.To.String() }

// =============================================================================
// TIMESLOT - Date-bounded start/end
// =============================================================================

type Timeslot struct {
	From DateTime
	To   DateTime
}

// NewTimeslot builds a slot that starts and ends on the same date.
func NewTimeslot(date Date, from, to TimeOfDay) Timeslot {
	return Timeslot{From: DateTime{Date: date, Time: from}, To: DateTime{Date: date, Time: to}}
}

// ParseTimeslot parses a date plus "15:04" bounds.
func ParseTimeslot(date, from, to string) (Timeslot, error) {
	d, err := ParseDate(date)
	if err != nil {
		return Timeslot{}, err
	}
	f, err := ParseTimeOfDay(from)
	if err != nil {
		return Timeslot{}, err
	}
	t, err := ParseTimeOfDay(to)
	if err != nil {
		return Timeslot{}, err
	}
	slot := NewTimeslot(d, f, t)
	return slot, slot.Validate()
}

// Validate rejects empty or inverted slots.
func (s Timeslot) Validate() error {
	if s.From.Compare(s.To) >= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeslot, s)
	}
	return nil
}

// Period returns the clock-time range of the slot.
func (s Timeslot) Period() TimePeriod { return TimePeriod{From: s.From.Time, To: s.To.Time} }

// Date returns the start date of the slot.
func (s Timeslot) Date() Date { return s.From.Date }

func (s Timeslot) String() string {
	if s.From.Date == s.To.Date {
		return s.From.Date.String() + " " + s.Period().String()
	}
	return s.From.String() + "/" + s.To.String()
}

// Overlaps reports whether smaller is contained within larger: both slots
// cover the same dates and larger's bounds enclose smaller's. It answers
// "does this candidate fall inside an availability window", not "do these
// two bookings clash" (see Intersects).
func Overlaps(larger, smaller Timeslot) bool {
	return larger.From.Date == smaller.From.Date &&
		larger.To.Date == smaller.To.Date &&
		larger.From.Time.Compare(smaller.From.Time) <= 0 &&
		larger.To.Time.Compare(smaller.To.Time) >= 0
}

// Intersects is the set-overlap test used to detect scheduling conflicts.
// Back-to-back slots (a.To == b.From) do not intersect.
func Intersects(a, b Timeslot) bool {
	return a.From.Compare(b.To) < 0 && b.From.Compare(a.To) < 0
}

// SlotsBetween generates consecutive slots of the given length inside period
// on date, starting every step minutes. Slots never extend past period.To.
func SlotsBetween(date Date, period TimePeriod, lengthMinutes, stepMinutes int) []Timeslot {
	if lengthMinutes <= 0 || stepMinutes <= 0 {
		return nil
	}
	var slots []Timeslot
	for from := period.From; from.Add(lengthMinutes).Compare(period.To) <= 0; from = from.Add(stepMinutes) {
		slots = append(slots, NewTimeslot(date, from, from.Add(lengthMinutes)))
	}
	return slots
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
