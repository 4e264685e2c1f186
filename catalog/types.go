// Package catalog holds the slot-booking domain presets built on the generic
// engine: well-known resource types, ready-made services, and opening hours.
package catalog

import "github.com/warp/slot-engine/generic"

// =============================================================================
// RESOURCE TYPES
// =============================================================================

const (
	TypeStaff   generic.ResourceType = "staff"
	TypeRoom    generic.ResourceType = "room"
	TypeVehicle generic.ResourceType = "vehicle"
	TypeUnit    generic.ResourceType = "unit"
)

// Metadata keys used by the presets.
const (
	MetaName     = "name"
	MetaSkills   = "skills"
	MetaCapacity = "capacity"
	MetaSeats    = "seats"
	MetaColour   = "colour"
	MetaElectric = "electric"
)

// =============================================================================
// RESOURCE CONSTRUCTORS
// =============================================================================

// Staff is a person. skills is a comma separated list matched with contains.
func Staff(id generic.ResourceID, name, skills string, availability []generic.Timeslot) generic.Resource {
	return generic.NewResource(id, TypeStaff, availability, map[string]generic.MetadataValue{
		MetaName:   generic.StringValue(name),
		MetaSkills: generic.StringValue(skills),
	})
}

// Room is a space with a head count.
func Room(id generic.ResourceID, capacity int64, availability []generic.Timeslot) generic.Resource {
	return generic.NewResource(id, TypeRoom, availability, map[string]generic.MetadataValue{
		MetaCapacity: generic.IntValue(capacity),
	})
}

func Vehicle(id generic.ResourceID, seats int64, colour string, electric bool, availability []generic.Timeslot) generic.Resource {
	return generic.NewResource(id, TypeVehicle, availability, map[string]generic.MetadataValue{
		MetaSeats:    generic.IntValue(seats),
		MetaColour:   generic.StringValue(colour),
		MetaElectric: generic.BoolValue(electric),
	})
}

// Unit is an interchangeable item with no metadata (a chair, a locker).
func Unit(id generic.ResourceID, availability []generic.Timeslot) generic.Resource {
	return generic.NewResource(id, TypeUnit, availability, nil)
}
