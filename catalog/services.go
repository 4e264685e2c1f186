/*
services.go - Preset service definitions

PURPOSE:
  JSON definitions for the services most slot-booking businesses start
  with. They are built as JSON rather than Go structs so they go through
  the same validation and storage path as services authored in the API.

AVAILABLE SERVICES:
  OneToOneJSON:    One resource of a type for the whole slot (a massage)
  TwoStaffJSON:    Two different staff members (a double-handed treatment)
  GroupClassJSON:  Pooled: one instructor and one room shared by N places
  VehicleHireJSON: A vehicle picked by metadata (seats, colour)
  WithChairJSON:   Staff plus one specific unit pinned by id

USAGE:
  svc, err := factory.NewServiceFactory().ParseService(
      catalog.GroupClassJSON("yoga", "Morning yoga", 10))

SEE ALSO:
  - factory/service.go: JSON schema and validation
  - api/scenarios.go: Demo scenarios using these presets
*/
package catalog

import "encoding/json"

// OneToOneJSON returns JSON for a service needing one resource of a type.
func OneToOneJSON(id, name, resourceType string) string {
	sj := map[string]interface{}{
		"id":   id,
		"name": name,
		"requirements": []map[string]interface{}{
			{"id": resourceType, "kind": "any_suitable", "resource_type": resourceType},
		},
	}
	return marshal(sj)
}

// TwoStaffJSON returns JSON for a service needing two distinct staff members.
func TwoStaffJSON(id, name string) string {
	sj := map[string]interface{}{
		"id":   id,
		"name": name,
		"requirements": []map[string]interface{}{
			{"id": "lead", "kind": "any_suitable", "resource_type": string(TypeStaff)},
			{"id": "assistant", "kind": "any_suitable", "resource_type": string(TypeStaff), "rule": "unique"},
		},
	}
	return marshal(sj)
}

// GroupClassJSON returns JSON for a pooled class: every booking overlapping
// in time shares one instructor, one room and places seats.
func GroupClassJSON(id, name string, places int) string {
	sj := map[string]interface{}{
		"id":            id,
		"name":          name,
		"pool_capacity": places,
		"requirements": []map[string]interface{}{
			{"id": "instructor", "kind": "any_suitable", "resource_type": string(TypeStaff)},
			{"id": "room", "kind": "any_suitable", "resource_type": string(TypeRoom)},
		},
	}
	return marshal(sj)
}

// VehicleHireJSON returns JSON for renting a vehicle with more than
// minSeats-1 seats. An empty colour accepts any colour.
func VehicleHireJSON(id, name string, minSeats int, colour string) string {
	preds := []map[string]interface{}{
		{"key": MetaSeats, "op": "greaterThan", "value": minSeats - 1},
	}
	if colour != "" {
		preds = append(preds, map[string]interface{}{"key": MetaColour, "op": "equals", "value": colour})
	}
	sj := map[string]interface{}{
		"id":   id,
		"name": name,
		"requirements": []map[string]interface{}{
			{"id": "vehicle", "kind": "complex", "resource_type": string(TypeVehicle), "predicates": preds},
		},
	}
	return marshal(sj)
}

// WithChairJSON returns JSON for a staff member working at a fixed unit.
func WithChairJSON(id, name, chairID string) string {
	sj := map[string]interface{}{
		"id":   id,
		"name": name,
		"requirements": []map[string]interface{}{
			{"id": "stylist", "kind": "any_suitable", "resource_type": string(TypeStaff)},
			{"id": "chair", "kind": "specific", "resource_type": string(TypeUnit), "resource_id": chairID},
		},
	}
	return marshal(sj)
}

func marshal(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
