/*
resource.go - Schedulable resources and their metadata

PURPOSE:
  A Resource is a concrete, schedulable entity: a member of staff, a room,
  a vehicle, an inventory unit. It has a type, a set of availability windows
  and optional metadata used by complex requirements.

AVAILABILITY IS CAPABILITY:
  Availability describes when the resource CAN be booked, not when it is
  booked. Current bookings live in the ResourcingAccumulator (accumulator.go).

METADATA:
  Metadata values are strings, numbers or booleans. Numbers use
  decimal.Decimal so predicates such as "seats > 4.5" compare exactly.

SEE ALSO:
  - requirement.go: Requirements and matching
  - accumulator.go: Per-resource booking ledger
*/
package generic

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ResourceID string
type ResourceType string

// =============================================================================
// RESOURCE
// =============================================================================

// Resource is immutable once constructed. Use NewResource so the engine never
// shares slices or maps with the caller.
type Resource struct {
	ID           ResourceID
	Type         ResourceType
	Availability []Timeslot
	Metadata     map[string]MetadataValue
}

func NewResource(id ResourceID, resourceType ResourceType, availability []Timeslot, metadata map[string]MetadataValue) Resource {
	r := Resource{
		ID:           id,
		Type:         resourceType,
		Availability: append([]Timeslot(nil), availability...),
	}
	if len(metadata) > 0 {
		r.Metadata = make(map[string]MetadataValue, len(metadata))
		for k, v := range metadata {
			r.Metadata[k] = v
		}
	}
	return r
}

// IsAvailableFor reports whether any availability window contains the slot.
func (r Resource) IsAvailableFor(slot Timeslot) bool {
	for _, window := range r.Availability {
		if Overlaps(window, slot) {
			return true
		}
	}
	return false
}

// Meta returns the metadata value stored under key.
func (r Resource) Meta(key string) (MetadataValue, bool) {
	v, ok := r.Metadata[key]
	return v, ok
}

// =============================================================================
// METADATA VALUE - string | number | boolean
// =============================================================================

type MetadataKind int

const (
	MetadataString MetadataKind = iota + 1
	MetadataNumber
	MetadataBool
)

func (k MetadataKind) String() string {
	switch k {
	case MetadataString:
		return "string"
	case MetadataNumber:
		return "number"
	case MetadataBool:
		return "boolean"
	default:
		return "invalid"
	}
}

type MetadataValue struct {
	kind MetadataKind
	str  string
	num  decimal.Decimal
	b    bool
}

func StringValue(s string) MetadataValue { return MetadataValue{kind: MetadataString, str: s} }

func NumberValue(d decimal.Decimal) MetadataValue {
	return MetadataValue{kind: MetadataNumber, num: d}
}

func IntValue(n int64) MetadataValue     { return NumberValue(decimal.NewFromInt(n)) }
func FloatValue(f float64) MetadataValue { return NumberValue(decimal.NewFromFloat(f)) }
func BoolValue(b bool) MetadataValue     { return MetadataValue{kind: MetadataBool, b: b} }

func (v MetadataValue) Kind() MetadataKind              { return v.kind }
func (v MetadataValue) Str() (string, bool)             { return v.str, v.kind == MetadataString }
func (v MetadataValue) Number() (decimal.Decimal, bool) { return v.num, v.kind == MetadataNumber }
func (v MetadataValue) Bool() (bool, bool)              { return v.b, v.kind == MetadataBool }

// Equal compares kind and value. Numbers compare by value, so 2 == 2.0.
func (v MetadataValue) Equal(other MetadataValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case MetadataString:
		return v.str == other.str
	case MetadataNumber:
		return v.num.Equal(other.num)
	case MetadataBool:
		return v.b == other.b
	default:
		return false
	}
}

func (v MetadataValue) String() string {
	switch v.kind {
	case MetadataString:
		return v.str
	case MetadataNumber:
		return v.num.String()
	case MetadataBool:
		return fmt.Sprintf("%t", v.b)
	default:
		return "<invalid>"
	}
}

// MarshalJSON writes the value as a native JSON scalar.
func (v MetadataValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case MetadataString:
		return json.Marshal(v.str)
	case MetadataNumber:
		return []byte(v.num.String()), nil
	case MetadataBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON string, number or boolean.
func (v *MetadataValue) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := MetadataValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MetadataValueOf converts a decoded scalar (JSON or YAML) into a MetadataValue.
func MetadataValueOf(raw any) (MetadataValue, error) {
	switch x := raw.(type) {
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return MetadataValue{}, fmt.Errorf("invalid metadata number %q: %w", x, err)
		}
		return NumberValue(d), nil
	case int:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case float64:
		return FloatValue(x), nil
	case decimal.Decimal:
		return NumberValue(x), nil
	default:
		return MetadataValue{}, fmt.Errorf("unsupported metadata value %v (%T)", raw, raw)
	}
}
