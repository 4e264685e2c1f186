package generic

import "fmt"

// =============================================================================
// SERVICE - What a booking books
// =============================================================================

type ServiceID string

// Capacity counts places: the size of a pool, or how many places a booking takes.
type Capacity int

// Service declares the ordered roles a booking needs filled.
//
// Unpooled (Pool == nil): each requirement is sourced independently and a
// resource serves at most one overlapping booking.
//
// Pooled (Pool != nil): every booking of the service that overlaps in time
// shares one quota of *Pool places, and bookings are packed onto the
// resources already serving the service (a group class in one room).
type Service struct {
	ID           ServiceID
	Name         string
	Requirements []ResourceRequirement
	Pool         *Capacity
}

// NewService builds and validates an unpooled service.
func NewService(id ServiceID, name string, requirements ...ResourceRequirement) (Service, error) {
	s := Service{ID: id, Name: name, Requirements: append([]ResourceRequirement(nil), requirements...)}
	return s, s.Validate()
}

// NewPooledService builds and validates a service sharing pool places.
func NewPooledService(id ServiceID, name string, pool Capacity, requirements ...ResourceRequirement) (Service, error) {
	s := Service{ID: id, Name: name, Requirements: append([]ResourceRequirement(nil), requirements...), Pool: &pool}
	return s, s.Validate()
}

// MustService panics on an invalid definition. Use in tests and presets only.
func MustService(s Service, err error) Service {
	if err != nil {
		panic(err)
	}
	return s
}

func (s Service) IsPooled() bool { return s.Pool != nil }

// PoolCapacity returns the pool size, or 0 for unpooled services.
func (s Service) PoolCapacity() Capacity {
	if s.Pool == nil {
		return 0
	}
	return *s.Pool
}

// Requirement finds a requirement by id.
func (s Service) Requirement(id RequirementID) (ResourceRequirement, bool) {
	for _, r := range s.Requirements {
		if r.RequirementID() == id {
			return r, true
		}
	}
	return nil, false
}

// Validate rejects definitions the allocator cannot serve. These errors are
// fatal for every booking of the service and belong at authoring time.
func (s Service) Validate() error {
	if s.Pool != nil && *s.Pool < 1 {
		return &ServiceConfigError{ServiceID: s.ID, Err: fmt.Errorf("%w: pool of %d", ErrInvalidCapacity, *s.Pool)}
	}

	seenIDs := make(map[RequirementID]bool, len(s.Requirements))
	complexTypes := make(map[ResourceType]bool)
	for _, req := range s.Requirements {
		id := req.RequirementID()
		if seenIDs[id] {
			return &ServiceConfigError{ServiceID: s.ID, Requirement: id, Err: ErrDuplicateRequirementID}
		}
		seenIDs[id] = true

		if c, ok := req.(ComplexResourceRequirement); ok {
			if complexTypes[c.ResourceType] {
				return &ServiceConfigError{ServiceID: s.ID, ResourceType: c.ResourceType, Err: ErrMultipleComplexRequirements}
			}
			complexTypes[c.ResourceType] = true
		}
	}
	return nil
}
