// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/slot-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	resources map[generic.ResourceID]generic.Resource
	order     []generic.ResourceID
	services  map[generic.ServiceID]generic.Service
	bookings  map[generic.BookingID]generic.StoredBooking
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		resources: make(map[generic.ResourceID]generic.Resource),
		services:  make(map[generic.ServiceID]generic.Service),
		bookings:  make(map[generic.BookingID]generic.StoredBooking),
		now:       time.Now,
	}
}

// WithClock replaces the creation-time source. Used by tests that need a
// stable first-come-first-served order.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// SaveResource inserts or replaces a resource. Insertion order is kept so
// the engine sees a stable resource pool.
func (m *Memory) SaveResource(_ context.Context, r generic.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveResourceLocked(r)
}

func (m *Memory) saveResourceLocked(r generic.Resource) error {
	if err := generic.CheckResourceEdit(r, m.allBookingsLocked()); err != nil {
		return err
	}
	if _, ok := m.resources[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.resources[r.ID] = r
	return nil
}

func (m *Memory) GetResource(_ context.Context, id generic.ResourceID) (generic.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resources[id]
	if !ok {
		return generic.Resource{}, generic.ErrResourceNotFound
	}
	return r, nil
}

func (m *Memory) ListResources(_ context.Context) ([]generic.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listResourcesLocked(), nil
}

func (m *Memory) listResourcesLocked() []generic.Resource {
	out := make([]generic.Resource, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.resources[id])
	}
	return out
}

func (m *Memory) SaveService(_ context.Context, s generic.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveServiceLocked(s)
}

func (m *Memory) saveServiceLocked(s generic.Service) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := generic.CheckServiceEdit(s, m.allBookingsLocked(), m.listResourcesLocked()); err != nil {
		return err
	}
	m.services[s.ID] = s
	return nil
}

func (m *Memory) GetService(_ context.Context, id generic.ServiceID) (generic.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.services[id]
	if !ok {
		return generic.Service{}, generic.ErrServiceNotFound
	}
	return s, nil
}

func (m *Memory) ListServices(_ context.Context) ([]generic.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]generic.Service, 0, len(m.services))
	for _, s := range m.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveBooking(_ context.Context, rb generic.ResourcedBooking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveBookingLocked(rb)
}

func (m *Memory) saveBookingLocked(rb generic.ResourcedBooking) error {
	if _, ok := m.bookings[rb.Booking.ID]; ok {
		return generic.ErrDuplicateBooking
	}
	m.bookings[rb.Booking.ID] = generic.StoredBooking{
		Booking:   generic.PinCommitments(rb),
		CreatedAt: m.now(),
	}
	return nil
}

func (m *Memory) GetBooking(_ context.Context, id generic.BookingID) (generic.StoredBooking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return generic.StoredBooking{}, generic.ErrBookingNotFound
	}
	return b, nil
}

func (m *Memory) ListBookings(_ context.Context, from, to generic.Date) ([]generic.StoredBooking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listBookingsLocked(from, to), nil
}

func (m *Memory) allBookingsLocked() []generic.StoredBooking {
	out := make([]generic.StoredBooking, 0, len(m.bookings))
	for _, b := range m.bookings {
		out = append(out, b)
	}
	return out
}

func (m *Memory) listBookingsLocked(from, to generic.Date) []generic.StoredBooking {
	var out []generic.StoredBooking
	for _, b := range m.bookings {
		d := b.Booking.Timeslot.Date()
		if !d.Before(from) && !d.After(to) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Booking.ID < out[j].Booking.ID
	})
	return out
}

// Reset deletes all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources = make(map[generic.ResourceID]generic.Resource)
	m.order = nil
	m.services = make(map[generic.ServiceID]generic.Service)
	m.bookings = make(map[generic.BookingID]generic.StoredBooking)
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	resources map[generic.ResourceID]generic.Resource
	order     []generic.ResourceID
	services  map[generic.ServiceID]generic.Service
	bookings  map[generic.BookingID]generic.StoredBooking
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		resources: make(map[generic.ResourceID]generic.Resource, len(tm.resources)),
		order:     append([]generic.ResourceID(nil), tm.order...),
		services:  make(map[generic.ServiceID]generic.Service, len(tm.services)),
		bookings:  make(map[generic.BookingID]generic.StoredBooking, len(tm.bookings)),
	}
	for k, v := range tm.resources {
		s.resources[k] = v
	}
	for k, v := range tm.services {
		s.services[k] = v
	}
	for k, v := range tm.bookings {
		s.bookings[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.resources = s.resources
	tm.order = s.order
	tm.services = s.services
	tm.bookings = s.bookings
}

// txMemoryView runs with the parent's lock already held.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) SaveResource(_ context.Context, r generic.Resource) error {
	return tv.parent.saveResourceLocked(r)
}

func (tv *txMemoryView) GetResource(_ context.Context, id generic.ResourceID) (generic.Resource, error) {
	r, ok := tv.parent.resources[id]
	if !ok {
		return generic.Resource{}, generic.ErrResourceNotFound
	}
	return r, nil
}

func (tv *txMemoryView) ListResources(_ context.Context) ([]generic.Resource, error) {
	return tv.parent.listResourcesLocked(), nil
}

func (tv *txMemoryView) SaveService(_ context.Context, s generic.Service) error {
	return tv.parent.saveServiceLocked(s)
}

func (tv *txMemoryView) GetService(_ context.Context, id generic.ServiceID) (generic.Service, error) {
	s, ok := tv.parent.services[id]
	if !ok {
		return generic.Service{}, generic.ErrServiceNotFound
	}
	return s, nil
}

func (tv *txMemoryView) ListServices(_ context.Context) ([]generic.Service, error) {
	out := make([]generic.Service, 0, len(tv.parent.services))
	for _, s := range tv.parent.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tv *txMemoryView) SaveBooking(_ context.Context, rb generic.ResourcedBooking) error {
	return tv.parent.saveBookingLocked(rb)
}

func (tv *txMemoryView) GetBooking(_ context.Context, id generic.BookingID) (generic.StoredBooking, error) {
	b, ok := tv.parent.bookings[id]
	if !ok {
		return generic.StoredBooking{}, generic.ErrBookingNotFound
	}
	return b, nil
}

func (tv *txMemoryView) ListBookings(_ context.Context, from, to generic.Date) ([]generic.StoredBooking, error) {
	return tv.parent.listBookingsLocked(from, to), nil
}
